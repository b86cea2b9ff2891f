package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercadia/storefront-backend/pkg/db/models"
	"github.com/mercadia/storefront-backend/pkg/enums"
)

// OrderItemDTO is one frozen purchase line. Name and price were snapshotted
// at checkout and never change afterwards.
type OrderItemDTO struct {
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	Name           string     `json:"name"`
	UnitPriceCents int        `json:"unit_price_cents"`
	Quantity       int        `json:"quantity"`
	LineTotalCents int        `json:"line_total_cents"`
}

// OrderDTO is the customer-facing order shape.
type OrderDTO struct {
	ID            uuid.UUID         `json:"id"`
	Reference     string            `json:"reference"`
	CustomerID    uuid.UUID         `json:"customer_id"`
	Status        enums.OrderStatus `json:"status"`
	Currency      enums.Currency    `json:"currency"`
	Items         []OrderItemDTO    `json:"items"`
	SubtotalCents int               `json:"subtotal_cents"`
	DiscountCents int               `json:"discount_cents"`
	TotalCents    int               `json:"total_cents"`
	CouponCode    *string           `json:"coupon_code,omitempty"`
	CouponPercent *int              `json:"coupon_percent,omitempty"`
	PaymentLinkID *string           `json:"payment_link_id,omitempty"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	ShippedAt     *time.Time        `json:"shipped_at,omitempty"`
	CancelledAt   *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ToDTO maps an order row into its API shape.
func ToDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		items = append(items, OrderItemDTO{
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return &OrderDTO{
		ID:            order.ID,
		Reference:     order.Reference,
		CustomerID:    order.CustomerID,
		Status:        order.Status,
		Currency:      order.Currency,
		Items:         items,
		SubtotalCents: order.SubtotalCents,
		DiscountCents: order.DiscountCents,
		TotalCents:    order.TotalCents,
		CouponCode:    order.CouponCode,
		CouponPercent: order.CouponPercent,
		PaymentLinkID: order.PaymentLinkID,
		PaidAt:        order.PaidAt,
		ShippedAt:     order.ShippedAt,
		CancelledAt:   order.CancelledAt,
		CreatedAt:     order.CreatedAt,
	}
}
