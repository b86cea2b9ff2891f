package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercadia/storefront-backend/pkg/db/models"
	"github.com/mercadia/storefront-backend/pkg/enums"
	"github.com/mercadia/storefront-backend/pkg/pricing"
)

// CartItemDTO is one priced line in the cart view. UnitPriceCents reflects
// the product's current price, not the price at the time the line was added.
type CartItemDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	LineTotalCents int       `json:"line_total_cents"`
	Available      bool      `json:"available"`
}

// CartDTO is the customer-facing cart view with live totals.
type CartDTO struct {
	ID            uuid.UUID        `json:"id"`
	CustomerID    uuid.UUID        `json:"customer_id"`
	Status        enums.CartStatus `json:"status"`
	Currency      enums.Currency   `json:"currency"`
	Items         []CartItemDTO    `json:"items"`
	CouponCode    *string          `json:"coupon_code,omitempty"`
	CouponPercent *int             `json:"coupon_percent,omitempty"`
	CouponValid   bool             `json:"coupon_valid"`
	SubtotalCents int              `json:"subtotal_cents"`
	DiscountCents int              `json:"discount_cents"`
	TotalCents    int              `json:"total_cents"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// buildDTO prices the cart against the current catalog. Lines whose product
// vanished keep their last stored price and are flagged unavailable.
func buildDTO(cart *models.Cart, catalog map[uuid.UUID]*models.Product, couponValid bool) *CartDTO {
	if cart == nil {
		return nil
	}

	items := make([]CartItemDTO, 0, len(cart.Items))
	subtotal := 0
	for i := range cart.Items {
		line := &cart.Items[i]
		unitPrice := line.UnitPriceCents
		name := ""
		available := false
		if product, ok := catalog[line.ProductID]; ok {
			unitPrice = product.PriceCents
			name = product.Name
			available = product.IsActive
		}
		lineTotal := unitPrice * line.Quantity
		subtotal += lineTotal
		items = append(items, CartItemDTO{
			ProductID:      line.ProductID,
			Name:           name,
			Quantity:       line.Quantity,
			UnitPriceCents: unitPrice,
			LineTotalCents: lineTotal,
			Available:      available,
		})
	}

	discount := 0
	if couponValid && cart.CouponPercent != nil {
		discount = pricing.DiscountCents(subtotal, *cart.CouponPercent)
	}

	return &CartDTO{
		ID:            cart.ID,
		CustomerID:    cart.CustomerID,
		Status:        cart.Status,
		Currency:      cart.Currency,
		Items:         items,
		CouponCode:    cart.CouponCode,
		CouponPercent: cart.CouponPercent,
		CouponValid:   couponValid,
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    subtotal - discount,
		ExpiresAt:     cart.ExpiresAt,
		CreatedAt:     cart.CreatedAt,
		UpdatedAt:     cart.UpdatedAt,
	}
}
