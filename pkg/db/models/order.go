package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadia/storefront-backend/pkg/enums"
)

// Order is the immutable record produced by checkout. Amounts and items never
// change after creation; only the status fields move.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference     string            `gorm:"column:reference;uniqueIndex;not null"`
	CustomerID    uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	Status        enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	Currency      enums.Currency    `gorm:"column:currency;not null;default:'USD'"`
	SubtotalCents int               `gorm:"column:subtotal_cents;not null"`
	DiscountCents int               `gorm:"column:discount_cents;not null;default:0"`
	TotalCents    int               `gorm:"column:total_cents;not null"`
	CouponCode    *string           `gorm:"column:coupon_code"`
	CouponPercent *int              `gorm:"column:coupon_percent"`
	PaymentLinkID *string           `gorm:"column:payment_link_id"`
	PaidAt        *time.Time        `gorm:"column:paid_at"`
	ShippedAt     *time.Time        `gorm:"column:shipped_at"`
	CancelledAt   *time.Time        `gorm:"column:cancelled_at"`
	Items         []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the dialect has no uuid default.
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
