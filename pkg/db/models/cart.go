package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadia/storefront-backend/pkg/enums"
)

// Cart is the customer's single open cart. A partial unique index on
// (customer_id) WHERE status = 'open' backs the one-open-cart invariant.
type Cart struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID    uuid.UUID        `gorm:"column:customer_id;type:uuid;not null;index"`
	Status        enums.CartStatus `gorm:"column:status;not null;default:'open'"`
	Currency      enums.Currency   `gorm:"column:currency;not null;default:'USD'"`
	CouponCode    *string          `gorm:"column:coupon_code"`
	CouponPercent *int             `gorm:"column:coupon_percent"`
	ExpiresAt     *time.Time       `gorm:"column:expires_at"`
	ConvertedAt   *time.Time       `gorm:"column:converted_at"`
	Items         []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the dialect has no uuid default.
func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TotalCents sums the line totals. Totals are derived, never stored, so they
// cannot drift from the items.
func (c *Cart) TotalCents() int {
	total := 0
	for _, item := range c.Items {
		total += item.LineTotalCents
	}
	return total
}

// ItemFor returns the line item holding the given product, if any.
func (c *Cart) ItemFor(productID uuid.UUID) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}
