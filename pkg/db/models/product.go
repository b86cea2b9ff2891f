package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mercadia/storefront-backend/pkg/enums"
)

// Product is the catalog read model consumed by cart and checkout. Cart lines
// always re-read PriceCents; orders freeze it at checkout.
type Product struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string         `gorm:"column:name;not null"`
	SKU        string         `gorm:"column:sku;uniqueIndex;not null"`
	PriceCents int            `gorm:"column:price_cents;not null"`
	Currency   enums.Currency `gorm:"column:currency;not null;default:'USD'"`
	IsActive   bool           `gorm:"column:is_active;not null;default:true"`
	Tags       pq.StringArray `gorm:"column:tags;type:text[]"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the dialect has no uuid default.
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
