package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Coupon is a percent-off promotional code. Codes are stored upper-cased so
// lookups are case-insensitive. UsedCount only moves through the conditional
// increment in the coupons repository.
type Coupon struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code      string     `gorm:"column:code;uniqueIndex;not null"`
	Percent   int        `gorm:"column:percent;not null"`
	StartsAt  *time.Time `gorm:"column:starts_at"`
	EndsAt    *time.Time `gorm:"column:ends_at"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	MaxUses   *int       `gorm:"column:max_uses"`
	UsedCount int        `gorm:"column:used_count;not null;default:0"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the dialect has no uuid default.
func (c *Coupon) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
