package coupon

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercadia/storefront-backend/pkg/db/models"
	"github.com/mercadia/storefront-backend/pkg/enums"
)

// CouponDTO is the admin-facing coupon shape, including its evaluated status.
type CouponDTO struct {
	ID        uuid.UUID          `json:"id"`
	Code      string             `json:"code"`
	Percent   int                `json:"percent"`
	StartsAt  *time.Time         `json:"starts_at,omitempty"`
	EndsAt    *time.Time         `json:"ends_at,omitempty"`
	IsActive  bool               `json:"is_active"`
	MaxUses   *int               `json:"max_uses,omitempty"`
	UsedCount int                `json:"used_count"`
	Status    enums.CouponStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ValidationDTO is the read-only answer to "can this code be applied now".
type ValidationDTO struct {
	Code    string `json:"code"`
	Valid   bool   `json:"valid"`
	Percent *int   `json:"percent"`
	Reason  string `json:"reason,omitempty"`
}

func toDTO(coupon *models.Coupon, now time.Time) *CouponDTO {
	if coupon == nil {
		return nil
	}
	return &CouponDTO{
		ID:        coupon.ID,
		Code:      coupon.Code,
		Percent:   coupon.Percent,
		StartsAt:  coupon.StartsAt,
		EndsAt:    coupon.EndsAt,
		IsActive:  coupon.IsActive,
		MaxUses:   coupon.MaxUses,
		UsedCount: coupon.UsedCount,
		Status:    Evaluate(coupon, now),
		CreatedAt: coupon.CreatedAt,
		UpdatedAt: coupon.UpdatedAt,
	}
}
