package coupon

import (
	"time"

	"github.com/mercadia/storefront-backend/pkg/db/models"
	"github.com/mercadia/storefront-backend/pkg/enums"
)

// Evaluate classifies a coupon at the given instant. The checks run in a
// fixed order, so a coupon failing several rules always reports the first
// failing one: an inactive-but-expired coupon reports INACTIVE, not EXPIRED,
// which keeps the reason administrators see deliberate.
func Evaluate(c *models.Coupon, now time.Time) enums.CouponStatus {
	if c == nil || !c.IsActive {
		return enums.CouponStatusInactive
	}
	if c.Percent <= 0 || c.Percent > 90 {
		return enums.CouponStatusInvalidPercent
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return enums.CouponStatusUpcoming
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return enums.CouponStatusExpired
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return enums.CouponStatusLimitReached
	}
	return enums.CouponStatusActive
}
