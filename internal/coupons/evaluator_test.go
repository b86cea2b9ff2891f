package coupon

import (
	"testing"
	"time"

	"github.com/mercadia/storefront-backend/pkg/db/models"
	"github.com/mercadia/storefront-backend/pkg/enums"
)

func TestEvaluateRuleOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	maxUses := 5

	cases := []struct {
		name   string
		coupon models.Coupon
		want   enums.CouponStatus
	}{
		{
			name:   "active with no window or cap",
			coupon: models.Coupon{IsActive: true, Percent: 10},
			want:   enums.CouponStatusActive,
		},
		{
			name:   "inactive flag wins over everything",
			coupon: models.Coupon{IsActive: false, Percent: 0, EndsAt: &past, MaxUses: &maxUses, UsedCount: 5},
			want:   enums.CouponStatusInactive,
		},
		{
			name:   "zero percent",
			coupon: models.Coupon{IsActive: true, Percent: 0},
			want:   enums.CouponStatusInvalidPercent,
		},
		{
			name:   "percent over ninety",
			coupon: models.Coupon{IsActive: true, Percent: 91},
			want:   enums.CouponStatusInvalidPercent,
		},
		{
			name:   "invalid percent reported before expiry",
			coupon: models.Coupon{IsActive: true, Percent: 120, EndsAt: &past},
			want:   enums.CouponStatusInvalidPercent,
		},
		{
			name:   "upcoming window",
			coupon: models.Coupon{IsActive: true, Percent: 10, StartsAt: &future},
			want:   enums.CouponStatusUpcoming,
		},
		{
			name:   "upcoming reported before limit",
			coupon: models.Coupon{IsActive: true, Percent: 10, StartsAt: &future, MaxUses: &maxUses, UsedCount: 5},
			want:   enums.CouponStatusUpcoming,
		},
		{
			name:   "expired window",
			coupon: models.Coupon{IsActive: true, Percent: 10, EndsAt: &past},
			want:   enums.CouponStatusExpired,
		},
		{
			name:   "limit reached",
			coupon: models.Coupon{IsActive: true, Percent: 10, MaxUses: &maxUses, UsedCount: 5},
			want:   enums.CouponStatusLimitReached,
		},
		{
			name:   "uses remaining",
			coupon: models.Coupon{IsActive: true, Percent: 10, MaxUses: &maxUses, UsedCount: 4},
			want:   enums.CouponStatusActive,
		},
		{
			name:   "inside window",
			coupon: models.Coupon{IsActive: true, Percent: 10, StartsAt: &past, EndsAt: &future},
			want:   enums.CouponStatusActive,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Evaluate(&tc.coupon, now); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestEvaluateNilCoupon(t *testing.T) {
	t.Parallel()

	if got := Evaluate(nil, time.Now()); got != enums.CouponStatusInactive {
		t.Fatalf("expected inactive for nil coupon, got %s", got)
	}
}

func TestEvaluateBoundaryInstants(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	// A coupon starting exactly now is already usable.
	starts := now
	c := models.Coupon{IsActive: true, Percent: 10, StartsAt: &starts}
	if got := Evaluate(&c, now); got != enums.CouponStatusActive {
		t.Fatalf("start boundary: expected active, got %s", got)
	}

	// A coupon ending exactly now is still usable.
	ends := now
	c = models.Coupon{IsActive: true, Percent: 10, EndsAt: &ends}
	if got := Evaluate(&c, now); got != enums.CouponStatusActive {
		t.Fatalf("end boundary: expected active, got %s", got)
	}
}
