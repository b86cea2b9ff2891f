package enums

import "strings"

// CouponStatus classifies a coupon's validity at an instant. Only
// CouponStatusActive counts as redeemable.
type CouponStatus string

const (
	CouponStatusActive         CouponStatus = "active"
	CouponStatusInactive       CouponStatus = "inactive"
	CouponStatusInvalidPercent CouponStatus = "invalid_percent"
	CouponStatusUpcoming       CouponStatus = "upcoming"
	CouponStatusExpired        CouponStatus = "expired"
	CouponStatusLimitReached   CouponStatus = "limit_reached"
)

// String implements fmt.Stringer.
func (c CouponStatus) String() string {
	return string(c)
}

// Valid reports whether a coupon with this status can be applied right now.
func (c CouponStatus) Valid() bool {
	return c == CouponStatusActive
}

// Reason returns the upper-case reason token surfaced to API consumers.
func (c CouponStatus) Reason() string {
	return strings.ToUpper(string(c))
}
