package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DiscountCents computes a percent discount on a subtotal, rounding half away
// from zero to the nearest cent. Both cart previews and frozen order totals go
// through here so the two can never disagree.
func DiscountCents(subtotalCents, percent int) int {
	if subtotalCents <= 0 || percent <= 0 {
		return 0
	}
	discount := decimal.NewFromInt(int64(subtotalCents)).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(hundred).
		Round(0)
	return int(discount.IntPart())
}
