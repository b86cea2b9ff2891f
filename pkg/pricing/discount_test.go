package pricing

import "testing"

func TestDiscountCents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		subtotal int
		percent  int
		want     int
	}{
		{"ten percent of 40.00", 4000, 10, 400},
		{"rounds half up", 1050, 5, 53},  // 52.5 -> 53
		{"rounds down", 1040, 5, 52},     // 52.0
		{"third of a cent", 100, 33, 33}, // 33.0
		{"one cent subtotal", 1, 50, 1},  // 0.5 -> 1
		{"zero percent", 4000, 0, 0},
		{"zero subtotal", 0, 10, 0},
		{"negative subtotal", -100, 10, 0},
		{"full ninety percent", 9999, 90, 8999}, // 8999.1 -> 8999
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := DiscountCents(tc.subtotal, tc.percent); got != tc.want {
				t.Fatalf("DiscountCents(%d, %d) = %d, want %d", tc.subtotal, tc.percent, got, tc.want)
			}
		})
	}
}
