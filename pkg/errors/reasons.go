package errors

// Reason tokens carried on domain errors. Clients branch on these instead of
// parsing messages, so they are part of the public contract.
const (
	ReasonCartEmpty           = "CART_EMPTY"
	ReasonCartNotFound        = "CART_NOT_FOUND"
	ReasonProductNotFound     = "PRODUCT_NOT_FOUND"
	ReasonProductInactive     = "PRODUCT_INACTIVE"
	ReasonCouponNotFound      = "COUPON_NOT_FOUND"
	ReasonCouponNoLongerValid = "COUPON_NO_LONGER_VALID"
	ReasonLimitReached        = "LIMIT_REACHED"
	ReasonOrderNotFound       = "ORDER_NOT_FOUND"
	ReasonInvalidTransition   = "INVALID_TRANSITION"
)
