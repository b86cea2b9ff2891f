package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mercadia/storefront-backend/api/responses"
	"github.com/mercadia/storefront-backend/api/validators"
	cartsvc "github.com/mercadia/storefront-backend/internal/cart"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
	"github.com/mercadia/storefront-backend/pkg/logger"
)

// GetCart returns the caller's open cart, creating an empty one on first touch.
func GetCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCart(svc, logg, func(r *http.Request, id uuid.UUID) (*cartsvc.CartDTO, error) {
		return svc.GetCart(r.Context(), id)
	})
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	// Omitted or non-positive means one unit; the service normalizes it.
	Quantity int `json:"quantity"`
}

// AddCartItem adds a product line or bumps the quantity of an existing one.
func AddCartItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCart(svc, logg, func(r *http.Request, id uuid.UUID) (*cartsvc.CartDTO, error) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		return svc.AddItem(r.Context(), id, cartsvc.AddItemInput{
			ProductID: productID,
			Quantity:  payload.Quantity,
		})
	})
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem sets the quantity of an existing line. Zero or below removes
// the line.
func UpdateCartItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCart(svc, logg, func(r *http.Request, id uuid.UUID) (*cartsvc.CartDTO, error) {
		productID, err := pathUUID(chi.URLParam(r, "productId"), "product id")
		if err != nil {
			return nil, err
		}
		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.UpdateItemQuantity(r.Context(), id, productID, payload.Quantity)
	})
}

// RemoveCartItem drops one product line.
func RemoveCartItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCart(svc, logg, func(r *http.Request, id uuid.UUID) (*cartsvc.CartDTO, error) {
		productID, err := pathUUID(chi.URLParam(r, "productId"), "product id")
		if err != nil {
			return nil, err
		}
		return svc.RemoveItem(r.Context(), id, productID)
	})
}

// ClearCart empties the cart but keeps it open.
func ClearCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCart(svc, logg, func(r *http.Request, id uuid.UUID) (*cartsvc.CartDTO, error) {
		return svc.ClearCart(r.Context(), id)
	})
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

// ApplyCartCoupon attaches a coupon code to the open cart.
func ApplyCartCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCart(svc, logg, func(r *http.Request, id uuid.UUID) (*cartsvc.CartDTO, error) {
		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.ApplyCoupon(r.Context(), id, payload.Code)
	})
}

// RemoveCartCoupon detaches any coupon from the open cart.
func RemoveCartCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCart(svc, logg, func(r *http.Request, id uuid.UUID) (*cartsvc.CartDTO, error) {
		return svc.RemoveCoupon(r.Context(), id)
	})
}

// withCart wraps the shared plumbing every cart handler repeats: nil-service
// guard, customer extraction, and the success/error envelope.
func withCart(svc cartsvc.Service, logg *logger.Logger, fn func(r *http.Request, customerID uuid.UUID) (*cartsvc.CartDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		id, err := customerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := fn(r, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}
