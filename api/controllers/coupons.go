package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mercadia/storefront-backend/api/responses"
	"github.com/mercadia/storefront-backend/api/validators"
	couponsvc "github.com/mercadia/storefront-backend/internal/coupons"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
	"github.com/mercadia/storefront-backend/pkg/logger"
)

type validateCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

// ValidateCoupon previews whether a code would apply right now. Invalid codes
// are a successful response carrying the reason, not an error.
func ValidateCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		var payload validateCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ValidateCoupon(r.Context(), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminListCoupons returns every coupon for the back office.
func AdminListCoupons(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		coupons, err := svc.ListCoupons(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupons)
	}
}

// AdminGetCoupon returns one coupon by id.
func AdminGetCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		id, err := pathUUID(chi.URLParam(r, "couponId"), "coupon id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := svc.GetCoupon(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

type createCouponRequest struct {
	Code     string  `json:"code" validate:"required"`
	Percent  int     `json:"percent" validate:"required,min=1,max=90"`
	StartsAt *string `json:"starts_at,omitempty"`
	EndsAt   *string `json:"ends_at,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	MaxUses  *int    `json:"max_uses,omitempty" validate:"omitempty,min=1"`
}

// AdminCreateCoupon registers a new discount code.
func AdminCreateCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		startsAt, err := parseTimePtr(payload.StartsAt, "starts_at")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		endsAt, err := parseTimePtr(payload.EndsAt, "ends_at")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		isActive := true
		if payload.IsActive != nil {
			isActive = *payload.IsActive
		}

		coupon, err := svc.CreateCoupon(r.Context(), couponsvc.CreateCouponInput{
			Code:     payload.Code,
			Percent:  payload.Percent,
			StartsAt: startsAt,
			EndsAt:   endsAt,
			IsActive: isActive,
			MaxUses:  payload.MaxUses,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

type updateCouponRequest struct {
	Percent  *int    `json:"percent,omitempty" validate:"omitempty,min=1,max=90"`
	StartsAt *string `json:"starts_at,omitempty"`
	EndsAt   *string `json:"ends_at,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	MaxUses  *int    `json:"max_uses,omitempty" validate:"omitempty,min=1"`
}

// AdminUpdateCoupon patches a coupon's window, percent, cap, or active flag.
func AdminUpdateCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		id, err := pathUUID(chi.URLParam(r, "couponId"), "coupon id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		startsAt, err := parseTimePtr(payload.StartsAt, "starts_at")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		endsAt, err := parseTimePtr(payload.EndsAt, "ends_at")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.UpdateCoupon(r.Context(), id, couponsvc.UpdateCouponInput{
			Percent:  payload.Percent,
			StartsAt: startsAt,
			EndsAt:   endsAt,
			IsActive: payload.IsActive,
			MaxUses:  payload.MaxUses,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

// AdminDeleteCoupon removes a coupon.
func AdminDeleteCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		id, err := pathUUID(chi.URLParam(r, "couponId"), "coupon id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteCoupon(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func parseTimePtr(raw *string, field string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, field+" must be RFC3339")
	}
	return &parsed, nil
}
