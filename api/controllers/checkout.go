package controllers

import (
	"net/http"

	"github.com/mercadia/storefront-backend/api/responses"
	checkoutsvc "github.com/mercadia/storefront-backend/internal/checkout"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
	"github.com/mercadia/storefront-backend/pkg/logger"
)

// Checkout converts the caller's open cart into an order with frozen prices.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		id, err := customerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Execute(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
