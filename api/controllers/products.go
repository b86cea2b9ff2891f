package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mercadia/storefront-backend/api/responses"
	"github.com/mercadia/storefront-backend/api/validators"
	productsvc "github.com/mercadia/storefront-backend/internal/products"
	"github.com/mercadia/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
	"github.com/mercadia/storefront-backend/pkg/logger"
)

// ListProducts returns the public catalog. Hidden products only show up for
// admin listings via the include_hidden flag.
func ListProducts(svc productsvc.Service, allowHidden bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		query := r.URL.Query()
		input := productsvc.ListProductsInput{
			Query: strings.TrimSpace(query.Get("q")),
			Tag:   strings.TrimSpace(query.Get("tag")),
		}
		if allowHidden && query.Get("include_hidden") == "true" {
			input.IncludeHidden = true
		}

		products, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

// GetProduct returns one catalog entry by id.
func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := pathUUID(chi.URLParam(r, "productId"), "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type createProductRequest struct {
	Name       string   `json:"name" validate:"required"`
	SKU        string   `json:"sku" validate:"required"`
	PriceCents int      `json:"price_cents" validate:"required,min=1"`
	Currency   string   `json:"currency,omitempty"`
	IsActive   *bool    `json:"is_active,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// AdminCreateProduct adds a catalog entry.
func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		isActive := true
		if payload.IsActive != nil {
			isActive = *payload.IsActive
		}

		product, err := svc.CreateProduct(r.Context(), productsvc.CreateProductInput{
			Name:       payload.Name,
			SKU:        payload.SKU,
			PriceCents: payload.PriceCents,
			Currency:   enums.Currency(strings.ToUpper(strings.TrimSpace(payload.Currency))),
			IsActive:   isActive,
			Tags:       payload.Tags,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	Name       *string   `json:"name,omitempty"`
	SKU        *string   `json:"sku,omitempty"`
	PriceCents *int      `json:"price_cents,omitempty" validate:"omitempty,min=1"`
	Currency   *string   `json:"currency,omitempty"`
	IsActive   *bool     `json:"is_active,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
}

// AdminUpdateProduct patches a catalog entry.
func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := pathUUID(chi.URLParam(r, "productId"), "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := productsvc.UpdateProductInput{
			Name:       payload.Name,
			SKU:        payload.SKU,
			PriceCents: payload.PriceCents,
			IsActive:   payload.IsActive,
			Tags:       payload.Tags,
		}
		if payload.Currency != nil {
			currency := enums.Currency(strings.ToUpper(strings.TrimSpace(*payload.Currency)))
			input.Currency = &currency
		}

		product, err := svc.UpdateProduct(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct removes a catalog entry.
func AdminDeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := pathUUID(chi.URLParam(r, "productId"), "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
