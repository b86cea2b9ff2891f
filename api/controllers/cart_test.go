package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mercadia/storefront-backend/api/middleware"
	cartsvc "github.com/mercadia/storefront-backend/internal/cart"
	"github.com/mercadia/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
)

type stubCartService struct {
	cart         *cartsvc.CartDTO
	err          error
	lastInput    cartsvc.AddItemInput
	lastQuantity int
	updated      bool
}

func (s *stubCartService) GetCart(context.Context, uuid.UUID) (*cartsvc.CartDTO, error) {
	return s.cart, s.err
}

func (s *stubCartService) AddItem(_ context.Context, _ uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.CartDTO, error) {
	s.lastInput = input
	return s.cart, s.err
}

func (s *stubCartService) UpdateItemQuantity(_ context.Context, _ uuid.UUID, _ uuid.UUID, quantity int) (*cartsvc.CartDTO, error) {
	s.updated = true
	s.lastQuantity = quantity
	return s.cart, s.err
}

func (s *stubCartService) RemoveItem(context.Context, uuid.UUID, uuid.UUID) (*cartsvc.CartDTO, error) {
	return s.cart, s.err
}

func (s *stubCartService) ClearCart(context.Context, uuid.UUID) (*cartsvc.CartDTO, error) {
	return s.cart, s.err
}

func (s *stubCartService) ApplyCoupon(context.Context, uuid.UUID, string) (*cartsvc.CartDTO, error) {
	return s.cart, s.err
}

func (s *stubCartService) RemoveCoupon(context.Context, uuid.UUID) (*cartsvc.CartDTO, error) {
	return s.cart, s.err
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithCustomerID(req.Context(), uuid.NewString()))
}

func TestGetCartSuccess(t *testing.T) {
	cart := &cartsvc.CartDTO{ID: uuid.New(), Status: enums.CartStatusOpen}
	handler := GetCart(&stubCartService{cart: cart}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/cart", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data cartsvc.CartDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != cart.ID {
		t.Fatalf("unexpected cart id: %s", envelope.Data.ID)
	}
}

func TestGetCartMissingAuthContext(t *testing.T) {
	handler := GetCart(&stubCartService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAddCartItemDecodesPayload(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{cart: &cartsvc.CartDTO{ID: uuid.New()}}
	handler := AddCartItem(svc, nil)

	body := `{"product_id":"` + productID.String() + `","quantity":3}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/items", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastInput.ProductID != productID || svc.lastInput.Quantity != 3 {
		t.Fatalf("unexpected input: %+v", svc.lastInput)
	}
}

func TestAddCartItemRejectsBadBody(t *testing.T) {
	handler := AddCartItem(&stubCartService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/items", `{"quantity":0}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUpdateCartItemPassesZeroQuantity(t *testing.T) {
	svc := &stubCartService{cart: &cartsvc.CartDTO{ID: uuid.New()}}
	handler := UpdateCartItem(svc, nil)

	productID := uuid.NewString()
	req := authedRequest(http.MethodPatch, "/api/v1/cart/items/"+productID, `{"quantity":0}`)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("productId", productID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !svc.updated || svc.lastQuantity != 0 {
		t.Fatalf("zero quantity must reach the service, got updated=%v quantity=%d", svc.updated, svc.lastQuantity)
	}
}

func TestAddCartItemSurfacesReason(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "unknown product").
		WithReason(pkgerrors.ReasonProductNotFound)}
	handler := AddCartItem(svc, nil)

	body := `{"product_id":"` + uuid.NewString() + `","quantity":1}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/items", body))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Reason != pkgerrors.ReasonProductNotFound {
		t.Fatalf("expected PRODUCT_NOT_FOUND reason, got %q", envelope.Error.Reason)
	}
}
