package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	coupon "github.com/mercadia/storefront-backend/internal/coupons"
	"github.com/mercadia/storefront-backend/pkg/config"
	"github.com/mercadia/storefront-backend/pkg/db"
	"github.com/mercadia/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type couponLoader interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
}

// Service exposes the customer's cart lifecycle. Every mutation runs in one
// transaction holding the cart row lock, so concurrent requests for the same
// customer serialize instead of clobbering each other.
type Service interface {
	GetCart(ctx context.Context, customerID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItemQuantity(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, customerID, productID uuid.UUID) (*CartDTO, error)
	ClearCart(ctx context.Context, customerID uuid.UUID) (*CartDTO, error)
	ApplyCoupon(ctx context.Context, customerID uuid.UUID, code string) (*CartDTO, error)
	RemoveCoupon(ctx context.Context, customerID uuid.UUID) (*CartDTO, error)
}

// AddItemInput is the payload for adding a product line.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type service struct {
	repo     Repository
	products productLoader
	coupons  couponLoader
	tx       txRunner
	ttl      time.Duration
	now      func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, products productLoader, coupons couponLoader, tx txRunner, cfg config.CartConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &service{
		repo:     repo,
		products: products,
		coupons:  coupons,
		tx:       tx,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// GetCart returns the customer's open cart, creating one on demand. Reading
// does not extend the TTL, but an overdue cart is cleared before it is shown.
func (s *service) GetCart(ctx context.Context, customerID uuid.UUID) (*CartDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	var loaded *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.loadOrCreate(ctx, repo, customerID)
		if err != nil {
			return err
		}
		expired, err := s.expireIfDue(ctx, repo, cart)
		if err != nil {
			return err
		}
		if expired {
			if _, err := repo.Save(ctx, cart); err != nil {
				return err
			}
		}
		loaded = cart
		return nil
	})
	if err != nil {
		return nil, asDomainError(err, "load cart")
	}
	return s.finalize(ctx, loaded)
}

// AddItem appends a product line or bumps an existing line's quantity.
// A missing or non-positive quantity means "one, please".
func (s *service) AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if input.Quantity < 1 {
		input.Quantity = 1
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	return s.mutate(ctx, customerID, func(ctx context.Context, repo Repository, cart *models.Cart) error {
		product, err := s.loadSellableProduct(ctx, input.ProductID)
		if err != nil {
			return err
		}

		if line := cart.ItemFor(product.ID); line != nil {
			line.Quantity += input.Quantity
			line.UnitPriceCents = product.PriceCents
			line.LineTotalCents = line.Quantity * product.PriceCents
			return repo.SaveItem(ctx, line)
		}

		item := models.CartItem{
			CartID:         cart.ID,
			ProductID:      product.ID,
			Quantity:       input.Quantity,
			UnitPriceCents: product.PriceCents,
			LineTotalCents: input.Quantity * product.PriceCents,
		}
		if err := repo.SaveItem(ctx, &item); err != nil {
			return err
		}
		cart.Items = append(cart.Items, item)
		return nil
	})
}

// UpdateItemQuantity sets an existing line to an exact quantity. Dropping the
// quantity to zero or below removes the line instead.
func (s *service) UpdateItemQuantity(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, customerID, productID)
	}

	return s.mutate(ctx, customerID, func(ctx context.Context, repo Repository, cart *models.Cart) error {
		line := cart.ItemFor(productID)
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart").
				WithReason(pkgerrors.ReasonProductNotFound)
		}
		line.Quantity = quantity
		line.LineTotalCents = quantity * line.UnitPriceCents
		return repo.SaveItem(ctx, line)
	})
}

// RemoveItem drops a product line from the cart.
func (s *service) RemoveItem(ctx context.Context, customerID, productID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, customerID, func(ctx context.Context, repo Repository, cart *models.Cart) error {
		if cart.ItemFor(productID) == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart").
				WithReason(pkgerrors.ReasonProductNotFound)
		}
		if err := repo.DeleteItem(ctx, cart.ID, productID); err != nil {
			return err
		}
		removeLine(cart, productID)
		return nil
	})
}

// ClearCart removes every line and detaches any coupon.
func (s *service) ClearCart(ctx context.Context, customerID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, customerID, func(ctx context.Context, repo Repository, cart *models.Cart) error {
		if err := repo.ClearItems(ctx, cart.ID); err != nil {
			return err
		}
		cart.Items = nil
		cart.CouponCode = nil
		cart.CouponPercent = nil
		return nil
	})
}

// ApplyCoupon attaches a code after verifying it is redeemable right now.
func (s *service) ApplyCoupon(ctx context.Context, customerID uuid.UUID, code string) (*CartDTO, error) {
	normalized := coupon.NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	return s.mutate(ctx, customerID, func(ctx context.Context, repo Repository, cart *models.Cart) error {
		row, err := s.coupons.FindByCode(ctx, normalized)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found").
					WithReason(pkgerrors.ReasonCouponNotFound)
			}
			return err
		}

		status := coupon.Evaluate(row, s.now())
		if !status.Valid() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon cannot be applied").
				WithReason(status.Reason())
		}

		cart.CouponCode = &row.Code
		percent := row.Percent
		cart.CouponPercent = &percent
		return nil
	})
}

// RemoveCoupon detaches the coupon, if any. Removing from a bare cart is a no-op.
func (s *service) RemoveCoupon(ctx context.Context, customerID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, customerID, func(ctx context.Context, repo Repository, cart *models.Cart) error {
		cart.CouponCode = nil
		cart.CouponPercent = nil
		return nil
	})
}

// mutate runs fn against the locked open cart, reprices the surviving lines
// against the catalog, resets the TTL, and persists the result.
func (s *service) mutate(ctx context.Context, customerID uuid.UUID, fn func(ctx context.Context, repo Repository, cart *models.Cart) error) (*CartDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.loadOrCreate(ctx, repo, customerID)
		if err != nil {
			return err
		}
		if _, err := s.expireIfDue(ctx, repo, cart); err != nil {
			return err
		}
		if err := fn(ctx, repo, cart); err != nil {
			return err
		}
		if err := s.repriceItems(ctx, repo, cart); err != nil {
			return err
		}
		s.touchTTL(cart)
		if _, err := repo.Save(ctx, cart); err != nil {
			return err
		}
		result = cart
		return nil
	})
	if err != nil {
		return nil, asDomainError(err, "persist cart")
	}
	return s.finalize(ctx, result)
}

func (s *service) loadOrCreate(ctx context.Context, repo Repository, customerID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindOpenByCustomer(ctx, customerID, true)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created, err := repo.Create(ctx, &models.Cart{CustomerID: customerID})
	if err != nil {
		// Another request won the race on the one-open-cart index; use theirs.
		if db.IsUniqueViolation(err) {
			return repo.FindOpenByCustomer(ctx, customerID, true)
		}
		return nil, err
	}
	return created, nil
}

// expireIfDue lazily applies the TTL: an overdue cart loses its items and
// coupon but stays open for reuse.
func (s *service) expireIfDue(ctx context.Context, repo Repository, cart *models.Cart) (bool, error) {
	if cart.ExpiresAt == nil || !s.now().After(*cart.ExpiresAt) {
		return false, nil
	}
	if err := repo.ClearItems(ctx, cart.ID); err != nil {
		return false, err
	}
	cart.Items = nil
	cart.CouponCode = nil
	cart.CouponPercent = nil
	cart.ExpiresAt = nil
	return true, nil
}

// repriceItems refreshes stored unit prices from the catalog so the cart
// reflects current pricing. Missing products keep their last stored price;
// checkout is the layer that rejects them.
func (s *service) repriceItems(ctx context.Context, repo Repository, cart *models.Cart) error {
	if len(cart.Items) == 0 {
		return nil
	}
	catalog, err := s.catalogFor(ctx, cart)
	if err != nil {
		return err
	}
	for i := range cart.Items {
		line := &cart.Items[i]
		product, ok := catalog[line.ProductID]
		if !ok {
			continue
		}
		lineTotal := product.PriceCents * line.Quantity
		if line.UnitPriceCents == product.PriceCents && line.LineTotalCents == lineTotal {
			continue
		}
		line.UnitPriceCents = product.PriceCents
		line.LineTotalCents = lineTotal
		if err := repo.SaveItem(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) touchTTL(cart *models.Cart) {
	if len(cart.Items) == 0 {
		cart.ExpiresAt = nil
		return
	}
	expires := s.now().Add(s.ttl)
	cart.ExpiresAt = &expires
}

func (s *service) loadSellableProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithReason(pkgerrors.ReasonProductNotFound)
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is not available").
			WithReason(pkgerrors.ReasonProductInactive)
	}
	return product, nil
}

func (s *service) catalogFor(ctx context.Context, cart *models.Cart) (map[uuid.UUID]*models.Product, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for i := range cart.Items {
		ids = append(ids, cart.Items[i].ProductID)
	}
	rows, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	catalog := make(map[uuid.UUID]*models.Product, len(rows))
	for i := range rows {
		catalog[rows[i].ID] = &rows[i]
	}
	return catalog, nil
}

// finalize prices the final cart state for the response, re-evaluating any
// attached coupon so the preview matches what checkout would decide.
func (s *service) finalize(ctx context.Context, cart *models.Cart) (*CartDTO, error) {
	catalog, err := s.catalogFor(ctx, cart)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}

	couponValid := false
	if cart.CouponCode != nil {
		row, err := s.coupons.FindByCode(ctx, *cart.CouponCode)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart coupon")
		}
		if err == nil {
			couponValid = coupon.Evaluate(row, s.now()).Valid()
		}
	}
	return buildDTO(cart, catalog, couponValid), nil
}

func removeLine(cart *models.Cart, productID uuid.UUID) {
	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	cart.Items = items
}

// asDomainError passes typed domain errors through and wraps raw driver
// failures as dependency errors.
func asDomainError(err error, message string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
