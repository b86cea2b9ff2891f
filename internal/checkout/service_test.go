package checkout

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	cart "github.com/mercadia/storefront-backend/internal/cart"
	coupon "github.com/mercadia/storefront-backend/internal/coupons"
	"github.com/mercadia/storefront-backend/internal/orders"
	"github.com/mercadia/storefront-backend/pkg/db/models"
	"github.com/mercadia/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
	"github.com/mercadia/storefront-backend/pkg/logger"
)

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubProducts struct {
	rows map[uuid.UUID]*models.Product
}

func (s *stubProducts) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	out := []models.Product{}
	for _, id := range ids {
		if row, ok := s.rows[id]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

type stubCoupons struct {
	rows map[string]*models.Coupon
}

func (s *stubCoupons) WithTx(*gorm.DB) coupon.Repository { return s }

func (s *stubCoupons) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	row, ok := s.rows[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *row
	return &clone, nil
}

func (s *stubCoupons) FindByID(_ context.Context, id uuid.UUID) (*models.Coupon, error) {
	for _, row := range s.rows {
		if row.ID == id {
			clone := *row
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCoupons) List(context.Context) ([]models.Coupon, error) { return nil, nil }

func (s *stubCoupons) Create(_ context.Context, c *models.Coupon) (*models.Coupon, error) {
	s.rows[c.Code] = c
	return c, nil
}

func (s *stubCoupons) Update(_ context.Context, c *models.Coupon) (*models.Coupon, error) {
	s.rows[c.Code] = c
	return c, nil
}

func (s *stubCoupons) Delete(context.Context, uuid.UUID) error { return nil }

func (s *stubCoupons) IncrementUsage(_ context.Context, id uuid.UUID) (bool, error) {
	for _, row := range s.rows {
		if row.ID != id {
			continue
		}
		if row.MaxUses != nil && row.UsedCount >= *row.MaxUses {
			return false, nil
		}
		row.UsedCount++
		return true, nil
	}
	return false, nil
}

type stubCartRepo struct {
	carts map[uuid.UUID]*models.Cart // keyed by customer id
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{carts: map[uuid.UUID]*models.Cart{}}
}

func (s *stubCartRepo) WithTx(*gorm.DB) cart.Repository { return s }

func (s *stubCartRepo) FindOpenByCustomer(_ context.Context, customerID uuid.UUID, _ bool) (*models.Cart, error) {
	row, ok := s.carts[customerID]
	if !ok || row.Status != enums.CartStatusOpen {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (s *stubCartRepo) Create(_ context.Context, row *models.Cart) (*models.Cart, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	s.carts[row.CustomerID] = row
	return row, nil
}

func (s *stubCartRepo) Save(_ context.Context, row *models.Cart) (*models.Cart, error) {
	s.carts[row.CustomerID] = row
	return row, nil
}

func (s *stubCartRepo) SaveItem(context.Context, *models.CartItem) error { return nil }

func (s *stubCartRepo) DeleteItem(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (s *stubCartRepo) ClearItems(_ context.Context, cartID uuid.UUID) error {
	for _, row := range s.carts {
		if row.ID == cartID {
			row.Items = nil
		}
	}
	return nil
}

func (s *stubCartRepo) MarkConverted(_ context.Context, cartID uuid.UUID, at time.Time) error {
	for _, row := range s.carts {
		if row.ID == cartID {
			row.Status = enums.CartStatusConverted
			row.ConvertedAt = &at
			row.ExpiresAt = nil
		}
	}
	return nil
}

func (s *stubCartRepo) FindExpiredOpen(context.Context, time.Time, int) ([]models.Cart, error) {
	return nil, nil
}

type stubOrders struct {
	created []*models.Order
}

func (s *stubOrders) WithTx(*gorm.DB) orders.Repository { return s }

func (s *stubOrders) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.created = append(s.created, order)
	return order, nil
}

func (s *stubOrders) FindByID(context.Context, uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrders) FindByReference(context.Context, string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrders) ListByCustomer(context.Context, uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrders) Save(_ context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubOrders) SetPaymentLinkID(context.Context, uuid.UUID, string) error { return nil }

type recordingNotifier struct {
	got []*orders.OrderDTO
}

func (r *recordingNotifier) OrderCreated(_ context.Context, order *orders.OrderDTO) {
	r.got = append(r.got, order)
}

type fixture struct {
	svc      Service
	carts    *stubCartRepo
	products *stubProducts
	coupons  *stubCoupons
	orders   *stubOrders
	notifier *recordingNotifier
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		carts:    newStubCartRepo(),
		products: &stubProducts{rows: map[uuid.UUID]*models.Product{}},
		coupons:  &stubCoupons{rows: map[string]*models.Coupon{}},
		orders:   &stubOrders{},
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Tx:       stubTx{},
		Carts:    f.carts,
		Products: f.products,
		Coupons:  f.coupons,
		Orders:   f.orders,
		Notifier: f.notifier,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.(*service).now = func() time.Time { return f.now }
	f.svc = svc
	return f
}

func (f *fixture) addProduct(priceCents int, active bool) *models.Product {
	p := &models.Product{
		ID:         uuid.New(),
		Name:       "Widget",
		SKU:        uuid.NewString(),
		PriceCents: priceCents,
		Currency:   enums.CurrencyUSD,
		IsActive:   active,
	}
	f.products.rows[p.ID] = p
	return p
}

func (f *fixture) openCart(customerID uuid.UUID, lines ...models.CartItem) *models.Cart {
	expires := f.now.Add(10 * time.Minute)
	row := &models.Cart{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     enums.CartStatusOpen,
		Currency:   enums.CurrencyUSD,
		ExpiresAt:  &expires,
		Items:      lines,
	}
	f.carts.carts[customerID] = row
	return row
}

func TestExecuteFreezesPricesAndConvertsCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	product := f.addProduct(2000, true)
	f.openCart(customerID, models.CartItem{ProductID: product.ID, Quantity: 2, UnitPriceCents: 2000})

	dto, err := f.svc.Execute(context.Background(), customerID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if dto.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending, got %s", dto.Status)
	}
	if dto.SubtotalCents != 4000 || dto.TotalCents != 4000 {
		t.Fatalf("unexpected totals: %+v", dto)
	}
	if len(dto.Items) != 1 || dto.Items[0].Name != "Widget" || dto.Items[0].UnitPriceCents != 2000 {
		t.Fatalf("unexpected snapshot: %+v", dto.Items)
	}

	row := f.carts.carts[customerID]
	if row.Status != enums.CartStatusConverted {
		t.Fatalf("expected converted cart, got %s", row.Status)
	}
	if len(row.Items) != 0 || row.ExpiresAt != nil {
		t.Fatalf("expected emptied cart, got %+v", row)
	}

	// Catalog changes after checkout must not touch the frozen order.
	f.products.rows[product.ID].PriceCents = 9999
	if dto.Items[0].UnitPriceCents != 2000 {
		t.Fatalf("order snapshot changed: %+v", dto.Items[0])
	}

	if len(f.notifier.got) != 1 || f.notifier.got[0].ID != dto.ID {
		t.Fatalf("expected one order notification, got %+v", f.notifier.got)
	}
}

func TestExecuteAppliesCouponAndRedeemsUse(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	product := f.addProduct(4000, true)
	code := "SAVE10"
	f.coupons.rows[code] = &models.Coupon{ID: uuid.New(), Code: code, Percent: 10, IsActive: true}
	row := f.openCart(customerID, models.CartItem{ProductID: product.ID, Quantity: 1, UnitPriceCents: 4000})
	row.CouponCode = &code

	dto, err := f.svc.Execute(context.Background(), customerID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if dto.DiscountCents != 400 || dto.TotalCents != 3600 {
		t.Fatalf("unexpected discount math: %+v", dto)
	}
	if dto.CouponCode == nil || *dto.CouponCode != code {
		t.Fatalf("expected frozen coupon code, got %v", dto.CouponCode)
	}
	if dto.CouponPercent == nil || *dto.CouponPercent != 10 {
		t.Fatalf("expected frozen percent, got %v", dto.CouponPercent)
	}
	if f.coupons.rows[code].UsedCount != 1 {
		t.Fatalf("expected one redemption, got %d", f.coupons.rows[code].UsedCount)
	}
}

func TestExecuteRejectsEmptyAndMissingCarts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()

	_, err := f.svc.Execute(context.Background(), customerID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Reason() != pkgerrors.ReasonCartNotFound {
		t.Fatalf("expected CART_NOT_FOUND, got %v", err)
	}

	f.openCart(customerID)
	_, err = f.svc.Execute(context.Background(), customerID)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Reason() != pkgerrors.ReasonCartEmpty {
		t.Fatalf("expected CART_EMPTY, got %v", err)
	}
	if len(f.orders.created) != 0 {
		t.Fatalf("no order should exist, got %d", len(f.orders.created))
	}
}

func TestExecuteTreatsOverdueCartAsEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	product := f.addProduct(1000, true)
	row := f.openCart(customerID, models.CartItem{ProductID: product.ID, Quantity: 1, UnitPriceCents: 1000})
	overdue := f.now.Add(-time.Minute)
	row.ExpiresAt = &overdue

	_, err := f.svc.Execute(context.Background(), customerID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Reason() != pkgerrors.ReasonCartEmpty {
		t.Fatalf("expected CART_EMPTY for overdue cart, got %v", err)
	}
}

func TestExecuteRejectsStaleCouponAtCheckout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	product := f.addProduct(1000, true)
	code := "FLASH15"
	past := f.now.Add(-time.Hour)
	f.coupons.rows[code] = &models.Coupon{ID: uuid.New(), Code: code, Percent: 15, IsActive: true, EndsAt: &past}
	row := f.openCart(customerID, models.CartItem{ProductID: product.ID, Quantity: 1, UnitPriceCents: 1000})
	row.CouponCode = &code

	_, err := f.svc.Execute(context.Background(), customerID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if typed.Reason() != pkgerrors.ReasonCouponNoLongerValid {
		t.Fatalf("expected COUPON_NO_LONGER_VALID, got %q", typed.Reason())
	}
	if len(f.orders.created) != 0 {
		t.Fatal("no order should be created when the coupon is stale")
	}
}

func TestExecuteLastUseRace(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	product := f.addProduct(1000, true)
	code := "LASTONE"
	maxUses := 1
	f.coupons.rows[code] = &models.Coupon{ID: uuid.New(), Code: code, Percent: 10, IsActive: true, MaxUses: &maxUses}

	first := uuid.New()
	row := f.openCart(first, models.CartItem{ProductID: product.ID, Quantity: 1, UnitPriceCents: 1000})
	row.CouponCode = &code
	if _, err := f.svc.Execute(context.Background(), first); err != nil {
		t.Fatalf("first checkout: %v", err)
	}

	// The second customer attached the code while it still looked valid.
	second := uuid.New()
	row = f.openCart(second, models.CartItem{ProductID: product.ID, Quantity: 1, UnitPriceCents: 1000})
	row.CouponCode = &code

	_, err := f.svc.Execute(context.Background(), second)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if typed.Reason() != pkgerrors.ReasonCouponNoLongerValid {
		t.Fatalf("expected COUPON_NO_LONGER_VALID, got %q", typed.Reason())
	}
	if f.coupons.rows[code].UsedCount != 1 {
		t.Fatalf("used count must stay at the cap, got %d", f.coupons.rows[code].UsedCount)
	}
}

func TestExecuteRejectsVanishedAndInactiveProducts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	f.openCart(customerID, models.CartItem{ProductID: uuid.New(), Quantity: 1, UnitPriceCents: 500})

	_, err := f.svc.Execute(context.Background(), customerID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Reason() != pkgerrors.ReasonProductNotFound {
		t.Fatalf("expected PRODUCT_NOT_FOUND, got %v", err)
	}

	other := uuid.New()
	inactive := f.addProduct(500, false)
	f.openCart(other, models.CartItem{ProductID: inactive.ID, Quantity: 1, UnitPriceCents: 500})

	_, err = f.svc.Execute(context.Background(), other)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Reason() != pkgerrors.ReasonProductInactive {
		t.Fatalf("expected PRODUCT_INACTIVE, got %v", err)
	}
}

func TestReferenceFormat(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC)
	ref := newReference(now)
	if len(ref) != len("ORD-20260830-XXXXXX") {
		t.Fatalf("unexpected reference length: %q", ref)
	}
	if ref[:13] != "ORD-20260830-" {
		t.Fatalf("unexpected reference prefix: %q", ref)
	}
	if ref == newReference(now) {
		t.Fatal("expected distinct suffixes")
	}
}
