package payments

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/mercadia/storefront-backend/pkg/config"
	"github.com/mercadia/storefront-backend/pkg/db/models"
	"github.com/mercadia/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
	"github.com/mercadia/storefront-backend/pkg/logger"
	"github.com/mercadia/storefront-backend/pkg/square"
)

type stubOrderStore struct {
	rows    map[uuid.UUID]*models.Order
	linkIDs map[uuid.UUID]string
}

func newStubOrderStore() *stubOrderStore {
	return &stubOrderStore{
		rows:    map[uuid.UUID]*models.Order{},
		linkIDs: map[uuid.UUID]string{},
	}
}

func (s *stubOrderStore) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *row
	return &clone, nil
}

func (s *stubOrderStore) SetPaymentLinkID(_ context.Context, orderID uuid.UUID, linkID string) error {
	s.linkIDs[orderID] = linkID
	return nil
}

type stubLinkCreator struct {
	lastParams square.PaymentLinkCreateParams
	link       *sq.PaymentLink
	err        error
}

func (s *stubLinkCreator) CreatePaymentLink(_ context.Context, params square.PaymentLinkCreateParams) (*sq.PaymentLink, error) {
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	return s.link, nil
}

func strPtr(v string) *string { return &v }

func newTestService(t *testing.T, store *stubOrderStore, links *stubLinkCreator) Service {
	t.Helper()
	svc, err := NewService(store, links, config.SquareConfig{RedirectURL: "https://shop.example/thanks"},
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestInitiateForOrderCreatesAndRecordsLink(t *testing.T) {
	t.Parallel()

	store := newStubOrderStore()
	customerID := uuid.New()
	order := &models.Order{
		ID:         uuid.New(),
		Reference:  "ORD-20260830-AB12CD",
		CustomerID: customerID,
		Status:     enums.OrderStatusPending,
		Currency:   enums.CurrencyUSD,
		TotalCents: 3600,
	}
	store.rows[order.ID] = order
	links := &stubLinkCreator{link: &sq.PaymentLink{
		ID:  strPtr("plink_123"),
		URL: strPtr("https://square.link/u/abc"),
	}}
	svc := newTestService(t, store, links)

	dto, err := svc.InitiateForOrder(context.Background(), customerID, order.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if dto.PaymentLinkID != "plink_123" || dto.URL != "https://square.link/u/abc" {
		t.Fatalf("unexpected link: %+v", dto)
	}
	if dto.AmountCents != 3600 {
		t.Fatalf("unexpected amount: %d", dto.AmountCents)
	}
	if store.linkIDs[order.ID] != "plink_123" {
		t.Fatalf("link id not recorded: %q", store.linkIDs[order.ID])
	}
	if links.lastParams.Reference != order.Reference || links.lastParams.AmountCents != 3600 {
		t.Fatalf("unexpected params: %+v", links.lastParams)
	}
	if links.lastParams.RedirectURL != "https://shop.example/thanks" {
		t.Fatalf("redirect url not passed through: %q", links.lastParams.RedirectURL)
	}
}

func TestInitiateForOrderHidesForeignOrders(t *testing.T) {
	t.Parallel()

	store := newStubOrderStore()
	order := &models.Order{
		ID:         uuid.New(),
		Reference:  "ORD-X",
		CustomerID: uuid.New(),
		Status:     enums.OrderStatusPending,
	}
	store.rows[order.ID] = order
	svc := newTestService(t, store, &stubLinkCreator{})

	_, err := svc.InitiateForOrder(context.Background(), uuid.New(), order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign customer, got %v", err)
	}
	if typed.Reason() != pkgerrors.ReasonOrderNotFound {
		t.Fatalf("expected ORDER_NOT_FOUND, got %q", typed.Reason())
	}
}

func TestInitiateForOrderRejectsNonPendingOrders(t *testing.T) {
	t.Parallel()

	store := newStubOrderStore()
	customerID := uuid.New()
	order := &models.Order{
		ID:         uuid.New(),
		Reference:  "ORD-PAID",
		CustomerID: customerID,
		Status:     enums.OrderStatusPaid,
	}
	store.rows[order.ID] = order
	svc := newTestService(t, store, &stubLinkCreator{})

	_, err := svc.InitiateForOrder(context.Background(), customerID, order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if typed.Reason() != pkgerrors.ReasonInvalidTransition {
		t.Fatalf("expected INVALID_TRANSITION, got %q", typed.Reason())
	}
}

func TestInitiateForOrderRequiresLinkID(t *testing.T) {
	t.Parallel()

	store := newStubOrderStore()
	customerID := uuid.New()
	order := &models.Order{
		ID:         uuid.New(),
		Reference:  "ORD-NOID",
		CustomerID: customerID,
		Status:     enums.OrderStatusPending,
	}
	store.rows[order.ID] = order
	svc := newTestService(t, store, &stubLinkCreator{link: &sq.PaymentLink{}})

	_, err := svc.InitiateForOrder(context.Background(), customerID, order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if _, ok := store.linkIDs[order.ID]; ok {
		t.Fatal("no link id should be recorded")
	}
}
