package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadia/storefront-backend/pkg/db/models"
	"github.com/mercadia/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
)

type stubRepo struct {
	byID  map[uuid.UUID]*models.Order
	byRef map[string]*models.Order
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		byID:  map[uuid.UUID]*models.Order{},
		byRef: map[string]*models.Order{},
	}
}

func (s *stubRepo) add(o *models.Order) *models.Order {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = enums.OrderStatusPending
	}
	s.byID[o.ID] = o
	s.byRef[o.Reference] = o
	return o
}

func (s *stubRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	return s.add(order), nil
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	row, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *row
	return &clone, nil
}

func (s *stubRepo) FindByReference(_ context.Context, reference string) (*models.Order, error) {
	row, ok := s.byRef[reference]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *row
	return &clone, nil
}

func (s *stubRepo) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]models.Order, error) {
	out := []models.Order{}
	for _, row := range s.byID {
		if row.CustomerID == customerID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *stubRepo) Save(_ context.Context, order *models.Order) (*models.Order, error) {
	s.byID[order.ID] = order
	s.byRef[order.Reference] = order
	return order, nil
}

func (s *stubRepo) SetPaymentLinkID(_ context.Context, orderID uuid.UUID, paymentLinkID string) error {
	if row, ok := s.byID[orderID]; ok {
		row.PaymentLinkID = &paymentLinkID
	}
	return nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestGetOrderHidesOtherCustomers(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	owner := uuid.New()
	order := repo.add(&models.Order{Reference: "ORD-1", CustomerID: owner, TotalCents: 1000})
	svc := newTestService(t, repo)

	if _, err := svc.GetOrder(context.Background(), owner, order.ID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}

	_, err := svc.GetOrder(context.Background(), uuid.New(), order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign customer, got %v", err)
	}
	if typed.Reason() != pkgerrors.ReasonOrderNotFound {
		t.Fatalf("expected ORDER_NOT_FOUND, got %q", typed.Reason())
	}
}

func TestMarkPaidSetsTimestamp(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	order := repo.add(&models.Order{Reference: "ORD-2", CustomerID: uuid.New(), Status: enums.OrderStatusPending})
	svc := newTestService(t, repo)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time { return now }

	dto, err := svc.MarkPaid(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if dto.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", dto.Status)
	}
	if dto.PaidAt == nil || !dto.PaidAt.Equal(now) {
		t.Fatalf("expected paid_at %v, got %v", now, dto.PaidAt)
	}
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	paidAt := time.Now()
	order := repo.add(&models.Order{Reference: "ORD-3", CustomerID: uuid.New(), Status: enums.OrderStatusPaid, PaidAt: &paidAt})
	svc := newTestService(t, repo)

	dto, err := svc.MarkPaid(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("repeat mark paid: %v", err)
	}
	if dto.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", dto.Status)
	}
}

func TestUpdateStatusRejectsIllegalTransitions(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	svc := newTestService(t, repo)

	cases := []struct {
		name string
		from enums.OrderStatus
		to   enums.OrderStatus
	}{
		{"pending cannot ship", enums.OrderStatusPending, enums.OrderStatusShipped},
		{"shipped cannot cancel", enums.OrderStatusShipped, enums.OrderStatusCancelled},
		{"cancelled cannot pay", enums.OrderStatusCancelled, enums.OrderStatusPaid},
		{"shipped cannot regress", enums.OrderStatusShipped, enums.OrderStatusPending},
	}
	for _, tc := range cases {
		order := repo.add(&models.Order{Reference: "ORD-" + uuid.NewString(), CustomerID: uuid.New(), Status: tc.from})
		_, err := svc.UpdateStatus(context.Background(), order.ID, tc.to)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("%s: expected state conflict, got %v", tc.name, err)
		}
		if typed.Reason() != pkgerrors.ReasonInvalidTransition {
			t.Fatalf("%s: expected INVALID_TRANSITION, got %q", tc.name, typed.Reason())
		}
	}
}

func TestUpdateStatusAllowsLifecyclePaths(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	svc := newTestService(t, repo)

	order := repo.add(&models.Order{Reference: "ORD-FLOW", CustomerID: uuid.New(), Status: enums.OrderStatusPending})
	if _, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusPaid); err != nil {
		t.Fatalf("pending->paid: %v", err)
	}
	dto, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusShipped)
	if err != nil {
		t.Fatalf("paid->shipped: %v", err)
	}
	if dto.ShippedAt == nil {
		t.Fatal("expected shipped_at set")
	}

	cancellable := repo.add(&models.Order{Reference: "ORD-CXL", CustomerID: uuid.New(), Status: enums.OrderStatusPending})
	dto, err = svc.UpdateStatus(context.Background(), cancellable.ID, enums.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("pending->cancelled: %v", err)
	}
	if dto.CancelledAt == nil {
		t.Fatal("expected cancelled_at set")
	}
}
