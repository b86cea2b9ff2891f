package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadia/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
)

// Service exposes order reads and lifecycle transitions. Orders are created
// exclusively by checkout; nothing here ever rewrites amounts or items.
type Service interface {
	GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*OrderDTO, error)
	GetOrderByReference(ctx context.Context, reference string) (*OrderDTO, error)
	ListOrders(ctx context.Context, customerID uuid.UUID) ([]OrderDTO, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs an orders service instance.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// GetOrder returns an order owned by the given customer.
func (s *service) GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*OrderDTO, error) {
	if customerID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id and order id are required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	// Cross-customer lookups come back not-found rather than forbidden so
	// order ids stay unguessable.
	if order.CustomerID != customerID {
		return nil, notFound()
	}
	return ToDTO(order), nil
}

// GetOrderByReference returns an order by its human-readable reference.
func (s *service) GetOrderByReference(ctx context.Context, reference string) (*OrderDTO, error) {
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference is required")
	}
	order, err := s.repo.FindByReference(ctx, trimmed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return ToDTO(order), nil
}

// ListOrders returns the customer's orders, newest first.
func (s *service) ListOrders(ctx context.Context, customerID uuid.UUID) ([]OrderDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	rows, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *ToDTO(&rows[i]))
	}
	return out, nil
}

// MarkPaid moves a pending order to paid, typically from a payment webhook.
func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	return s.UpdateStatus(ctx, orderID, enums.OrderStatusPaid)
}

// UpdateStatus applies a lifecycle transition, enforcing the allowed paths.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.Status == next {
		// Webhook retries deliver the same transition twice; treat it as done.
		return ToDTO(order), nil
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %s to %s", order.Status, next)).
			WithReason(pkgerrors.ReasonInvalidTransition)
	}

	now := s.now()
	order.Status = next
	switch next {
	case enums.OrderStatusPaid:
		order.PaidAt = &now
	case enums.OrderStatusShipped:
		order.ShippedAt = &now
	case enums.OrderStatusCancelled:
		order.CancelledAt = &now
	}

	saved, err := s.repo.Save(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
	}
	return ToDTO(saved), nil
}

func notFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithReason(pkgerrors.ReasonOrderNotFound)
}
