package squarewebhook

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/mercadia/storefront-backend/internal/orders"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
	"github.com/mercadia/storefront-backend/pkg/logger"
)

const paymentStatusCompleted = "COMPLETED"

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

type orderMarker interface {
	GetOrderByReference(ctx context.Context, reference string) (*orders.OrderDTO, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error)
}

// Notifier publishes order lifecycle events after a webhook lands.
type Notifier interface {
	OrderPaid(ctx context.Context, order *orders.OrderDTO)
}

type ServiceParams struct {
	Orders   orders.Service
	Payments paymentFetcher
	Notifier Notifier
	Logger   *logger.Logger
}

type Service struct {
	orders   orderMarker
	payments paymentFetcher
	notifier Notifier
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, errors.New("order service required")
	}
	if params.Payments == nil {
		return nil, errors.New("payment fetcher required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Service{
		orders:   params.Orders,
		payments: params.Payments,
		notifier: params.Notifier,
		logg:     params.Logger,
	}, nil
}

type WebhookEvent struct {
	EventID string      `json:"event_id"`
	Type    string      `json:"type"`
	Data    WebhookData `json:"data"`
}

type WebhookData struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// HandleEvent reconciles payment events against the Square API rather than
// trusting the webhook payload, then marks the matching order paid.
func (s *Service) HandleEvent(ctx context.Context, event *WebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}

	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
		if event.Data.ID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment id missing")
		}
		return s.reconcilePayment(ctx, event.Data.ID)
	default:
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"event_type": event.Type}),
			"ignoring unhandled square event")
		return nil
	}
}

func (s *Service) reconcilePayment(ctx context.Context, paymentID string) error {
	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	status := strings.ToUpper(stringValue(payment.GetStatus()))
	if status != paymentStatusCompleted {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"payment_id": paymentID,
			"status":     status,
		}), "payment not completed yet; nothing to do")
		return nil
	}

	reference := strings.TrimSpace(stringValue(payment.GetNote()))
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment carries no order reference").
			WithDetails(map[string]any{"payment_id": paymentID})
	}

	order, err := s.orders.GetOrderByReference(ctx, reference)
	if err != nil {
		return err
	}

	paid, err := s.orders.MarkPaid(ctx, order.ID)
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":   paid.ID.String(),
		"reference":  paid.Reference,
		"payment_id": paymentID,
	}), "order marked paid")

	if s.notifier != nil {
		s.notifier.OrderPaid(ctx, paid)
	}
	return nil
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
