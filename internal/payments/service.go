package payments

import (
	"context"
	"errors"
	"fmt"

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

type orderStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	SetPaymentLinkID(ctx context.Context, orderID uuid.UUID, paymentLinkID string) error
}

type linkCreator interface {
	CreatePaymentLink(ctx context.Context, params square.PaymentLinkCreateParams) (*sq.PaymentLink, error)
}

// PaymentLinkDTO is the hosted-checkout handle returned to the customer.
type PaymentLinkDTO struct {
	OrderID       uuid.UUID      `json:"order_id"`
	Reference     string         `json:"reference"`
	PaymentLinkID string         `json:"payment_link_id"`
	URL           string         `json:"url"`
	AmountCents   int            `json:"amount_cents"`
	Currency      enums.Currency `json:"currency"`
}

// Service creates hosted payment links for pending orders.
type Service interface {
	InitiateForOrder(ctx context.Context, customerID, orderID uuid.UUID) (*PaymentLinkDTO, error)
}

type service struct {
	orders      orderStore
	links       linkCreator
	redirectURL string
	logg        *logger.Logger
}

// NewService constructs the payments service.
func NewService(orders orderStore, links linkCreator, cfg config.SquareConfig, logg *logger.Logger) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	if links == nil {
		return nil, fmt.Errorf("payment link creator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:      orders,
		links:       links,
		redirectURL: cfg.RedirectURL,
		logg:        logg,
	}, nil
}

// InitiateForOrder creates a hosted checkout page for a pending order and
// records the link id on the order. Calling it again mints a fresh link; the
// latest one wins.
func (s *service) InitiateForOrder(ctx context.Context, customerID, orderID uuid.UUID) (*PaymentLinkDTO, error) {
	if customerID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id and order id are required")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerID != customerID {
		return nil, orderNotFound()
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order in status %s cannot be paid", order.Status)).
			WithReason(pkgerrors.ReasonInvalidTransition)
	}

	link, err := s.links.CreatePaymentLink(ctx, square.PaymentLinkCreateParams{
		Reference:   order.Reference,
		AmountCents: int64(order.TotalCents),
		Currency:    string(order.Currency),
		Description: fmt.Sprintf("Payment for order %s", order.Reference),
		RedirectURL: s.redirectURL,
		PaymentNote: order.Reference,
	})
	if err != nil {
		return nil, err
	}

	linkID := deref(link.GetID())
	if linkID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment link created without an id")
	}
	if err := s.orders.SetPaymentLinkID(ctx, order.ID, linkID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment link")
	}

	linkCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":        order.ID.String(),
		"payment_link_id": linkID,
	})
	s.logg.Info(linkCtx, "payment link created")

	return &PaymentLinkDTO{
		OrderID:       order.ID,
		Reference:     order.Reference,
		PaymentLinkID: linkID,
		URL:           deref(link.GetURL()),
		AmountCents:   order.TotalCents,
		Currency:      order.Currency,
	}, nil
}

func orderNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithReason(pkgerrors.ReasonOrderNotFound)
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
