package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	cart "github.com/mercadia/storefront-backend/internal/cart"
	coupon "github.com/mercadia/storefront-backend/internal/coupons"
	"github.com/mercadia/storefront-backend/internal/orders"
	"github.com/mercadia/storefront-backend/pkg/db"
	"github.com/mercadia/storefront-backend/pkg/db/models"
	"github.com/mercadia/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
	"github.com/mercadia/storefront-backend/pkg/logger"
	"github.com/mercadia/storefront-backend/pkg/metrics"
	"github.com/mercadia/storefront-backend/pkg/pricing"
)

// referenceAttempts bounds retries when a minted order reference collides.
const referenceAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// Notifier is told about orders after the checkout transaction commits.
type Notifier interface {
	OrderCreated(ctx context.Context, order *orders.OrderDTO)
}

// Service converts the open cart into a pending order.
type Service interface {
	Execute(ctx context.Context, customerID uuid.UUID) (*orders.OrderDTO, error)
}

type service struct {
	tx       txRunner
	carts    cart.Repository
	products productLoader
	coupons  coupon.Repository
	orders   orders.Repository
	metrics  *metrics.CheckoutMetrics
	notifier Notifier
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams wires the checkout dependencies.
type ServiceParams struct {
	Tx       txRunner
	Carts    cart.Repository
	Products productLoader
	Coupons  coupon.Repository
	Orders   orders.Repository
	Metrics  *metrics.CheckoutMetrics
	Notifier Notifier
	Logger   *logger.Logger
}

// NewService builds the checkout orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       params.Tx,
		carts:    params.Carts,
		products: params.Products,
		coupons:  params.Coupons,
		orders:   params.Orders,
		metrics:  params.Metrics,
		notifier: params.Notifier,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// Execute runs the whole conversion in one transaction: expiry check, product
// snapshot, coupon re-validation and redemption, order insert, cart clear.
// Either everything lands or nothing does.
func (s *service) Execute(ctx context.Context, customerID uuid.UUID) (*orders.OrderDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	start := time.Now()
	dto, err := s.executeWithRetry(ctx, customerID)
	duration := time.Since(start)

	if err != nil {
		s.metrics.ObserveDuration("failure", duration)
		s.metrics.IncFailure(reasonOf(err))
		return nil, err
	}

	s.metrics.ObserveDuration("success", duration)
	s.metrics.IncSuccess()

	orderCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":    dto.ID.String(),
		"reference":   dto.Reference,
		"total_cents": dto.TotalCents,
	})
	s.logg.Info(orderCtx, "checkout completed")

	if s.notifier != nil {
		s.notifier.OrderCreated(ctx, dto)
	}
	return dto, nil
}

// executeWithRetry retries the whole transaction when the minted reference
// collides. Collisions abort the insert, so the retry must start a fresh tx.
func (s *service) executeWithRetry(ctx context.Context, customerID uuid.UUID) (*orders.OrderDTO, error) {
	var lastErr error
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		dto, err := s.execute(ctx, customerID)
		if err == nil {
			return dto, nil
		}
		if pkgerrors.As(err) == nil && db.IsUniqueViolation(err) {
			lastErr = err
			continue
		}
		return nil, asDomainError(err)
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "order reference collision")
}

func (s *service) execute(ctx context.Context, customerID uuid.UUID) (*orders.OrderDTO, error) {
	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		couponRepo := s.coupons.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)
		now := s.now()

		cartRow, err := cartRepo.FindOpenByCustomer(ctx, customerID, true)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no open cart to check out").
					WithReason(pkgerrors.ReasonCartNotFound)
			}
			return err
		}

		// An overdue cart is as good as empty. The rollback discards nothing
		// of value; the lazy clear happens on the next cart read.
		if cartRow.ExpiresAt != nil && now.After(*cartRow.ExpiresAt) {
			return emptyCartErr()
		}
		if len(cartRow.Items) == 0 {
			return emptyCartErr()
		}

		items, subtotal, err := s.snapshotItems(ctx, cartRow)
		if err != nil {
			return err
		}

		var couponCode *string
		var couponPercent *int
		discount := 0
		if cartRow.CouponCode != nil {
			row, err := s.revalidateCoupon(ctx, couponRepo, *cartRow.CouponCode, now)
			if err != nil {
				return err
			}
			redeemed, err := couponRepo.IncrementUsage(ctx, row.ID)
			if err != nil {
				return err
			}
			if !redeemed {
				// Lost the race for the last remaining use. Every stale coupon
				// reports the same conflict at redemption time.
				return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon is no longer valid").
					WithReason(pkgerrors.ReasonCouponNoLongerValid)
			}
			couponCode = &row.Code
			percent := row.Percent
			couponPercent = &percent
			discount = pricing.DiscountCents(subtotal, percent)
		}

		order := &models.Order{
			Reference:     newReference(now),
			CustomerID:    customerID,
			Status:        enums.OrderStatusPending,
			Currency:      cartRow.Currency,
			SubtotalCents: subtotal,
			DiscountCents: discount,
			TotalCents:    subtotal - discount,
			CouponCode:    couponCode,
			CouponPercent: couponPercent,
			Items:         items,
		}
		if _, err := orderRepo.Create(ctx, order); err != nil {
			return err
		}

		if err := cartRepo.ClearItems(ctx, cartRow.ID); err != nil {
			return err
		}
		if err := cartRepo.MarkConverted(ctx, cartRow.ID, now); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders.ToDTO(created), nil
}

// snapshotItems freezes product names and current prices into order lines.
func (s *service) snapshotItems(ctx context.Context, cartRow *models.Cart) ([]models.OrderItem, int, error) {
	ids := make([]uuid.UUID, 0, len(cartRow.Items))
	for i := range cartRow.Items {
		ids = append(ids, cartRow.Items[i].ProductID)
	}
	rows, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	catalog := make(map[uuid.UUID]*models.Product, len(rows))
	for i := range rows {
		catalog[rows[i].ID] = &rows[i]
	}

	items := make([]models.OrderItem, 0, len(cartRow.Items))
	subtotal := 0
	for i := range cartRow.Items {
		line := &cartRow.Items[i]
		product, ok := catalog[line.ProductID]
		if !ok {
			return nil, 0, pkgerrors.New(pkgerrors.CodeStateConflict, "a cart product no longer exists").
				WithReason(pkgerrors.ReasonProductNotFound)
		}
		if !product.IsActive {
			return nil, 0, pkgerrors.New(pkgerrors.CodeStateConflict, "a cart product is no longer available").
				WithReason(pkgerrors.ReasonProductInactive)
		}

		productID := product.ID
		lineTotal := product.PriceCents * line.Quantity
		subtotal += lineTotal
		items = append(items, models.OrderItem{
			ProductID:      &productID,
			Name:           product.Name,
			UnitPriceCents: product.PriceCents,
			Quantity:       line.Quantity,
			LineTotalCents: lineTotal,
		})
	}
	return items, subtotal, nil
}

// revalidateCoupon re-checks the attached code at checkout time. Whatever was
// true at attach time no longer matters.
func (s *service) revalidateCoupon(ctx context.Context, repo coupon.Repository, code string, now time.Time) (*models.Coupon, error) {
	row, err := repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "attached coupon no longer exists").
				WithReason(pkgerrors.ReasonCouponNoLongerValid)
		}
		return nil, err
	}

	if !coupon.Evaluate(row, now).Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "attached coupon is no longer valid").
			WithReason(pkgerrors.ReasonCouponNoLongerValid)
	}
	return row, nil
}

func emptyCartErr() error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty").
		WithReason(pkgerrors.ReasonCartEmpty)
}

func reasonOf(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Reason() != "" {
		return typed.Reason()
	}
	return "internal"
}

func asDomainError(err error) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout failed")
}
