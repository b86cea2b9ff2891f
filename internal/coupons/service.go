package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadia/storefront-backend/pkg/db"
	"github.com/mercadia/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
)

// Service exposes coupon validation and admin management operations.
type Service interface {
	ValidateCoupon(ctx context.Context, code string) (*ValidationDTO, error)
	GetCoupon(ctx context.Context, id uuid.UUID) (*CouponDTO, error)
	ListCoupons(ctx context.Context) ([]CouponDTO, error)
	CreateCoupon(ctx context.Context, input CreateCouponInput) (*CouponDTO, error)
	UpdateCoupon(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*CouponDTO, error)
	DeleteCoupon(ctx context.Context, id uuid.UUID) error
}

// CreateCouponInput holds the validated payload to create a coupon.
type CreateCouponInput struct {
	Code     string
	Percent  int
	StartsAt *time.Time
	EndsAt   *time.Time
	IsActive bool
	MaxUses  *int
}

// UpdateCouponInput holds optional mutation values for a coupon.
type UpdateCouponInput struct {
	Percent  *int
	StartsAt *time.Time
	EndsAt   *time.Time
	IsActive *bool
	MaxUses  *int
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a coupon service instance.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// ValidateCoupon evaluates a code without touching its used count. Unknown
// codes come back invalid rather than as errors so preview endpoints can
// render the reason directly.
func (s *service) ValidateCoupon(ctx context.Context, code string) (*ValidationDTO, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	row, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ValidationDTO{
				Code:   normalized,
				Valid:  false,
				Reason: pkgerrors.ReasonCouponNotFound,
			}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	status := Evaluate(row, s.now())
	result := &ValidationDTO{
		Code:  row.Code,
		Valid: status.Valid(),
	}
	if status.Valid() {
		percent := row.Percent
		result.Percent = &percent
	} else {
		result.Reason = status.Reason()
	}
	return result, nil
}

// GetCoupon returns a single coupon with its evaluated status.
func (s *service) GetCoupon(ctx context.Context, id uuid.UUID) (*CouponDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found").
				WithReason(pkgerrors.ReasonCouponNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return toDTO(row, s.now()), nil
}

// ListCoupons returns all coupons with their evaluated statuses.
func (s *service) ListCoupons(ctx context.Context) ([]CouponDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	now := s.now()
	out := make([]CouponDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i], now))
	}
	return out, nil
}

// CreateCoupon inserts a new coupon after validating its shape.
func (s *service) CreateCoupon(ctx context.Context, input CreateCouponInput) (*CouponDTO, error) {
	code := NormalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if err := validatePercent(input.Percent); err != nil {
		return nil, err
	}
	if err := validateWindow(input.StartsAt, input.EndsAt); err != nil {
		return nil, err
	}
	if err := validateMaxUses(input.MaxUses); err != nil {
		return nil, err
	}

	row := &models.Coupon{
		Code:     code,
		Percent:  input.Percent,
		StartsAt: input.StartsAt,
		EndsAt:   input.EndsAt,
		IsActive: input.IsActive,
		MaxUses:  input.MaxUses,
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return toDTO(created, s.now()), nil
}

// UpdateCoupon applies the provided patch to an existing coupon. The code and
// used count are immutable; deactivate and re-issue instead of renaming.
func (s *service) UpdateCoupon(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*CouponDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found").
				WithReason(pkgerrors.ReasonCouponNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	if input.Percent != nil {
		if err := validatePercent(*input.Percent); err != nil {
			return nil, err
		}
		row.Percent = *input.Percent
	}
	if input.StartsAt != nil {
		row.StartsAt = input.StartsAt
	}
	if input.EndsAt != nil {
		row.EndsAt = input.EndsAt
	}
	if err := validateWindow(row.StartsAt, row.EndsAt); err != nil {
		return nil, err
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}
	if input.MaxUses != nil {
		if err := validateMaxUses(input.MaxUses); err != nil {
			return nil, err
		}
		if *input.MaxUses < row.UsedCount {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_uses cannot be below the current used count")
		}
		row.MaxUses = input.MaxUses
	}

	updated, err := s.repo.Update(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
	}
	return toDTO(updated, s.now()), nil
}

// DeleteCoupon removes a coupon. Orders keep the applied code and percent as
// plain columns, so history survives deletion.
func (s *service) DeleteCoupon(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found").
				WithReason(pkgerrors.ReasonCouponNotFound)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete coupon")
	}
	return nil
}

func validatePercent(percent int) error {
	if percent <= 0 || percent > 90 {
		return pkgerrors.New(pkgerrors.CodeValidation, "percent must be between 1 and 90")
	}
	return nil
}

func validateWindow(startsAt, endsAt *time.Time) error {
	if startsAt != nil && endsAt != nil && !startsAt.Before(*endsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "starts_at must be before ends_at")
	}
	return nil
}

func validateMaxUses(maxUses *int) error {
	if maxUses != nil && *maxUses <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "max_uses must be positive")
	}
	return nil
}
