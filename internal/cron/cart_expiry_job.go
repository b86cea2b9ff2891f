package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	cart "github.com/mercadia/storefront-backend/internal/cart"
	"github.com/mercadia/storefront-backend/pkg/db/models"
	"github.com/mercadia/storefront-backend/pkg/logger"
)

const defaultSweepBatchSize = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CartExpiryJobParams configure the expired-cart sweeper.
type CartExpiryJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Carts     cart.Repository
	BatchSize int
}

// NewCartExpiryJob builds the job that empties overdue open carts. Expiry is
// normally applied lazily when a cart is read; the sweep catches carts whose
// owners never came back, so stale coupon attachments don't linger.
func NewCartExpiryJob(params CartExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &cartExpiryJob{
		logg:      params.Logger,
		db:        params.DB,
		carts:     params.Carts,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type cartExpiryJob struct {
	logg      *logger.Logger
	db        txRunner
	carts     cart.Repository
	batchSize int
	now       func() time.Time
}

func (j *cartExpiryJob) Name() string { return "cart-expiry" }

func (j *cartExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	total := 0
	var errs []error

	for {
		batch, err := j.carts.FindExpiredOpen(ctx, cutoff, j.batchSize)
		if err != nil {
			errs = append(errs, fmt.Errorf("query expired carts: %w", err))
			break
		}
		if len(batch) == 0 {
			break
		}

		swept := 0
		for i := range batch {
			if err := j.sweepCart(ctx, &batch[i]); err != nil {
				errs = append(errs, fmt.Errorf("sweep cart %s: %w", batch[i].ID, err))
				continue
			}
			swept++
		}
		total += swept
		// Every cart in this batch failed; bail out rather than re-reading
		// the same rows forever.
		if swept == 0 {
			break
		}
		if len(batch) < j.batchSize {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"count": total})
	j.logg.Info(logCtx, "cart expiry sweep complete")
	return multierr.Combine(errs...)
}

// sweepCart empties one overdue cart: items gone, coupon detached, TTL
// cleared. The cart itself stays open for its owner.
func (j *cartExpiryJob) sweepCart(ctx context.Context, row *models.Cart) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.carts.WithTx(tx)
		if err := repo.ClearItems(ctx, row.ID); err != nil {
			return err
		}
		row.Items = nil
		row.CouponCode = nil
		row.CouponPercent = nil
		row.ExpiresAt = nil
		_, err := repo.Save(ctx, row)
		return err
	})
}
