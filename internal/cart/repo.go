package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mercadia/storefront-backend/pkg/db/models"
	"github.com/mercadia/storefront-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindOpenByCustomer loads the customer's open cart with its items. With
// forUpdate set, the cart row is locked for the duration of the transaction so
// concurrent mutations for the same customer serialize.
func (r *repository) FindOpenByCustomer(ctx context.Context, customerID uuid.UUID, forUpdate bool) (*models.Cart, error) {
	qb := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("customer_id = ? AND status = ?", customerID, enums.CartStatusOpen)
	if forUpdate && r.db.Dialector.Name() == "postgres" {
		qb = qb.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var cart models.Cart
	if err := qb.First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if cart.Status == "" {
		cart.Status = enums.CartStatusOpen
	}
	if cart.Currency == "" {
		cart.Currency = enums.CurrencyUSD
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *repository) Save(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := r.db.WithContext(ctx).Omit("Items").Save(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *repository) SaveItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

// MarkConverted flips the cart out of the open state, freeing the partial
// unique index slot so the next getOrCreate can mint a fresh cart.
func (r *repository) MarkConverted(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"status":       enums.CartStatusConverted,
			"converted_at": at,
			"expires_at":   nil,
			"updated_at":   at,
		}).Error
}

// FindExpiredOpen returns open carts whose TTL elapsed before cutoff. Only
// carts that still hold items are interesting to the sweeper.
func (r *repository) FindExpiredOpen(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error) {
	var rows []models.Cart
	qb := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", enums.CartStatusOpen, cutoff).
		Order("expires_at ASC")
	if limit > 0 {
		qb = qb.Limit(limit)
	}
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
