package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercadia/storefront-backend/pkg/db/models"
	"github.com/mercadia/storefront-backend/pkg/enums"
)

// ProductDTO is the catalog shape returned to API consumers.
type ProductDTO struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	SKU        string         `json:"sku"`
	PriceCents int            `json:"price_cents"`
	Currency   enums.Currency `json:"currency"`
	IsActive   bool           `json:"is_active"`
	Tags       []string       `json:"tags"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func toDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	return &ProductDTO{
		ID:         product.ID,
		Name:       product.Name,
		SKU:        product.SKU,
		PriceCents: product.PriceCents,
		Currency:   product.Currency,
		IsActive:   product.IsActive,
		Tags:       []string(product.Tags),
		CreatedAt:  product.CreatedAt,
		UpdatedAt:  product.UpdatedAt,
	}
}

func toDTOs(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out
}
