// Package material provides the Material catalog: the recyclable materials a
// tenant buys and sells, each carrying its on-hand stock.
package material

import (
	"context"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/entity"
	"scrapdesk/internal/core/types"
)

// Material is a tradeable recyclable material.
//
// Stock is the signed sum of every committed line-item weight referencing
// the material plus the initial inventory. It is never written by catalog
// CRUD; only invoice mutations and the initial inventory move it.
type Material struct {
	entity.Catalog

	// Price is the base unit price per kg
	Price types.Money `db:"price" json:"price"`

	Stock types.Quantity `db:"stock" json:"stock"`
}

// NewMaterial creates a material with zero stock.
func NewMaterial(name string, code *string, price types.Money) *Material {
	return &Material{
		Catalog: entity.NewCatalog(name, code),
		Price:   price,
	}
}

// Validate implements entity.Validatable interface.
func (m *Material) Validate(ctx context.Context) error {
	if err := m.Catalog.Validate(ctx); err != nil {
		return err
	}
	if m.Price.IsNegative() {
		return apperror.NewValidation("price must not be negative").
			WithDetail("field", "price")
	}
	return nil
}

// StockValue is stock × price.
func (m *Material) StockValue() types.Money {
	return m.Stock.Mul(m.Price)
}
