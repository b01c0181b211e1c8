package cart

import (
	"context"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
	"scrapdesk/internal/domain/material"
)

// MaterialReader loads the current state of a material.
type MaterialReader interface {
	GetByID(ctx context.Context, id id.ID) (*material.Material, error)
}

// Service evaluates client-held carts against current stock.
type Service struct {
	materials MaterialReader
}

func NewService(materials MaterialReader) *Service {
	return &Service{materials: materials}
}

// Check loads the material and evaluates adding requested kg to c.
// The answer is advisory: stock can change before the sale is submitted.
func (s *Service) Check(ctx context.Context, materialID id.ID, requested types.Quantity, c Cart, editingItemID *id.ID) (Result, error) {
	if !requested.IsPositive() {
		return Result{}, apperror.NewValidation("weight must be greater than zero").
			WithDetail("field", "weight")
	}
	m, err := s.materials.GetByID(ctx, materialID)
	if err != nil {
		return Result{}, apperror.Wrap(err)
	}
	return Check(m, requested, c, editingItemID), nil
}
