// Package stock provides the stock register: the only writer of material
// stock, and the ledger of every movement it applied.
package stock

import (
	"context"
	"time"

	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
)

// Repository defines operations for the stock register.
type Repository interface {
	// IncrementStock runs stock = stock + delta on one material.
	// A missing material is reported as NotFound.
	IncrementStock(ctx context.Context, materialID id.ID, delta types.Quantity) error

	// CreateMovements batch inserts movements
	CreateMovements(ctx context.Context, movements []Movement) error

	// GetMovementHistory returns the movements of a material, newest first
	GetMovementHistory(ctx context.Context, materialID id.ID, filter MovementFilter) ([]Movement, error)
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
