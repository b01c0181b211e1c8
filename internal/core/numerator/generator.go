// Package numerator provides domain contracts for sequential numbering.
// Implementations live in pkg/numerator.
package numerator

import (
	"context"
)

// Generator hands out gap-free integer sequences scoped by tenant.
//
// The tenant is taken from ctx. Next must be called inside the transaction
// that persists the numbered record: a rollback returns the number.
type Generator interface {
	// Next consumes and returns the next number of seq (1 for a fresh sequence).
	Next(ctx context.Context, seq string) (int64, error)

	// Peek returns the number Next would return, without consuming it.
	Peek(ctx context.Context, seq string) (int64, error)

	// Sync raises the sequence so that the next number is at least floor+1.
	Sync(ctx context.Context, seq string, floor int64) error
}
