package invoice

import (
	"context"
	"time"

	"scrapdesk/internal/core/id"
	"scrapdesk/internal/domain"
	"scrapdesk/internal/domain/material"
)

// Repository defines invoice persistence. All methods are scoped to the
// tenant in ctx.
type Repository interface {
	// Create inserts a numbered invoice. A number already taken for the
	// kind is reported as DUPLICATE.
	Create(ctx context.Context, inv *Invoice) error

	GetByID(ctx context.Context, kind Kind, invoiceID id.ID) (*Invoice, error)

	// Update writes the header, items and total, bumps the version and
	// sets updated_at. It is not gated on the version: the last writer wins.
	Update(ctx context.Context, inv *Invoice) error

	List(ctx context.Context, kind Kind, filter ListFilter) (domain.ListResult[*Invoice], error)

	// ListLines returns the invoices of the filter with all their lines,
	// ordered by number ascending.
	ListLines(ctx context.Context, kind Kind, filter ListFilter) ([]*Invoice, error)
}

// MaterialReader is the view of the catalog the mutation protocol needs.
// Materials missing from the tenant are left out of the result.
type MaterialReader interface {
	GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*material.Material, error)
}

// ListFilter for filtering invoices.
type ListFilter struct {
	domain.ListFilter

	DateFrom *time.Time
	DateTo   *time.Time
}
