package material

import (
	"context"

	"scrapdesk/internal/core/id"
	"scrapdesk/internal/domain"
)

// Repository defines the interface for Material persistence.
// All methods are scoped to the tenant in ctx.
type Repository interface {
	Create(ctx context.Context, m *Material) error
	GetByID(ctx context.Context, id id.ID) (*Material, error)

	// GetByIDs returns the materials found; missing ids are simply absent.
	GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*Material, error)

	// FindByName matches case-insensitively. Returns NotFound when absent.
	FindByName(ctx context.Context, name string) (*Material, error)

	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Material], error)

	// ListAll returns every material ordered by name.
	ListAll(ctx context.Context) ([]*Material, error)

	// Update writes name, code and price when the stored version matches
	// m.Version, then bumps the version. Stock is never written here; it
	// moves only through the stock register.
	Update(ctx context.Context, m *Material) error

	Delete(ctx context.Context, id id.ID) error
	Count(ctx context.Context) (int64, error)

	// LockCatalog serializes catalog seeding for the tenant until the
	// transaction ends.
	LockCatalog(ctx context.Context) error

	// LockAll returns every material with its row locked for the rest of
	// the transaction.
	LockAll(ctx context.Context) ([]*Material, error)
}
