package material

import (
	"context"
	"encoding/json"
	"fmt"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/tenant"
	"scrapdesk/internal/core/tx"
	"scrapdesk/internal/core/types"
	"scrapdesk/internal/domain"
	"scrapdesk/internal/domain/audit"
	"scrapdesk/internal/domain/registers/stock"
	"scrapdesk/pkg/logger"
)

// InventoryEntityType is the audit entity name of the opening stock.
const InventoryEntityType = "inventory"

// Service provides business operations for the Material catalog.
type Service struct {
	repo      Repository
	stock     stock.Ledger
	txManager tx.Manager
	audit     audit.Recorder
	hooks     *domain.HookRegistry[*Material]
}

// NewService creates a new Material service. recorder may be nil.
func NewService(repo Repository, ledger stock.Ledger, txManager tx.Manager, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{
		repo:      repo,
		stock:     ledger,
		txManager: txManager,
		audit:     recorder,
		hooks:     domain.NewHookRegistry[*Material](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Material] {
	return s.hooks
}

// Create adds a material with zero stock.
func (s *Service) Create(ctx context.Context, m *Material) error {
	m.Normalize()
	m.Stock = 0

	if err := s.hooks.Run(ctx, domain.BeforeCreate, m); err != nil {
		return err
	}
	if err := m.Validate(ctx); err != nil {
		return err
	}
	if err := s.ensureUniqueName(ctx, m.Name, id.Nil()); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return apperror.Wrap(fmt.Errorf("create material: %w", err))
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, m); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "material created", "id", m.ID, "name", m.Name)
	return nil
}

// Update changes name, code and price. m.Version must carry the version the
// caller read; a mismatch fails with CONCURRENT_MODIFICATION.
func (s *Service) Update(ctx context.Context, m *Material) error {
	existing, err := s.repo.GetByID(ctx, m.ID)
	if err != nil {
		return apperror.Wrap(err)
	}

	m.Normalize()
	m.Stock = existing.Stock
	m.CreatedAt = existing.CreatedAt

	if err := s.hooks.Run(ctx, domain.BeforeUpdate, m); err != nil {
		return err
	}
	if err := m.Validate(ctx); err != nil {
		return err
	}
	if err := s.ensureUniqueName(ctx, m.Name, m.ID); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, m); err != nil {
		return apperror.Wrap(fmt.Errorf("update material: %w", err))
	}

	if err := s.hooks.Run(ctx, domain.AfterUpdate, m); err != nil {
		logger.Warn(ctx, "after-update hook failed", "error", err)
	}
	return nil
}

// GetByID retrieves a material.
func (s *Service) GetByID(ctx context.Context, materialID id.ID) (*Material, error) {
	m, err := s.repo.GetByID(ctx, materialID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return m, nil
}

// List returns a page of materials.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Material], error) {
	filter.Normalize()
	res, err := s.repo.List(ctx, filter)
	if err != nil {
		return res, apperror.Wrap(err)
	}
	return res, nil
}

// ListAll returns every material ordered by name.
func (s *Service) ListAll(ctx context.Context) ([]*Material, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return items, nil
}

// Delete removes a material. Invoices that reference it keep their
// denormalized name and code.
func (s *Service) Delete(ctx context.Context, materialID id.ID) error {
	if err := s.repo.Delete(ctx, materialID); err != nil {
		return apperror.Wrap(err)
	}
	logger.Info(ctx, "material deleted", "id", materialID)
	return nil
}

// EnsureDefaults inserts the starter catalog when the tenant has no
// materials and reports how many were inserted. Concurrent callers are
// serialized by a transaction-scoped lock, so at most one of them inserts.
func (s *Service) EnsureDefaults(ctx context.Context) (int, error) {
	inserted := 0
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inserted = 0
		if err := s.repo.LockCatalog(ctx); err != nil {
			return fmt.Errorf("lock catalog: %w", err)
		}

		count, err := s.repo.Count(ctx)
		if err != nil {
			return fmt.Errorf("count materials: %w", err)
		}
		if count > 0 {
			return nil
		}

		for _, d := range DefaultCatalog {
			if err := s.repo.Create(ctx, d.material()); err != nil {
				return fmt.Errorf("insert default %s: %w", d.Name, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, apperror.Wrap(err)
	}

	if inserted > 0 {
		logger.Info(ctx, "default materials inserted", "count", inserted)
	}
	return inserted, nil
}

// SetInitialInventory applies the opening stock. It is allowed only while
// every material of the tenant has zero stock; zero quantities are skipped.
// Returns the number of materials whose stock changed.
func (s *Service) SetInitialInventory(ctx context.Context, in InitialInventory) (int, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}

	applied := 0
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		applied = 0
		locked, err := s.repo.LockAll(ctx)
		if err != nil {
			return fmt.Errorf("lock materials: %w", err)
		}

		known := make(map[id.ID]struct{}, len(locked))
		for _, m := range locked {
			if !m.Stock.IsZero() {
				return apperror.NewInitialInventoryLocked()
			}
			known[m.ID] = struct{}{}
		}

		ids := in.SortedIDs()
		for _, materialID := range ids {
			if _, ok := known[materialID]; !ok {
				return apperror.NewNotFound("material", materialID)
			}
		}

		deltas := make(map[id.ID]types.Quantity, len(ids))
		for _, materialID := range ids {
			if q := in.Quantities[materialID]; !q.IsZero() {
				deltas[materialID] = q
			}
		}
		entityID, err := inventoryEntityID(ctx)
		if err != nil {
			return err
		}
		rec := stock.Recorder{ID: entityID, Type: InventoryEntityType, Version: 1}
		if err := s.stock.Apply(ctx, rec, deltas); err != nil {
			return err
		}
		applied = len(deltas)

		changes, err := json.Marshal(in.Quantities)
		if err != nil {
			return fmt.Errorf("marshal audit changes: %w", err)
		}
		return s.audit.Record(ctx, audit.Entry{
			ID:         id.New(),
			EntityType: InventoryEntityType,
			EntityID:   entityID,
			Action:     audit.ActionInitialInventory,
			UserID:     audit.UserID(ctx),
			Changes:    changes,
		})
	})
	if err != nil {
		return 0, apperror.Wrap(err)
	}

	logger.Info(ctx, "initial inventory set", "materials", applied)
	return applied, nil
}

// InventoryStatus reports whether SetInitialInventory would be accepted.
func (s *Service) InventoryStatus(ctx context.Context) (*InventoryStatus, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	st := &InventoryStatus{Allowed: true, MaterialCount: len(items)}
	for _, m := range items {
		st.TotalStock += m.Stock
		if !m.Stock.IsZero() {
			st.Allowed = false
		}
	}
	return st, nil
}

func (s *Service) ensureUniqueName(ctx context.Context, name string, self id.ID) error {
	existing, err := s.repo.FindByName(ctx, name)
	switch {
	case err == nil:
		if existing.ID != self {
			return apperror.NewDuplicate("material", "name", name)
		}
		return nil
	case apperror.IsNotFound(err):
		return nil
	default:
		return apperror.Wrap(fmt.Errorf("check name: %w", err))
	}
}

// inventoryEntityID keys the opening-stock audit entries by tenant.
func inventoryEntityID(ctx context.Context) (id.ID, error) {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return id.Nil(), apperror.NewInternal(err)
	}
	parsed, err := id.Parse(tenantID)
	if err != nil {
		return id.Nil(), apperror.NewInternal(fmt.Errorf("tenant id %q: %w", tenantID, err))
	}
	return parsed, nil
}
