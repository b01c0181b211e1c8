package material

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/tenant"
	"scrapdesk/internal/core/types"
	"scrapdesk/internal/domain"
	"scrapdesk/internal/domain/audit"
	"scrapdesk/internal/domain/registers/stock"
)

// memRepo is an in-memory Repository. Its txManager snapshots the rows and
// restores them when the unit of work fails.
type memRepo struct {
	mu        sync.Mutex
	rows      map[id.ID]Material
	movements []stock.Movement
	failIncOn id.ID
	locks     int
}

func newMemRepo(ms ...*Material) *memRepo {
	r := &memRepo{rows: make(map[id.ID]Material)}
	for _, m := range ms {
		r.rows[m.ID] = *m
	}
	return r
}

func (r *memRepo) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	rows, movements := maps.Clone(r.rows), slices.Clone(r.movements)
	r.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.rows, r.movements = rows, movements
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memRepo) Create(_ context.Context, m *Material) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[m.ID] = *m
	return nil
}

func (r *memRepo) GetByID(_ context.Context, materialID id.ID) (*Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[materialID]
	if !ok {
		return nil, apperror.NewNotFound("material", materialID)
	}
	return &m, nil
}

func (r *memRepo) GetByIDs(_ context.Context, ids []id.ID) (map[id.ID]*Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[id.ID]*Material, len(ids))
	for _, materialID := range ids {
		if m, ok := r.rows[materialID]; ok {
			out[materialID] = &m
		}
	}
	return out, nil
}

func (r *memRepo) FindByName(_ context.Context, name string) (*Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.rows {
		if strings.EqualFold(m.Name, name) {
			return &m, nil
		}
	}
	return nil, apperror.NewNotFound("material", name)
}

func (r *memRepo) sorted() []*Material {
	out := make([]*Material, 0, len(r.rows))
	for _, m := range r.rows {
		out = append(out, &m)
	}
	slices.SortFunc(out, func(a, b *Material) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (r *memRepo) List(_ context.Context, f domain.ListFilter) (domain.ListResult[*Material], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	end := min(f.Offset+f.Limit, len(all))
	start := min(f.Offset, end)
	return domain.ListResult[*Material]{Items: all[start:end], TotalCount: int64(len(all)), Limit: f.Limit, Offset: f.Offset}, nil
}

func (r *memRepo) ListAll(context.Context) ([]*Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(), nil
}

func (r *memRepo) Update(_ context.Context, m *Material) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[m.ID]
	if !ok {
		return apperror.NewNotFound("material", m.ID)
	}
	if stored.Version != m.Version {
		return apperror.NewConcurrentModification("material", m.ID)
	}
	stored.Name, stored.Code, stored.Price = m.Name, m.Code, m.Price
	stored.Touch()
	r.rows[m.ID] = stored
	m.Version = stored.Version
	return nil
}

func (r *memRepo) Delete(_ context.Context, materialID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[materialID]; !ok {
		return apperror.NewNotFound("material", materialID)
	}
	delete(r.rows, materialID)
	return nil
}

func (r *memRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *memRepo) LockCatalog(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locks++
	return nil
}

func (r *memRepo) LockAll(ctx context.Context) ([]*Material, error) {
	return r.ListAll(ctx)
}

func (r *memRepo) CreateMovements(_ context.Context, movements []stock.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *memRepo) GetMovementHistory(context.Context, id.ID, stock.MovementFilter) ([]stock.Movement, error) {
	return nil, nil
}

func (r *memRepo) IncrementStock(_ context.Context, materialID id.ID, delta types.Quantity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if materialID == r.failIncOn {
		return errors.New("connection reset")
	}
	m, ok := r.rows[materialID]
	if !ok {
		return apperror.NewNotFound("material", materialID)
	}
	m.Stock += delta
	r.rows[materialID] = m
	return nil
}

type memAudit struct {
	entries []audit.Entry
}

func (a *memAudit) Record(_ context.Context, e audit.Entry) error {
	a.entries = append(a.entries, e)
	return nil
}

func (a *memAudit) History(context.Context, string, id.ID, int) ([]audit.StoredEntry, error) {
	return nil, nil
}

func newService(repo *memRepo) (*Service, *memAudit) {
	rec := &memAudit{}
	return NewService(repo, stock.NewService(repo), repo, rec), rec
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("stock starts at zero", func(t *testing.T) {
		repo := newMemRepo()
		svc, _ := newService(repo)

		m := NewMaterial("  COBRE ", nil, types.MustMoney("28000"))
		m.Stock = types.NewQuantity(10)
		require.NoError(t, svc.Create(ctx, m))

		got, err := svc.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "COBRE", got.Name)
		assert.True(t, got.Stock.IsZero())
	})

	t.Run("duplicate name", func(t *testing.T) {
		existing := NewMaterial("PET", nil, types.MustMoney("900"))
		svc, _ := newService(newMemRepo(existing))

		err := svc.Create(ctx, NewMaterial("pet", nil, types.MustMoney("1")))
		assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
	})

	t.Run("validation", func(t *testing.T) {
		svc, _ := newService(newMemRepo())

		err := svc.Create(ctx, NewMaterial(" ", nil, types.MustMoney("1")))
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

		err = svc.Create(ctx, NewMaterial("VIDRIO", nil, types.MustMoney("-1")))
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})
}

func TestUpdate_NeverTouchesStock(t *testing.T) {
	ctx := context.Background()
	m := NewMaterial("ALUMINIO", nil, types.MustMoney("4500"))
	m.Stock = types.NewQuantity(120)
	repo := newMemRepo(m)
	svc, _ := newService(repo)

	upd := *m
	upd.Price = types.MustMoney("4700")
	upd.Stock = 0
	require.NoError(t, svc.Update(ctx, &upd))

	got, err := svc.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(120), got.Stock)
	assert.True(t, types.MustMoney("4700").Equal(got.Price))
	assert.Equal(t, 2, got.Version)
}

func TestUpdate_StaleVersion(t *testing.T) {
	ctx := context.Background()
	m := NewMaterial("ALUMINIO", nil, types.MustMoney("4500"))
	svc, _ := newService(newMemRepo(m))

	first := *m
	require.NoError(t, svc.Update(ctx, &first))

	stale := *m
	err := svc.Update(ctx, &stale)
	assert.True(t, apperror.HasCode(err, apperror.CodeConcurrentModification))
}

func TestEnsureDefaults(t *testing.T) {
	ctx := context.Background()

	t.Run("empty tenant gets the starter catalog once", func(t *testing.T) {
		repo := newMemRepo()
		svc, _ := newService(repo)

		n, err := svc.EnsureDefaults(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(DefaultCatalog), n)

		n, err = svc.EnsureDefaults(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		count, _ := repo.Count(ctx)
		assert.Equal(t, int64(len(DefaultCatalog)), count)
		assert.Equal(t, 2, repo.locks)

		for _, m := range repo.sorted() {
			assert.True(t, m.Stock.IsZero(), m.Name)
		}
	})

	t.Run("existing catalog is left alone", func(t *testing.T) {
		repo := newMemRepo(NewMaterial("CUSTOM", nil, types.MustMoney("1")))
		svc, _ := newService(repo)

		n, err := svc.EnsureDefaults(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		count, _ := repo.Count(ctx)
		assert.Equal(t, int64(1), count)
	})

	t.Run("concurrent callers insert once", func(t *testing.T) {
		repo := newMemRepo()
		svc, _ := newService(repo)

		// The fake serializes the check-then-insert the way the advisory lock does.
		var gate sync.Mutex
		serial := &serialTx{repo: repo, gate: &gate}
		svc.txManager = serial

		var wg sync.WaitGroup
		totals := make([]int, 8)
		for i := range totals {
			wg.Add(1)
			go func() {
				defer wg.Done()
				totals[i], _ = svc.EnsureDefaults(ctx)
			}()
		}
		wg.Wait()

		sum := 0
		for _, n := range totals {
			sum += n
		}
		assert.Equal(t, len(DefaultCatalog), sum)
	})
}

type serialTx struct {
	repo *memRepo
	gate *sync.Mutex
}

func (s *serialTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.gate.Lock()
	defer s.gate.Unlock()
	return s.repo.RunInTransaction(ctx, fn)
}

func TestSetInitialInventory(t *testing.T) {
	tenantID := id.New()
	ctx := tenant.WithTenantID(context.Background(), tenantID.String())

	t.Run("applies quantities and audits", func(t *testing.T) {
		pet := NewMaterial("PET", nil, types.MustMoney("900"))
		cobre := NewMaterial("COBRE", nil, types.MustMoney("28000"))
		repo := newMemRepo(pet, cobre)
		svc, rec := newService(repo)

		n, err := svc.SetInitialInventory(ctx, InitialInventory{Quantities: map[id.ID]types.Quantity{
			pet.ID:   types.NewQuantity(300),
			cobre.ID: 0,
		}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, types.NewQuantity(300), repo.rows[pet.ID].Stock)
		require.Len(t, rec.entries, 1)
		assert.Equal(t, audit.ActionInitialInventory, rec.entries[0].Action)
		assert.Equal(t, tenantID, rec.entries[0].EntityID)
		require.Len(t, repo.movements, 1)
		assert.Equal(t, InventoryEntityType, repo.movements[0].RecorderType)

		st, err := svc.InventoryStatus(ctx)
		require.NoError(t, err)
		assert.False(t, st.Allowed)
		assert.Equal(t, types.NewQuantity(300), st.TotalStock)
	})

	t.Run("locked once any stock exists", func(t *testing.T) {
		pet := NewMaterial("PET", nil, types.MustMoney("900"))
		pet.Stock = types.NewQuantity(1)
		svc, rec := newService(newMemRepo(pet))

		_, err := svc.SetInitialInventory(ctx, InitialInventory{Quantities: map[id.ID]types.Quantity{
			pet.ID: types.NewQuantity(5),
		}})
		assert.True(t, apperror.HasCode(err, apperror.CodeInitialInventoryLocked))
		assert.Empty(t, rec.entries)
	})

	t.Run("unknown material", func(t *testing.T) {
		pet := NewMaterial("PET", nil, types.MustMoney("900"))
		repo := newMemRepo(pet)
		svc, _ := newService(repo)

		_, err := svc.SetInitialInventory(ctx, InitialInventory{Quantities: map[id.ID]types.Quantity{
			pet.ID:   types.NewQuantity(5),
			id.New(): types.NewQuantity(5),
		}})
		assert.True(t, apperror.IsNotFound(err))
		assert.True(t, repo.rows[pet.ID].Stock.IsZero())
	})

	t.Run("store failure rolls back every increment", func(t *testing.T) {
		a := NewMaterial("A", nil, types.MustMoney("1"))
		b := NewMaterial("B", nil, types.MustMoney("1"))
		repo := newMemRepo(a, b)
		ids := []id.ID{a.ID, b.ID}
		id.Sort(ids)
		repo.failIncOn = ids[1]
		svc, _ := newService(repo)

		_, err := svc.SetInitialInventory(ctx, InitialInventory{Quantities: map[id.ID]types.Quantity{
			a.ID: types.NewQuantity(5),
			b.ID: types.NewQuantity(7),
		}})
		assert.True(t, apperror.HasCode(err, apperror.CodeDatabase))
		assert.True(t, repo.rows[a.ID].Stock.IsZero())
		assert.True(t, repo.rows[b.ID].Stock.IsZero())
		assert.Empty(t, repo.movements)
	})

	t.Run("requires a tenant", func(t *testing.T) {
		pet := NewMaterial("PET", nil, types.MustMoney("900"))
		svc, _ := newService(newMemRepo(pet))

		_, err := svc.SetInitialInventory(context.Background(), InitialInventory{Quantities: map[id.ID]types.Quantity{
			pet.ID: types.NewQuantity(1),
		}})
		assert.True(t, apperror.HasCode(err, apperror.CodeInternal))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		svc, _ := newService(newMemRepo())

		_, err := svc.SetInitialInventory(ctx, InitialInventory{})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

		_, err = svc.SetInitialInventory(ctx, InitialInventory{Quantities: map[id.ID]types.Quantity{
			id.New(): types.NewQuantity(-1),
		}})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

		_, err = svc.SetInitialInventory(ctx, InitialInventory{Quantities: map[id.ID]types.Quantity{
			id.Nil(): types.NewQuantity(1),
		}})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMaterial("PET", nil, types.MustMoney("900"))
	svc, _ := newService(newMemRepo(m))

	require.NoError(t, svc.Delete(ctx, m.ID))
	assert.True(t, apperror.IsNotFound(svc.Delete(ctx, m.ID)))
}
