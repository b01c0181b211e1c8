package invoice

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
	"scrapdesk/internal/domain"
	"scrapdesk/internal/domain/audit"
	"scrapdesk/internal/domain/material"
	"scrapdesk/internal/domain/registers/stock"
)

var errStore = errors.New("connection reset by peer")

// memStore is an in-memory stand-in for the database. It implements every
// port of the service; RunInTransaction snapshots all state and restores it
// when the unit of work fails.
type memStore struct {
	mu        sync.Mutex
	materials map[id.ID]material.Material
	invoices  map[id.ID]Invoice
	seq       map[string]int64
	entries   []audit.Entry
	movements []stock.Movement

	increments int
	failIncOn  id.ID
	failAudit  bool
}

func newMemStore() *memStore {
	return &memStore{
		materials: make(map[id.ID]material.Material),
		invoices:  make(map[id.ID]Invoice),
		seq:       make(map[string]int64),
	}
}

func (s *memStore) addMaterial(name string, stock string) *material.Material {
	m := material.NewMaterial(name, &name, types.MustMoney("1"))
	m.Stock = types.MustQuantity(stock)
	s.materials[m.ID] = *m
	return m
}

func (s *memStore) stockOf(materialID id.ID) types.Quantity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.materials[materialID].Stock
}

func (s *memStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	materials, invoices, seq := maps.Clone(s.materials), maps.Clone(s.invoices), maps.Clone(s.seq)
	entries, movements := slices.Clone(s.entries), slices.Clone(s.movements)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.materials, s.invoices, s.seq = materials, invoices, seq
		s.entries, s.movements = entries, movements
		s.mu.Unlock()
		return err
	}
	return nil
}

// --- Repository ---

func (s *memStore) Create(_ context.Context, inv *Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.invoices {
		if other.Kind == inv.Kind && other.Number == inv.Number {
			return apperror.NewDuplicate("invoice", "number", "")
		}
	}
	s.invoices[inv.ID] = *inv
	return nil
}

func (s *memStore) GetByID(_ context.Context, kind Kind, invoiceID id.ID) (*Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[invoiceID]
	if !ok || inv.Kind != kind {
		return nil, apperror.NewNotFound("invoice", invoiceID)
	}
	return &inv, nil
}

func (s *memStore) Update(_ context.Context, inv *Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID]; !ok {
		return apperror.NewNotFound("invoice", inv.ID)
	}
	inv.Touch()
	s.invoices[inv.ID] = *inv
	return nil
}

func (s *memStore) List(ctx context.Context, kind Kind, f ListFilter) (domain.ListResult[*Invoice], error) {
	all, _ := s.ListLines(ctx, kind, f)
	slices.Reverse(all)
	return domain.ListResult[*Invoice]{Items: all, TotalCount: int64(len(all)), Limit: f.Limit}, nil
}

func (s *memStore) ListLines(_ context.Context, kind Kind, _ ListFilter) ([]*Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Invoice
	for _, inv := range s.invoices {
		if inv.Kind == kind {
			out = append(out, &inv)
		}
	}
	slices.SortFunc(out, func(a, b *Invoice) int { return int(a.Number - b.Number) })
	return out, nil
}

// --- MaterialReader ---

func (s *memStore) GetByIDs(_ context.Context, ids []id.ID) (map[id.ID]*material.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[id.ID]*material.Material)
	for _, materialID := range ids {
		if m, ok := s.materials[materialID]; ok {
			out[materialID] = &m
		}
	}
	return out, nil
}

func (s *memStore) IncrementStock(_ context.Context, materialID id.ID, delta types.Quantity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if materialID == s.failIncOn {
		return errStore
	}
	m, ok := s.materials[materialID]
	if !ok {
		return apperror.NewNotFound("material", materialID)
	}
	m.Stock += delta
	s.materials[materialID] = m
	s.increments++
	return nil
}

// --- stock.Repository ---

func (s *memStore) CreateMovements(_ context.Context, movements []stock.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movements = append(s.movements, movements...)
	return nil
}

func (s *memStore) GetMovementHistory(_ context.Context, materialID id.ID, _ stock.MovementFilter) ([]stock.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []stock.Movement
	for _, mv := range s.movements {
		if mv.MaterialID == materialID {
			out = append(out, mv)
		}
	}
	return out, nil
}

// --- numerator.Generator ---

func (s *memStore) Next(_ context.Context, seq string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[seq]++
	return s.seq[seq], nil
}

func (s *memStore) Peek(_ context.Context, seq string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq[seq] + 1, nil
}

func (s *memStore) Sync(_ context.Context, seq string, floor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[seq] = max(s.seq[seq], floor)
	return nil
}

// --- audit.Recorder ---

func (s *memStore) Record(_ context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAudit {
		return errStore
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *memStore) History(_ context.Context, entityType string, entityID id.ID, _ int) ([]audit.StoredEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.StoredEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, audit.StoredEntry{Entry: e})
		}
	}
	return out, nil
}

func newTestService(s *memStore) *Service {
	return NewService(s, s, stock.NewService(s), s, s, s)
}

func item(m *material.Material, kg, price string) LineItemInput {
	return LineItemInput{MaterialID: m.ID, Weight: types.MustQuantity(kg), UnitPrice: types.MustMoney(price)}
}

func TestPurchaseCreateThenEdit(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	pet := store.addMaterial("PET", "0")
	carton := store.addMaterial("CARTON", "0")
	svc := newTestService(store)

	inv, err := svc.Create(ctx, KindPurchase, Header{CounterpartyName: "Reciclados SAS"}, []LineItemInput{
		item(pet, "50", "900"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), inv.Number)
	assert.True(t, types.MustMoney("45000").Equal(inv.Total), inv.Total.String())
	assert.Equal(t, types.NewQuantity(50), store.stockOf(pet.ID))
	assert.Equal(t, "PET", inv.Items[0].MaterialName)
	assert.Equal(t, PaymentCash, inv.PaymentMethod)

	petLine := inv.Items[0].LineID
	updated, err := svc.Update(ctx, KindPurchase, inv.ID, Header{CounterpartyName: "Reciclados SAS"}, []LineItemInput{
		{LineID: &petLine, MaterialID: pet.ID, Weight: types.NewQuantity(30), UnitPrice: types.MustMoney("900")},
		item(carton, "20", "500"),
	})
	require.NoError(t, err)

	assert.Equal(t, Deltas{pet.ID: types.NewQuantity(-20), carton.ID: types.NewQuantity(20)}, updated.AppliedDeltas)
	assert.Equal(t, types.NewQuantity(30), store.stockOf(pet.ID))
	assert.Equal(t, types.NewQuantity(20), store.stockOf(carton.ID))
	assert.True(t, types.MustMoney("37000").Equal(updated.Total), updated.Total.String())
	assert.Equal(t, int64(1), updated.Number)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, petLine, updated.Items[0].LineID)

	require.Len(t, store.movements, 3)
	assert.Equal(t, types.NewQuantity(50), store.movements[0].Delta)
	assert.Equal(t, 1, store.movements[0].RecorderVersion)
	for _, mv := range store.movements[1:] {
		assert.Equal(t, inv.ID, mv.RecorderID)
		assert.Equal(t, string(KindPurchase), mv.RecorderType)
		assert.Equal(t, 2, mv.RecorderVersion)
	}

	history, err := svc.History(ctx, KindPurchase, inv.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, audit.ActionUpdate, history[0].Action)
	assert.Equal(t, audit.ActionCreate, history[1].Action)
}

func TestSaleOversellRejectedBeforeAnyWrite(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	alu := store.addMaterial("ALUMINIO", "12")
	svc := newTestService(store)

	_, err := svc.Create(ctx, KindSale, Header{}, []LineItemInput{item(alu, "15", "4500")})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, "15.0000", appErr.Details["requested"])
	assert.Equal(t, "12.0000", appErr.Details["available"])

	assert.Equal(t, types.NewQuantity(12), store.stockOf(alu.ID))
	assert.Empty(t, store.invoices)
	assert.Zero(t, store.increments)

	next, err := svc.NextNumber(ctx, KindSale)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
}

func TestSaleOversell_LinesOfOneMaterialAreSummed(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	alu := store.addMaterial("ALUMINIO", "12")
	svc := newTestService(store)

	_, err := svc.Create(ctx, KindSale, Header{}, []LineItemInput{
		item(alu, "8", "4500"),
		item(alu, "5", "4500"),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	inv, err := svc.Create(ctx, KindSale, Header{}, []LineItemInput{
		item(alu, "8", "4500"),
		item(alu, "4", "4500"),
	})
	require.NoError(t, err)
	assert.True(t, store.stockOf(alu.ID).IsZero())
	assert.Len(t, inv.Items, 2)
}

func TestSaleEdit(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cobre := store.addMaterial("COBRE", "10")
	svc := newTestService(store)

	inv, err := svc.Create(ctx, KindSale, Header{}, []LineItemInput{item(cobre, "6", "28000")})
	require.NoError(t, err)
	require.Equal(t, types.NewQuantity(4), store.stockOf(cobre.ID))

	// The 6 kg already sold count as available to this invoice.
	_, err = svc.Update(ctx, KindSale, inv.ID, Header{}, []LineItemInput{item(cobre, "10", "28000")})
	require.NoError(t, err)
	assert.True(t, store.stockOf(cobre.ID).IsZero())

	_, err = svc.Update(ctx, KindSale, inv.ID, Header{}, []LineItemInput{item(cobre, "10.5", "28000")})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	assert.True(t, store.stockOf(cobre.ID).IsZero())

	_, err = svc.Update(ctx, KindSale, inv.ID, Header{}, []LineItemInput{item(cobre, "1", "28000")})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(9), store.stockOf(cobre.ID))
}

func TestNumbering(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	pet := store.addMaterial("PET", "0")
	svc := newTestService(store)

	n, err := svc.NextNumber(ctx, KindPurchase)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	inv, err := svc.Create(ctx, KindPurchase, Header{}, []LineItemInput{item(pet, "1", "900")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), inv.Number)

	n, err = svc.NextNumber(ctx, KindPurchase)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = svc.NextNumber(ctx, KindSale)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAtomicity(t *testing.T) {
	ctx := context.Background()

	t.Run("failed increment leaves nothing behind", func(t *testing.T) {
		store := newMemStore()
		a := store.addMaterial("A", "0")
		b := store.addMaterial("B", "0")
		ids := []id.ID{a.ID, b.ID}
		id.Sort(ids)
		store.failIncOn = ids[1]
		svc := newTestService(store)

		_, err := svc.Create(ctx, KindPurchase, Header{}, []LineItemInput{
			item(a, "5", "1"),
			item(b, "7", "1"),
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeDatabase))
		assert.ErrorIs(t, err, errStore)

		assert.Empty(t, store.invoices)
		assert.True(t, store.stockOf(a.ID).IsZero())
		assert.True(t, store.stockOf(b.ID).IsZero())
		assert.Empty(t, store.entries)

		n, _ := svc.NextNumber(ctx, KindPurchase)
		assert.Equal(t, int64(1), n, "rolled back create must not burn a number")
	})

	t.Run("failed audit rolls back an edit", func(t *testing.T) {
		store := newMemStore()
		pet := store.addMaterial("PET", "0")
		svc := newTestService(store)

		inv, err := svc.Create(ctx, KindPurchase, Header{Notes: "first"}, []LineItemInput{item(pet, "50", "900")})
		require.NoError(t, err)

		store.failAudit = true
		_, err = svc.Update(ctx, KindPurchase, inv.ID, Header{Notes: "second"}, []LineItemInput{item(pet, "10", "900")})
		require.Error(t, err)

		stored, err := svc.GetByID(ctx, KindPurchase, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "first", stored.Notes)
		assert.Equal(t, types.NewQuantity(50), stored.Items[0].Weight)
		assert.Equal(t, 1, stored.Version)
		assert.Equal(t, types.NewQuantity(50), store.stockOf(pet.ID))
	})
}

func TestStockConservationUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	pet := store.addMaterial("PET", "100")
	svc := newTestService(store)

	weights := []string{"10", "2.5", "7", "0.0001", "33", "4", "12", "1"}
	var wg sync.WaitGroup
	for i, w := range weights {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kind := KindPurchase
			if i%2 == 1 {
				kind = KindSale
			}
			_, err := svc.Create(ctx, kind, Header{}, []LineItemInput{item(pet, w, "900")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	want := types.NewQuantity(100)
	for i, w := range weights {
		if i%2 == 1 {
			want -= types.MustQuantity(w)
		} else {
			want += types.MustQuantity(w)
		}
	}
	assert.Equal(t, want, store.stockOf(pet.ID))

	purchases, _ := store.ListLines(ctx, KindPurchase, ListFilter{})
	sales, _ := store.ListLines(ctx, KindSale, ListFilter{})
	assert.Len(t, purchases, 4)
	assert.Len(t, sales, 4)
	for i, inv := range purchases {
		assert.Equal(t, int64(i+1), inv.Number)
	}
}

func TestRerunSameItemsIsZeroDelta(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	pet := store.addMaterial("PET", "0")
	svc := newTestService(store)

	items := []LineItemInput{item(pet, "50", "900")}
	inv, err := svc.Create(ctx, KindPurchase, Header{}, items)
	require.NoError(t, err)
	before := store.increments

	updated, err := svc.Update(ctx, KindPurchase, inv.ID, Header{CounterpartyName: "Acopio Norte"}, items)
	require.NoError(t, err)
	assert.Empty(t, updated.AppliedDeltas)
	assert.Equal(t, before, store.increments)
	assert.Equal(t, "Acopio Norte", updated.CounterpartyName)
	assert.Equal(t, types.NewQuantity(50), store.stockOf(pet.ID))
}

func TestUpdate_OmittedHeaderFieldsKeepStoredValues(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	pet := store.addMaterial("PET", "0")
	svc := newTestService(store)

	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	inv, err := svc.Create(ctx, KindPurchase, Header{Date: date, PaymentMethod: PaymentCredit}, []LineItemInput{
		item(pet, "50", "900"),
	})
	require.NoError(t, err)

	tests := []struct {
		name        string
		header      Header
		wantDate    time.Time
		wantPayment PaymentMethod
	}{
		{"empty header", Header{}, date, PaymentCredit},
		{"payment only", Header{PaymentMethod: PaymentTransfer}, date, PaymentTransfer},
		{"date only", Header{Date: date.AddDate(0, 0, 3)}, date.AddDate(0, 0, 3), PaymentTransfer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := svc.Update(ctx, KindPurchase, inv.ID, tt.header, []LineItemInput{item(pet, "40", "900")})
			require.NoError(t, err)
			assert.True(t, tt.wantDate.Equal(updated.Date), updated.Date.String())
			assert.Equal(t, tt.wantPayment, updated.PaymentMethod)

			stored, err := svc.GetByID(ctx, KindPurchase, inv.ID)
			require.NoError(t, err)
			assert.True(t, tt.wantDate.Equal(stored.Date), stored.Date.String())
			assert.Equal(t, tt.wantPayment, stored.PaymentMethod)
		})
	}
}

func TestValidationBeforeAnyRead(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	pet := store.addMaterial("PET", "0")
	svc := newTestService(store)

	_, err := svc.Create(ctx, KindPurchase, Header{}, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeEmptyInvoice))

	tests := []struct {
		name  string
		items []LineItemInput
		field string
		index int
	}{
		{"zero weight", []LineItemInput{item(pet, "1", "900"), item(pet, "0", "900")}, "weight", 1},
		{"negative weight", []LineItemInput{item(pet, "-2", "900")}, "weight", 0},
		{"zero price", []LineItemInput{item(pet, "1", "0")}, "unitPrice", 0},
		{"missing material", []LineItemInput{{Weight: types.NewQuantity(1), UnitPrice: types.MustMoney("1")}}, "materialId", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, KindPurchase, Header{}, tt.items)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
			assert.Equal(t, tt.index, appErr.Details["index"])
		})
	}

	assert.Empty(t, store.invoices)
	assert.True(t, store.stockOf(pet.ID).IsZero())

	_, err = svc.Create(ctx, KindPurchase, Header{PaymentMethod: "barter"}, []LineItemInput{item(pet, "1", "1")})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestDeletedMaterial(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	pet := store.addMaterial("PET", "0")
	svc := newTestService(store)

	inv, err := svc.Create(ctx, KindPurchase, Header{}, []LineItemInput{item(pet, "50", "900")})
	require.NoError(t, err)
	delete(store.materials, pet.ID)

	t.Run("unchanged line keeps its snapshot", func(t *testing.T) {
		updated, err := svc.Update(ctx, KindPurchase, inv.ID, Header{Notes: "checked"}, []LineItemInput{item(pet, "50", "900")})
		require.NoError(t, err)
		assert.Equal(t, "PET", updated.Items[0].MaterialName)
		assert.Equal(t, "PET", updated.Items[0].MaterialCode)
	})

	t.Run("nonzero delta is fatal", func(t *testing.T) {
		_, err := svc.Update(ctx, KindPurchase, inv.ID, Header{}, []LineItemInput{item(pet, "40", "900")})
		assert.True(t, apperror.IsNotFound(err))

		stored, err := svc.GetByID(ctx, KindPurchase, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, types.NewQuantity(50), stored.Items[0].Weight)
	})
}

func TestUpdate_WrongKindIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	pet := store.addMaterial("PET", "0")
	svc := newTestService(store)

	inv, err := svc.Create(ctx, KindPurchase, Header{}, []LineItemInput{item(pet, "5", "900")})
	require.NoError(t, err)

	_, err = svc.Update(ctx, KindSale, inv.ID, Header{}, []LineItemInput{item(pet, "1", "900")})
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, types.NewQuantity(5), store.stockOf(pet.ID))
}

func TestHooksSeeAppliedDeltas(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	pet := store.addMaterial("PET", "0")
	svc := newTestService(store)

	var seen Deltas
	svc.Hooks().OnAfterCreate(func(_ context.Context, inv *Invoice) error {
		seen = inv.AppliedDeltas
		return errors.New("ignored")
	})

	_, err := svc.Create(ctx, KindPurchase, Header{}, []LineItemInput{item(pet, "2", "900")})
	require.NoError(t, err)
	assert.Equal(t, Deltas{pet.ID: types.NewQuantity(2)}, seen)
}
