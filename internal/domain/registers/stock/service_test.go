package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
)

type fakeRepo struct {
	stock     map[id.ID]types.Quantity
	order     []id.ID
	movements []Movement
	failOn    id.ID
	lastLimit int
}

func (f *fakeRepo) IncrementStock(_ context.Context, materialID id.ID, delta types.Quantity) error {
	if materialID == f.failOn {
		return errors.New("boom")
	}
	if _, ok := f.stock[materialID]; !ok {
		return apperror.NewNotFound("material", materialID)
	}
	f.stock[materialID] += delta
	f.order = append(f.order, materialID)
	return nil
}

func (f *fakeRepo) CreateMovements(_ context.Context, movements []Movement) error {
	f.movements = append(f.movements, movements...)
	return nil
}

func (f *fakeRepo) GetMovementHistory(_ context.Context, _ id.ID, filter MovementFilter) ([]Movement, error) {
	f.lastLimit = filter.Limit
	return f.movements, nil
}

func TestApply(t *testing.T) {
	a, b, c := id.New(), id.New(), id.New()
	repo := &fakeRepo{stock: map[id.ID]types.Quantity{a: 0, b: types.NewQuantity(10), c: 0}}
	svc := NewService(repo)
	rec := Recorder{ID: id.New(), Type: "sale", Version: 2}

	err := svc.Apply(context.Background(), rec, map[id.ID]types.Quantity{
		c: types.NewQuantity(5),
		b: types.NewQuantity(-4),
		a: 0,
	})
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantity(6), repo.stock[b])
	assert.Equal(t, types.NewQuantity(5), repo.stock[c])
	require.Len(t, repo.order, 2, "zero deltas are skipped")
	assert.Negative(t, id.Compare(repo.order[0], repo.order[1]), "increments run in id order")

	require.Len(t, repo.movements, 2)
	for _, m := range repo.movements {
		assert.Equal(t, rec.ID, m.RecorderID)
		assert.Equal(t, "sale", m.RecorderType)
		assert.Equal(t, 2, m.RecorderVersion)
	}
}

func TestApply_MissingMaterial(t *testing.T) {
	repo := &fakeRepo{stock: map[id.ID]types.Quantity{}}
	svc := NewService(repo)

	err := svc.Apply(context.Background(), Recorder{ID: id.New()}, map[id.ID]types.Quantity{id.New(): 1})
	assert.True(t, apperror.IsNotFound(err))
	assert.Empty(t, repo.movements)
}

func TestApply_Guards(t *testing.T) {
	repo := &fakeRepo{stock: map[id.ID]types.Quantity{}}
	svc := NewService(repo)

	err := svc.Apply(context.Background(), Recorder{}, map[id.ID]types.Quantity{id.New(): 1})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	require.NoError(t, svc.Apply(context.Background(), Recorder{ID: id.New()}, nil))
	assert.Empty(t, repo.movements)
}

func TestGetMovementHistory_ClampsLimit(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	_, err := svc.GetMovementHistory(context.Background(), id.New(), MovementFilter{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, 1000, repo.lastLimit)

	_, err = svc.GetMovementHistory(context.Background(), id.New(), MovementFilter{})
	require.NoError(t, err)
	assert.Equal(t, 100, repo.lastLimit)
}
