package stock

import (
	"context"
	"fmt"
	"time"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
	"scrapdesk/pkg/logger"
)

// Ledger applies signed stock changes.
type Ledger interface {
	Apply(ctx context.Context, rec Recorder, deltas map[id.ID]types.Quantity) error
}

var _ Ledger = (*Service)(nil)

// Service provides business operations for the stock register.
// Transactions are managed by the caller.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new stock register service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Apply increments the stock of every material by its delta, in id order,
// and records one movement per nonzero delta. It must run inside the
// caller's transaction so a failure undoes every increment.
func (s *Service) Apply(ctx context.Context, rec Recorder, deltas map[id.ID]types.Quantity) error {
	if id.IsNil(rec.ID) {
		return apperror.NewValidation("recorder_id is required")
	}

	ids := make([]id.ID, 0, len(deltas))
	for materialID, q := range deltas {
		if !q.IsZero() {
			ids = append(ids, materialID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	id.Sort(ids)

	now := s.now().UTC()
	movements := make([]Movement, 0, len(ids))
	for _, materialID := range ids {
		delta := deltas[materialID]
		if err := s.repo.IncrementStock(ctx, materialID, delta); err != nil {
			return fmt.Errorf("increment stock of %s: %w", materialID, err)
		}
		movements = append(movements, Movement{
			ID:              id.New(),
			RecorderID:      rec.ID,
			RecorderType:    rec.Type,
			RecorderVersion: rec.Version,
			MaterialID:      materialID,
			Delta:           delta,
			CreatedAt:       now,
		})
	}

	if err := s.repo.CreateMovements(ctx, movements); err != nil {
		return fmt.Errorf("create movements: %w", err)
	}

	logger.Debug(ctx, "stock movements applied",
		"recorder_type", rec.Type,
		"recorder_id", rec.ID,
		"count", len(movements))
	return nil
}

// GetMovementHistory returns the movements of a material.
func (s *Service) GetMovementHistory(ctx context.Context, materialID id.ID, filter MovementFilter) ([]Movement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	movements, err := s.repo.GetMovementHistory(ctx, materialID, filter)
	if err != nil {
		return nil, apperror.Wrap(fmt.Errorf("get movement history: %w", err))
	}
	return movements, nil
}
