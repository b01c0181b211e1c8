// Package numerator hands out gap-free sequential numbers from the
// sys_sequences table.
//
// Every call runs on the querier of the caller's transaction, so a number
// consumed by a rolled-back write is returned with it.
package numerator

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"scrapdesk/internal/core/numerator"
	"scrapdesk/internal/core/tenant"
)

var _ numerator.Generator = (*Service)(nil)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFunc resolves the querier for ctx, typically the active transaction.
type QuerierFunc func(ctx context.Context) Querier

// Service provides tenant-scoped sequence numbering.
type Service struct {
	querier QuerierFunc
}

// New creates a numerator service with a static querier.
// Use for single-connection tools and tests.
func New(querier Querier) *Service {
	return &Service{querier: func(context.Context) Querier { return querier }}
}

// NewWithResolver creates a numerator service that resolves its querier
// from ctx on every call.
func NewWithResolver(fn QuerierFunc) *Service {
	return &Service{querier: fn}
}

// Next consumes the next number of seq for the tenant in ctx.
//
// The UPSERT takes a row lock on the sequence, so concurrent creators
// queue behind each other until the holder's transaction ends.
func (s *Service) Next(ctx context.Context, seq string) (int64, error) {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return 0, err
	}

	var num int64
	err = s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (tenant_id, sequence_type, current_val)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, sequence_type) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, tenantID, seq).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("next %s: %w", seq, err)
	}
	return num, nil
}

// Peek returns the number Next would hand out now. It does not lock, so a
// concurrent creator may take it first.
func (s *Service) Peek(ctx context.Context, seq string) (int64, error) {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return 0, err
	}

	var num int64
	err = s.querier(ctx).QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT current_val FROM sys_sequences WHERE tenant_id = $1 AND sequence_type = $2),
			0
		) + 1
	`, tenantID, seq).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("peek %s: %w", seq, err)
	}
	return num, nil
}

// Sync raises seq so that the next number is at least floor+1. A counter
// already past floor is left alone.
func (s *Service) Sync(ctx context.Context, seq string, floor int64) error {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return err
	}
	if floor < 0 {
		return fmt.Errorf("sync %s: negative floor %d", seq, floor)
	}

	var current int64
	err = s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (tenant_id, sequence_type, current_val)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, sequence_type) DO UPDATE
			SET current_val = GREATEST(sys_sequences.current_val, EXCLUDED.current_val)
		RETURNING current_val
	`, tenantID, seq, floor).Scan(&current)
	if err != nil {
		return fmt.Errorf("sync %s: %w", seq, err)
	}
	return nil
}
