// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
	"scrapdesk/internal/domain/registers/stock"
	"scrapdesk/internal/infrastructure/storage/postgres"
)

const (
	materialsTable      = "materials"
	stockMovementsTable = "reg_stock_movements"
)

var movementColumns = []string{
	"tenant_id", "id", "recorder_id", "recorder_type", "recorder_version",
	"material_id", "delta", "created_at",
}

var _ stock.Repository = (*StockRepo)(nil)

// StockRepo implements stock.Repository over the materials.stock column and
// the reg_stock_movements table.
type StockRepo struct {
	txManager *postgres.TxManager
	inserter  *postgres.BatchInserter
	builder   squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		inserter:  postgres.NewBatchInserter(txManager),
		builder:   postgres.Builder(),
	}
}

// IncrementStock applies stock = stock + delta to one material. The
// increment is a single statement, so concurrent writers never lose an
// update. No row matched means the material was deleted.
func (r *StockRepo) IncrementStock(ctx context.Context, materialID id.ID, delta types.Quantity) error {
	tenantID, err := postgres.TenantID(ctx)
	if err != nil {
		return err
	}

	sql, args, err := r.builder.
		Update(materialsTable).
		Set("stock", squirrel.Expr("stock + ?", delta)).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": materialID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build increment: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("material", materialID)
	}
	return nil
}

// CreateMovements copies movements into the register. It requires the
// caller's transaction.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []stock.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	tenantID, err := postgres.TenantID(ctx)
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, []any{
			tenantID, m.ID, m.RecorderID, m.RecorderType, m.RecorderVersion,
			m.MaterialID, m.Delta, m.CreatedAt,
		})
	}
	if _, err := r.inserter.CopyFromSlice(ctx, stockMovementsTable, movementColumns, rows); err != nil {
		return fmt.Errorf("copy movements: %w", err)
	}
	return nil
}

// GetMovementHistory returns a material's movements, newest first.
func (r *StockRepo) GetMovementHistory(ctx context.Context, materialID id.ID, filter stock.MovementFilter) ([]stock.Movement, error) {
	tenantID, err := postgres.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	q := r.builder.
		Select(movementColumns[1:]...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "material_id": materialID}).
		OrderBy("created_at DESC", "id DESC")

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []stock.Movement
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}
