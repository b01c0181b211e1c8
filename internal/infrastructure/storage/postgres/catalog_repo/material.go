// Package catalog_repo provides PostgreSQL implementations for catalog repositories.
package catalog_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/domain"
	"scrapdesk/internal/domain/material"
	"scrapdesk/internal/infrastructure/storage/postgres"
)

const (
	materialsTable = "materials"

	// materialsNameIndex is the unique index on (tenant_id, lower(name)).
	materialsNameIndex = "materials_tenant_name_uidx"
)

var _ material.Repository = (*MaterialRepo)(nil)

// MaterialRepo implements material.Repository. Every statement is scoped
// by the tenant_id of ctx.
type MaterialRepo struct {
	txManager  *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
	updateCols []string
}

// NewMaterialRepo creates a new material repository.
func NewMaterialRepo(txManager *postgres.TxManager) *MaterialRepo {
	cols := postgres.ExtractDBColumns[material.Material]()
	return &MaterialRepo{
		txManager:  txManager,
		builder:    postgres.Builder(),
		selectCols: cols,
		// stock moves only through the stock register
		updateCols: postgres.Without(cols, "id", "version", "created_at", "stock"),
	}
}

// scoped starts a SELECT over the tenant's materials.
func (r *MaterialRepo) scoped(ctx context.Context) (squirrel.SelectBuilder, error) {
	tenantID, err := postgres.TenantID(ctx)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	return r.builder.
		Select(r.selectCols...).
		From(materialsTable).
		Where(squirrel.Eq{"tenant_id": tenantID}), nil
}

// Create inserts a new material using its "db" tags.
func (r *MaterialRepo) Create(ctx context.Context, m *material.Material) error {
	tenantID, err := postgres.TenantID(ctx)
	if err != nil {
		return err
	}

	data := postgres.Pick(postgres.StructToMap(m), r.selectCols)
	data["tenant_id"] = tenantID

	sql, args, err := r.builder.Insert(materialsTable).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, materialsNameIndex) {
			return apperror.NewDuplicate("material", "name", m.Name).WithCause(err)
		}
		return fmt.Errorf("insert material: %w", err)
	}
	return nil
}

// GetByID retrieves a material by ID.
func (r *MaterialRepo) GetByID(ctx context.Context, materialID id.ID) (*material.Material, error) {
	q, err := r.scoped(ctx)
	if err != nil {
		return nil, err
	}
	m, err := r.getOne(ctx, q.Where(squirrel.Eq{"id": materialID}).Limit(1))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("material", materialID)
		}
		return nil, err
	}
	return m, nil
}

// GetByIDs returns the materials found, keyed by id.
func (r *MaterialRepo) GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*material.Material, error) {
	out := make(map[id.ID]*material.Material, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q, err := r.scoped(ctx)
	if err != nil {
		return nil, err
	}
	items, err := r.selectMany(ctx, q.Where(squirrel.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	for _, m := range items {
		out[m.ID] = m
	}
	return out, nil
}

// FindByName matches the name case-insensitively.
func (r *MaterialRepo) FindByName(ctx context.Context, name string) (*material.Material, error) {
	q, err := r.scoped(ctx)
	if err != nil {
		return nil, err
	}
	m, err := r.getOne(ctx, q.Where("lower(name) = lower(?)", strings.TrimSpace(name)).Limit(1))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("material", name)
		}
		return nil, err
	}
	return m, nil
}

// List retrieves materials with search and pagination, ordered by name.
func (r *MaterialRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*material.Material], error) {
	result := domain.ListResult[*material.Material]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q, err := r.scoped(ctx)
	if err != nil {
		return result, err
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
		})
	}

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count materials: %w", err)
	}

	q = q.OrderBy("name ASC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	result.Items, err = r.selectMany(ctx, q)
	if err != nil {
		return result, err
	}
	if result.Items == nil {
		result.Items = []*material.Material{}
	}
	return result, nil
}

// ListAll returns every material ordered by name.
func (r *MaterialRepo) ListAll(ctx context.Context) ([]*material.Material, error) {
	q, err := r.scoped(ctx)
	if err != nil {
		return nil, err
	}
	return r.selectMany(ctx, q.OrderBy("name ASC"))
}

// Update modifies a material with optimistic locking. Stock is not part of
// the SET list.
func (r *MaterialRepo) Update(ctx context.Context, m *material.Material) error {
	tenantID, err := postgres.TenantID(ctx)
	if err != nil {
		return err
	}

	data := postgres.Pick(postgres.StructToMap(m), r.updateCols)
	delete(data, "updated_at")

	sql, args, err := r.builder.
		Update(materialsTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": m.ID, "version": m.Version}).
		Suffix("RETURNING version, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&m.Version, &m.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case postgres.IsNoRows(err):
		if _, getErr := r.GetByID(ctx, m.ID); getErr != nil {
			return getErr
		}
		return apperror.NewConcurrentModification("material", m.ID)
	case postgres.IsUniqueViolation(err, materialsNameIndex):
		return apperror.NewDuplicate("material", "name", m.Name).WithCause(err)
	default:
		return fmt.Errorf("update material: %w", err)
	}
}

// Delete performs physical removal. Invoices keep their own copy of the
// material name and code, so no reference blocks it.
func (r *MaterialRepo) Delete(ctx context.Context, materialID id.ID) error {
	tenantID, err := postgres.TenantID(ctx)
	if err != nil {
		return err
	}

	sql, args, err := r.builder.
		Delete(materialsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": materialID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("material", materialID)
	}
	return nil
}

// Count returns the number of the tenant's materials.
func (r *MaterialRepo) Count(ctx context.Context) (int64, error) {
	tenantID, err := postgres.TenantID(ctx)
	if err != nil {
		return 0, err
	}

	sql, args, err := r.builder.
		Select("COUNT(*)").
		From(materialsTable).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count materials: %w", err)
	}
	return n, nil
}

// LockCatalog takes a transaction-scoped advisory lock keyed by tenant.
func (r *MaterialRepo) LockCatalog(ctx context.Context) error {
	tenantID, err := postgres.TenantID(ctx)
	if err != nil {
		return err
	}
	if r.txManager.GetTx(ctx) == nil {
		return apperror.NewInternal(fmt.Errorf("lock catalog requires transaction context"))
	}

	_, err = r.txManager.GetQuerier(ctx).Exec(ctx,
		"SELECT pg_advisory_xact_lock(hashtext('materials:' || $1::text))", tenantID.String())
	if err != nil {
		return fmt.Errorf("lock catalog: %w", err)
	}
	return nil
}

// LockAll selects every material FOR UPDATE.
func (r *MaterialRepo) LockAll(ctx context.Context) ([]*material.Material, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, apperror.NewInternal(fmt.Errorf("lock materials requires transaction context"))
	}
	q, err := r.scoped(ctx)
	if err != nil {
		return nil, err
	}
	return r.selectMany(ctx, q.OrderBy("id").Suffix("FOR UPDATE"))
}

func (r *MaterialRepo) getOne(ctx context.Context, q squirrel.SelectBuilder) (*material.Material, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m material.Material
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("material", "matching query")
		}
		return nil, fmt.Errorf("get material: %w", err)
	}
	return &m, nil
}

func (r *MaterialRepo) selectMany(ctx context.Context, q squirrel.SelectBuilder) ([]*material.Material, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*material.Material
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select materials: %w", err)
	}
	return items, nil
}
