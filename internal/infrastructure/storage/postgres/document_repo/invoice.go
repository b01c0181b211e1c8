// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/domain"
	"scrapdesk/internal/domain/invoice"
	"scrapdesk/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable = "invoices"

	// invoicesNumberIndex is the unique index on (tenant_id, kind, number).
	invoicesNumberIndex = "invoices_tenant_kind_number_uidx"
)

var _ invoice.Repository = (*InvoiceRepo)(nil)

// InvoiceRepo implements invoice.Repository. Line items live in the items
// JSONB column of the invoice row, so an invoice is always read and
// written whole.
type InvoiceRepo struct {
	txManager  *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
	updateCols []string
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txManager *postgres.TxManager) *InvoiceRepo {
	cols := postgres.ExtractDBColumns[invoice.Invoice]()
	return &InvoiceRepo{
		txManager:  txManager,
		builder:    postgres.Builder(),
		selectCols: cols,
		// number, kind and authorship of creation are fixed at insert
		updateCols: postgres.Without(cols,
			"id", "version", "created_at", "updated_at", "number", "kind", "created_by"),
	}
}

func (r *InvoiceRepo) scoped(ctx context.Context, kind invoice.Kind) (squirrel.SelectBuilder, error) {
	tenantID, err := postgres.TenantID(ctx)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	return r.builder.
		Select(r.selectCols...).
		From(invoicesTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "kind": kind}), nil
}

// Create inserts a numbered invoice.
func (r *InvoiceRepo) Create(ctx context.Context, inv *invoice.Invoice) error {
	tenantID, err := postgres.TenantID(ctx)
	if err != nil {
		return err
	}

	data := postgres.Pick(postgres.StructToMap(inv), r.selectCols)
	data["tenant_id"] = tenantID

	sql, args, err := r.builder.Insert(invoicesTable).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, invoicesNumberIndex) {
			return apperror.NewDuplicate("invoice", "number", fmt.Sprint(inv.Number)).WithCause(err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID retrieves an invoice of kind. An invoice of the other kind is
// reported as not found.
func (r *InvoiceRepo) GetByID(ctx context.Context, kind invoice.Kind, invoiceID id.ID) (*invoice.Invoice, error) {
	q, err := r.scoped(ctx, kind)
	if err != nil {
		return nil, err
	}
	sql, args, err := q.Where(squirrel.Eq{"id": invoiceID}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var inv invoice.Invoice
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &inv, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(string(kind), invoiceID)
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

// Update rewrites the header, items and total and bumps the version. It is
// not gated on the version: the last writer wins.
func (r *InvoiceRepo) Update(ctx context.Context, inv *invoice.Invoice) error {
	tenantID, err := postgres.TenantID(ctx)
	if err != nil {
		return err
	}

	sql, args, err := r.builder.
		Update(invoicesTable).
		SetMap(postgres.Pick(postgres.StructToMap(inv), r.updateCols)).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"tenant_id": tenantID, "kind": inv.Kind, "id": inv.ID}).
		Suffix("RETURNING version, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&inv.Version, &inv.UpdatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return apperror.NewNotFound(string(inv.Kind), inv.ID)
		}
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}

// List returns a page of invoices, newest number first.
func (r *InvoiceRepo) List(ctx context.Context, kind invoice.Kind, filter invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	result := domain.ListResult[*invoice.Invoice]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q, err := r.scoped(ctx, kind)
	if err != nil {
		return result, err
	}
	q = applyFilter(q, filter)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count invoices: %w", err)
	}

	q = q.OrderBy("number DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list invoices: %w", err)
	}
	if result.Items == nil {
		result.Items = []*invoice.Invoice{}
	}
	return result, nil
}

// ListLines returns every matching invoice with its lines, by number.
func (r *InvoiceRepo) ListLines(ctx context.Context, kind invoice.Kind, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	q, err := r.scoped(ctx, kind)
	if err != nil {
		return nil, err
	}
	sql, args, err := applyFilter(q, filter).OrderBy("number ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*invoice.Invoice
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	return items, nil
}

// applyFilter adds the search and date range. DateTo is inclusive of the
// whole day it names.
func applyFilter(q squirrel.SelectBuilder, filter invoice.ListFilter) squirrel.SelectBuilder {
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"counterparty_name": "%" + filter.Search + "%"})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.Lt{"date": filter.DateTo.AddDate(0, 0, 1)})
	}
	return q
}
