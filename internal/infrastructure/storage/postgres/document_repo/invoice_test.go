package document_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapdesk/internal/domain"
	"scrapdesk/internal/domain/invoice"
	"scrapdesk/internal/infrastructure/storage/postgres"
)

func TestApplyFilter(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   invoice.ListFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no filter",
			wantSQL: "SELECT id FROM invoices",
		},
		{
			name:     "search only",
			filter:   invoice.ListFilter{ListFilter: domain.ListFilter{Search: "sas"}},
			wantSQL:  "SELECT id FROM invoices WHERE counterparty_name ILIKE $1",
			wantArgs: []any{"%sas%"},
		},
		{
			name:     "date range includes the last day",
			filter:   invoice.ListFilter{DateFrom: &from, DateTo: &to},
			wantSQL:  "SELECT id FROM invoices WHERE date >= $1 AND date < $2",
			wantArgs: []any{from, to.AddDate(0, 0, 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := applyFilter(postgres.Builder().Select("id").From("invoices"), tt.filter)
			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestInvoiceRepoColumns(t *testing.T) {
	repo := NewInvoiceRepo(nil)

	assert.Contains(t, repo.selectCols, "items")
	assert.Contains(t, repo.selectCols, "number")
	assert.NotContains(t, repo.selectCols, "-")

	for _, fixed := range []string{"id", "number", "kind", "created_by", "version"} {
		assert.NotContains(t, repo.updateCols, fixed)
	}
	assert.Subset(t, repo.updateCols, []string{"date", "counterparty_name", "payment_method", "items", "total", "notes", "updated_by"})
}
