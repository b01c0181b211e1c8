package reports

import (
	"context"

	"scrapdesk/internal/domain/invoice"
	"scrapdesk/internal/domain/material"
)

// MaterialSource lists the catalog with current stock.
type MaterialSource interface {
	ListAll(ctx context.Context) ([]*material.Material, error)
}

// InvoiceSource lists invoices with their lines.
type InvoiceSource interface {
	ListLines(ctx context.Context, kind invoice.Kind, filter invoice.ListFilter) ([]*invoice.Invoice, error)
}
