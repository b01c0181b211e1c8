package reports

import (
	"context"
	"fmt"
	"time"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/types"
)

// Service provides report generation operations.
type Service struct {
	materials MaterialSource
	invoices  InvoiceSource
	now       func() time.Time
}

// NewService creates a new reports service.
func NewService(materials MaterialSource, invoices InvoiceSource) *Service {
	return &Service{materials: materials, invoices: invoices, now: time.Now}
}

// GetStockBalance reports the current stock and its value per material.
func (s *Service) GetStockBalance(ctx context.Context) (*StockBalanceReport, error) {
	materials, err := s.materials.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}

	report := &StockBalanceReport{
		AsOf:       s.now().UTC(),
		Items:      make([]StockBalanceItem, 0, len(materials)),
		TotalValue: types.Zero(),
	}
	for _, m := range materials {
		value := m.StockValue()
		report.Items = append(report.Items, StockBalanceItem{
			MaterialID:   m.ID,
			MaterialName: m.Name,
			MaterialCode: m.CodeOrEmpty(),
			Price:        m.Price,
			Stock:        m.Stock,
			Value:        value,
		})
		report.TotalStock += m.Stock
		report.TotalValue = report.TotalValue.Add(value)
	}
	return report, nil
}

// ExportStock renders the stock balance as an xlsx workbook.
func (s *Service) ExportStock(ctx context.Context) ([]byte, error) {
	report, err := s.GetStockBalance(ctx)
	if err != nil {
		return nil, err
	}
	return renderStock(report)
}

// ExportInvoices renders the invoice register of a kind as an xlsx
// workbook: one row per line with the header repeated, then a totals row.
func (s *Service) ExportInvoices(ctx context.Context, filter InvoiceRegisterFilter) ([]byte, error) {
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, apperror.NewValidation("dateFrom must be before dateTo").
			WithDetail("field", "dateFrom")
	}

	lf := invoiceListFilter(filter)
	invoices, err := s.invoices.ListLines(ctx, filter.Kind, lf)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return renderInvoices(filter.Kind, invoices)
}
