package reports

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"scrapdesk/internal/core/types"
	"scrapdesk/internal/domain"
	"scrapdesk/internal/domain/invoice"
)

// ContentTypeXLSX is the media type of the exported workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	stockSheet   = "Stock"
	invoiceSheet = "Invoices"
)

var (
	stockHeader   = []any{"Material", "Code", "Price", "Stock (kg)", "Value"}
	invoiceHeader = []any{"Number", "Date", "Counterparty", "Payment", "Material", "Code", "Weight (kg)", "Unit price", "Subtotal", "Invoice total"}
)

// sheetWriter appends rows to one sheet.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	bold  int
}

func newWorkbook(sheet string) (*sheetWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create style: %w", err)
	}
	return &sheetWriter{f: f, sheet: sheet, row: 1, bold: bold}, nil
}

func (w *sheetWriter) append(values []any, bold bool) error {
	first, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(w.sheet, first, &values); err != nil {
		return fmt.Errorf("write row %d: %w", w.row, err)
	}
	if bold {
		last, err := excelize.CoordinatesToCellName(len(values), w.row)
		if err != nil {
			return err
		}
		if err := w.f.SetCellStyle(w.sheet, first, last, w.bold); err != nil {
			return fmt.Errorf("style row %d: %w", w.row, err)
		}
	}
	w.row++
	return nil
}

func (w *sheetWriter) bytes() ([]byte, error) {
	defer w.f.Close()
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func renderStock(report *StockBalanceReport) ([]byte, error) {
	return render(stockSheet, func(w *sheetWriter) error {
		if err := w.f.SetColWidth(stockSheet, "A", "A", 28); err != nil {
			return err
		}
		if err := w.append(stockHeader, true); err != nil {
			return err
		}
		for _, it := range report.Items {
			row := []any{
				it.MaterialName,
				it.MaterialCode,
				it.Price.InexactFloat64(),
				it.Stock.Float64(),
				it.Value.InexactFloat64(),
			}
			if err := w.append(row, false); err != nil {
				return err
			}
		}
		total := []any{"TOTAL", "", "", report.TotalStock.Float64(), report.TotalValue.InexactFloat64()}
		return w.append(total, true)
	})
}

func renderInvoices(kind invoice.Kind, invoices []*invoice.Invoice) ([]byte, error) {
	return render(invoiceSheet, func(w *sheetWriter) error {
		if err := w.f.SetColWidth(invoiceSheet, "C", "C", 28); err != nil {
			return err
		}
		if err := w.append(invoiceHeader, true); err != nil {
			return err
		}

		var totalWeight types.Quantity
		grand := types.Zero()
		for _, inv := range invoices {
			grand = grand.Add(inv.Total)
			for _, it := range inv.Items {
				totalWeight += it.Weight
				row := []any{
					inv.Number,
					inv.Date.Format("2006-01-02"),
					inv.CounterpartyName,
					string(inv.PaymentMethod),
					it.MaterialName,
					it.MaterialCode,
					it.Weight.Float64(),
					it.UnitPrice.InexactFloat64(),
					it.Subtotal.InexactFloat64(),
					inv.Total.InexactFloat64(),
				}
				if err := w.append(row, false); err != nil {
					return err
				}
			}
		}

		label := fmt.Sprintf("TOTAL %s (%d)", kind, len(invoices))
		return w.append([]any{label, "", "", "", "", "", totalWeight.Float64(), "", "", grand.InexactFloat64()}, true)
	})
}

// render builds a one-sheet workbook with fill and returns its bytes.
func render(sheet string, fill func(w *sheetWriter) error) ([]byte, error) {
	w, err := newWorkbook(sheet)
	if err != nil {
		return nil, err
	}
	if err := fill(w); err != nil {
		w.f.Close()
		return nil, err
	}
	return w.bytes()
}

func invoiceListFilter(f InvoiceRegisterFilter) invoice.ListFilter {
	return invoice.ListFilter{
		ListFilter: domain.ListFilter{},
		DateFrom:   f.DateFrom,
		DateTo:     f.DateTo,
	}
}
