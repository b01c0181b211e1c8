package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scrapdesk/internal/domain/invoice"
	"scrapdesk/internal/domain/reports"
	"scrapdesk/internal/infrastructure/http/v1/dto"
)

// ContentTypeXLSX is the media type of the exported workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportService is implemented by reports.Service.
type ReportService interface {
	GetStockBalance(ctx context.Context) (*reports.StockBalanceReport, error)
	ExportStock(ctx context.Context) ([]byte, error)
	ExportInvoices(ctx context.Context, filter reports.InvoiceRegisterFilter) ([]byte, error)
}

// ReportsHandler handles HTTP requests for reports and exports.
type ReportsHandler struct {
	*BaseHandler
	service ReportService
	now     func() time.Time
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service ReportService) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
		now:         time.Now,
	}
}

// GetStockBalance handles GET /reports/stock-balance
func (h *ReportsHandler) GetStockBalance(c *gin.Context) {
	report, err := h.service.GetStockBalance(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// ExportStock handles GET /export/stock.xlsx
func (h *ReportsHandler) ExportStock(c *gin.Context) {
	data, err := h.service.ExportStock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.attachment(c, "stock", data)
}

// ExportInvoices returns the handler of GET /export/{purchases|sales}.xlsx
func (h *ReportsHandler) ExportInvoices(kind invoice.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q dto.InvoiceListQuery
		if !h.BindQuery(c, &q) {
			return
		}

		data, err := h.service.ExportInvoices(c.Request.Context(), reports.InvoiceRegisterFilter{
			Kind:     kind,
			DateFrom: q.DateFrom,
			DateTo:   q.DateTo,
		})
		if err != nil {
			h.Error(c, err)
			return
		}
		h.attachment(c, string(kind)+"s", data)
	}
}

func (h *ReportsHandler) attachment(c *gin.Context, name string, data []byte) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, h.now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, ContentTypeXLSX, data)
}
