package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"scrapdesk/internal/core/id"
	"scrapdesk/internal/domain"
	"scrapdesk/internal/domain/audit"
	"scrapdesk/internal/domain/invoice"
	"scrapdesk/internal/infrastructure/http/v1/dto"
)

// InvoiceService is implemented by invoice.Service.
type InvoiceService interface {
	Create(ctx context.Context, kind invoice.Kind, h invoice.Header, items []invoice.LineItemInput) (*invoice.Invoice, error)
	Update(ctx context.Context, kind invoice.Kind, invoiceID id.ID, h invoice.Header, items []invoice.LineItemInput) (*invoice.Invoice, error)
	GetByID(ctx context.Context, kind invoice.Kind, invoiceID id.ID) (*invoice.Invoice, error)
	List(ctx context.Context, kind invoice.Kind, filter invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error)
	NextNumber(ctx context.Context, kind invoice.Kind) (int64, error)
	History(ctx context.Context, kind invoice.Kind, invoiceID id.ID) ([]audit.StoredEntry, error)
}

// InvoiceHandler serves one invoice kind. Purchases and sales share the
// handler and differ only by kind.
type InvoiceHandler struct {
	*BaseHandler
	service InvoiceService
	kind    invoice.Kind
}

// NewInvoiceHandler creates a handler for invoices of kind.
func NewInvoiceHandler(base *BaseHandler, service InvoiceService, kind invoice.Kind) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: base,
		service:     service,
		kind:        kind,
	}
}

// List handles GET /{purchases|sales}
func (h *InvoiceHandler) List(c *gin.Context) {
	var q dto.InvoiceListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), h.kind, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result, dto.FromInvoiceSummary))
}

// Get handles GET /{purchases|sales}/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := h.ParamID(c)
	if !ok {
		return
	}

	inv, err := h.service.GetByID(c.Request.Context(), h.kind, invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromInvoice(inv))
}

// Create handles POST /{purchases|sales}
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.InvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.service.Create(c.Request.Context(), h.kind, req.Header(), req.LineInputs())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromInvoice(inv))
}

// Update handles PUT /{purchases|sales}/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	invoiceID, ok := h.ParamID(c)
	if !ok {
		return
	}

	var req dto.InvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.service.Update(c.Request.Context(), h.kind, invoiceID, req.Header(), req.LineInputs())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromInvoice(inv))
}

// NextNumber handles GET /{purchases|sales}/next-number
func (h *InvoiceHandler) NextNumber(c *gin.Context) {
	n, err := h.service.NextNumber(c.Request.Context(), h.kind)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NextNumberResponse{Kind: string(h.kind), Number: n})
}

// History handles GET /{purchases|sales}/:id/history
func (h *InvoiceHandler) History(c *gin.Context) {
	invoiceID, ok := h.ParamID(c)
	if !ok {
		return
	}

	entries, err := h.service.History(c.Request.Context(), h.kind, invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": dto.FromAuditEntries(entries)})
}
