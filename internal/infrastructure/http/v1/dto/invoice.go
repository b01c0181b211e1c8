package dto

import (
	"time"

	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
	"scrapdesk/internal/domain/invoice"
)

// --- Request DTOs ---

// LineItemRequest is one submitted line. Weight and price are checked by
// the invoice service so the error carries the line index.
type LineItemRequest struct {
	LineID     *id.ID         `json:"lineId"`
	MaterialID id.ID          `json:"materialId"`
	Weight     types.Quantity `json:"weight"`
	UnitPrice  types.Money    `json:"unitPrice"`
}

// InvoiceRequest creates or replaces a purchase or sale. On update the
// items fully replace the stored ones.
type InvoiceRequest struct {
	Date             *time.Time        `json:"date"`
	CounterpartyName string            `json:"counterpartyName" binding:"max=200"`
	PaymentMethod    string            `json:"paymentMethod" binding:"omitempty,oneof=cash transfer credit other"`
	Notes            string            `json:"notes" binding:"max=2000"`
	Items            []LineItemRequest `json:"items"`
}

// Header maps the header fields.
func (r *InvoiceRequest) Header() invoice.Header {
	h := invoice.Header{
		CounterpartyName: r.CounterpartyName,
		PaymentMethod:    invoice.PaymentMethod(r.PaymentMethod),
		Notes:            r.Notes,
	}
	if r.Date != nil {
		h.Date = *r.Date
	}
	return h
}

// LineInputs maps the submitted lines in order.
func (r *InvoiceRequest) LineInputs() []invoice.LineItemInput {
	out := make([]invoice.LineItemInput, len(r.Items))
	for i, it := range r.Items {
		out[i] = invoice.LineItemInput{
			LineID:     it.LineID,
			MaterialID: it.MaterialID,
			Weight:     it.Weight,
			UnitPrice:  it.UnitPrice,
		}
	}
	return out
}

// InvoiceListQuery filters invoice lists and exports. DateTo is inclusive.
type InvoiceListQuery struct {
	ListQuery
	DateFrom *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"dateTo" time_format:"2006-01-02"`
}

// ToFilter maps the query onto an invoice filter.
func (q InvoiceListQuery) ToFilter() invoice.ListFilter {
	return invoice.ListFilter{
		ListFilter: q.ListQuery.ToFilter(),
		DateFrom:   q.DateFrom,
		DateTo:     q.DateTo,
	}
}

// --- Response DTOs ---

// InvoiceResponse is the API representation of an invoice.
type InvoiceResponse struct {
	ID               string             `json:"id"`
	Kind             string             `json:"kind"`
	Number           int64              `json:"number"`
	Date             time.Time          `json:"date"`
	CounterpartyName string             `json:"counterpartyName,omitempty"`
	PaymentMethod    string             `json:"paymentMethod"`
	Items            []invoice.LineItem `json:"items"`
	Total            types.Money        `json:"total"`
	Notes            string             `json:"notes,omitempty"`
	Version          int                `json:"version"`
	CreatedBy        string             `json:"createdBy,omitempty"`
	UpdatedBy        string             `json:"updatedBy,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// FromInvoice converts domain entity to response DTO.
func FromInvoice(inv *invoice.Invoice) InvoiceResponse {
	items := inv.Items
	if items == nil {
		items = []invoice.LineItem{}
	}
	return InvoiceResponse{
		ID:               inv.ID.String(),
		Kind:             string(inv.Kind),
		Number:           inv.Number,
		Date:             inv.Date,
		CounterpartyName: inv.CounterpartyName,
		PaymentMethod:    string(inv.PaymentMethod),
		Items:            items,
		Total:            inv.Total,
		Notes:            inv.Notes,
		Version:          inv.Version,
		CreatedBy:        inv.CreatedBy,
		UpdatedBy:        inv.UpdatedBy,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
}

// InvoiceSummaryResponse is a list row without the lines.
type InvoiceSummaryResponse struct {
	ID               string      `json:"id"`
	Number           int64       `json:"number"`
	Date             time.Time   `json:"date"`
	CounterpartyName string      `json:"counterpartyName,omitempty"`
	PaymentMethod    string      `json:"paymentMethod"`
	ItemCount        int         `json:"itemCount"`
	Total            types.Money `json:"total"`
}

// FromInvoiceSummary converts an invoice to a list row.
func FromInvoiceSummary(inv *invoice.Invoice) InvoiceSummaryResponse {
	return InvoiceSummaryResponse{
		ID:               inv.ID.String(),
		Number:           inv.Number,
		Date:             inv.Date,
		CounterpartyName: inv.CounterpartyName,
		PaymentMethod:    string(inv.PaymentMethod),
		ItemCount:        len(inv.Items),
		Total:            inv.Total,
	}
}

// NextNumberResponse previews the number of the next invoice.
type NextNumberResponse struct {
	Kind   string `json:"kind"`
	Number int64  `json:"number"`
}
