// Package invoice provides purchase and sale invoices and the mutation
// protocol that keeps material stock reconciled with their line items.
package invoice

import (
	"context"
	"strings"
	"time"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/entity"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
)

// Kind tells purchases from sales.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindSale     Kind = "sale"
)

// ParseKind validates a kind coming from the outside.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", apperror.NewValidation("invalid invoice kind").
			WithDetail("field", "kind").
			WithDetail("value", s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	return k == KindPurchase || k == KindSale
}

// Sign is +1 for purchases (stock comes in) and -1 for sales.
func (k Kind) Sign() types.Quantity {
	if k == KindSale {
		return -1
	}
	return 1
}

// Sequence names the numbering sequence of the kind.
func (k Kind) Sequence() string {
	return "invoice." + string(k)
}

// PaymentMethod of an invoice.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCredit   PaymentMethod = "credit"
	PaymentOther    PaymentMethod = "other"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentTransfer, PaymentCredit, PaymentOther:
		return true
	}
	return false
}

// LineItem is one material line. MaterialName and MaterialCode are copied
// from the catalog when the line is written, so the invoice keeps rendering
// after the material is renamed or deleted.
type LineItem struct {
	LineID       id.ID          `json:"lineId"`
	MaterialID   id.ID          `json:"materialId"`
	MaterialName string         `json:"materialName"`
	MaterialCode string         `json:"materialCode,omitempty"`
	Weight       types.Quantity `json:"weight"`
	UnitPrice    types.Money    `json:"unitPrice"`
	Subtotal     types.Money    `json:"subtotal"`
}

// LineItemInput is a line as submitted by the caller.
// A nil LineID gets a fresh id.
type LineItemInput struct {
	LineID     *id.ID
	MaterialID id.ID
	Weight     types.Quantity
	UnitPrice  types.Money
}

// Header carries the editable non-line fields.
type Header struct {
	Date             time.Time
	CounterpartyName string
	PaymentMethod    PaymentMethod
	Notes            string
}

// Invoice is a purchase or sale document.
type Invoice struct {
	entity.Document

	Kind Kind `db:"kind" json:"kind"`

	// CounterpartyName is the supplier of a purchase or the customer of a sale
	CounterpartyName string `db:"counterparty_name" json:"counterpartyName,omitempty"`

	PaymentMethod PaymentMethod `db:"payment_method" json:"paymentMethod"`

	Items []LineItem  `db:"items" json:"items"`
	Total types.Money `db:"total" json:"total"`

	// AppliedDeltas holds the stock changes of the last committed mutation
	AppliedDeltas Deltas `db:"-" json:"-"`
}

// NewInvoice creates an unnumbered invoice.
func NewInvoice(kind Kind, h Header) *Invoice {
	inv := &Invoice{
		Document: entity.NewDocument(h.Date),
		Kind:     kind,
	}
	inv.applyHeader(h)
	return inv
}

// applyHeader copies the header onto the invoice. An empty date or payment
// method keeps the current value.
func (inv *Invoice) applyHeader(h Header) {
	if !h.Date.IsZero() {
		inv.Date = h.Date
	}
	inv.CounterpartyName = strings.TrimSpace(h.CounterpartyName)
	if h.PaymentMethod != "" {
		inv.PaymentMethod = h.PaymentMethod
	}
	inv.Notes = strings.TrimSpace(h.Notes)
}

// Validate implements entity.Validatable interface.
func (inv *Invoice) Validate(ctx context.Context) error {
	if err := inv.Document.Validate(ctx); err != nil {
		return err
	}
	if !inv.Kind.Valid() {
		return apperror.NewValidation("invalid invoice kind").
			WithDetail("field", "kind")
	}
	if !inv.PaymentMethod.Valid() {
		return apperror.NewValidation("invalid payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(inv.PaymentMethod))
	}
	return nil
}

// Normalize fills the defaults of a new invoice header. Updates skip it so
// that omitted fields keep their stored values.
func (h *Header) Normalize() {
	if h.PaymentMethod == "" {
		h.PaymentMethod = PaymentCash
	}
	if h.Date.IsZero() {
		h.Date = time.Now().UTC()
	}
}

// ValidateItems checks the submitted lines before anything is read or
// written. The first offending line aborts with its zero-based index.
func ValidateItems(items []LineItemInput) error {
	if len(items) == 0 {
		return apperror.NewEmptyInvoice()
	}
	for i, it := range items {
		switch {
		case id.IsNil(it.MaterialID):
			return itemError("material is required", "materialId", i)
		case !it.Weight.IsPositive():
			return itemError("weight must be greater than zero", "weight", i)
		case !it.UnitPrice.IsPositive():
			return itemError("unit price must be greater than zero", "unitPrice", i)
		}
	}
	return nil
}

func itemError(msg, field string, index int) error {
	return apperror.NewValidation(msg).
		WithDetail("field", field).
		WithDetail("index", index)
}

// Total sums the subtotals.
func Total(items []LineItem) types.Money {
	total := types.Zero()
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return total
}
