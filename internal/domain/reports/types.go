// Package reports provides the stock balance report and the Excel exports.
package reports

import (
	"time"

	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
	"scrapdesk/internal/domain/invoice"
)

// --- Stock Balance Report ---

// StockBalanceItem is one material of the stock balance.
type StockBalanceItem struct {
	MaterialID   id.ID          `json:"materialId"`
	MaterialName string         `json:"materialName"`
	MaterialCode string         `json:"materialCode,omitempty"`
	Price        types.Money    `json:"price"`
	Stock        types.Quantity `json:"stock"`
	Value        types.Money    `json:"value"`
}

// StockBalanceReport is the on-hand stock of every material.
type StockBalanceReport struct {
	AsOf  time.Time          `json:"asOf"`
	Items []StockBalanceItem `json:"items"`

	// Summary
	TotalStock types.Quantity `json:"totalStock"`
	TotalValue types.Money    `json:"totalValue"`
}

// --- Invoice register ---

// InvoiceRegisterFilter selects the invoices of an export.
type InvoiceRegisterFilter struct {
	Kind     invoice.Kind
	DateFrom *time.Time
	DateTo   *time.Time
}
