package dto

import (
	"time"

	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
	"scrapdesk/internal/domain/material"
	"scrapdesk/internal/domain/registers/stock"
)

// --- Request DTOs ---

// CreateMaterialRequest for creating a material. Stock is not accepted:
// it starts at zero and moves only through invoices and the initial
// inventory.
type CreateMaterialRequest struct {
	Name  string      `json:"name" binding:"required,max=200"`
	Code  *string     `json:"code" binding:"omitempty,max=50"`
	Price types.Money `json:"price"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateMaterialRequest) ToEntity() *material.Material {
	return material.NewMaterial(r.Name, r.Code, r.Price)
}

// UpdateMaterialRequest for updating a material.
type UpdateMaterialRequest struct {
	Name    string      `json:"name" binding:"required,max=200"`
	Code    *string     `json:"code" binding:"omitempty,max=50"`
	Price   types.Money `json:"price"`
	Version int         `json:"version" binding:"required,min=1"`
}

// ApplyTo copies the editable fields onto m.
func (r *UpdateMaterialRequest) ApplyTo(m *material.Material) {
	m.Name = r.Name
	m.Code = r.Code
	m.Price = r.Price
	m.Version = r.Version
}

// InitialInventoryRequest carries the opening stock per material, in kg.
type InitialInventoryRequest struct {
	Quantities map[id.ID]types.Quantity `json:"quantities" binding:"required"`
}

// --- Response DTOs ---

// MaterialResponse is the API representation of a material.
type MaterialResponse struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Code       *string        `json:"code,omitempty"`
	Price      types.Money    `json:"price"`
	Stock      types.Quantity `json:"stock"`
	StockValue types.Money    `json:"stockValue"`
	Version    int            `json:"version"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// FromMaterial converts domain entity to response DTO.
func FromMaterial(m *material.Material) MaterialResponse {
	return MaterialResponse{
		ID:         m.ID.String(),
		Name:       m.Name,
		Code:       m.Code,
		Price:      m.Price,
		Stock:      m.Stock,
		StockValue: m.StockValue(),
		Version:    m.Version,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// MovementQuery filters a material's movement history.
type MovementQuery struct {
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
	Limit  int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter maps the query onto a register filter. To is inclusive of the
// day it names.
func (q MovementQuery) ToFilter() stock.MovementFilter {
	f := stock.MovementFilter{FromDate: q.From, Limit: q.Limit, Offset: q.Offset}
	if f.Limit == 0 {
		f.Limit = 100
	}
	if q.To != nil {
		to := q.To.AddDate(0, 0, 1)
		f.ToDate = &to
	}
	return f
}

// StockMovementResponse represents a stock movement in API responses.
type StockMovementResponse struct {
	ID              string         `json:"id"`
	RecorderID      string         `json:"recorderId"`
	RecorderType    string         `json:"recorderType"`
	RecorderVersion int            `json:"recorderVersion"`
	Delta           types.Quantity `json:"delta"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// FromStockMovements converts register movements.
func FromStockMovements(movements []stock.Movement) []StockMovementResponse {
	out := make([]StockMovementResponse, len(movements))
	for i, m := range movements {
		out[i] = StockMovementResponse{
			ID:              m.ID.String(),
			RecorderID:      m.RecorderID.String(),
			RecorderType:    m.RecorderType,
			RecorderVersion: m.RecorderVersion,
			Delta:           m.Delta,
			CreatedAt:       m.CreatedAt,
		}
	}
	return out
}
