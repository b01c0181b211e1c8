package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"scrapdesk/internal/core/id"
	"scrapdesk/internal/domain"
	"scrapdesk/internal/domain/material"
	"scrapdesk/internal/domain/registers/stock"
	"scrapdesk/internal/infrastructure/http/v1/dto"
)

// MaterialService is the catalog side of material.Service.
type MaterialService interface {
	Create(ctx context.Context, m *material.Material) error
	Update(ctx context.Context, m *material.Material) error
	GetByID(ctx context.Context, materialID id.ID) (*material.Material, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*material.Material], error)
	Delete(ctx context.Context, materialID id.ID) error
	EnsureDefaults(ctx context.Context) (int, error)
}

// MovementReader lists the stock register entries of a material.
type MovementReader interface {
	GetMovementHistory(ctx context.Context, materialID id.ID, filter stock.MovementFilter) ([]stock.Movement, error)
}

// MaterialHandler handles HTTP requests for the material catalog.
type MaterialHandler struct {
	*BaseHandler
	service   MaterialService
	movements MovementReader
}

// NewMaterialHandler creates a new material handler.
func NewMaterialHandler(base *BaseHandler, service MaterialService, movements MovementReader) *MaterialHandler {
	return &MaterialHandler{
		BaseHandler: base,
		service:     service,
		movements:   movements,
	}
}

// List handles GET /materials
func (h *MaterialHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result, dto.FromMaterial))
}

// Get handles GET /materials/:id
func (h *MaterialHandler) Get(c *gin.Context) {
	materialID, ok := h.ParamID(c)
	if !ok {
		return
	}

	m, err := h.service.GetByID(c.Request.Context(), materialID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMaterial(m))
}

// Create handles POST /materials
func (h *MaterialHandler) Create(c *gin.Context) {
	var req dto.CreateMaterialRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), m); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromMaterial(m))
}

// Update handles PUT /materials/:id
func (h *MaterialHandler) Update(c *gin.Context) {
	materialID, ok := h.ParamID(c)
	if !ok {
		return
	}

	var req dto.UpdateMaterialRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	m, err := h.service.GetByID(ctx, materialID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(m)
	if err := h.service.Update(ctx, m); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMaterial(m))
}

// Delete handles DELETE /materials/:id
func (h *MaterialHandler) Delete(c *gin.Context) {
	materialID, ok := h.ParamID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), materialID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// EnsureDefaults handles POST /materials/defaults
func (h *MaterialHandler) EnsureDefaults(c *gin.Context) {
	n, err := h.service.EnsureDefaults(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.CountResponse{Count: n})
}

// Movements handles GET /materials/:id/movements
func (h *MaterialHandler) Movements(c *gin.Context) {
	materialID, ok := h.ParamID(c)
	if !ok {
		return
	}

	var q dto.MovementQuery
	if !h.BindQuery(c, &q) {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.service.GetByID(ctx, materialID); err != nil {
		h.Error(c, err)
		return
	}

	movements, err := h.movements.GetMovementHistory(ctx, materialID, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": dto.FromStockMovements(movements)})
}
