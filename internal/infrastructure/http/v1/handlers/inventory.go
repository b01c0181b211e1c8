package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"scrapdesk/internal/domain/material"
	"scrapdesk/internal/infrastructure/http/v1/dto"
)

// InventoryService is the initial inventory side of material.Service.
type InventoryService interface {
	SetInitialInventory(ctx context.Context, in material.InitialInventory) (int, error)
	InventoryStatus(ctx context.Context) (*material.InventoryStatus, error)
}

// InventoryHandler handles the one-time initial inventory.
type InventoryHandler struct {
	*BaseHandler
	service InventoryService
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, service InventoryService) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service}
}

// Status handles GET /inventory/initial
func (h *InventoryHandler) Status(c *gin.Context) {
	status, err := h.service.InventoryStatus(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, status)
}

// Set handles PUT /inventory/initial
func (h *InventoryHandler) Set(c *gin.Context) {
	var req dto.InitialInventoryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	n, err := h.service.SetInitialInventory(c.Request.Context(), material.InitialInventory{Quantities: req.Quantities})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.CountResponse{Count: n})
}
