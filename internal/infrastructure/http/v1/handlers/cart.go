package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
	"scrapdesk/internal/domain/cart"
	"scrapdesk/internal/infrastructure/http/v1/dto"
)

// CartChecker is implemented by cart.Service.
type CartChecker interface {
	Check(ctx context.Context, materialID id.ID, requested types.Quantity, c cart.Cart, editingItemID *id.ID) (cart.Result, error)
}

// CartHandler evaluates client-held sale carts.
type CartHandler struct {
	*BaseHandler
	checker CartChecker
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(base *BaseHandler, checker CartChecker) *CartHandler {
	return &CartHandler{BaseHandler: base, checker: checker}
}

// Check handles POST /sales/cart/check. A rejected line is a normal
// answer with allowed=false, not an error.
func (h *CartHandler) Check(c *gin.Context) {
	var req dto.CartCheckRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if id.IsNil(req.MaterialID) {
		h.Error(c, apperror.NewValidation("material is required").WithDetail("field", "materialId"))
		return
	}

	result, err := h.checker.Check(c.Request.Context(), req.MaterialID, req.Weight, req.Cart(), req.EditingLineID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}
