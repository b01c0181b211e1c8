package dto

import (
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
	"scrapdesk/internal/domain/cart"
)

// CartCheckRequest asks whether Weight kg of MaterialID fit next to the
// lines already in the client's cart. EditingLineID excludes the line
// being edited from the reserved sum.
type CartCheckRequest struct {
	MaterialID    id.ID          `json:"materialId"`
	Weight        types.Quantity `json:"weight"`
	EditingLineID *id.ID         `json:"editingLineId"`
	Items         []cart.Item    `json:"items"`
}

// Cart returns the posted cart.
func (r *CartCheckRequest) Cart() cart.Cart {
	return cart.Cart{Items: r.Items}
}
