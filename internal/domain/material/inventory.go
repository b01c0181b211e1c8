package material

import (
	"github.com/go-playground/validator/v10"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// InitialInventory is the one-time opening stock of a tenant, in kg per material.
type InitialInventory struct {
	Quantities map[id.ID]types.Quantity `json:"quantities" validate:"required,min=1,dive,keys,required,endkeys,gte=0"`
}

// Validate checks the shape of the input. Existence of the materials is
// checked against the store.
func (in InitialInventory) Validate() error {
	if err := validate.Struct(in); err != nil {
		return apperror.FromValidator("invalid initial inventory", err)
	}
	return nil
}

// SortedIDs returns the material ids in lock order.
func (in InitialInventory) SortedIDs() []id.ID {
	ids := make([]id.ID, 0, len(in.Quantities))
	for materialID := range in.Quantities {
		ids = append(ids, materialID)
	}
	id.Sort(ids)
	return ids
}

// InventoryStatus reports whether the initial inventory can still be set.
type InventoryStatus struct {
	// Allowed is true while every material has zero stock
	Allowed       bool           `json:"allowed"`
	MaterialCount int            `json:"materialCount"`
	TotalStock    types.Quantity `json:"totalStock"`
}
