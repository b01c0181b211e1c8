// Package cart provides the sale-side stock guard for line items staged
// before a sale invoice is submitted. Carts are held by the client and
// never persisted.
package cart

import (
	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
	"scrapdesk/internal/domain/invoice"
	"scrapdesk/internal/domain/material"
)

// Item is a staged sale line.
type Item struct {
	LineID     id.ID          `json:"lineId"`
	MaterialID id.ID          `json:"materialId"`
	Weight     types.Quantity `json:"weight"`
	UnitPrice  types.Money    `json:"unitPrice"`
}

// Cart is an ordered list of staged lines.
type Cart struct {
	Items []Item `json:"items"`
}

// Result explains a CanAdd decision.
type Result struct {
	Allowed   bool           `json:"allowed"`
	Requested types.Quantity `json:"requested"`
	Reserved  types.Quantity `json:"reserved"`
	Available types.Quantity `json:"available"`

	// Remaining is what can still be added for the material
	Remaining types.Quantity `json:"remaining"`
}

// Reserved sums the cart weights of materialID, skipping the line being edited.
func (c Cart) Reserved(materialID id.ID, editingItemID *id.ID) types.Quantity {
	var reserved types.Quantity
	for _, it := range c.Items {
		if it.MaterialID != materialID {
			continue
		}
		if editingItemID != nil && it.LineID == *editingItemID {
			continue
		}
		reserved += it.Weight
	}
	return reserved
}

// CanAdd reports whether requested kg of m fit next to what the cart
// already holds: requested + reserved <= stock.
func CanAdd(m *material.Material, requested types.Quantity, c Cart, editingItemID *id.ID) bool {
	return Check(m, requested, c, editingItemID).Allowed
}

// Check is CanAdd with the numbers behind the decision.
func Check(m *material.Material, requested types.Quantity, c Cart, editingItemID *id.ID) Result {
	reserved := c.Reserved(m.ID, editingItemID)
	return Result{
		Allowed:   requested+reserved <= m.Stock,
		Requested: requested,
		Reserved:  reserved,
		Available: m.Stock,
		Remaining: max(m.Stock-reserved, 0),
	}
}

// Add appends a line when it passes the guard.
func (c *Cart) Add(m *material.Material, weight types.Quantity, price types.Money) (Item, error) {
	if err := checkLine(m, weight, price, *c, nil); err != nil {
		return Item{}, err
	}
	it := Item{LineID: id.New(), MaterialID: m.ID, Weight: weight, UnitPrice: price}
	c.Items = append(c.Items, it)
	return it, nil
}

// Replace rewrites the line lineID when the new values pass the guard.
func (c *Cart) Replace(m *material.Material, lineID id.ID, weight types.Quantity, price types.Money) error {
	idx := c.indexOf(lineID)
	if idx < 0 {
		return apperror.NewNotFound("cart item", lineID)
	}
	if err := checkLine(m, weight, price, *c, &lineID); err != nil {
		return err
	}
	c.Items[idx] = Item{LineID: lineID, MaterialID: m.ID, Weight: weight, UnitPrice: price}
	return nil
}

// Remove drops the line lineID and reports whether it was present.
func (c *Cart) Remove(lineID id.ID) bool {
	idx := c.indexOf(lineID)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return true
}

// Total is Σ weight × price.
func (c Cart) Total() types.Money {
	total := types.Zero()
	for _, it := range c.Items {
		total = total.Add(it.Weight.Mul(it.UnitPrice))
	}
	return total
}

// LineInputs converts the cart into the lines of a sale invoice.
func (c Cart) LineInputs() []invoice.LineItemInput {
	out := make([]invoice.LineItemInput, len(c.Items))
	for i, it := range c.Items {
		lineID := it.LineID
		out[i] = invoice.LineItemInput{
			LineID:     &lineID,
			MaterialID: it.MaterialID,
			Weight:     it.Weight,
			UnitPrice:  it.UnitPrice,
		}
	}
	return out
}

func (c Cart) indexOf(lineID id.ID) int {
	for i, it := range c.Items {
		if it.LineID == lineID {
			return i
		}
	}
	return -1
}

func checkLine(m *material.Material, weight types.Quantity, price types.Money, c Cart, editing *id.ID) error {
	if !weight.IsPositive() {
		return apperror.NewValidation("weight must be greater than zero").WithDetail("field", "weight")
	}
	if !price.IsPositive() {
		return apperror.NewValidation("unit price must be greater than zero").WithDetail("field", "unitPrice")
	}
	res := Check(m, weight, c, editing)
	if !res.Allowed {
		return apperror.NewInsufficientStock(m.ID.String(), m.Name, weight.String(), res.Remaining.String())
	}
	return nil
}
