package invoice

import (
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
)

// Deltas maps a material to the signed stock change of one mutation.
type Deltas map[id.ID]types.Quantity

// ComputeDeltas returns sign(kind) × (Σ next − Σ previous) per material.
// Materials whose net change is zero are left out.
func ComputeDeltas(previous, next []LineItem, kind Kind) Deltas {
	net := make(map[id.ID]types.Quantity, len(previous)+len(next))
	for _, it := range next {
		net[it.MaterialID] += it.Weight
	}
	for _, it := range previous {
		net[it.MaterialID] -= it.Weight
	}

	sign := kind.Sign()
	deltas := make(Deltas, len(net))
	for materialID, q := range net {
		if q != 0 {
			deltas[materialID] = sign * q
		}
	}
	return deltas
}

// MaterialIDs returns the ids in lock order.
func (d Deltas) MaterialIDs() []id.ID {
	ids := make([]id.ID, 0, len(d))
	for materialID := range d {
		ids = append(ids, materialID)
	}
	id.Sort(ids)
	return ids
}

// Apply returns a copy of stock moved by d.
func (d Deltas) Apply(stock map[id.ID]types.Quantity) map[id.ID]types.Quantity {
	out := make(map[id.ID]types.Quantity, len(stock)+len(d))
	for materialID, q := range stock {
		out[materialID] = q
	}
	for materialID, q := range d {
		out[materialID] += q
	}
	return out
}

// weightsByMaterial sums line weights per material.
func weightsByMaterial(items []LineItem) map[id.ID]types.Quantity {
	sums := make(map[id.ID]types.Quantity, len(items))
	for _, it := range items {
		sums[it.MaterialID] += it.Weight
	}
	return sums
}
