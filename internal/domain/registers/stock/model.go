package stock

import (
	"time"

	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/types"
)

// Recorder identifies what caused a set of movements.
type Recorder struct {
	ID      id.ID
	Type    string // purchase, sale, inventory
	Version int
}

// Movement is one applied stock change.
type Movement struct {
	ID              id.ID          `db:"id" json:"id"`
	RecorderID      id.ID          `db:"recorder_id" json:"recorderId"`
	RecorderType    string         `db:"recorder_type" json:"recorderType"`
	RecorderVersion int            `db:"recorder_version" json:"recorderVersion"`
	MaterialID      id.ID          `db:"material_id" json:"materialId"`
	Delta           types.Quantity `db:"delta" json:"delta"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
}
