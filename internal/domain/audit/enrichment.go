// Package audit provides audit field enrichment and the audit trail contract.
package audit

import (
	"context"
	"encoding/json"
	"time"

	appctx "scrapdesk/internal/core/context"
	"scrapdesk/internal/core/id"
)

// Action is the kind of audited operation.
type Action string

const (
	ActionCreate           Action = "create"
	ActionUpdate           Action = "update"
	ActionInitialInventory Action = "initial_inventory"
)

// Entry is one audit record. Changes is an arbitrary JSON document.
type Entry struct {
	ID         id.ID
	EntityType string
	EntityID   id.ID
	Action     Action
	UserID     string
	Changes    json.RawMessage
}

// Recorder persists audit entries. Record is called inside the mutation's
// transaction, so an audit failure rolls the mutation back.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]StoredEntry, error)
}

// StoredEntry is an Entry read back with its timestamp.
type StoredEntry struct {
	Entry
	CreatedAt time.Time
}

// NopRecorder discards entries.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) error { return nil }

func (NopRecorder) History(context.Context, string, id.ID, int) ([]StoredEntry, error) {
	return nil, nil
}

// UserID returns the caller recorded on audit entries.
func UserID(ctx context.Context) string {
	return appctx.GetUserID(ctx)
}

// EnrichCreatedByDirect sets CreatedBy and UpdatedBy from the caller in ctx.
func EnrichCreatedByDirect(ctx context.Context, createdBy, updatedBy *string) {
	userID := appctx.GetUserID(ctx)
	if userID != "" && createdBy != nil && updatedBy != nil {
		*createdBy = userID
		*updatedBy = userID
	}
}

// EnrichUpdatedByDirect sets UpdatedBy from the caller in ctx.
func EnrichUpdatedByDirect(ctx context.Context, updatedBy *string) {
	userID := appctx.GetUserID(ctx)
	if userID != "" && updatedBy != nil {
		*updatedBy = userID
	}
}
