package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"scrapdesk/internal/core/id"
	"scrapdesk/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the payload size above which changes are compressed.
const DefaultCompressThreshold = 4 * 1024

var _ audit.Recorder = (*AuditService)(nil)

// auditRow is the sys_audit row layout.
type auditRow struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            audit.Action    `db:"action"`
	UserID            string          `db:"user_id"`
	Changes           []byte          `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditService stores audit entries in sys_audit on the querier of the
// caller's transaction.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditService creates a new audit service. A threshold <= 0 uses
// DefaultCompressThreshold.
func NewAuditService(txManager *TxManager, compressThreshold int) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	if compressThreshold <= 0 {
		compressThreshold = DefaultCompressThreshold
	}
	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: compressThreshold,
	}, nil
}

// Record inserts an entry for the tenant in ctx.
func (s *AuditService) Record(ctx context.Context, entry audit.Entry) error {
	tenantID, err := TenantID(ctx)
	if err != nil {
		return err
	}

	row := s.encode(entry)
	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			tenant_id, id, entity_type, entity_id, action, user_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		tenantID, row.ID, row.EntityType, row.EntityID, row.Action, row.UserID,
		row.Changes, row.ChangesCompressed, row.CompressionAlgo, row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History retrieves the entries of an entity, newest first, with
// compressed payloads decoded.
func (s *AuditService) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.StoredEntry, error) {
	tenantID, err := TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var rows []auditRow
	err = pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &rows, `
		SELECT id, entity_type, entity_id, action, user_id,
			   changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, tenantID, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	entries := make([]audit.StoredEntry, 0, len(rows))
	for _, r := range rows {
		e, err := s.decode(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *AuditService) encode(entry audit.Entry) auditRow {
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	row := auditRow{
		ID:              entry.ID,
		EntityType:      entry.EntityType,
		EntityID:        entry.EntityID,
		Action:          entry.Action,
		UserID:          entry.UserID,
		Changes:         entry.Changes,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}
	if len(entry.Changes) > s.compressThreshold {
		row.ChangesCompressed = s.encoder.EncodeAll(entry.Changes, nil)
		row.Changes = nil
		row.CompressionAlgo = CompressionZstd
	}
	return row
}

func (s *AuditService) decode(r auditRow) (audit.StoredEntry, error) {
	changes := r.Changes
	if r.CompressionAlgo == CompressionZstd && len(r.ChangesCompressed) > 0 {
		decompressed, err := s.decoder.DecodeAll(r.ChangesCompressed, nil)
		if err != nil {
			return audit.StoredEntry{}, fmt.Errorf("decompress changes of %s: %w", r.ID, err)
		}
		changes = decompressed
	}
	return audit.StoredEntry{
		Entry: audit.Entry{
			ID:         r.ID,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Action:     r.Action,
			UserID:     r.UserID,
			Changes:    changes,
		},
		CreatedAt: r.CreatedAt,
	}, nil
}
