// Package postgres provides PostgreSQL infrastructure components.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "ledgerbook/internal/core/context"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the snapshot size above which snapshots are
// stored zstd-compressed. An invoice with hundreds of claimed shipments
// easily crosses it.
const DefaultCompressThreshold = 10 * 1024

// AuditEntry is one row of sys_audit.
type AuditEntry struct {
	ID              id.ID           `db:"id" json:"id"`
	EntityType      string          `db:"entity_type" json:"entityType"`
	EntityID        id.ID           `db:"entity_id" json:"entityId"`
	Action          audit.Action    `db:"action" json:"action"`
	UserID          string          `db:"user_id" json:"userId"`
	Snapshot        json.RawMessage `db:"snapshot" json:"snapshot"`
	SnapshotZstd    []byte          `db:"snapshot_compressed" json:"-"`
	CompressionAlgo CompressionAlgo `db:"compression_algo" json:"-"`
	RequestID       string          `db:"request_id" json:"requestId,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
}

// AuditRecorder writes snapshots of removed or confirmed ledger rows to
// sys_audit inside the caller's transaction.
type AuditRecorder struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ audit.Recorder = (*AuditRecorder)(nil)

// NewAuditRecorder creates a new audit recorder.
func NewAuditRecorder(txManager *TxManager) (*AuditRecorder, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditRecorder{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: DefaultCompressThreshold,
	}, nil
}

// Record implements audit.Recorder.
func (r *AuditRecorder) Record(ctx context.Context, rec audit.Record) error {
	entry := r.newEntry(ctx, rec)

	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, user_id,
			snapshot, snapshot_compressed, compression_algo, request_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action, entry.UserID,
		entry.Snapshot, entry.SnapshotZstd, entry.CompressionAlgo, entry.RequestID, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRecorder) newEntry(ctx context.Context, rec audit.Record) AuditEntry {
	entry := AuditEntry{
		ID:              id.New(),
		EntityType:      rec.EntityType,
		EntityID:        rec.EntityID,
		Action:          rec.Action,
		UserID:          appctx.GetUserID(ctx),
		Snapshot:        rec.Snapshot,
		CompressionAlgo: CompressionNone,
		RequestID:       appctx.GetRequestID(ctx),
		CreatedAt:       time.Now().UTC(),
	}
	if len(rec.Snapshot) > r.compressThreshold {
		entry.SnapshotZstd = r.encoder.EncodeAll(rec.Snapshot, nil)
		entry.Snapshot = nil
		entry.CompressionAlgo = CompressionZstd
	}
	return entry
}

// History returns the audit trail of one entity, newest first.
func (r *AuditRecorder) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditEntry, error) {
	var entries []AuditEntry
	err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &entries, `
		SELECT id, entity_type, entity_id, action, user_id,
		       snapshot, snapshot_compressed, compression_algo, request_id, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}

	for i := range entries {
		if err := r.inflate(&entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (r *AuditRecorder) inflate(e *AuditEntry) error {
	if e.CompressionAlgo != CompressionZstd || len(e.SnapshotZstd) == 0 {
		return nil
	}
	raw, err := r.decoder.DecodeAll(e.SnapshotZstd, nil)
	if err != nil {
		return fmt.Errorf("decompress snapshot %s: %w", e.ID, err)
	}
	e.Snapshot = raw
	e.SnapshotZstd = nil
	return nil
}
