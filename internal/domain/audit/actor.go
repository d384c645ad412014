// Package audit stamps ledger rows with the acting user and records snapshots
// of rows that are removed from the ledger.
package audit

import (
	"context"
	"encoding/json"

	"ledgerbook/internal/core/apperror"
	appctx "ledgerbook/internal/core/context"
	"ledgerbook/internal/core/id"
)

// RequireActor returns the authenticated actor id carried by ctx.
// Every mutating ledger operation calls it first.
func RequireActor(ctx context.Context) (string, error) {
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return "", apperror.NewUnauthenticated("Authentication required")
	}
	return userID, nil
}

// Action names what happened to an audited row.
type Action string

const (
	ActionReverse Action = "reverse"
	ActionCancel  Action = "cancel"
	ActionAdjust  Action = "adjust"
	ActionConfirm Action = "confirm"
)

// Record is a snapshot of a ledger row at the moment it changed.
type Record struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	Snapshot   json.RawMessage
}

// Recorder persists audit records inside the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// NewRecord marshals v into a Record.
func NewRecord(entityType string, entityID id.ID, action Action, v any) (Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Record{}, err
	}
	return Record{EntityType: entityType, EntityID: entityID, Action: action, Snapshot: b}, nil
}

// NopRecorder discards records.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Record) error { return nil }
