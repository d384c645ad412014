// Package entity provides the shared shape of reference-data rows.
package entity

import (
	"context"
	"time"

	"ledgerbook/internal/core/id"
)

// Validatable is implemented by entities that check their own invariants
// without database access.
type Validatable interface {
	Validate(ctx context.Context) error
}

// BaseEntity contains the columns every reference table carries.
type BaseEntity struct {
	ID id.ID `db:"id" json:"id"`

	// DeletionMark hides the row from pickers. Rows referenced by the
	// ledger are never physically removed.
	DeletionMark bool `db:"deletion_mark" json:"deletionMark"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseEntity creates a new BaseEntity with generated ID.
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:        id.New(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetID returns the primary key.
func (b *BaseEntity) GetID() id.ID {
	return b.ID
}

// Touch bumps version and updated_at before an update.
func (b *BaseEntity) Touch() {
	b.Version++
	b.UpdatedAt = time.Now().UTC()
}
