// Package events defines the domain events written to the transactional
// outbox and relayed to Kafka by the worker.
package events

import (
	"context"

	"ledgerbook/internal/core/id"
)

// Aggregate types. They double as Kafka topic suffixes.
const (
	AggregateMovement = "ledger"
	AggregateShipment = "shipment"
	AggregateInvoice  = "invoice"
)

// Event types
const (
	MovementApplied   = "movement_applied"
	MovementReversed  = "movement_reversed"
	CountersAdjusted  = "counters_adjusted"
	ShipmentUpdated   = "shipment_registered"
	ShipmentCancelled = "shipment_cancelled"
	InvoiceConfirmed  = "invoice_confirmed"
)

// Event is a fact produced by a ledger operation.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// Publisher stores events atomically with the change that produced them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Discard drops events. Used by tests and tools that run without an outbox.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, Event) error { return nil }
