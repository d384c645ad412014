package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/infrastructure/storage/postgres"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type countingRecorder struct {
	ok, failed int
}

func (r *countingRecorder) RecordEventPublished(_, _ string, success bool, _ time.Duration) {
	if success {
		r.ok++
	} else {
		r.failed++
	}
}

func newTestProducer(rec Recorder) (*Producer, map[string]*fakeWriter) {
	p := NewProducer(DefaultConfig(), rec)
	writers := make(map[string]*fakeWriter)
	p.newWriter = func(topic string) messageWriter {
		w := &fakeWriter{}
		writers[topic] = w
		return w
	}
	return p, writers
}

func outboxMessage(aggregate, eventType string) *postgres.OutboxMessage {
	return &postgres.OutboxMessage{
		ID:            id.New(),
		AggregateType: aggregate,
		AggregateID:   id.New(),
		EventType:     eventType,
		Payload:       []byte(`{"quantity":5}`),
		CreatedAt:     time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestHandle_RoutesByAggregate(t *testing.T) {
	rec := &countingRecorder{}
	p, writers := newTestProducer(rec)
	msg := outboxMessage("shipment", "shipment_cancelled")

	require.NoError(t, p.Handle(context.Background(), msg))

	w := writers["ledgerbook.shipment"]
	require.NotNil(t, w)
	require.Len(t, w.messages, 1)
	assert.Equal(t, msg.AggregateID.String(), string(w.messages[0].Key))
	assert.JSONEq(t, `{"quantity":5}`, string(w.messages[0].Value))
	assert.Contains(t, w.messages[0].Headers, kafka.Header{Key: "event-type", Value: []byte("shipment_cancelled")})
	assert.Equal(t, 1, rec.ok)
}

func TestHandle_ReusesWriterPerTopic(t *testing.T) {
	p, writers := newTestProducer(nil)

	require.NoError(t, p.Handle(context.Background(), outboxMessage("ledger", "movement_applied")))
	require.NoError(t, p.Handle(context.Background(), outboxMessage("ledger", "movement_reversed")))

	assert.Len(t, writers, 1)
	assert.Len(t, writers["ledgerbook.ledger"].messages, 2)
}

func TestHandle_Failure(t *testing.T) {
	rec := &countingRecorder{}
	p, _ := newTestProducer(rec)
	p.newWriter = func(string) messageWriter { return &fakeWriter{err: errors.New("broker down")} }

	err := p.Handle(context.Background(), outboxMessage("invoice", "invoice_confirmed"))

	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, 1, rec.failed)
}

func TestTopicAndClose(t *testing.T) {
	p, writers := newTestProducer(nil)
	assert.Equal(t, "ledgerbook.invoice", p.Topic("invoice"))

	require.NoError(t, p.Handle(context.Background(), outboxMessage("invoice", "invoice_confirmed")))
	require.NoError(t, p.Close())
	assert.True(t, writers["ledgerbook.invoice"].closed)

	p.cfg.TopicPrefix = ""
	assert.Equal(t, "invoice", p.Topic("invoice"))
}
