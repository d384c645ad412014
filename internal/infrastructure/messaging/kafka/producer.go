// Package kafka relays outbox messages to Kafka topics.
package kafka

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"ledgerbook/internal/infrastructure/storage/postgres"
)

// Config holds Kafka producer configuration.
type Config struct {
	Brokers     []string
	TopicPrefix string

	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Brokers:      []string{"localhost:9092"},
		TopicPrefix:  "ledgerbook",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
	}
}

// Recorder receives publish metrics.
type Recorder interface {
	RecordEventPublished(topic, eventType string, success bool, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordEventPublished(string, string, bool, time.Duration) {}

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes outbox messages, one topic per aggregate type:
// <prefix>.ledger, <prefix>.shipment, <prefix>.invoice.
type Producer struct {
	cfg       Config
	recorder  Recorder
	newWriter func(topic string) messageWriter

	mu      sync.Mutex
	writers map[string]messageWriter
}

var _ postgres.OutboxHandler = (*Producer)(nil)

// NewProducer creates a new Kafka producer. rec may be nil.
func NewProducer(cfg Config, rec Recorder) *Producer {
	if rec == nil {
		rec = nopRecorder{}
	}
	p := &Producer{
		cfg:      cfg,
		recorder: rec,
		writers:  make(map[string]messageWriter),
	}
	p.newWriter = func(topic string) messageWriter {
		return &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              cfg.BatchSize,
			BatchTimeout:           cfg.BatchTimeout,
			RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
			AllowAutoTopicCreation: true,
		}
	}
	return p
}

// Topic returns the topic an aggregate type is published to.
func (p *Producer) Topic(aggregateType string) string {
	if p.cfg.TopicPrefix == "" {
		return aggregateType
	}
	return strings.TrimSuffix(p.cfg.TopicPrefix, ".") + "." + aggregateType
}

func (p *Producer) writer(topic string) messageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := p.newWriter(topic)
	p.writers[topic] = w
	return w
}

// Handle implements postgres.OutboxHandler. Messages are keyed by aggregate
// id so all events of one shipment or product land on the same partition.
func (p *Producer) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	topic := p.Topic(msg.AggregateType)
	start := time.Now()

	err := p.writer(topic).WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.AggregateID.String()),
		Value: msg.Payload,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(msg.ID.String())},
			{Key: "event-type", Value: []byte(msg.EventType)},
			{Key: "aggregate-type", Value: []byte(msg.AggregateType)},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: msg.CreatedAt,
	})
	p.recorder.RecordEventPublished(topic, msg.EventType, err == nil, time.Since(start))
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", msg.EventType, topic, err)
	}
	return nil
}

// Close closes all writers
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			lastErr = fmt.Errorf("close writer for topic %s: %w", topic, err)
		}
	}
	return lastErr
}
