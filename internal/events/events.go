// Package events publishes ledger change notifications to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"shop-ledger/internal/metrics"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Type names one kind of ledger change.
type Type string

const (
	InvoiceCreated   Type = "invoice.created"
	InvoiceUpdated   Type = "invoice.updated"
	InvoiceDeleted   Type = "invoice.deleted"
	PaymentApplied   Type = "payment.applied"
	ReminderRecorded Type = "reminder.recorded"
)

// Event is the JSON payload written for every change. Data carries the changed record.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	InvoiceID  string    `json:"invoice_id"`
	ShopID     string    `json:"shop_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(t Type, invoiceID, shopID string, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		InvoiceID:  invoiceID,
		ShopID:     shopID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher hands ledger events to a bus.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Writer is the subset of kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by invoice id so one invoice's events stay ordered on a
// single partition.
type KafkaPublisher struct {
	writer  Writer
	metrics *metrics.Metrics
}

// NewKafkaPublisher connects to brokers lazily; the first Publish dials.
func NewKafkaPublisher(brokers []string, topic string, m *metrics.Metrics) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w, metrics: m}
}

// NewKafkaPublisherWithWriter injects the writer, for tests.
func NewKafkaPublisherWithWriter(w Writer, m *metrics.Metrics) *KafkaPublisher {
	return &KafkaPublisher{writer: w, metrics: m}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		p.count(e.Type, "error")
		return fmt.Errorf("failed to encode %s event: %w", e.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(e.InvoiceID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.count(e.Type, "error")
		return fmt.Errorf("failed to publish %s event for %s: %w", e.Type, e.InvoiceID, err)
	}
	p.count(e.Type, "ok")
	slog.Debug("event published", "type", e.Type, "invoice_id", e.InvoiceID)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) count(t Type, outcome string) {
	if p.metrics != nil {
		p.metrics.EventsPublished.WithLabelValues(string(t), outcome).Inc()
	}
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error { return nil }
