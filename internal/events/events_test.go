package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"shop-ledger/internal/events"
	"shop-ledger/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	fw := &fakeWriter{}
	m := metrics.New()
	p := events.NewKafkaPublisherWithWriter(fw, m)

	e := events.NewEvent(events.PaymentApplied, "INV-1", "shop-1", map[string]string{"amount": "40"})
	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fw.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(fw.msgs))
	}
	msg := fw.msgs[0]
	if string(msg.Key) != "INV-1" {
		t.Errorf("key = %q", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "payment.applied" {
		t.Errorf("headers = %v", msg.Headers)
	}

	var got events.Event
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID == "" || got.Type != events.PaymentApplied || got.ShopID != "shop-1" || got.OccurredAt.IsZero() {
		t.Errorf("event = %+v", got)
	}
	if v := testutil.ToFloat64(m.EventsPublished.WithLabelValues("payment.applied", "ok")); v != 1 {
		t.Errorf("ok count = %v", v)
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	m := metrics.New()
	p := events.NewKafkaPublisherWithWriter(fw, m)

	err := p.Publish(context.Background(), events.NewEvent(events.InvoiceDeleted, "INV-9", "", nil))
	if err == nil {
		t.Fatal("expected error")
	}
	if v := testutil.ToFloat64(m.EventsPublished.WithLabelValues("invoice.deleted", "error")); v != 1 {
		t.Errorf("error count = %v", v)
	}
}

func TestNopPublisher(t *testing.T) {
	var p events.Publisher = events.NopPublisher{}
	if err := p.Publish(context.Background(), events.Event{}); err != nil {
		t.Error(err)
	}
}
