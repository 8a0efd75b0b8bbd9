package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the subset of *amqp.Channel used to enqueue reminders.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueueDispatcher enqueues reminders on a durable RabbitMQ queue for an external sender.
type QueueDispatcher struct {
	queue string
	pub   Publisher
	conn  *amqp.Connection
	chn   *amqp.Channel
}

// DialQueue connects to url and declares queue as durable.
func DialQueue(url, queue string) (*QueueDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	chn, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	if _, err := chn.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		chn.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return &QueueDispatcher{queue: queue, pub: chn, conn: conn, chn: chn}, nil
}

// NewQueueDispatcher publishes through pub, for tests or a caller-managed channel.
func NewQueueDispatcher(queue string, pub Publisher) *QueueDispatcher {
	return &QueueDispatcher{queue: queue, pub: pub}
}

func (q *QueueDispatcher) Dispatch(ctx context.Context, msg Message) (Receipt, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to encode reminder: %w", err)
	}
	err = q.pub.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.InvoiceID,
		Timestamp:    time.Now(),
		Type:         "invoice.reminder",
		Body:         body,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to enqueue reminder for %s: %w", msg.InvoiceID, err)
	}
	return Receipt{Channel: ChannelQueue, Queued: true}, nil
}

// Close releases the channel and connection opened by DialQueue.
func (q *QueueDispatcher) Close() error {
	if q.chn != nil {
		if err := q.chn.Close(); err != nil {
			return err
		}
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
