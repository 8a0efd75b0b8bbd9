// Package notify delivers rendered payment reminders to customers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

const (
	ChannelWhatsApp = "whatsapp"
	ChannelQueue    = "queue"
)

var (
	ErrUnknownChannel = errors.New("unknown reminder channel")
	ErrNoPhone        = errors.New("customer has no usable phone number")
)

// Message is one reminder ready for delivery.
type Message struct {
	InvoiceID    string `json:"invoice_id"`
	ShopID       string `json:"shop_id,omitempty"`
	Channel      string `json:"channel"`
	Phone        string `json:"phone"`
	CustomerName string `json:"customer_name"`
	Body         string `json:"body"`
}

// Receipt describes what a dispatcher did with a message. URL is set when the operator has to
// open a link to finish sending.
type Receipt struct {
	Channel string `json:"channel"`
	URL     string `json:"url,omitempty"`
	Queued  bool   `json:"queued,omitempty"`
}

// Dispatcher delivers a message on one channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) (Receipt, error)
}

// Router picks a dispatcher by Message.Channel.
type Router struct {
	mu       sync.RWMutex
	channels map[string]Dispatcher
}

func NewRouter() *Router {
	return &Router{channels: make(map[string]Dispatcher)}
}

// Register binds channel to d, replacing any earlier binding.
func (r *Router) Register(channel string, d Dispatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[strings.ToLower(channel)] = d
}

// Channels lists the registered channel names.
func (r *Router) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.channels))
	for name := range r.channels {
		out = append(out, name)
	}
	return out
}

func (r *Router) Dispatch(ctx context.Context, msg Message) (Receipt, error) {
	r.mu.RLock()
	d, ok := r.channels[strings.ToLower(msg.Channel)]
	r.mu.RUnlock()
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %q", ErrUnknownChannel, msg.Channel)
	}
	return d.Dispatch(ctx, msg)
}

// WhatsAppDispatcher produces a wa.me click-to-chat link. Nothing is sent from the server.
type WhatsAppDispatcher struct {
	CountryCode string
}

func (w WhatsAppDispatcher) Dispatch(_ context.Context, msg Message) (Receipt, error) {
	phone := NormalizePhone(msg.Phone, w.CountryCode)
	if phone == "" {
		return Receipt{}, fmt.Errorf("invoice %s: %w", msg.InvoiceID, ErrNoPhone)
	}
	text := strings.ReplaceAll(url.QueryEscape(msg.Body), "+", "%20")
	return Receipt{
		Channel: ChannelWhatsApp,
		URL:     "https://wa.me/" + phone + "?text=" + text,
	}, nil
}

// NormalizePhone strips everything but digits and replaces a single leading trunk zero with
// countryCode. "077 123-4567" with code 94 becomes "94771234567".
func NormalizePhone(phone, countryCode string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "0") && countryCode != "" {
		digits = countryCode + strings.TrimPrefix(digits, "0")
	}
	return digits
}
