// Package events publishes order lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	OrderCreated  = "order.created"
	OrderUpdated  = "order.updated"
	OrderApproved = "order.approved"
	OrderDeleted  = "order.deleted"
)

// Envelope is the versioned wire shape of every event.
type Envelope struct {
	EventID    string          `json:"eventId"`
	Type       string          `json:"type"`
	Version    int             `json:"version"`
	OccurredAt time.Time       `json:"occurredAt"`
	OrderID    string          `json:"orderId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func NewEnvelope(eventType, orderID string, payload any) (Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, err
		}
		raw = b
	}
	return Envelope{
		EventID:    uuid.NewString(),
		Type:       eventType,
		Version:    1,
		OccurredAt: time.Now().UTC(),
		OrderID:    orderID,
		Payload:    raw,
	}, nil
}

// Publisher delivers events. Publish must not block the request path on the broker.
type Publisher interface {
	Publish(ctx context.Context, ev Envelope) error
	Close() error
}

// Noop drops every event; used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Envelope) error { return nil }
func (Noop) Close() error                            { return nil }
