package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Order lifecycle event types.
const (
	TypeOrderPending = "order.pending"
	TypeOrderPaid    = "order.paid"
	TypeOrderUpdated = "order.updated"
)

type OrderEvent struct {
	Type          string    `json:"type"`
	SessionID     string    `json:"session_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status,omitempty"`
	Quantity      int       `json:"quantity,omitempty"`
	At            time.Time `json:"at"`
}

func (e OrderEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher fans order events out to downstream fulfilment. Publishing is
// best effort: callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, OrderEvent) error { return nil }
func (NoopPublisher) Close() error                              { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (r *Recorder) Publish(_ context.Context, event OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []OrderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OrderEvent(nil), r.events...)
}
