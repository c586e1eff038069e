package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of Event.
type Type string

const (
	TypeConnected   Type = "connected"
	TypeTransaction Type = "transaction"
	TypeBatch       Type = "batch"
	TypeAlert       Type = "alert"
	TypeSummary     Type = "summary"
)

// Event is one notification. Data is the JSON encoding of the payload.
type Event struct {
	ID   string          `json:"id"`
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
	At   time.Time       `json:"at"`
}

// New builds an Event with a fresh id, encoding data as its payload.
func New(typ Type, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode %s payload: %w", typ, err)
	}
	return Event{
		ID:   uuid.NewString(),
		Type: typ,
		Data: raw,
		At:   time.Now().UTC(),
	}, nil
}

// Bus delivers published events to every current subscriber.
type Bus interface {
	// Publish sends e to all subscribers. It does not wait for delivery.
	Publish(ctx context.Context, e Event) error

	// Subscribe registers a subscriber. The returned channel receives events
	// until cancel is called or ctx is done, after which it is closed.
	Subscribe(ctx context.Context) (events <-chan Event, cancel func())

	Close() error
}

// Emit builds and publishes an event in one step.
func Emit(ctx context.Context, b Bus, typ Type, data any) error {
	e, err := New(typ, data)
	if err != nil {
		return err
	}
	return b.Publish(ctx, e)
}

// subBufSize is the per-subscriber event buffer depth.
const subBufSize = 64
