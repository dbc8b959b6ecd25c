// Package outbox implements the transactional-outbox side of order events.
//
// Event rows are written in the same database transaction as the order change
// they describe, then shipped to Kafka by the Relay. Delivery is at-least-once;
// consumers must dedupe by event id.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated   = "order.created"
	EventOrderConfirmed = "order.confirmed"
)

// Event is one row in the outbox table.
type Event struct {
	ID          string
	AggregateID string // order id, used as the Kafka message key for ordering
	Type        string
	Payload     []byte // JSON, written once at enqueue time
	CreatedAt   time.Time
}

// NewEvent builds an event with a fresh id and a JSON-encoded payload.
func NewEvent(aggregateID, eventType string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("outbox: marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:          uuid.NewString(),
		AggregateID: aggregateID,
		Type:        eventType,
		Payload:     body,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Store is the persistence port the Relay drains.
type Store interface {
	// UnpublishedEvents returns up to limit events not yet shipped, oldest first.
	UnpublishedEvents(ctx context.Context, limit int) ([]Event, error)
	// MarkEventPublished records a successful publish. Called only after the
	// broker acknowledged the write.
	MarkEventPublished(ctx context.Context, eventID string) error
}
