package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher abstracts the Kafka writer so the relay can be tested without a
// broker. *kafka.Writer satisfies it.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Relay drains the outbox on a ticker and publishes to Kafka.
type Relay struct {
	store     Store
	publisher Publisher
	tick      time.Duration
	batchSize int
}

// NewWriter builds the kafka writer the relay normally runs with.
func NewWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func NewRelay(store Store, publisher Publisher, tick time.Duration) *Relay {
	return &Relay{
		store:     store,
		publisher: publisher,
		tick:      tick,
		batchSize: 100,
	}
}

// Run drains until ctx is cancelled. It performs one pass immediately so a
// restart does not wait a full tick to ship a backlog.
func (r *Relay) Run(ctx context.Context) {
	r.Drain(ctx)

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Drain(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Drain ships one batch. An event is marked published only after the broker
// acknowledged it; a crash in between re-sends the event (at-least-once).
func (r *Relay) Drain(ctx context.Context) {
	events, err := r.store.UnpublishedEvents(ctx, r.batchSize)
	if err != nil {
		slog.ErrorContext(ctx, "outbox: fetch unpublished events failed", "error", err)
		return
	}

	for _, event := range events {
		msg := kafka.Message{
			Key:   []byte(event.AggregateID),
			Value: event.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.Type)},
				{Key: "event_id", Value: []byte(event.ID)},
			},
		}

		if err := r.publisher.WriteMessages(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "outbox: publish failed", "event_id", event.ID, "error", err)
			continue
		}

		if err := r.store.MarkEventPublished(ctx, event.ID); err != nil {
			slog.ErrorContext(ctx, "outbox: mark published failed", "event_id", event.ID, "error", err)
		}
	}
}
