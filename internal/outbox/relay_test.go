package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore implements Store for testing.
type fakeStore struct {
	events    []Event
	published []string
	markErr   error
}

func (f *fakeStore) UnpublishedEvents(_ context.Context, limit int) ([]Event, error) {
	if len(f.events) > limit {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeStore) MarkEventPublished(_ context.Context, eventID string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.published = append(f.published, eventID)
	for i, e := range f.events {
		if e.ID == eventID {
			f.events = append(f.events[:i], f.events[i+1:]...)
			break
		}
	}
	return nil
}

// fakePublisher implements Publisher for testing.
type fakePublisher struct {
	messages []kafka.Message
	err      error
}

func (f *fakePublisher) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func TestDrain_PublishesAndMarks(t *testing.T) {
	ev, err := NewEvent("order-1", EventOrderCreated, map[string]string{"order_id": "order-1"})
	require.NoError(t, err)

	store := &fakeStore{events: []Event{ev}}
	pub := &fakePublisher{}
	relay := NewRelay(store, pub, time.Second)

	relay.Drain(context.Background())

	require.Len(t, pub.messages, 1)
	assert.Equal(t, []byte("order-1"), pub.messages[0].Key)
	assert.Equal(t, []string{ev.ID}, store.published)
}

func TestDrain_PublishFailureLeavesEventUnmarked(t *testing.T) {
	ev, err := NewEvent("order-1", EventOrderCreated, map[string]string{})
	require.NoError(t, err)

	store := &fakeStore{events: []Event{ev}}
	pub := &fakePublisher{err: errors.New("broker down")}
	relay := NewRelay(store, pub, time.Second)

	relay.Drain(context.Background())

	assert.Empty(t, store.published)
	// Event is retried on the next pass.
	assert.Len(t, store.events, 1)
}

func TestDrain_SetsEventHeaders(t *testing.T) {
	ev, err := NewEvent("order-2", EventOrderConfirmed, map[string]string{})
	require.NoError(t, err)

	store := &fakeStore{events: []Event{ev}}
	pub := &fakePublisher{}
	NewRelay(store, pub, time.Second).Drain(context.Background())

	require.Len(t, pub.messages, 1)
	headers := map[string]string{}
	for _, h := range pub.messages[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, EventOrderConfirmed, headers["event_type"])
	assert.Equal(t, ev.ID, headers["event_id"])
}
