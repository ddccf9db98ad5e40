package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanBroker struct {
	mu        sync.Mutex
	published map[string][]interface{}
	ch        chan []byte
}

func newChanBroker() *chanBroker {
	return &chanBroker{published: map[string][]interface{}{}, ch: make(chan []byte, 4)}
}

func (b *chanBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], message)
	return nil
}

func (b *chanBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return b.ch, nil
}

func (b *chanBroker) Close() error {
	close(b.ch)
	return nil
}

func TestBrokerAdapter_Publish(t *testing.T) {
	broker := newChanBroker()
	adapter := NewBrokerAdapter(broker, nil)

	require.NoError(t, adapter.Publish(context.Background(), "bookings", []byte(`{"type":"booking.created"}`)))
	require.Len(t, broker.published["bookings"], 1)
	raw, err := json.Marshal(broker.published["bookings"][0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"booking.created"}`, string(raw))

	assert.Error(t, adapter.Publish(context.Background(), "bookings", []byte("not json")))
	assert.Len(t, broker.published["bookings"], 1)
}

func TestBrokerAdapter_SubscribeSurvivesHandlerErrors(t *testing.T) {
	broker := newChanBroker()

	var (
		mu       sync.Mutex
		failures int
		got      []string
	)
	adapter := NewBrokerAdapter(broker, func(error) {
		mu.Lock()
		failures++
		mu.Unlock()
	})
	require.NoError(t, adapter.Subscribe(context.Background(), "bookings", func(msg []byte) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(msg))
		if string(msg) == "bad" {
			return errors.New("rejected")
		}
		return nil
	}))

	broker.ch <- []byte("bad")
	broker.ch <- []byte("good")
	require.NoError(t, adapter.Close())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"bad", "good"}, got)
	assert.Equal(t, 1, failures)
}
