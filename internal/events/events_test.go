package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPublishAndSubscribe(t *testing.T) {
	rdb := testRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Change, 4)
	sub := NewSubscriber(rdb, zerolog.Nop())
	done := make(chan struct{})
	go func() {
		_ = sub.Run(ctx, func(c Change) { received <- c })
		close(done)
	}()

	pub := NewPublisher(rdb, zerolog.Nop())

	// Give the subscription time to be confirmed before publishing;
	// pub/sub drops messages published before the subscribe.
	insert := awaitChange(t, received, func() {
		require.NoError(t, pub.SlotChanged(ctx, OpInsert, "slot-1"))
	})
	assert.Equal(t, "slots", insert.Table)
	assert.Equal(t, OpInsert, insert.Op)
	assert.Equal(t, "slot-1", insert.SlotID)

	// Drain any duplicate inserts from the republish loop.
	for len(received) > 0 {
		<-received
	}

	require.NoError(t, pub.SlotChanged(ctx, OpUpdate, "slot-2"))
	select {
	case c := <-received:
		assert.Equal(t, OpUpdate, c.Op)
		assert.Equal(t, "slot-2", c.SlotID)
	case <-time.After(2 * time.Second):
		t.Fatal("update change not delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop on cancel")
	}
}

func TestSubscriberSkipsMalformedPayload(t *testing.T) {
	rdb := testRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Change, 1)
	sub := NewSubscriber(rdb, zerolog.Nop())
	go func() {
		_ = sub.Run(ctx, func(c Change) { received <- c })
	}()

	pub := NewPublisher(rdb, zerolog.Nop())
	// Garbage first, then a valid change; only the valid one arrives.
	c := awaitChange(t, received, func() {
		require.NoError(t, rdb.Publish(ctx, SlotsChannel, "not json").Err())
		require.NoError(t, pub.SlotChanged(ctx, OpInsert, "slot-1"))
	})
	assert.Equal(t, "slot-1", c.SlotID)
}

// awaitChange republishes until a change arrives, since messages published
// before the subscription is live are dropped.
func awaitChange(t *testing.T, received <-chan Change, publish func()) Change {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		publish()
		select {
		case c := <-received:
			return c
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("change not delivered")
		}
	}
}

func TestNilPublisherDropsChanges(t *testing.T) {
	var pub *Publisher
	assert.NoError(t, pub.SlotChanged(context.Background(), OpInsert, "slot-1"))

	pub = NewPublisher(nil, zerolog.Nop())
	assert.NoError(t, pub.SlotChanged(context.Background(), OpUpdate, "slot-2"))
}
