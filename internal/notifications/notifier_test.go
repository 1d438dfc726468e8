package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilClientIsNoop(t *testing.T) {
	t.Parallel()
	n := NewNotifier(nil)
	assert.NoError(t, n.Publish(context.Background(), EventPostCreated, map[string]any{"id": "1"}))
	assert.NoError(t, n.Subscribe(context.Background(), func(Event) {}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.Publish(context.Background(), EventPostCreated, nil))
}

func TestNotifier_PublishSubscribe(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 1)
	require.NoError(t, n.Subscribe(ctx, func(ev Event) { events <- ev }))

	require.NoError(t, n.Publish(ctx, EventPostRemoved, map[string]any{"post_id": "p1"}))

	select {
	case ev := <-events:
		assert.Equal(t, EventPostRemoved, ev.Type)
		assert.Equal(t, "p1", ev.Payload["post_id"])
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed event")
	}
}
