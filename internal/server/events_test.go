package server

import (
	"testing"
	"time"

	"soulspark/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedHub_Broadcast(t *testing.T) {
	t.Parallel()
	hub := newFeedHub()

	a, err := hub.register()
	require.NoError(t, err)
	b, err := hub.register()
	require.NoError(t, err)
	assert.Equal(t, 2, hub.size())

	ev := notifications.Event{Type: notifications.EventPostCreated, Payload: map[string]any{"post_id": "1"}, Timestamp: time.Now()}
	hub.broadcast(ev)

	assert.Equal(t, notifications.EventPostCreated, (<-a).Type)
	assert.Equal(t, notifications.EventPostCreated, (<-b).Type)

	hub.unregister(a)
	assert.Equal(t, 1, hub.size())
	_, open := <-a
	assert.False(t, open)

	// Unregistering twice is harmless.
	hub.unregister(a)
}

func TestFeedHub_SlowClientDropsEvents(t *testing.T) {
	t.Parallel()
	hub := newFeedHub()

	ch, err := hub.register()
	require.NoError(t, err)

	for i := 0; i < streamBuffer+5; i++ {
		hub.broadcast(notifications.Event{Type: notifications.EventPostReactionUpdated})
	}
	assert.Len(t, ch, streamBuffer)
}

func TestFeedHub_Close(t *testing.T) {
	t.Parallel()
	hub := newFeedHub()

	ch, err := hub.register()
	require.NoError(t, err)

	hub.close()
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, hub.size())

	_, err = hub.register()
	assert.Error(t, err)
}

func TestFeedHub_Limit(t *testing.T) {
	t.Parallel()
	hub := newFeedHub()

	for i := 0; i < maxStreams; i++ {
		_, err := hub.register()
		require.NoError(t, err)
	}
	_, err := hub.register()
	assert.ErrorIs(t, err, errTooManyStreams)
}
