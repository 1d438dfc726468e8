package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQuota(t *testing.T) {
	t.Parallel()
	q := NewMemoryQuota()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := q.Reserve(ctx, "u1", "2026-01-01", 3)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := q.Reserve(ctx, "u1", "2026-01-01", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	used, _ := q.Used(ctx, "u1", "2026-01-01")
	assert.Equal(t, 3, used)

	ok, err = q.Reserve(ctx, "u1", "2026-01-02", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	used, _ = q.Used(ctx, "u1", "2026-01-01")
	assert.Equal(t, 0, used, "stale date counts as zero")
}

func TestRedisQuota(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	q := NewRedisQuota(rdb)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := q.Reserve(ctx, "u1", "2026-01-01", 2)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := q.Reserve(ctx, "u1", "2026-01-01", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	used, err := q.Used(ctx, "u1", "2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, 2, used, "rejected reservation is released")

	assert.True(t, mr.TTL(QuotaKey("u1", "2026-01-01")) > 0)

	used, err = q.Used(ctx, "u2", "2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, 0, used)
}

func TestRedisQuota_RestoresMissingTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	key := QuotaKey("u1", "2026-01-01")
	require.NoError(t, mr.Set(key, "1"))

	ok, err := NewRedisQuota(rdb).Reserve(context.Background(), "u1", "2026-01-01", 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 48*time.Hour, mr.TTL(key))
}

func TestContentStore_WithRedisQuota(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	s := NewContentStore(Options{Quota: NewRedisQuota(rdb), DailyLimit: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.Create(ctx, draft("hi"), identity(1))
		require.NoError(t, err)
	}
	_, err = s.Create(ctx, draft("hi"), identity(1))
	assertCode(t, err, "RATE_LIMIT_EXCEEDED")
	assert.Equal(t, 2, s.Len())
}
