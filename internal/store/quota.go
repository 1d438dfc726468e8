package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Quota tracks per-identity daily post counts.
type Quota interface {
	// Reserve claims one slot for identityID on date. It returns false, without
	// consuming anything, when limit slots are already taken for that date.
	Reserve(ctx context.Context, identityID, date string, limit int) (bool, error)
	// Used reports how many slots identityID has taken on date.
	Used(ctx context.Context, identityID, date string) (int, error)
}

type dailyCount struct {
	date  string
	count int
}

// MemoryQuota keeps counters in process. A counter whose date differs from the
// requested date counts as zero.
type MemoryQuota struct {
	mu     sync.Mutex
	counts map[string]dailyCount
}

// NewMemoryQuota returns an empty in-process quota.
func NewMemoryQuota() *MemoryQuota {
	return &MemoryQuota{counts: make(map[string]dailyCount)}
}

func (q *MemoryQuota) Reserve(_ context.Context, identityID, date string, limit int) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	c := q.counts[identityID]
	if c.date != date {
		c = dailyCount{date: date}
	}
	if c.count >= limit {
		return false, nil
	}
	c.count++
	q.counts[identityID] = c
	return true, nil
}

func (q *MemoryQuota) Used(_ context.Context, identityID, date string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	c := q.counts[identityID]
	if c.date != date {
		return 0, nil
	}
	return c.count, nil
}

// RedisQuota keeps counters in Redis so they survive restarts and are shared
// between processes. Keys expire two days after their first increment.
type RedisQuota struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisQuota returns a Redis-backed quota.
func NewRedisQuota(rdb *redis.Client) *RedisQuota {
	return &RedisQuota{rdb: rdb, ttl: 48 * time.Hour}
}

// QuotaKey returns the Redis key for an identity's counter on date.
func QuotaKey(identityID, date string) string {
	return fmt.Sprintf("quota:posts:%s:%s", identityID, date)
}

func (q *RedisQuota) Reserve(ctx context.Context, identityID, date string, limit int) (bool, error) {
	key := QuotaKey(identityID, date)

	var incr *redis.IntCmd
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, q.ttl)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("incr quota: %w", err)
	}
	cnt := incr.Val()
	if cnt > int64(limit) {
		if err := q.rdb.Decr(ctx, key).Err(); err != nil {
			return false, fmt.Errorf("release quota: %w", err)
		}
		return false, nil
	}
	return true, nil
}

func (q *RedisQuota) Used(ctx context.Context, identityID, date string) (int, error) {
	n, err := q.rdb.Get(ctx, QuotaKey(identityID, date)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota: %w", err)
	}
	return n, nil
}
