package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers revoked token IDs until the tokens would have expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RevocationKey is the Redis key marking a revoked token.
func RevocationKey(jti string) string {
	return "blacklist:" + jti
}

type redisRevocations struct {
	rdb *redis.Client
}

// NewRedisRevocations shares revocations across instances through Redis.
func NewRedisRevocations(rdb *redis.Client) RevocationStore {
	return &redisRevocations{rdb: rdb}
}

func (r *redisRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, RevocationKey(jti), "1", ttl).Err()
}

func (r *redisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, RevocationKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type memoryRevocations struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocations keeps revocations in process. now may be nil.
func NewMemoryRevocations(now func() time.Time) RevocationStore {
	if now == nil {
		now = time.Now
	}
	return &memoryRevocations{expires: make(map[string]time.Time), now: now}
}

func (m *memoryRevocations) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, exp := range m.expires {
		if !exp.After(now) {
			delete(m.expires, id)
		}
	}
	m.expires[jti] = now.Add(ttl)
	return nil
}

func (m *memoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expires[jti]
	return ok && exp.After(m.now()), nil
}
