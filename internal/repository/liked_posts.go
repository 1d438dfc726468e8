package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"soulspark/internal/models"

	"github.com/redis/go-redis/v9"
)

// LikedPostsRepository keeps the set of post IDs each viewer has liked.
// The set belongs to the viewer, not to the content store.
type LikedPostsRepository interface {
	Get(ctx context.Context, viewerID string) (models.IDSet, error)
	Save(ctx context.Context, viewerID string, liked models.IDSet) error
}

// LikedPostsKey is the Redis key holding a viewer's liked set.
func LikedPostsKey(viewerID string) string {
	return "liked:" + viewerID
}

type memoryLikedPosts struct {
	mu   sync.RWMutex
	sets map[string]models.IDSet
}

// NewMemoryLikedPosts returns a process-local LikedPostsRepository.
func NewMemoryLikedPosts() LikedPostsRepository {
	return &memoryLikedPosts{sets: make(map[string]models.IDSet)}
}

func (m *memoryLikedPosts) Get(_ context.Context, viewerID string) (models.IDSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sets[viewerID]; ok {
		return s.Clone(), nil
	}
	return models.NewIDSet(), nil
}

func (m *memoryLikedPosts) Save(_ context.Context, viewerID string, liked models.IDSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[viewerID] = liked.Clone()
	return nil
}

type redisLikedPosts struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisLikedPosts stores liked sets as Redis sets that expire after ttl of inactivity.
func NewRedisLikedPosts(rdb *redis.Client, ttl time.Duration) LikedPostsRepository {
	return &redisLikedPosts{rdb: rdb, ttl: ttl}
}

func (r *redisLikedPosts) Get(ctx context.Context, viewerID string) (models.IDSet, error) {
	ids, err := r.rdb.SMembers(ctx, LikedPostsKey(viewerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load liked posts: %w", err)
	}
	return models.NewIDSet(ids...), nil
}

func (r *redisLikedPosts) Save(ctx context.Context, viewerID string, liked models.IDSet) error {
	key := LikedPostsKey(viewerID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(liked) == 0 {
			return nil
		}
		members := make([]interface{}, 0, len(liked))
		for _, id := range liked.Slice() {
			members = append(members, id)
		}
		pipe.SAdd(ctx, key, members...)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save liked posts: %w", err)
	}
	return nil
}
