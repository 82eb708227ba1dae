package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mounika-192643/InsightSphere-AI/internal/config"
	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

const (
	cycleKeyPrefix = "cycle:latest"
	scanBatchSize  = 100
)

// CycleCache caches each business's latest published cycle result so the
// action-item feed is served without touching Postgres on every read.
type CycleCache interface {
	GetLatest(ctx context.Context, businessID string) (*domain.CycleResult, bool, error)
	SetLatest(ctx context.Context, result *domain.CycleResult) error
	Invalidate(ctx context.Context, businessID string) error
}

type redisCycleCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopCycleCache struct{}

// NewCycleCache returns a Redis-backed cache when caching is enabled, a noop
// cache otherwise.
func NewCycleCache(cfg config.CacheConfig) (CycleCache, error) {
	if !cfg.Enabled {
		return &noopCycleCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisCycleCache{client: client, ttl: ttl}, nil
}

// NewNoopCycleCache is the fallback when Redis is unreachable at startup.
func NewNoopCycleCache() CycleCache {
	return &noopCycleCache{}
}

func cycleCacheKey(businessID string) string {
	return fmt.Sprintf("%s:%s", cycleKeyPrefix, businessID)
}

func (c *redisCycleCache) GetLatest(ctx context.Context, businessID string) (*domain.CycleResult, bool, error) {
	payload, err := c.client.Get(ctx, cycleCacheKey(businessID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.CycleResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode cycle cache: %w", err)
	}

	return &result, true, nil
}

func (c *redisCycleCache) SetLatest(ctx context.Context, result *domain.CycleResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cycle cache: %w", err)
	}

	if err := c.client.Set(ctx, cycleCacheKey(result.BusinessID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisCycleCache) Invalidate(ctx context.Context, businessID string) error {
	return deleteKeysWithPrefix(ctx, c.client, cycleCacheKey(businessID), scanBatchSize)
}

func (n *noopCycleCache) GetLatest(ctx context.Context, businessID string) (*domain.CycleResult, bool, error) {
	return nil, false, nil
}

func (n *noopCycleCache) SetLatest(ctx context.Context, result *domain.CycleResult) error {
	return nil
}

func (n *noopCycleCache) Invalidate(ctx context.Context, businessID string) error {
	return nil
}
