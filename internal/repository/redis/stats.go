// Package redis contains Redis-backed caches.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/peakscale/tourbook/internal/domain"
	apperrors "github.com/peakscale/tourbook/pkg/errors"
)

const statsKey = "tours:stats"

// StatsCache caches the tour statistics aggregate, which is expensive to
// compute and changes only when tours or reviews change.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache creates a new Redis-backed stats cache.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves the cached stats. A miss yields ErrNotFound.
func (c *StatsCache) Get(ctx context.Context) ([]domain.TourStats, error) {
	data, err := c.client.Get(ctx, statsKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis get stats: %w", err)
	}

	var stats []domain.TourStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("unmarshal stats: %w", err)
	}

	return stats, nil
}

// Set stores the stats with the configured TTL.
func (c *StatsCache) Set(ctx context.Context, stats []domain.TourStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	if err := c.client.Set(ctx, statsKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set stats: %w", err)
	}

	return nil
}

// Invalidate drops the cached stats.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, statsKey).Err(); err != nil {
		return fmt.Errorf("redis del stats: %w", err)
	}
	return nil
}
