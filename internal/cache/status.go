// Package cache fronts order status polling with Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/joao-fontenele/checkoutflow/internal/domain"
)

const statusOperation = "order-status"

// StatusCache is a cache-aside store of order status views. Concurrent misses
// for the same order collapse into a single load. Redis failures degrade to
// loading from the source; they are never returned to pollers.
//
// A load that overlaps an Invalidate from this process is returned but not
// written back, so a poll that read the old status cannot re-cache it after
// the mutation cleared it. Invalidations from other instances are only
// bounded by the TTL.
type StatusCache struct {
	client        *redis.Client
	serviceName   string
	ttl           time.Duration
	group         singleflight.Group
	invalidations atomic.Uint64
	logger        *slog.Logger
}

func NewStatusCache(client *redis.Client, serviceName string, ttl time.Duration, logger *slog.Logger) *StatusCache {
	return &StatusCache{
		client:      client,
		serviceName: serviceName,
		ttl:         ttl,
		logger:      logger,
	}
}

func (c *StatusCache) Key(orderID string) string {
	return fmt.Sprintf("%s:%s:%s", c.serviceName, statusOperation, orderID)
}

func (c *StatusCache) GetOrLoad(ctx context.Context, orderID string, load func(context.Context) (domain.OrderStatusView, error)) (domain.OrderStatusView, error) {
	key := c.Key(orderID)

	if view, ok := c.get(ctx, key); ok {
		return view, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		generation := c.invalidations.Load()
		view, err := load(ctx)
		if err != nil {
			return domain.OrderStatusView{}, err
		}
		if c.invalidations.Load() != generation {
			c.logger.DebugContext(ctx, "status changed during load, not caching", "key", key)
			return view, nil
		}
		c.set(ctx, key, view)
		return view, nil
	})
	if err != nil {
		return domain.OrderStatusView{}, err
	}
	return v.(domain.OrderStatusView), nil
}

func (c *StatusCache) Invalidate(ctx context.Context, orderID string) error {
	c.invalidations.Add(1)
	return c.client.Del(ctx, c.Key(orderID)).Err()
}

func (c *StatusCache) get(ctx context.Context, key string) (domain.OrderStatusView, bool) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.OrderStatusView{}, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "status cache read failed", "key", key, "error", err)
		return domain.OrderStatusView{}, false
	}

	var view domain.OrderStatusView
	if err := json.Unmarshal([]byte(value), &view); err != nil {
		c.logger.WarnContext(ctx, "status cache entry unreadable", "key", key, "error", err)
		return domain.OrderStatusView{}, false
	}
	return view, true
}

func (c *StatusCache) set(ctx context.Context, key string, view domain.OrderStatusView) {
	payload, err := json.Marshal(view)
	if err != nil {
		c.logger.WarnContext(ctx, "status cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, string(payload), c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "status cache write failed", "key", key, "error", err)
	}
}
