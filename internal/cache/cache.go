// Package cache records fire markers so a schedule never posts twice for
// the same minute, even across a restart between delivery and persistence.
// Markers live in Redis when configured, behind a circuit breaker with an
// in-memory fallback so a cache outage degrades instead of blocking fires.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/graxinc/errutil"
	"github.com/redis/go-redis/v9"
)

type Cache struct {
	c  *redis.Client
	cb *CircuitBreaker
	mk *markerSet
	l  *slog.Logger
}

// New builds the cache. An empty URL skips Redis entirely and markers are
// process-local only.
func New(url string, l *slog.Logger) (*Cache, error) {
	cache := Cache{
		cb: NewCircuitBreaker(5, 30*time.Second),
		mk: newMarkerSet(10000),
		l:  l,
	}

	if url != "" {
		opt, err := redis.ParseURL(url)
		if err != nil {
			return nil, errutil.With(err)
		}
		cache.c = redis.NewClient(opt)
	}

	return &cache, nil
}

func (c *Cache) Close() error {
	c.mk.stop()
	if c.c == nil {
		return nil
	}
	return c.c.Close()
}

// MarkFired sets the marker for key and reports whether it was fresh. A
// false return means the key already fired and the caller must skip
// delivery. Errors from Redis are absorbed into the fallback path, so
// the re-fire guard is best-effort.
func (c *Cache) MarkFired(ctx context.Context, key string, ttl time.Duration) bool {
	if c.c != nil && c.cb.Allow() {
		fresh, err := c.c.SetNX(ctx, key, "1", ttl).Result()
		if err == nil {
			c.cb.RecordSuccess()
			c.mk.mark(key, ttl)
			return fresh
		}

		c.cb.RecordFailure()
		c.l.Warn("fire marker write failed, using fallback", "error", err, "key", key)
	}

	return c.mk.mark(key, ttl)
}
