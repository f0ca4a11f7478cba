package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cached wraps a Client with a redis lookaside cache. Only successful lookups
// are cached, so a provider outage never pins a miss. A nil redis client
// degrades to pass-through.
type Cached struct {
	inner Client
	redis *redis.Client
	ttl   time.Duration
}

func NewCached(inner Client, redisClient *redis.Client, ttl time.Duration) *Cached {
	return &Cached{inner: inner, redis: redisClient, ttl: ttl}
}

func (c *Cached) Forward(ctx context.Context, location string) (Coordinates, bool, error) {
	if location == "" {
		return Coordinates{}, false, nil
	}
	key := "geocode:fwd:" + location

	if c.redis != nil {
		if raw, err := c.redis.Get(ctx, key).Result(); err == nil {
			var coords Coordinates
			if err := json.Unmarshal([]byte(raw), &coords); err == nil {
				return coords, true, nil
			}
		}
	}

	coords, found, err := c.inner.Forward(ctx, location)
	if err != nil || !found {
		return coords, found, err
	}

	if c.redis != nil {
		if raw, err := json.Marshal(coords); err == nil {
			c.redis.Set(ctx, key, raw, c.ttl)
		}
	}
	return coords, true, nil
}

func (c *Cached) Reverse(ctx context.Context, lat, lng float64) (string, bool, error) {
	key := fmt.Sprintf("geocode:rev:%.6f,%.6f", lat, lng)

	if c.redis != nil {
		if addr, err := c.redis.Get(ctx, key).Result(); err == nil && addr != "" {
			return addr, true, nil
		}
	}

	addr, found, err := c.inner.Reverse(ctx, lat, lng)
	if err != nil || !found {
		return addr, found, err
	}

	if c.redis != nil {
		c.redis.Set(ctx, key, addr, c.ttl)
	}
	return addr, true, nil
}
