// Package rediscache provides a distributed alternative to RestClient's
// default in-process cache, backed by github.com/redis/go-redis/v9 —
// useful when several orchestrator processes share the same GET-response
// and track-load cache. Reads retry once on a transient error before
// falling back to a cache miss.
package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ryxu-xo/euralink/internal/restclient"
	"github.com/ryxu-xo/euralink/logger"
)

// Cache adapts a *redis.Client to restclient.Cache.
type Cache struct {
	client    *redis.Client
	keyPrefix string
}

// New builds a redis-backed Cache. Ping is not performed here, and the cmd
// wiring does not ping either; an unreachable server shows up as logged
// cache misses.
func New(client *redis.Client, keyPrefix string) *Cache {
	return &Cache{client: client, keyPrefix: keyPrefix}
}

func (c *Cache) fullKey(key string) string {
	return c.keyPrefix + ":" + key
}

// Get retries a transient Redis error once before giving up, treating a
// still-failing read as a cache miss so callers fall back to a live fetch.
func (c *Cache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	delay := 100 * time.Millisecond
	for attempt := 0; attempt < 2; attempt++ {
		data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
		if err == nil {
			return data, true
		}
		if errors.Is(err, redis.Nil) {
			return nil, false
		}
		if attempt == 0 {
			logger.Warn("rediscache: get failed, retrying", logger.String("key", key), logger.ErrorField(err))
			time.Sleep(delay)
			delay *= 2
			continue
		}
		logger.Error("rediscache: get failed after retry", logger.String("key", key), logger.ErrorField(err))
	}
	return nil, false
}

func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.client.Set(ctx, c.fullKey(key), value, ttl).Err(); err != nil {
		logger.Warn("rediscache: set failed", logger.String("key", key), logger.ErrorField(err))
	}
}

func (c *Cache) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.client.Del(ctx, c.fullKey(key)).Err(); err != nil {
		logger.Warn("rediscache: delete failed", logger.String("key", key), logger.ErrorField(err))
	}
}

func (c *Cache) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	keys, err := c.client.Keys(ctx, c.fullKey("*")).Result()
	if err != nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("rediscache: clear failed", logger.ErrorField(err))
	}
}

var _ restclient.Cache = (*Cache)(nil)
