// Package cardcache provides a Redis-backed cache for card validity
// projections. It is a read-path optimization; the lifecycle engine remains
// correct with caching disabled.
package cardcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cardkeyhq/cardkey/internal/card"
	"github.com/cardkeyhq/cardkey/internal/config"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// keyPrefix namespaces validity entries in Redis.
const keyPrefix = "cardkey:validity:"

// Cache implements card.StatusCache over Redis.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection. An empty address
// returns (nil, nil), which callers pass through as a disabled cache.
func New(cfg config.RedisConfig) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cardcache: connect: %w", errPing)
	}
	return &Cache{client: client}, nil
}

// Get returns a cached validity projection, if present.
func (c *Cache) Get(ctx context.Context, code string) (*card.Validity, bool) {
	if c == nil {
		return nil, false
	}
	raw, errGet := c.client.Get(ctx, keyPrefix+code).Bytes()
	if errGet != nil {
		if !errors.Is(errGet, redis.Nil) {
			log.WithError(errGet).Debug("cardcache: get failed")
		}
		return nil, false
	}
	var out card.Validity
	if errDecode := json.Unmarshal(raw, &out); errDecode != nil {
		return nil, false
	}
	return &out, true
}

// Set stores a validity projection with the given TTL. Failures are logged
// and ignored; the cache is best-effort.
func (c *Cache) Set(ctx context.Context, code string, v *card.Validity, ttl time.Duration) {
	if c == nil || v == nil || ttl <= 0 {
		return
	}
	encoded, errEncode := json.Marshal(v)
	if errEncode != nil {
		return
	}
	if errSet := c.client.Set(ctx, keyPrefix+code, encoded, ttl).Err(); errSet != nil {
		log.WithError(errSet).Debug("cardcache: set failed")
	}
}

// Invalidate removes the cached projection for a code.
func (c *Cache) Invalidate(ctx context.Context, code string) {
	if c == nil {
		return
	}
	if errDel := c.client.Del(ctx, keyPrefix+code).Err(); errDel != nil {
		log.WithError(errDel).Debug("cardcache: invalidate failed")
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
