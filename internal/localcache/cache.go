// Package localcache is the per-client fallback store that stands in for browser storage.
// Values are JSON documents under <prefix>:client:<clientID>:<key>; the admin-managed
// system settings live once under <prefix>:shared:systemSettings. The cache is never a
// system of record: callers fall back to it only when the backend cannot answer.
package localcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/metrics"
)

// Key names one cached document.
type Key string

const (
	KeyCurrentUser     Key = "currentUser"
	KeyRegisteredUsers Key = "registeredUsers"
	KeyEvents          Key = "events"
	KeyRegistrations   Key = "eventRegistrations"
	KeySystemSettings  Key = "systemSettings"
	KeyCancelled       Key = "cancelledRegistrations"
)

// maxTxRetries bounds optimistic transaction retries under contention.
const maxTxRetries = 32

var ErrContention = errors.New("localcache: too much contention on key")

// Cache reads and writes cached documents for a client.
type Cache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a cache. A zero ttl keeps documents until they are overwritten.
func New(rdb *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "portal"
	}
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *Cache) key(clientID string, k Key) string {
	return fmt.Sprintf("%s:client:%s:%s", c.prefix, clientID, k)
}

func (c *Cache) sharedKey(k Key) string {
	return fmt.Sprintf("%s:shared:%s", c.prefix, k)
}

// get decodes the document at key into dst. Missing or unreadable documents report
// found=false.
func get[T any](ctx context.Context, c *Cache, key string, k Key, dst *T) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheReads.WithLabelValues(string(k), "miss").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", k, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		metrics.CacheReads.WithLabelValues(string(k), "miss").Inc()
		var zero T
		*dst = zero
		return false, nil
	}
	metrics.CacheReads.WithLabelValues(string(k), "hit").Inc()
	return true, nil
}

func (c *Cache) put(ctx context.Context, key string, k Key, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", k, err)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", k, err)
	}
	return nil
}

func (c *Cache) del(ctx context.Context, clientID string, k Key) error {
	if err := c.rdb.Del(ctx, c.key(clientID, k)).Err(); err != nil {
		return fmt.Errorf("cache del %s: %w", k, err)
	}
	return nil
}

// update runs fn against the current document inside WATCH/MULTI and retries when another
// writer touched the key first. An error from fn aborts without writing.
func update[T any](ctx context.Context, c *Cache, key string, k Key, fn func(cur T) (T, error)) (T, error) {
	var out T

	txf := func(tx *redis.Tx) error {
		var cur T
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &cur); err != nil {
				c.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
				var zero T
				cur = zero
			}
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("cache encode %s: %w", k, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		if err == nil {
			out = next
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := c.rdb.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return out, err
	}
	return out, ErrContention
}
