// Package cache keeps report results in Redis between analysis runs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "losstime:"
	generationKey = keyPrefix + "generation"
)

// ReportCache stores JSON report payloads keyed by report name and filter.
// Keys embed a generation counter so one INCR invalidates every entry.
// A nil *ReportCache is valid and never hits.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a report cache over client
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ReportCache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReportCache{client: client, ttl: ttl, logger: logger.With("component", "report_cache")}
}

// Dial connects to addr and verifies the connection
func Dial(ctx context.Context, addr string, ttl time.Duration, logger *slog.Logger) (*ReportCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return New(client, ttl, logger), nil
}

func (c *ReportCache) key(ctx context.Context, report string, filter interface{}) (string, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	raw, err := json.Marshal(filter)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%sreport:%d:%s:%x", keyPrefix, gen, report, sha256.Sum256(raw)), nil
}

// Get decodes a cached report into dest and reports whether it was found.
func (c *ReportCache) Get(ctx context.Context, report string, filter, dest interface{}) bool {
	if c == nil {
		return false
	}
	key, err := c.key(ctx, report, filter)
	if err != nil {
		c.logger.Warn("cache key failed", "report", report, "error", err)
		return false
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", "report", report, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(val, dest); err != nil {
		c.logger.Warn("cache entry unreadable", "key", key, "error", err)
		return false
	}
	return true
}

// Set stores value for report and filter. Failures are logged, not returned.
func (c *ReportCache) Set(ctx context.Context, report string, filter, value interface{}) {
	if c == nil {
		return
	}
	key, err := c.key(ctx, report, filter)
	if err != nil {
		c.logger.Warn("cache key failed", "report", report, "error", err)
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", "report", report, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "report", report, "error", err)
	}
}

// Invalidate drops every cached report by moving to a new generation.
func (c *ReportCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate report cache: %w", err)
	}
	return nil
}

// Close releases the Redis connection
func (c *ReportCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
