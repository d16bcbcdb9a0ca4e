package cache

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"chibi-bot/internal/metrics"
	"chibi-bot/pkg/logging"
)

// LoggingReplyCache wraps a ReplyCache with logging and metrics.
type LoggingReplyCache struct {
	inner ReplyCache
}

// NewLoggingReplyCache returns a cache that logs lookups and records
// cache-hit metrics.
func NewLoggingReplyCache(inner ReplyCache) ReplyCache {
	return &LoggingReplyCache{inner: inner}
}

func (c *LoggingReplyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := c.inner.Get(ctx, key)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	logger := logging.L(ctx)

	result := "miss"
	if err != nil {
		result = "error"
	} else if ok {
		result = "hit"
		metrics.CacheHitsTotal.Inc()
	}

	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.String("cache_result", result), // hit | miss | error
		zap.Float64("latency_ms", latencyMs),
	}
	if persona, ok := personaFromKey(key); ok {
		fields = append(fields, zap.String("persona", persona))
	}

	if err != nil {
		logger.Error("reply_cache_get", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("reply_cache_get", fields...)
	}

	return value, ok, err
}

func (c *LoggingReplyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.inner.Set(ctx, key, value, ttl)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	logger := logging.L(ctx)

	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.Duration("ttl", ttl),
		zap.Float64("latency_ms", latencyMs),
	}
	if persona, ok := personaFromKey(key); ok {
		fields = append(fields, zap.String("persona", persona))
	}

	if err != nil {
		logger.Error("reply_cache_set", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("reply_cache_set", fields...)
	}

	return err
}

// Expecting: reply:<PERSONA>:<HASH>
func personaFromKey(key string) (string, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "reply" {
		return "", false
	}
	return parts[1], true
}
