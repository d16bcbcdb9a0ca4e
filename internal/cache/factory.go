package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Backend string // "memory" or "redis"
	Prefix  string
}

// Entry lifetime is decided per Set call; the janitor only bounds how
// long expired entries linger physically.
const memoryJanitorInterval = 5 * time.Minute

// NewReplyCache picks the backend named in cfg. Anything other than
// "redis" gets the in-memory cache.
func NewReplyCache(cfg Config, redisClient *redis.Client) ReplyCache {
	switch cfg.Backend {
	case "redis":
		return NewRedisReplyCache(redisClient, RedisConfig{
			Prefix: cfg.Prefix,
		})
	default:
		return NewMemoryReplyCache(memoryJanitorInterval)
	}
}
