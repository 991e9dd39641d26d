package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Yasuhisa-O/SNS/internal/config"
)

// RedisCache wraps the redis client used for short-lived derived state:
// unread-count badges and password reset tokens.
type RedisCache struct {
	Client *redis.Client
}

// Shared is the cache instance wired up in main. Components treat a nil
// Shared as "caching disabled" and fall through to the database.
var Shared *RedisCache

// Connect initializes the shared Redis client from config.
func Connect(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.RedisAddr,
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB != 0 {
		opts.DB = cfg.RedisDB
	}
	Shared = &RedisCache{Client: redis.NewClient(opts)}
	return Shared
}

// New wraps an existing client. Used by tests with miniredis.
func New(client *redis.Client) *RedisCache {
	return &RedisCache{Client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForUnreadCount generates the Redis key for a user's unread message count.
func (c *RedisCache) KeyForUnreadCount(userID uint) string {
	return fmt.Sprintf("messages:unread:%d", userID)
}
