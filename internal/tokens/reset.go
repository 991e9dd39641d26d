package tokens

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Yasuhisa-O/SNS/internal/cache"
)

// ErrInvalidToken is returned when a token is unknown, expired or
// already consumed.
var ErrInvalidToken = errors.New("invalid or expired reset token")

// Manager issues and consumes password reset tokens. Tokens live in
// Redis with a TTL and are single-use: consuming one deletes it, so a
// token can never reset a password twice.
type Manager struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewManager creates a token manager with the given token lifetime.
func NewManager(c *cache.RedisCache, ttl time.Duration) *Manager {
	return &Manager{cache: c, ttl: ttl}
}

// Issue publishes a fresh reset token for the user and returns it.
func (m *Manager) Issue(ctx context.Context, userID uint) (string, error) {
	token := uuid.NewString()
	key := keyFor(token)
	if err := m.cache.Set(ctx, key, strconv.FormatUint(uint64(userID), 10), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Consume resolves a token to its user id and invalidates it in the
// same round trip.
func (m *Manager) Consume(ctx context.Context, token string) (uint, error) {
	val, err := m.cache.Client.GetDel(ctx, keyFor(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrInvalidToken
	}
	if err != nil {
		return 0, err
	}

	userID, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(userID), nil
}

func keyFor(token string) string {
	return fmt.Sprintf("reset:token:%s", token)
}
