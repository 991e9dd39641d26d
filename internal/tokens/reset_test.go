package tokens_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/Yasuhisa-O/SNS/internal/cache"
	"github.com/Yasuhisa-O/SNS/internal/tokens"
)

func setupManager(t *testing.T, ttl time.Duration) (*tokens.Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return tokens.NewManager(cache.New(client), ttl), mr
}

func TestIssueThenConsume(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setupManager(t, 24*time.Hour)

	token, err := mgr.Issue(ctx, 42)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	userID, err := mgr.Consume(ctx, token)
	assert.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestTokenIsSingleUse(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setupManager(t, 24*time.Hour)

	token, err := mgr.Issue(ctx, 7)
	assert.NoError(t, err)

	_, err = mgr.Consume(ctx, token)
	assert.NoError(t, err)

	_, err = mgr.Consume(ctx, token)
	assert.ErrorIs(t, err, tokens.ErrInvalidToken)
}

func TestUnknownTokenIsRejected(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setupManager(t, 24*time.Hour)

	_, err := mgr.Consume(ctx, "no-such-token")
	assert.ErrorIs(t, err, tokens.ErrInvalidToken)
}

func TestTokenExpires(t *testing.T) {
	ctx := context.Background()
	mgr, mr := setupManager(t, time.Hour)

	token, err := mgr.Issue(ctx, 7)
	assert.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = mgr.Consume(ctx, token)
	assert.ErrorIs(t, err, tokens.ErrInvalidToken)
}

func TestTokensAreUnique(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setupManager(t, time.Hour)

	first, err := mgr.Issue(ctx, 1)
	assert.NoError(t, err)
	second, err := mgr.Issue(ctx, 1)
	assert.NoError(t, err)
	assert.NotEqual(t, first, second)

	// Both tokens stay valid until consumed.
	userID, err := mgr.Consume(ctx, first)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), userID)
	userID, err = mgr.Consume(ctx, second)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), userID)
}
