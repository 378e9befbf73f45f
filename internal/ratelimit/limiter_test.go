package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
	"github.com/jrsteele09/go-account-service/internal/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestLimiter_BlocksAfterBudget(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	limiter := ratelimit.New(client, ratelimit.Config{MaxLoginAttempts: 3, LoginCooldownDuration: time.Minute})

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.CheckLogin(ctx, "alice"))
		require.NoError(t, limiter.IncrementLogin(ctx, "alice"))
	}

	err := limiter.CheckLogin(ctx, "Alice ")
	require.ErrorIs(t, err, apperrors.ErrTooManyAttempts)
	require.Equal(t, apperrors.KindRateLimited, apperrors.KindOf(err))

	require.NoError(t, limiter.CheckLogin(ctx, "bob"))

	mr.FastForward(2 * time.Minute)
	require.NoError(t, limiter.CheckLogin(ctx, "alice"))
}

func TestLimiter_WindowIsFixed(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	limiter := ratelimit.New(client, ratelimit.Config{MaxLoginAttempts: 5, LoginCooldownDuration: time.Minute})

	require.NoError(t, limiter.IncrementLogin(ctx, "alice"))
	mr.FastForward(30 * time.Second)
	require.NoError(t, limiter.IncrementLogin(ctx, "alice"))

	ttl := mr.TTL("login:attempts:alice")
	require.LessOrEqual(t, ttl, 30*time.Second)
}

func TestLimiter_CounterWithoutTTLGetsOne(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	limiter := ratelimit.New(client, ratelimit.Config{MaxLoginAttempts: 2, LoginCooldownDuration: time.Minute})

	require.NoError(t, mr.Set("login:attempts:alice", "5"))
	require.ErrorIs(t, limiter.CheckLogin(ctx, "alice"), apperrors.ErrTooManyAttempts)

	require.NoError(t, limiter.IncrementLogin(ctx, "alice"))
	require.Greater(t, mr.TTL("login:attempts:alice"), time.Duration(0))

	mr.FastForward(2 * time.Minute)
	require.NoError(t, limiter.CheckLogin(ctx, "alice"))
}

func TestLimiter_Reset(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()
	limiter := ratelimit.New(client, ratelimit.Config{MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})

	require.NoError(t, limiter.IncrementLogin(ctx, "alice"))
	require.Error(t, limiter.CheckLogin(ctx, "alice"))

	require.NoError(t, limiter.ResetLogin(ctx, "alice"))
	require.NoError(t, limiter.CheckLogin(ctx, "alice"))
}

func TestLimiter_RedisDown(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := ratelimit.New(client, ratelimit.Config{MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})
	mr.Close()

	err := limiter.CheckLogin(context.Background(), "alice")
	require.True(t, errors.Is(err, ratelimit.ErrRedisUnavailable))
	require.ErrorIs(t, limiter.IncrementLogin(context.Background(), "alice"), ratelimit.ErrRedisUnavailable)
}
