// Package ratelimit throttles failed logins with fixed-window counters in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Config holds limiter tuning parameters.
type Config struct {
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// Limiter counts failed logins per identifier. Once MaxLoginAttempts
// failures land inside one window, further attempts are refused until the
// window expires.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin returns a RateLimited error when identifier is over budget.
func (l *Limiter) CheckLogin(ctx context.Context, identifier string) error {
	count, err := l.redis.Get(ctx, loginKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxLoginAttempts) {
		return apperrors.RateLimited()
	}
	return nil
}

// IncrementLogin records a failed attempt. The counter and its TTL are
// written in one transaction; NX keeps the window fixed to the first failure
// and still repairs a counter that somehow has no TTL.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier string) error {
	key := loginKey(identifier)
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.config.LoginCooldownDuration)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ResetLogin clears the counter after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, identifier string) error {
	if err := l.redis.Del(ctx, loginKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func loginKey(identifier string) string {
	return "login:attempts:" + strings.ToLower(strings.TrimSpace(identifier))
}
