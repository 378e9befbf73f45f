package token

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevokedTokenCache remembers access tokens that were signed out before they
// expired. Entries only need to live until the token's own expiry.
type RevokedTokenCache interface {
	Revoke(ctx context.Context, jti string, exp time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

var (
	_ RevokedTokenCache = (*InMemoryRevokedTokenCache)(nil)
	_ RevokedTokenCache = (*RedisRevokedTokenCache)(nil)
)

// InMemoryRevokedTokenCache is a simple in-memory implementation
type InMemoryRevokedTokenCache struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
	nowTime func() time.Time
}

func NewInMemoryRevokedTokenCache() *InMemoryRevokedTokenCache {
	return &InMemoryRevokedTokenCache{
		revoked: make(map[string]time.Time),
		nowTime: time.Now,
	}
}

func (c *InMemoryRevokedTokenCache) Revoke(_ context.Context, jti string, exp time.Time) error {
	if jti == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
	c.revoked[jti] = exp
	return nil
}

func (c *InMemoryRevokedTokenCache) IsRevoked(_ context.Context, jti string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	exp, exists := c.revoked[jti]
	return exists && c.nowTime().Before(exp), nil
}

// Cleanup removes expired entries
func (c *InMemoryRevokedTokenCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
}

func (c *InMemoryRevokedTokenCache) cleanupLocked() {
	now := c.nowTime()
	for jti, exp := range c.revoked {
		if now.After(exp) {
			delete(c.revoked, jti)
		}
	}
}

const revokedKeyPrefix = "revoked:access:"

// RedisRevokedTokenCache shares revocations between instances. Keys expire
// together with the token they describe.
type RedisRevokedTokenCache struct {
	client  redis.Cmdable
	nowTime func() time.Time
}

func NewRedisRevokedTokenCache(client redis.Cmdable) *RedisRevokedTokenCache {
	return &RedisRevokedTokenCache{client: client, nowTime: time.Now}
}

func (c *RedisRevokedTokenCache) Revoke(ctx context.Context, jti string, exp time.Time) error {
	if jti == "" {
		return nil
	}
	ttl := exp.Sub(c.nowTime())
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err()
}

func (c *RedisRevokedTokenCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
