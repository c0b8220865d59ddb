package auth

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoleCache is the durable advisory copy of the last resolved role.  It
// pre-seeds the UI before the first resolution completes and is never
// authoritative: the role store wins whenever it is reachable.  The cache
// must track every role assignment, so the resolver writes it from its
// single setRole path.
type RoleCache interface {
	Get(ctx context.Context, userID string) (Role, bool)
	Set(ctx context.Context, userID string, role Role)
	Delete(ctx context.Context, userID string)
}

// cacheKeyPrefix namespaces cached roles per user.  The browser original
// kept one fixed key because it held a single browsing context; the server
// holds many, so the key carries the user id.
const cacheKeyPrefix = "auth_role:"

// roleCacheTTL bounds growth of stale entries.  The value is generous on
// purpose: entries are advisory and overwritten on every resolution.
const roleCacheTTL = 30 * 24 * time.Hour

// RedisRoleCache stores cached roles in Redis.
type RedisRoleCache struct {
	rdb *redis.Client
}

func NewRedisRoleCache(rdb *redis.Client) *RedisRoleCache {
	return &RedisRoleCache{rdb: rdb}
}

// Get returns the cached role for a user, or false on miss, junk or any
// Redis error.  Cache failures are invisible to callers; the resolver just
// proceeds without a pre-seed.
func (c *RedisRoleCache) Get(ctx context.Context, userID string) (Role, bool) {
	v, err := c.rdb.Get(ctx, cacheKeyPrefix+userID).Result()
	if err != nil {
		return "", false
	}
	return ParseRole(v)
}

func (c *RedisRoleCache) Set(ctx context.Context, userID string, role Role) {
	if err := c.rdb.Set(ctx, cacheKeyPrefix+userID, string(role), roleCacheTTL).Err(); err != nil {
		log.Printf("auth: role cache set failed for user %s: %v", userID, err)
	}
}

func (c *RedisRoleCache) Delete(ctx context.Context, userID string) {
	if err := c.rdb.Del(ctx, cacheKeyPrefix+userID).Err(); err != nil {
		log.Printf("auth: role cache delete failed for user %s: %v", userID, err)
	}
}

// NopRoleCache is used when no Redis client could be established at startup.
// Every lookup misses and writes vanish; role resolution still works, the
// UI just loses its pre-seed.
type NopRoleCache struct{}

func (NopRoleCache) Get(context.Context, string) (Role, bool) { return "", false }
func (NopRoleCache) Set(context.Context, string, Role)        {}
func (NopRoleCache) Delete(context.Context, string)           {}
