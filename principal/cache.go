package principal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// decisionTTL bounds how long a cached check() result is trusted before a
// fresh evaluation is required, keeping the read-mostly cache from serving a
// stale Permit past a role change the invalidation path missed.
const decisionTTL = 30 * time.Second

// Cache holds resolved permission decisions for (actor, action, resource)
// keyed lookups, read-mostly and invalidated synchronously whenever a role
// assignment changes (§5 "Shared resources").
type Cache interface {
	Get(ctx context.Context, key string) (Decision, bool)
	Set(ctx context.Context, key string, d Decision)
	InvalidateActor(ctx context.Context, actorId string)
}

// RedisCache is the production Cache, grounded in the teacher's
// queue/redis.Queue client-construction pattern (redis.ParseURL + Ping on
// construction). Every key starts with the actor id (see cacheKey), so
// InvalidateActor finds an actor's entries with a SCAN over that prefix and
// deletes them.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache dials redisURL (a redis:// connection string) and verifies
// it with a Ping, the same fail-fast-on-construction shape the teacher's
// queue client uses.
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("principal: parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("principal: connecting to redis: %w", err)
	}
	return &RedisCache{client: client, prefix: "principal:check:"}, nil
}

// NewRedisCacheFromClient wraps an already-constructed client, the path
// tests take with a miniredis-backed *redis.Client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "principal:check:"}
}

func (c *RedisCache) Close() error { return c.client.Close() }

func (c *RedisCache) Get(ctx context.Context, key string) (Decision, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		return Abstain, false
	}
	switch val {
	case "permit":
		return Permit, true
	case "deny":
		return Deny, true
	default:
		return Abstain, false
	}
}

func (c *RedisCache) Set(ctx context.Context, key string, d Decision) {
	var val string
	switch d {
	case Permit:
		val = "permit"
	case Deny:
		val = "deny"
	default:
		return // never cache Abstain; it is not a final answer
	}
	c.client.Set(ctx, c.prefix+key, val, decisionTTL)
}

// InvalidateActor drops every cached decision for actorId. Keys are
// prefixed by actor id (see cacheKey), so a pattern scan restricted to that
// actor's own namespace is cheap and never touches unrelated entries.
func (c *RedisCache) InvalidateActor(ctx context.Context, actorId string) {
	pattern := c.prefix + actorId + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}

// cacheKey builds the cache key for a check request, actor-id first so
// InvalidateActor's prefix scan finds every entry for that actor.
func cacheKey(req Request) string {
	return fmt.Sprintf("%s:%s:%s:%s", req.ActorId, req.Action, req.Resource.Kind, req.Resource.Id)
}

// ErrCacheUnavailable is returned by callers that require a cache but were
// constructed without one; Store.Check tolerates a nil Cache and simply
// evaluates uncached, so this exists only for callers that want to assert
// caching is actually configured.
var ErrCacheUnavailable = errors.New("principal: no cache configured")
