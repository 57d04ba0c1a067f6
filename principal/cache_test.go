package principal_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"graphstore.dev/principal"
)

func newTestCache(t *testing.T) *principal.RedisCache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := principal.NewRedisCacheFromClient(client)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestRedisCacheMissReturnsFalse(t *testing.T) {
	cache := newTestCache(t)
	_, ok := cache.Get(context.Background(), "nope")
	require.False(t, ok)
}

func TestRedisCacheSetThenGetRoundTrips(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, "actorA:read:entity:x", principal.Permit)
	d, ok := cache.Get(ctx, "actorA:read:entity:x")
	require.True(t, ok)
	require.Equal(t, principal.Permit, d)

	cache.Set(ctx, "actorA:write:entity:x", principal.Deny)
	d, ok = cache.Get(ctx, "actorA:write:entity:x")
	require.True(t, ok)
	require.Equal(t, principal.Deny, d)
}

func TestRedisCacheInvalidateActorDropsOnlyThatActorsKeys(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, "actorA:read:entity:x", principal.Permit)
	cache.Set(ctx, "actorB:read:entity:x", principal.Permit)

	cache.InvalidateActor(ctx, "actorA")

	_, ok := cache.Get(ctx, "actorA:read:entity:x")
	require.False(t, ok)

	_, ok = cache.Get(ctx, "actorB:read:entity:x")
	require.True(t, ok, "unrelated actor's cache entry must survive")
}

func TestRedisCacheNeverCachesAbstain(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, "actorA:read:entity:x", principal.Abstain)
	_, ok := cache.Get(ctx, "actorA:read:entity:x")
	require.False(t, ok)
}
