package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Versioned {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, time.Minute)
}

func TestFetchJSONUsesCachedValue(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	key, err := c.BuildKey(ctx, "catalog", "items")
	require.NoError(t, err)
	require.Equal(t, "catalog:items:1", key)

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return []string{"rice", "sugar"}, nil
	}
	var first, second []string
	require.NoError(t, c.FetchJSON(ctx, key, &first, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &second, loader))
	require.Equal(t, 1, calls)
	require.Equal(t, first, second)
}

func TestBumpChangesKeys(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	before, err := c.BuildKey(ctx, "catalog")
	require.NoError(t, err)
	require.NoError(t, c.Bump(ctx))
	after, err := c.BuildKey(ctx, "catalog")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestNilClientFallsThroughToLoader(t *testing.T) {
	ctx := context.Background()
	c := NewVersioned(nil, time.Minute)
	key, err := c.BuildKey(ctx, "a", "b")
	require.NoError(t, err)
	require.Equal(t, "a:b", key)

	var out int
	require.NoError(t, c.FetchJSON(ctx, key, &out, func(context.Context) (any, error) { return 7, nil }))
	require.Equal(t, 7, out)
	require.NoError(t, c.Bump(ctx))
}
