package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/arvello/backend-console/internal/cache"
	"github.com/arvello/backend-console/internal/tenant"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.New(client, time.Minute)
}

func TestGetSetInvalidate(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}

	var out payload
	ok, err := c.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.SetJSON(ctx, "k", payload{Name: "starter"}))
	ok, err = c.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "starter", out.Name)

	require.NoError(t, c.Invalidate(ctx, "k"))
	ok, err = c.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *cache.Cache
	ctx := context.Background()
	require.NoError(t, c.SetJSON(ctx, "k", 1))
	ok, err := c.GetJSON(ctx, "k", new(int))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTenantKeys(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, "bundles:list", cache.KeyBundleList(ctx))

	ctx = tenant.WithTenant(ctx, "acme")
	require.Equal(t, "acme:bundles:list", cache.KeyBundleList(ctx))
	require.Equal(t, "acme:catalog:services", cache.KeyServiceCatalog(ctx))
}
