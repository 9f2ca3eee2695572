package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/arvello/backend-console/internal/tenant"
)

func newTestLimiter(t *testing.T) Limiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Limiter{Client: client, Prefix: "rl:"}
}

func TestAllowWithinLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, _, err := limiter.Allow(ctx, "tenant-a", time.Minute, 3)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "tenant-a", time.Minute, 3)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)
}

func TestAllowKeysAreIsolated(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, _, err := limiter.Allow(ctx, "tenant-a", time.Minute, 2)
		require.NoError(t, err)
	}

	allowed, _, _, err := limiter.Allow(ctx, "tenant-b", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestAllowDisabledWithoutClient(t *testing.T) {
	limiter := Limiter{}
	allowed, _, _, err := limiter.Allow(context.Background(), "any", time.Minute, 10)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestMiddlewareSetsHeadersAndRejects(t *testing.T) {
	limiter := newTestLimiter(t)
	handler := Handler{
		Limiter: limiter,
		Config: Config{
			Key:    TenantUserKey,
			Window: time.Minute,
			Max:    1,
		},
	}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/bundles", nil)
	req = req.WithContext(tenant.WithTenant(req.Context(), "acme"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestTenantUserKeyFallsBackToAnon(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/bundles", nil)
	require.Equal(t, "anon", TenantUserKey(req))
}
