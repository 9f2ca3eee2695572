package tenant_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arvello/backend-console/internal/tenant"
)

func TestResolveFromHeader(t *testing.T) {
	r := tenant.NewResolver("", "console.example.com", "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	require.Equal(t, "acme", r.Resolve(req))
}

func TestResolveFromSubdomain(t *testing.T) {
	r := tenant.NewResolver("", "console.example.com", "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "acme.console.example.com:8080"
	require.Equal(t, "acme", r.Resolve(req))

	req.Host = "console.example.com"
	require.Equal(t, "", r.Resolve(req))

	req.Host = "other.example.org"
	require.Equal(t, "", r.Resolve(req))
}

func TestMiddlewareInjectsDefault(t *testing.T) {
	r := tenant.NewResolver("", "", "fallback")
	var got string
	handler := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		got, _ = tenant.From(req.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = ""
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "fallback", got)
}

func TestFromRejectsBlank(t *testing.T) {
	ctx := tenant.WithTenant(nil, "   ")
	_, ok := tenant.From(ctx)
	require.False(t, ok)
}
