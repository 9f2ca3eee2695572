package tenant

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey string

const tenantContextKey contextKey = "tenant.id"

// Resolver resolves tenant identifiers from HTTP requests using either a
// header or the request subdomain.
type Resolver struct {
	HeaderName    string
	RootDomain    string
	DefaultTenant string
}

// NewResolver returns a resolver configured with the provided header name,
// root domain, and default tenant. An empty header name falls back to
// "X-Tenant-ID".
func NewResolver(headerName, rootDomain, defaultTenant string) *Resolver {
	if headerName == "" {
		headerName = "X-Tenant-ID"
	}
	return &Resolver{
		HeaderName:    headerName,
		RootDomain:    strings.ToLower(strings.TrimSpace(rootDomain)),
		DefaultTenant: strings.TrimSpace(defaultTenant),
	}
}

// Middleware resolves the tenant and injects it into the downstream context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		tenantID := r.Resolve(req)
		if tenantID == "" {
			tenantID = r.DefaultTenant
		}
		if tenantID != "" {
			req = req.WithContext(WithTenant(req.Context(), tenantID))
		}
		next.ServeHTTP(w, req)
	})
}

// Resolve finds the tenant identifier from the configured header or the
// request subdomain.
func (r *Resolver) Resolve(req *http.Request) string {
	if r == nil || req == nil {
		return ""
	}
	if tenantID := strings.TrimSpace(req.Header.Get(r.HeaderName)); tenantID != "" {
		return tenantID
	}
	host := hostWithoutPort(req.Host)
	if host == "" {
		return ""
	}
	return strings.TrimSpace(r.subdomainFromHost(host))
}

func (r *Resolver) subdomainFromHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}
	if r.RootDomain != "" {
		if host == r.RootDomain {
			return ""
		}
		suffix := "." + r.RootDomain
		if !strings.HasSuffix(host, suffix) {
			return ""
		}
		host = strings.TrimSuffix(host, suffix)
	}
	parts := strings.Split(host, ".")
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func hostWithoutPort(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}
	if strings.HasPrefix(hostport, "[") {
		if idx := strings.Index(hostport, "]"); idx != -1 {
			if host := hostport[1:idx]; host != "" {
				return host
			}
		}
	}
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	if idx := strings.Index(hostport, ":"); idx != -1 && strings.Count(hostport, ":") == 1 {
		return hostport[:idx]
	}
	return hostport
}

// WithTenant stores the tenant identifier inside the context.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, tenantContextKey, tenantID)
}

// From extracts the tenant identifier from the context if available.
func From(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	tenantID, ok := ctx.Value(tenantContextKey).(string)
	if !ok {
		return "", false
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", false
	}
	return tenantID, true
}
