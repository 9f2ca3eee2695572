package cache

import (
	"context"

	"github.com/arvello/backend-console/internal/tenant"
)

// KeyServiceCatalog returns the per-tenant key for the service catalog list.
func KeyServiceCatalog(ctx context.Context) string {
	return tenantKey(ctx, "catalog:services")
}

// KeyBundleList returns the per-tenant key for the unfiltered bundle listing.
func KeyBundleList(ctx context.Context) string {
	return tenantKey(ctx, "bundles:list")
}

func tenantKey(ctx context.Context, base string) string {
	id, ok := tenant.From(ctx)
	if !ok {
		return base
	}
	return id + ":" + base
}
