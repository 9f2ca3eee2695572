package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/arvello/backend-console/internal/cache"
	"github.com/arvello/backend-console/internal/common"
	"github.com/arvello/backend-console/internal/pricing"
	"github.com/arvello/backend-console/internal/store"
)

type queryProvider interface {
	ListServicesByTenant(ctx context.Context, tenantID pgtype.UUID) ([]store.ServiceRow, error)
}

// Service orchestrates catalog queries, DTO assembly, and caching.
type Service struct {
	queries queryProvider
	cache   *cache.Cache
	logger  zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries queryProvider
	Cache   *cache.Cache
	Logger  zerolog.Logger
}

// NewService constructs the catalog service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{queries: cfg.Queries, cache: cfg.Cache, logger: cfg.Logger}
}

// Item is a catalog service as rendered to clients. Price is carried both as
// the stored decimal and in minor units for client-side arithmetic.
type Item struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	PriceMinor      int64   `json:"priceMinor"`
	Currency        string  `json:"currency"`
	CurrencySymbol  string  `json:"currencySymbol"`
	DurationMinutes int32   `json:"durationMinutes"`
}

// List returns the tenant's service catalog, cache-first.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	tenantID, err := store.TenantUUID(ctx)
	if err != nil {
		return nil, common.NewAppError("TENANT_REQUIRED", "tenant could not be resolved", http.StatusBadRequest, err)
	}

	key := cache.KeyServiceCatalog(ctx)
	var cached []Item
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	} else if hit {
		return cached, nil
	}

	rows, err := s.queries.ListServicesByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemFromRow(row))
	}

	if err := s.cache.SetJSON(ctx, key, items); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return items, nil
}

func itemFromRow(row store.ServiceRow) Item {
	return Item{
		ID:              store.UUIDString(row.ID),
		Name:            row.Name,
		Price:           row.Price,
		PriceMinor:      int64(pricing.ToMinorUnits(row.Price, row.Currency)),
		Currency:        row.Currency,
		CurrencySymbol:  pricing.Symbol(row.Currency),
		DurationMinutes: row.DurationMinutes,
	}
}
