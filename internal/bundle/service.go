package bundle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/arvello/backend-console/internal/cache"
	"github.com/arvello/backend-console/internal/common"
	"github.com/arvello/backend-console/internal/obs"
	"github.com/arvello/backend-console/internal/pricing"
	"github.com/arvello/backend-console/internal/store"
)

type queryProvider interface {
	ListBundlesByTenant(ctx context.Context, tenantID pgtype.UUID) ([]store.BundleRow, error)
	GetBundleByID(ctx context.Context, arg store.GetBundleParams) (store.BundleRow, error)
	InsertBundle(ctx context.Context, arg store.InsertBundleParams) (store.BundleRow, error)
	UpdateBundle(ctx context.Context, arg store.UpdateBundleParams) (store.BundleRow, error)
	DeleteBundle(ctx context.Context, arg store.DeleteBundleParams) error
	ListServicesByIDs(ctx context.Context, arg store.ListServicesByIDsParams) ([]store.ServiceRow, error)
}

// Service orchestrates bundle reads, writes, pricing, and caching.
type Service struct {
	queries         queryProvider
	cache           *cache.Cache
	validate        *validator.Validate
	logger          zerolog.Logger
	defaultCurrency string
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries         queryProvider
	Cache           *cache.Cache
	Logger          zerolog.Logger
	DefaultCurrency string
}

// NewService constructs the bundle service.
func NewService(cfg ServiceConfig) *Service {
	currency := strings.ToUpper(strings.TrimSpace(cfg.DefaultCurrency))
	if currency == "" {
		currency = "EUR"
	}
	return &Service{
		queries:         cfg.Queries,
		cache:           cfg.Cache,
		validate:        validator.New(),
		logger:          cfg.Logger,
		defaultCurrency: currency,
	}
}

// Input is the client payload for bundle create and update. The derived price
// is intentionally absent: it is recomputed server-side on every write.
type Input struct {
	Name        string          `json:"name" validate:"required,max=160"`
	Description string          `json:"description" validate:"max=2000"`
	Strategy    StrategyPayload `json:"strategy"`
	ServiceIDs  []string        `json:"serviceIds" validate:"required"`
}

// PreviewInput is the payload for price preview. Touched mirrors the form's
// first-touch state so an untouched selection stays quiet about the minimum.
type PreviewInput struct {
	Strategy   StrategyPayload `json:"strategy"`
	ServiceIDs []string        `json:"serviceIds"`
	Touched    bool            `json:"servicesTouched"`
}

// Preview is the computed pricing panel for a candidate configuration.
type Preview struct {
	Available       bool                 `json:"available"`
	SumMinor        pricing.Money        `json:"sumMinor"`
	FinalPriceMinor pricing.Money        `json:"finalPriceMinor"`
	DeltaMinor      pricing.Money        `json:"deltaMinor"`
	MaterialDelta   bool                 `json:"materialDelta"`
	Currency        string               `json:"currency"`
	Display         string               `json:"display,omitempty"`
	FieldErrors     []pricing.FieldError `json:"fieldErrors,omitempty"`
}

// List loads the tenant's bundles (cache-first) and applies the filter spec
// in process.
func (s *Service) List(ctx context.Context, spec FilterSpec) ([]Bundle, error) {
	tenantID, err := store.TenantUUID(ctx)
	if err != nil {
		return nil, tenantError(err)
	}

	key := cache.KeyBundleList(ctx)
	var all []Bundle
	hit, err := s.cache.GetJSON(ctx, key, &all)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("bundle cache read failed")
		hit = false
	}
	if !hit {
		rows, err := s.queries.ListBundlesByTenant(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("list bundles: %w", err)
		}
		all = make([]Bundle, 0, len(rows))
		for _, row := range rows {
			all = append(all, fromRow(row))
		}
		if err := s.cache.SetJSON(ctx, key, all); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("bundle cache write failed")
		}
	}

	filtered := Apply(all, spec)
	if obs.BundleQueryTotal != nil {
		obs.BundleQueryTotal.Inc()
		obs.BundleQueryResultSize.Observe(float64(len(filtered)))
	}
	return filtered, nil
}

// Get fetches one bundle owned by the tenant.
func (s *Service) Get(ctx context.Context, id string) (Bundle, error) {
	tenantID, err := store.TenantUUID(ctx)
	if err != nil {
		return Bundle{}, tenantError(err)
	}
	bundleID, err := store.UUIDValue(id)
	if err != nil {
		return Bundle{}, common.NewAppError("NOT_FOUND", "bundle not found", http.StatusNotFound, err)
	}
	row, err := s.queries.GetBundleByID(ctx, store.GetBundleParams{TenantID: tenantID, ID: bundleID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bundle{}, common.NewAppError("NOT_FOUND", "bundle not found", http.StatusNotFound, err)
		}
		return Bundle{}, fmt.Errorf("get bundle: %w", err)
	}
	return fromRow(row), nil
}

// Create validates the payload, recomputes the derived price, and stores the
// bundle.
func (s *Service) Create(ctx context.Context, input Input) (Bundle, error) {
	tenantID, err := store.TenantUUID(ctx)
	if err != nil {
		return Bundle{}, tenantError(err)
	}
	priced, err := s.priceInput(ctx, tenantID, input)
	if err != nil {
		s.countWrite("create", "rejected")
		return Bundle{}, err
	}

	row, err := s.queries.InsertBundle(ctx, store.InsertBundleParams{
		TenantID:             tenantID,
		Name:                 strings.TrimSpace(input.Name),
		Description:          textValue(input.Description),
		Kind:                 string(priced.strategy.Kind),
		FixedPriceMinor:      int8Value(priced.strategy.FixedPriceMinor),
		DiscountPercent:      float8Value(priced.strategy.DiscountPercent),
		CalculatedPriceMinor: priced.finalMinor,
		Currency:             priced.currency,
		ServiceIDs:           priced.serviceIDs,
	})
	if err != nil {
		s.countWrite("create", "error")
		return Bundle{}, fmt.Errorf("insert bundle: %w", err)
	}

	s.countWrite("create", "ok")
	s.countCompute(priced.strategy.Kind)
	s.invalidateList(ctx)
	return fromRow(row), nil
}

// Update validates the payload, recomputes the derived price, and replaces
// the stored bundle.
func (s *Service) Update(ctx context.Context, id string, input Input) (Bundle, error) {
	tenantID, err := store.TenantUUID(ctx)
	if err != nil {
		return Bundle{}, tenantError(err)
	}
	bundleID, err := store.UUIDValue(id)
	if err != nil {
		return Bundle{}, common.NewAppError("NOT_FOUND", "bundle not found", http.StatusNotFound, err)
	}
	priced, err := s.priceInput(ctx, tenantID, input)
	if err != nil {
		s.countWrite("update", "rejected")
		return Bundle{}, err
	}

	row, err := s.queries.UpdateBundle(ctx, store.UpdateBundleParams{
		TenantID:             tenantID,
		ID:                   bundleID,
		Name:                 strings.TrimSpace(input.Name),
		Description:          textValue(input.Description),
		Kind:                 string(priced.strategy.Kind),
		FixedPriceMinor:      int8Value(priced.strategy.FixedPriceMinor),
		DiscountPercent:      float8Value(priced.strategy.DiscountPercent),
		CalculatedPriceMinor: priced.finalMinor,
		Currency:             priced.currency,
		ServiceIDs:           priced.serviceIDs,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.countWrite("update", "rejected")
			return Bundle{}, common.NewAppError("NOT_FOUND", "bundle not found", http.StatusNotFound, err)
		}
		s.countWrite("update", "error")
		return Bundle{}, fmt.Errorf("update bundle: %w", err)
	}

	s.countWrite("update", "ok")
	s.countCompute(priced.strategy.Kind)
	s.invalidateList(ctx)
	return fromRow(row), nil
}

// Delete removes a bundle owned by the tenant.
func (s *Service) Delete(ctx context.Context, id string) error {
	tenantID, err := store.TenantUUID(ctx)
	if err != nil {
		return tenantError(err)
	}
	bundleID, err := store.UUIDValue(id)
	if err != nil {
		return common.NewAppError("NOT_FOUND", "bundle not found", http.StatusNotFound, err)
	}
	if err := s.queries.DeleteBundle(ctx, store.DeleteBundleParams{TenantID: tenantID, ID: bundleID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.countWrite("delete", "rejected")
			return common.NewAppError("NOT_FOUND", "bundle not found", http.StatusNotFound, err)
		}
		s.countWrite("delete", "error")
		return fmt.Errorf("delete bundle: %w", err)
	}
	s.countWrite("delete", "ok")
	s.invalidateList(ctx)
	return nil
}

// PreviewPrice computes the pricing panel for a candidate configuration
// without persisting anything. Unlike writes, an insufficient selection is
// not an error here: the panel simply reports it is unavailable.
func (s *Service) PreviewPrice(ctx context.Context, input PreviewInput) (Preview, error) {
	tenantID, err := store.TenantUUID(ctx)
	if err != nil {
		return Preview{}, tenantError(err)
	}

	strategy := input.Strategy.Strategy()
	fieldErrors := pricing.ValidateStrategy(strategy)
	fieldErrors = append(fieldErrors, pricing.ValidateServiceSelection(input.ServiceIDs, input.Touched)...)

	services, _, err := s.resolveServices(ctx, tenantID, input.ServiceIDs)
	if err != nil {
		return Preview{}, err
	}

	preview := Preview{
		Available:   pricing.PreviewAvailable(len(services)),
		Currency:    s.currencyFor(services),
		FieldErrors: fieldErrors,
	}
	if !preview.Available || len(fieldErrors) > 0 {
		return preview, nil
	}

	sum := pricing.SumMinor(services)
	final := pricing.FinalPriceMinor(sum, strategy)
	delta := pricing.Delta(final, sum)
	preview.SumMinor = sum
	preview.FinalPriceMinor = final
	preview.DeltaMinor = delta
	preview.MaterialDelta = pricing.MaterialDelta(delta)
	preview.Display = pricing.FormatMinor(final, preview.Currency)
	s.countCompute(strategy.Kind)
	return preview, nil
}

type pricedInput struct {
	strategy   pricing.Strategy
	finalMinor int64
	currency   string
	serviceIDs []pgtype.UUID
}

// priceInput runs full write-side validation and derives the stored price.
func (s *Service) priceInput(ctx context.Context, tenantID pgtype.UUID, input Input) (pricedInput, error) {
	if err := s.validate.Struct(input); err != nil {
		return pricedInput{}, common.NewAppError("VALIDATION", "invalid bundle payload", http.StatusUnprocessableEntity, err)
	}
	if !pricing.ValidKind(input.Strategy.Kind) {
		return pricedInput{}, validationError([]pricing.FieldError{{
			Field:   "strategy.kind",
			Code:    pricing.CodeRequiredFieldMissing,
			Message: "strategy kind must be one of sum, fixed, discount",
		}})
	}

	strategy := input.Strategy.Strategy()
	fieldErrors := pricing.ValidateStrategy(strategy)
	// Writes always count as touched: persistence is past the first-touch
	// grace the form gets.
	fieldErrors = append(fieldErrors, pricing.ValidateServiceSelection(input.ServiceIDs, true)...)
	if len(fieldErrors) > 0 {
		return pricedInput{}, validationError(fieldErrors)
	}

	services, ids, err := s.resolveServices(ctx, tenantID, input.ServiceIDs)
	if err != nil {
		return pricedInput{}, err
	}
	if len(services) != len(ids) {
		return pricedInput{}, validationError([]pricing.FieldError{{
			Field:   "serviceIds",
			Code:    pricing.CodeOutOfRange,
			Message: "one or more services do not exist",
		}})
	}

	sum := pricing.SumMinor(services)
	return pricedInput{
		strategy:   strategy,
		finalMinor: pricing.FinalPriceMinor(sum, strategy),
		currency:   s.currencyFor(services),
		serviceIDs: ids,
	}, nil
}

// resolveServices parses the distinct id set and loads the matching tenant
// services as pricing inputs.
func (s *Service) resolveServices(ctx context.Context, tenantID pgtype.UUID, rawIDs []string) ([]pricing.Service, []pgtype.UUID, error) {
	seen := make(map[string]struct{}, len(rawIDs))
	ids := make([]pgtype.UUID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		id, err := store.UUIDValue(trimmed)
		if err != nil {
			return nil, nil, validationError([]pricing.FieldError{{
				Field:   "serviceIds",
				Code:    pricing.CodeOutOfRange,
				Message: fmt.Sprintf("%q is not a valid service id", trimmed),
			}})
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, ids, nil
	}

	rows, err := s.queries.ListServicesByIDs(ctx, store.ListServicesByIDsParams{TenantID: tenantID, IDs: ids})
	if err != nil {
		return nil, nil, fmt.Errorf("load services: %w", err)
	}
	services := make([]pricing.Service, 0, len(rows))
	for _, row := range rows {
		services = append(services, pricing.Service{
			ID:       store.UUIDString(row.ID),
			Name:     row.Name,
			Price:    row.Price,
			Currency: row.Currency,
			Duration: int(row.DurationMinutes),
		})
	}
	return services, ids, nil
}

func (s *Service) currencyFor(services []pricing.Service) string {
	if len(services) > 0 && services[0].Currency != "" {
		return strings.ToUpper(services[0].Currency)
	}
	return s.defaultCurrency
}

func (s *Service) invalidateList(ctx context.Context) {
	key := cache.KeyBundleList(ctx)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("bundle cache invalidation failed")
	}
}

func (s *Service) countWrite(op, result string) {
	if obs.BundleWriteTotal != nil {
		obs.BundleWriteTotal.WithLabelValues(op, result).Inc()
	}
}

func (s *Service) countCompute(kind pricing.Kind) {
	if obs.PriceComputeTotal != nil {
		obs.PriceComputeTotal.WithLabelValues(string(kind)).Inc()
	}
}

func tenantError(err error) error {
	return common.NewAppError("TENANT_REQUIRED", "tenant could not be resolved", http.StatusBadRequest, err)
}

func validationError(fieldErrors []pricing.FieldError) error {
	return &common.AppError{
		Code:       "VALIDATION",
		Message:    "bundle payload failed validation",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    fieldErrors,
	}
}

func fromRow(row store.BundleRow) Bundle {
	payload := StrategyPayload{Kind: pricing.Kind(row.Kind)}
	switch payload.Kind {
	case pricing.KindFixed:
		if row.FixedPriceMinor.Valid {
			v := row.FixedPriceMinor.Int64
			payload.FixedPriceMinor = &v
		}
	case pricing.KindDiscount:
		if row.DiscountPercent.Valid {
			v := row.DiscountPercent.Float64
			payload.DiscountPercent = &v
		}
	}

	serviceIDs := make([]string, 0, len(row.ServiceIDs))
	for _, id := range row.ServiceIDs {
		serviceIDs = append(serviceIDs, store.UUIDString(id))
	}

	return Bundle{
		ID:                   store.UUIDString(row.ID),
		Name:                 row.Name,
		Description:          row.Description.String,
		Strategy:             payload,
		CalculatedPriceMinor: row.CalculatedPriceMinor,
		Currency:             row.Currency,
		ServiceIDs:           serviceIDs,
		CreatedAt:            row.CreatedAt.Time,
		UpdatedAt:            row.UpdatedAt.Time,
	}
}

func textValue(s string) pgtype.Text {
	trimmed := strings.TrimSpace(s)
	return pgtype.Text{String: trimmed, Valid: trimmed != ""}
}

func int8Value(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func float8Value(v *float64) pgtype.Float8 {
	if v == nil {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: *v, Valid: true}
}
