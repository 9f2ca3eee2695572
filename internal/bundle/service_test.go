package bundle

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/arvello/backend-console/internal/common"
	"github.com/arvello/backend-console/internal/pricing"
	"github.com/arvello/backend-console/internal/store"
	"github.com/arvello/backend-console/internal/tenant"
)

const (
	testTenantID = "7f6a2a8e-33cd-4df5-9f8c-d47f4f2f78f5"
	svcA         = "11111111-1111-4111-8111-111111111111"
	svcB         = "22222222-2222-4222-8222-222222222222"
	svcC         = "33333333-3333-4333-8333-333333333333"
	bundleID1    = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
)

type fakeQueries struct {
	services []store.ServiceRow
	bundles  []store.BundleRow

	insertErr error
	updateErr error
	deleteErr error

	lastInsert *store.InsertBundleParams
	lastUpdate *store.UpdateBundleParams
	lastDelete *store.DeleteBundleParams
}

func (f *fakeQueries) ListBundlesByTenant(context.Context, pgtype.UUID) ([]store.BundleRow, error) {
	return f.bundles, nil
}

func (f *fakeQueries) GetBundleByID(_ context.Context, arg store.GetBundleParams) (store.BundleRow, error) {
	for _, b := range f.bundles {
		if b.ID == arg.ID {
			return b, nil
		}
	}
	return store.BundleRow{}, pgx.ErrNoRows
}

func (f *fakeQueries) InsertBundle(_ context.Context, arg store.InsertBundleParams) (store.BundleRow, error) {
	if f.insertErr != nil {
		return store.BundleRow{}, f.insertErr
	}
	f.lastInsert = &arg
	id, _ := store.UUIDValue(bundleID1)
	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	return store.BundleRow{
		ID: id, TenantID: arg.TenantID, Name: arg.Name, Description: arg.Description,
		Kind: arg.Kind, FixedPriceMinor: arg.FixedPriceMinor, DiscountPercent: arg.DiscountPercent,
		CalculatedPriceMinor: arg.CalculatedPriceMinor, Currency: arg.Currency,
		ServiceIDs: arg.ServiceIDs, CreatedAt: now, UpdatedAt: now,
	}, nil
}

func (f *fakeQueries) UpdateBundle(_ context.Context, arg store.UpdateBundleParams) (store.BundleRow, error) {
	if f.updateErr != nil {
		return store.BundleRow{}, f.updateErr
	}
	f.lastUpdate = &arg
	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	return store.BundleRow{
		ID: arg.ID, TenantID: arg.TenantID, Name: arg.Name, Description: arg.Description,
		Kind: arg.Kind, FixedPriceMinor: arg.FixedPriceMinor, DiscountPercent: arg.DiscountPercent,
		CalculatedPriceMinor: arg.CalculatedPriceMinor, Currency: arg.Currency,
		ServiceIDs: arg.ServiceIDs, CreatedAt: now, UpdatedAt: now,
	}, nil
}

func (f *fakeQueries) DeleteBundle(_ context.Context, arg store.DeleteBundleParams) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.lastDelete = &arg
	return nil
}

func (f *fakeQueries) ListServicesByIDs(_ context.Context, arg store.ListServicesByIDsParams) ([]store.ServiceRow, error) {
	var out []store.ServiceRow
	for _, row := range f.services {
		for _, id := range arg.IDs {
			if row.ID == id {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func testService(t *testing.T, queries *fakeQueries) *Service {
	t.Helper()
	return NewService(ServiceConfig{Queries: queries, Logger: zerolog.Nop(), DefaultCurrency: "EUR"})
}

func tenantContext(t *testing.T) context.Context {
	t.Helper()
	return tenant.WithTenant(context.Background(), testTenantID)
}

func serviceRow(t *testing.T, id string, price float64) store.ServiceRow {
	t.Helper()
	uid, err := store.UUIDValue(id)
	require.NoError(t, err)
	return store.ServiceRow{ID: uid, Name: "svc", Price: price, Currency: "EUR", DurationMinutes: 30}
}

func catalogFixture(t *testing.T) *fakeQueries {
	t.Helper()
	return &fakeQueries{services: []store.ServiceRow{
		serviceRow(t, svcA, 10.00),
		serviceRow(t, svcB, 15.50),
		serviceRow(t, svcC, 4.49),
	}}
}

func sumInput(ids ...string) Input {
	return Input{
		Name:       "Starter pack",
		Strategy:   StrategyPayload{Kind: pricing.KindSum},
		ServiceIDs: ids,
	}
}

func appErr(t *testing.T, err error) *common.AppError {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr
}

func TestCreateComputesSumPrice(t *testing.T) {
	queries := catalogFixture(t)
	svc := testService(t, queries)

	created, err := svc.Create(tenantContext(t), sumInput(svcA, svcB))
	require.NoError(t, err)
	require.Equal(t, int64(2550), created.CalculatedPriceMinor)
	require.Equal(t, "EUR", created.Currency)
	require.Equal(t, pricing.KindSum, created.Strategy.Kind)
	require.NotNil(t, queries.lastInsert)
	require.Equal(t, int64(2550), queries.lastInsert.CalculatedPriceMinor)
}

func TestCreateIgnoresClientSuppliedPrice(t *testing.T) {
	// The input shape has no price field at all; decoding a payload that
	// carries one must not influence the stored value.
	queries := catalogFixture(t)
	svc := testService(t, queries)

	fixed := int64(2000)
	input := sumInput(svcA, svcB)
	input.Strategy = StrategyPayload{Kind: pricing.KindFixed, FixedPriceMinor: &fixed}

	created, err := svc.Create(tenantContext(t), input)
	require.NoError(t, err)
	require.Equal(t, int64(2000), created.CalculatedPriceMinor)
	require.Equal(t, pricing.KindFixed, created.Strategy.Kind)
}

func TestCreateDiscountRoundsHalfUp(t *testing.T) {
	queries := catalogFixture(t)
	svc := testService(t, queries)

	pct := 20.0
	input := sumInput(svcA, svcB)
	input.Strategy = StrategyPayload{Kind: pricing.KindDiscount, DiscountPercent: &pct}

	created, err := svc.Create(tenantContext(t), input)
	require.NoError(t, err)
	require.Equal(t, int64(2040), created.CalculatedPriceMinor)
}

func TestCreateRejectsSingleService(t *testing.T) {
	svc := testService(t, catalogFixture(t))

	_, err := svc.Create(tenantContext(t), sumInput(svcA))
	ae := appErr(t, err)
	require.Equal(t, "VALIDATION", ae.Code)
	fieldErrors, ok := ae.Details.([]pricing.FieldError)
	require.True(t, ok)
	require.Equal(t, pricing.CodeBelowMinimum, fieldErrors[0].Code)
}

func TestCreateRejectsDuplicateOnlySelection(t *testing.T) {
	svc := testService(t, catalogFixture(t))

	_, err := svc.Create(tenantContext(t), sumInput(svcA, svcA))
	ae := appErr(t, err)
	require.Equal(t, "VALIDATION", ae.Code)
}

func TestCreateRejectsUnknownService(t *testing.T) {
	svc := testService(t, catalogFixture(t))

	_, err := svc.Create(tenantContext(t), sumInput(svcA, "44444444-4444-4444-8444-444444444444"))
	ae := appErr(t, err)
	require.Equal(t, "VALIDATION", ae.Code)
}

func TestCreateRejectsInvalidStrategyPayload(t *testing.T) {
	svc := testService(t, catalogFixture(t))

	pct := 150.0
	input := sumInput(svcA, svcB)
	input.Strategy = StrategyPayload{Kind: pricing.KindDiscount, DiscountPercent: &pct}

	_, err := svc.Create(tenantContext(t), input)
	ae := appErr(t, err)
	require.Equal(t, "VALIDATION", ae.Code)
	fieldErrors, ok := ae.Details.([]pricing.FieldError)
	require.True(t, ok)
	require.Equal(t, pricing.CodeOutOfRange, fieldErrors[0].Code)
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	svc := testService(t, catalogFixture(t))

	input := sumInput(svcA, svcB)
	input.Strategy = StrategyPayload{Kind: "tiered"}

	_, err := svc.Create(tenantContext(t), input)
	ae := appErr(t, err)
	require.Equal(t, "VALIDATION", ae.Code)
}

func TestCreateRequiresName(t *testing.T) {
	svc := testService(t, catalogFixture(t))

	input := sumInput(svcA, svcB)
	input.Name = ""

	_, err := svc.Create(tenantContext(t), input)
	ae := appErr(t, err)
	require.Equal(t, "VALIDATION", ae.Code)
}

func TestUpdateRecomputesPrice(t *testing.T) {
	queries := catalogFixture(t)
	svc := testService(t, queries)

	updated, err := svc.Update(tenantContext(t), bundleID1, sumInput(svcA, svcB, svcC))
	require.NoError(t, err)
	require.Equal(t, int64(2999), updated.CalculatedPriceMinor)
	require.NotNil(t, queries.lastUpdate)
}

func TestUpdateMissingBundleIsNotFound(t *testing.T) {
	queries := catalogFixture(t)
	queries.updateErr = pgx.ErrNoRows
	svc := testService(t, queries)

	_, err := svc.Update(tenantContext(t), bundleID1, sumInput(svcA, svcB))
	ae := appErr(t, err)
	require.Equal(t, "NOT_FOUND", ae.Code)
}

func TestDeleteMissingBundleIsNotFound(t *testing.T) {
	queries := catalogFixture(t)
	queries.deleteErr = pgx.ErrNoRows
	svc := testService(t, queries)

	err := svc.Delete(tenantContext(t), bundleID1)
	ae := appErr(t, err)
	require.Equal(t, "NOT_FOUND", ae.Code)
}

func TestGetMalformedIDIsNotFound(t *testing.T) {
	svc := testService(t, catalogFixture(t))

	_, err := svc.Get(tenantContext(t), "not-a-uuid")
	ae := appErr(t, err)
	require.Equal(t, "NOT_FOUND", ae.Code)
}

func TestWritesRequireTenant(t *testing.T) {
	svc := testService(t, catalogFixture(t))

	_, err := svc.Create(context.Background(), sumInput(svcA, svcB))
	ae := appErr(t, err)
	require.Equal(t, "TENANT_REQUIRED", ae.Code)
}

func TestPreviewSumStrategy(t *testing.T) {
	svc := testService(t, catalogFixture(t))

	preview, err := svc.PreviewPrice(tenantContext(t), PreviewInput{
		Strategy:   StrategyPayload{Kind: pricing.KindSum},
		ServiceIDs: []string{svcA, svcB},
		Touched:    true,
	})
	require.NoError(t, err)
	require.True(t, preview.Available)
	require.Equal(t, int64(2550), preview.SumMinor)
	require.Equal(t, int64(2550), preview.FinalPriceMinor)
	require.Equal(t, int64(0), preview.DeltaMinor)
	require.False(t, preview.MaterialDelta)
}

func TestPreviewFixedStrategyReportsSavings(t *testing.T) {
	svc := testService(t, catalogFixture(t))

	fixed := int64(2000)
	preview, err := svc.PreviewPrice(tenantContext(t), PreviewInput{
		Strategy:   StrategyPayload{Kind: pricing.KindFixed, FixedPriceMinor: &fixed},
		ServiceIDs: []string{svcA, svcB},
		Touched:    true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(-550), preview.DeltaMinor)
	require.True(t, preview.MaterialDelta)
	require.Equal(t, "€20.00", preview.Display)
}

func TestPreviewUnavailableBelowTwoServices(t *testing.T) {
	svc := testService(t, catalogFixture(t))

	preview, err := svc.PreviewPrice(tenantContext(t), PreviewInput{
		Strategy:   StrategyPayload{Kind: pricing.KindSum},
		ServiceIDs: []string{svcA},
		Touched:    true,
	})
	require.NoError(t, err)
	require.False(t, preview.Available)
	require.Equal(t, int64(0), preview.FinalPriceMinor)
	require.NotEmpty(t, preview.FieldErrors)
}

func TestPreviewUntouchedSelectionSuppressesMinimumError(t *testing.T) {
	svc := testService(t, catalogFixture(t))

	preview, err := svc.PreviewPrice(tenantContext(t), PreviewInput{
		Strategy:   StrategyPayload{Kind: pricing.KindSum},
		ServiceIDs: []string{svcA},
	})
	require.NoError(t, err)
	require.False(t, preview.Available)
	require.Empty(t, preview.FieldErrors)
}

func TestListAppliesFilterSpec(t *testing.T) {
	queries := catalogFixture(t)
	id1, _ := store.UUIDValue(bundleID1)
	queries.bundles = []store.BundleRow{{
		ID: id1, Name: "Starter", Kind: string(pricing.KindSum),
		CalculatedPriceMinor: 2550, Currency: "EUR",
		CreatedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
		UpdatedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}}
	svc := testService(t, queries)

	spec := DefaultFilterSpec()
	spec.Search = "starter"
	bundles, err := svc.List(tenantContext(t), spec)
	require.NoError(t, err)
	require.Len(t, bundles, 1)

	spec.Search = "premium"
	bundles, err = svc.List(tenantContext(t), spec)
	require.NoError(t, err)
	require.Empty(t, bundles)
}
