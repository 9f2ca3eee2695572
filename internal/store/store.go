package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx alike.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the persistence layer for the console. Every query is scoped by
// tenant id; callers resolve the tenant from the request context.
type Queries struct {
	db DBTX
}

// New constructs the query layer over the provided connection.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// ServiceRow is a catalog service as stored.
type ServiceRow struct {
	ID              pgtype.UUID
	TenantID        pgtype.UUID
	Name            string
	Price           float64
	Currency        string
	DurationMinutes int32
}

// BundleRow is a bundle as stored, strategy payload flattened into nullable
// columns with the kind tag as discriminator.
type BundleRow struct {
	ID                   pgtype.UUID
	TenantID             pgtype.UUID
	Name                 string
	Description          pgtype.Text
	Kind                 string
	FixedPriceMinor      pgtype.Int8
	DiscountPercent      pgtype.Float8
	CalculatedPriceMinor int64
	Currency             string
	ServiceIDs           []pgtype.UUID
	CreatedAt            pgtype.Timestamptz
	UpdatedAt            pgtype.Timestamptz
}

const listServicesByTenant = `
SELECT id, tenant_id, name, price, currency, duration_minutes
FROM services
WHERE tenant_id = $1
ORDER BY name
`

// ListServicesByTenant returns the tenant's full service catalog.
func (q *Queries) ListServicesByTenant(ctx context.Context, tenantID pgtype.UUID) ([]ServiceRow, error) {
	rows, err := q.db.Query(ctx, listServicesByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanServices(rows)
}

// ListServicesByIDsParams scopes a lookup to a tenant and an id set.
type ListServicesByIDsParams struct {
	TenantID pgtype.UUID
	IDs      []pgtype.UUID
}

const listServicesByIDs = `
SELECT id, tenant_id, name, price, currency, duration_minutes
FROM services
WHERE tenant_id = $1 AND id = ANY($2)
ORDER BY name
`

// ListServicesByIDs returns the subset of the tenant's services matching ids.
func (q *Queries) ListServicesByIDs(ctx context.Context, arg ListServicesByIDsParams) ([]ServiceRow, error) {
	rows, err := q.db.Query(ctx, listServicesByIDs, arg.TenantID, arg.IDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanServices(rows)
}

func scanServices(rows pgx.Rows) ([]ServiceRow, error) {
	var result []ServiceRow
	for rows.Next() {
		var row ServiceRow
		if err := rows.Scan(&row.ID, &row.TenantID, &row.Name, &row.Price, &row.Currency, &row.DurationMinutes); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

const bundleColumns = `id, tenant_id, name, description, kind, fixed_price_minor,
discount_percent, calculated_price_minor, currency, service_ids, created_at, updated_at`

const listBundlesByTenant = `
SELECT ` + bundleColumns + `
FROM bundles
WHERE tenant_id = $1
ORDER BY created_at DESC
`

// ListBundlesByTenant returns all of the tenant's bundles; filtering and
// sorting for display happen in process.
func (q *Queries) ListBundlesByTenant(ctx context.Context, tenantID pgtype.UUID) ([]BundleRow, error) {
	rows, err := q.db.Query(ctx, listBundlesByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []BundleRow
	for rows.Next() {
		row, err := scanBundle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// GetBundleParams identifies one tenant-owned bundle.
type GetBundleParams struct {
	TenantID pgtype.UUID
	ID       pgtype.UUID
}

const getBundleByID = `
SELECT ` + bundleColumns + `
FROM bundles
WHERE tenant_id = $1 AND id = $2
`

// GetBundleByID fetches a single bundle, returning pgx.ErrNoRows when the
// tenant owns no bundle with that id.
func (q *Queries) GetBundleByID(ctx context.Context, arg GetBundleParams) (BundleRow, error) {
	return scanBundle(q.db.QueryRow(ctx, getBundleByID, arg.TenantID, arg.ID))
}

// InsertBundleParams carries a new bundle's raw inputs plus the recomputed
// derived price.
type InsertBundleParams struct {
	TenantID             pgtype.UUID
	Name                 string
	Description          pgtype.Text
	Kind                 string
	FixedPriceMinor      pgtype.Int8
	DiscountPercent      pgtype.Float8
	CalculatedPriceMinor int64
	Currency             string
	ServiceIDs           []pgtype.UUID
}

const insertBundle = `
INSERT INTO bundles (tenant_id, name, description, kind, fixed_price_minor,
	discount_percent, calculated_price_minor, currency, service_ids)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + bundleColumns + `
`

// InsertBundle stores a new bundle and returns the persisted row.
func (q *Queries) InsertBundle(ctx context.Context, arg InsertBundleParams) (BundleRow, error) {
	return scanBundle(q.db.QueryRow(ctx, insertBundle,
		arg.TenantID, arg.Name, arg.Description, arg.Kind, arg.FixedPriceMinor,
		arg.DiscountPercent, arg.CalculatedPriceMinor, arg.Currency, arg.ServiceIDs))
}

// UpdateBundleParams carries replacement values for an existing bundle.
type UpdateBundleParams struct {
	TenantID             pgtype.UUID
	ID                   pgtype.UUID
	Name                 string
	Description          pgtype.Text
	Kind                 string
	FixedPriceMinor      pgtype.Int8
	DiscountPercent      pgtype.Float8
	CalculatedPriceMinor int64
	Currency             string
	ServiceIDs           []pgtype.UUID
}

const updateBundle = `
UPDATE bundles
SET name = $3, description = $4, kind = $5, fixed_price_minor = $6,
	discount_percent = $7, calculated_price_minor = $8, currency = $9,
	service_ids = $10, updated_at = now()
WHERE tenant_id = $1 AND id = $2
RETURNING ` + bundleColumns + `
`

// UpdateBundle replaces a bundle's fields, returning pgx.ErrNoRows when the
// tenant owns no bundle with that id.
func (q *Queries) UpdateBundle(ctx context.Context, arg UpdateBundleParams) (BundleRow, error) {
	return scanBundle(q.db.QueryRow(ctx, updateBundle,
		arg.TenantID, arg.ID, arg.Name, arg.Description, arg.Kind, arg.FixedPriceMinor,
		arg.DiscountPercent, arg.CalculatedPriceMinor, arg.Currency, arg.ServiceIDs))
}

// DeleteBundleParams identifies the bundle to delete.
type DeleteBundleParams struct {
	TenantID pgtype.UUID
	ID       pgtype.UUID
}

const deleteBundle = `
DELETE FROM bundles WHERE tenant_id = $1 AND id = $2
`

// DeleteBundle removes a bundle, returning pgx.ErrNoRows when nothing matched.
func (q *Queries) DeleteBundle(ctx context.Context, arg DeleteBundleParams) error {
	tag, err := q.db.Exec(ctx, deleteBundle, arg.TenantID, arg.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanBundle(row pgx.Row) (BundleRow, error) {
	var b BundleRow
	err := row.Scan(&b.ID, &b.TenantID, &b.Name, &b.Description, &b.Kind,
		&b.FixedPriceMinor, &b.DiscountPercent, &b.CalculatedPriceMinor,
		&b.Currency, &b.ServiceIDs, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}
