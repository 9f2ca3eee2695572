package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/arvello/backend-console/internal/tenant"
)

var (
	// ErrTenantMissing indicates the tenant identifier was not found in context.
	ErrTenantMissing = errors.New("tenant missing")
	// ErrTenantInvalid indicates the tenant identifier could not be parsed.
	ErrTenantInvalid = errors.New("tenant invalid")
)

// TenantUUID resolves the tenant id from the request context into its
// database representation.
func TenantUUID(ctx context.Context) (pgtype.UUID, error) {
	tenantID, ok := tenant.From(ctx)
	if !ok {
		return pgtype.UUID{}, ErrTenantMissing
	}
	tid, err := UUIDValue(tenantID)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("%w: %v", ErrTenantInvalid, err)
	}
	return tid, nil
}

// UUIDValue parses a string id into a pgtype.UUID.
func UUIDValue(id string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

// UUIDString renders a pgtype.UUID back to its canonical string form.
func UUIDString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
