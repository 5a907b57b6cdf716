// Package tenant scopes GORM operations to the tenant carried by the context.
//
// Tables registered with EnableIsolation get tenant_id = ? injected into
// every SELECT, UPDATE and DELETE, and tenant_id stamped on INSERT. A context
// without a tenant id is refused. System jobs that must cross tenants (the
// scheduler's store listing, webhook store resolution) mark their context
// with WithSystemScope; there is no implicit bypass.
//
// Usage:
//
//	ctx = tenant.ContextFor(ctx, store.TenantID)
//	db.WithContext(ctx).Find(&orders) // WHERE orders.tenant_id = '...'
package tenant

import (
	"context"
	"errors"

	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrTenantIDRequired is returned when an operation runs without a tenant id
	ErrTenantIDRequired = errors.New("tenant: tenant_id is required but not found in context")
	// ErrInvalidTenantID is returned when the context tenant id is not a UUID
	ErrInvalidTenantID = errors.New("tenant: invalid tenant_id format")
	// ErrTenantMismatch is returned when a row being created names another tenant
	ErrTenantMismatch = errors.New("tenant: row belongs to a different tenant")
)

type systemScopeKey struct{}

// WithSystemScope marks ctx as a system-level operation that may read and
// write across tenants
func WithSystemScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, systemScopeKey{}, true)
}

// IsSystemScope reports whether ctx carries the system scope marker
func IsSystemScope(ctx context.Context) bool {
	v, _ := ctx.Value(systemScopeKey{}).(bool)
	return v
}

// ContextFor returns ctx scoped to tenantID. The logger attached to ctx is
// enriched with the tenant id as well.
func ContextFor(ctx context.Context, tenantID uuid.UUID) context.Context {
	ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), tenantID.String())
	return ctx
}

// FromContext returns the tenant id carried by ctx
func FromContext(ctx context.Context) (uuid.UUID, error) {
	raw := logger.GetTenantID(ctx)
	if raw == "" {
		return uuid.Nil, ErrTenantIDRequired
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidTenantID
	}
	return id, nil
}

// Owned is implemented by persistence models that carry a tenant id
type Owned interface {
	OwnerTenantID() uuid.UUID
}

// FindUnique loads a row by a globally unique key and hides it unless it
// belongs to the caller's tenant. The fetch runs in system scope so the
// ownership check, not the WHERE clause, decides visibility; a row owned by
// another tenant is reported as gorm.ErrRecordNotFound.
func FindUnique[T any](ctx context.Context, db *gorm.DB, query any, args ...any) (*T, error) {
	tenantID, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}

	var row T
	if err := db.WithContext(WithSystemScope(ctx)).Where(query, args...).First(&row).Error; err != nil {
		return nil, err
	}

	owned, ok := any(&row).(Owned)
	if !ok || owned.OwnerTenantID() != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

// Scope is an explicit tenant filter for queries that cannot rely on the
// registered callbacks (joins against unregistered tables)
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}
