package tenant

import (
	"context"
)

type ctxKey int

const tenantKey ctxKey = iota

// WithTenant stores tenant info in context.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// WithTenantID stores a bare tenant id. Used by CLIs and tests.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return WithTenant(ctx, &Tenant{ID: tenantID, Status: StatusActive})
}

// GetTenant retrieves tenant from context.
func GetTenant(ctx context.Context) *Tenant {
	t, _ := ctx.Value(tenantKey).(*Tenant)
	return t
}

// GetTenantID returns tenant ID or empty string.
func GetTenantID(ctx context.Context) string {
	if t := GetTenant(ctx); t != nil {
		return t.ID
	}
	return ""
}

// RequireTenantID returns the tenant ID or ErrNoTenantInContext.
func RequireTenantID(ctx context.Context) (string, error) {
	if id := GetTenantID(ctx); id != "" {
		return id, nil
	}
	return "", ErrNoTenantInContext
}
