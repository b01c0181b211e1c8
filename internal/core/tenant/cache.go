package tenant

import (
	"context"
	"sync"
	"time"
)

type cachedTenant struct {
	tenant    *Tenant
	expiresAt time.Time
}

// CachedRegistry wraps a Registry and keeps positive GetByID results for ttl.
// Every request resolves its tenant, so the lookup is kept off the database.
type CachedRegistry struct {
	Registry

	ttl     time.Duration
	now     func() time.Time
	entries sync.Map // map[tenantID]cachedTenant
}

// NewCachedRegistry creates a caching wrapper. ttl <= 0 disables caching.
func NewCachedRegistry(next Registry, ttl time.Duration) *CachedRegistry {
	return &CachedRegistry{Registry: next, ttl: ttl, now: time.Now}
}

// GetByID returns the cached tenant when fresh, otherwise asks the wrapped registry.
func (r *CachedRegistry) GetByID(ctx context.Context, tenantID string) (*Tenant, error) {
	if r.ttl > 0 {
		if v, ok := r.entries.Load(tenantID); ok {
			entry := v.(cachedTenant)
			if r.now().Before(entry.expiresAt) {
				return entry.tenant, nil
			}
			r.entries.Delete(tenantID)
		}
	}

	t, err := r.Registry.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if r.ttl > 0 {
		r.entries.Store(tenantID, cachedTenant{tenant: t, expiresAt: r.now().Add(r.ttl)})
	}
	return t, nil
}

// UpdateStatusByID updates the wrapped registry and drops the cached entry.
func (r *CachedRegistry) UpdateStatusByID(ctx context.Context, tenantID string, status Status) error {
	r.entries.Delete(tenantID)
	return r.Registry.UpdateStatusByID(ctx, tenantID, status)
}

var _ Registry = (*CachedRegistry)(nil)
