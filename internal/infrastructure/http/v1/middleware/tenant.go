package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/core/tenant"
	"scrapdesk/pkg/logger"
)

// TenantHeader is the HTTP header for tenant identification.
const TenantHeader = "X-Tenant-ID"

// TenantResolver looks a tenant up by id.
type TenantResolver interface {
	GetByID(ctx context.Context, tenantID string) (*tenant.Tenant, error)
}

// Tenant middleware resolves the tenant from the X-Tenant-ID header and puts
// it into the request context. It must run before any tenant-scoped
// repository is called.
func Tenant(resolver TenantResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		rawTenantID := c.GetHeader(TenantHeader)
		if rawTenantID == "" {
			_ = c.Error(
				apperror.NewValidation("tenant is required").
					WithDetail("header", TenantHeader),
			)
			c.Abort()
			return
		}

		tenantUUID, err := uuid.Parse(rawTenantID)
		if err != nil {
			_ = c.Error(
				apperror.NewValidation("invalid tenant id").
					WithDetail("header", TenantHeader).
					WithDetail("value", rawTenantID),
			)
			c.Abort()
			return
		}
		tenantID := tenantUUID.String()

		t, err := resolver.GetByID(ctx, tenantID)
		if err != nil {
			switch {
			case errors.Is(err, tenant.ErrTenantNotFound):
				_ = c.Error(apperror.NewNotFound("tenant", tenantID))
			default:
				logger.Warn(ctx, "tenant lookup failed", "tenant_id", tenantID, "error", err)
				_ = c.Error(apperror.NewInternal(err).WithDetail("tenant_id", tenantID))
			}
			c.Abort()
			return
		}
		if !t.IsActive() {
			_ = c.Error(apperror.NewForbidden("tenant is not active").WithDetail("tenant_id", tenantID))
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(tenant.WithTenant(ctx, t))
		c.Set("tenant_id", t.ID)

		c.Next()
	}
}
