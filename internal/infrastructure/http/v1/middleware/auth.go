package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"scrapdesk/internal/core/apperror"
	appctx "scrapdesk/internal/core/context"
	"scrapdesk/internal/core/tenant"
)

// JWTValidator interface for token validation.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

// Auth middleware validates JWT tokens and populates user context.
// It runs after Tenant: the token's tenant must be the resolved one.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		user, err := validator.ValidateToken(parts[1])
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid token").WithCause(err))
			c.Abort()
			return
		}

		resolvedTenantID := tenant.GetTenantID(c.Request.Context())
		if resolvedTenantID == "" || !strings.EqualFold(resolvedTenantID, user.TenantID) {
			_ = c.Error(
				apperror.NewForbidden("tenant mismatch").
					WithDetail("header_tenant_id", resolvedTenantID).
					WithDetail("token_tenant_id", user.TenantID),
			)
			c.Abort()
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// DevAuth trusts every request as an admin of the resolved tenant. It
// replaces Auth when auth.disabled is set, which config refuses in
// production.
func DevAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		setUser(c, &appctx.UserContext{
			UserID:   "dev",
			TenantID: tenant.GetTenantID(c.Request.Context()),
			Roles:    []string{appctx.RoleAdmin},
		})
		c.Next()
	}
}

// RequireRole middleware checks if user has one of the roles. Admins
// pass every check.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if appctx.GetUser(ctx) == nil {
			abortUnauthorized(c, "authentication required")
			return
		}

		for _, required := range roles {
			if appctx.HasRole(ctx, required) {
				c.Next()
				return
			}
		}
		_ = c.Error(
			apperror.NewForbidden("insufficient permissions").
				WithDetail("required_roles", roles),
		)
		c.Abort()
	}
}

func setUser(c *gin.Context, user *appctx.UserContext) {
	c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), user))
	c.Set("user_id", user.UserID)
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
