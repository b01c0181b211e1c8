// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appctx "scrapdesk/internal/core/context"
	"scrapdesk/internal/domain/invoice"
	"scrapdesk/internal/infrastructure/http/v1/handlers"
	"scrapdesk/internal/infrastructure/http/v1/middleware"
	"scrapdesk/internal/infrastructure/metrics"
	"scrapdesk/pkg/logger"
)

// MaterialService covers the catalog and the initial inventory; both are
// served by material.Service.
type MaterialService interface {
	handlers.MaterialService
	handlers.InventoryService
}

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// AppName and Version are reported by /health/info
	AppName string
	Version string

	// Database backs the readiness probe
	Database handlers.Database

	// Tenants resolves X-Tenant-ID
	Tenants middleware.TenantResolver

	// JWTValidator verifies bearer tokens. Nil trusts every request as an
	// admin (auth.disabled).
	JWTValidator middleware.JWTValidator

	// Idempotency stores X-Idempotency-Key responses. Nil disables it.
	Idempotency middleware.IdempotencyStore

	// Metrics collects HTTP and error metrics. Nil disables /metrics.
	Metrics     *metrics.Metrics
	MetricsPath string

	Materials MaterialService
	Movements handlers.MovementReader
	Invoices  handlers.InvoiceService
	Cart      handlers.CartChecker
	Reports   handlers.ReportService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
		router.Use(middleware.ErrorHandler(cfg.Metrics))
	} else {
		router.Use(middleware.ErrorHandler(nil))
	}

	// Health endpoints (no auth, no tenant required)
	healthHandler := handlers.NewHealthHandler(cfg.Database, cfg.AppName, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(cfg.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Tenant(cfg.Tenants)) // 1. Resolve tenant
	if cfg.JWTValidator != nil {
		v1.Use(middleware.Auth(cfg.JWTValidator)) // 2. Validate JWT against the tenant
	} else {
		v1.Use(middleware.DevAuth())
	}
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency)) // 3. Replay retried writes
	}

	base := handlers.NewBaseHandler()
	registerMaterialRoutes(v1, base, cfg)
	registerInvoiceRoutes(v1, base, cfg)
	registerReportRoutes(v1, base, cfg)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "route not found"})
	})

	return router
}

// registerMaterialRoutes registers the catalog and initial inventory.
func registerMaterialRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	admin := middleware.RequireRole(appctx.RoleAdmin)

	materialHandler := handlers.NewMaterialHandler(base, cfg.Materials, cfg.Movements)
	materials := rg.Group("/materials")
	{
		materials.GET("", materialHandler.List)
		materials.POST("", admin, materialHandler.Create)
		materials.POST("/defaults", admin, materialHandler.EnsureDefaults)
		materials.GET("/:id", materialHandler.Get)
		materials.PUT("/:id", admin, materialHandler.Update)
		materials.DELETE("/:id", admin, materialHandler.Delete)
		materials.GET("/:id/movements", materialHandler.Movements)
	}

	inventoryHandler := handlers.NewInventoryHandler(base, cfg.Materials)
	inventory := rg.Group("/inventory")
	{
		inventory.GET("/initial", inventoryHandler.Status)
		inventory.PUT("/initial", admin, inventoryHandler.Set)
	}
}

// registerInvoiceRoutes registers purchases, sales and the sale cart check.
func registerInvoiceRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	RegisterInvoiceRoutes(rg.Group("/purchases"), handlers.NewInvoiceHandler(base, cfg.Invoices, invoice.KindPurchase))

	sales := rg.Group("/sales")
	RegisterInvoiceRoutes(sales, handlers.NewInvoiceHandler(base, cfg.Invoices, invoice.KindSale))

	cartHandler := handlers.NewCartHandler(base, cfg.Cart)
	sales.POST("/cart/check", cartHandler.Check)
}

// registerReportRoutes registers the JSON reports and the Excel exports.
func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	reportHandler := handlers.NewReportsHandler(base, cfg.Reports)

	rg.GET("/reports/stock-balance", reportHandler.GetStockBalance)

	export := rg.Group("/export")
	{
		export.GET("/stock.xlsx", reportHandler.ExportStock)
		export.GET("/purchases.xlsx", reportHandler.ExportInvoices(invoice.KindPurchase))
		export.GET("/sales.xlsx", reportHandler.ExportInvoices(invoice.KindSale))
	}
}
