// Package main is the entry point for the ScrapDesk API server.
// Multi-tenant architecture: shared database, tenant_id on every row.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scrapdesk/internal/config"
	"scrapdesk/internal/core/tenant"
	"scrapdesk/internal/domain/auth"
	"scrapdesk/internal/domain/cart"
	"scrapdesk/internal/domain/invoice"
	"scrapdesk/internal/domain/material"
	"scrapdesk/internal/domain/registers/stock"
	"scrapdesk/internal/domain/reports"
	v1 "scrapdesk/internal/infrastructure/http/v1"
	"scrapdesk/internal/infrastructure/http/v1/middleware"
	"scrapdesk/internal/infrastructure/metrics"
	"scrapdesk/internal/infrastructure/storage/postgres"
	"scrapdesk/internal/infrastructure/storage/postgres/catalog_repo"
	"scrapdesk/internal/infrastructure/storage/postgres/document_repo"
	"scrapdesk/internal/infrastructure/storage/postgres/register_repo"
	"scrapdesk/pkg/logger"
	"scrapdesk/pkg/numerator"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// idempotencyTTL is how long a completed response is replayed.
const idempotencyTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development || !cfg.IsProduction(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	log.Infow("starting scrapdesk server", "version", version, "env", cfg.App.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.AppName = cfg.App.Name
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.Database.MigrateOnStart {
		if err := migrate(ctx, pool); err != nil {
			log.Fatalw("failed to apply migrations", "error", err)
		}
	}

	txManager := postgres.NewTxManager(pool, cfg.Database.StatementTimeout)

	// --- Repositories ---
	materialRepo := catalog_repo.NewMaterialRepo(txManager)
	invoiceRepo := document_repo.NewInvoiceRepo(txManager)
	stockRepo := register_repo.NewStockRepo(txManager)

	// --- Services ---
	auditService, err := postgres.NewAuditService(txManager, cfg.Audit.CompressThreshold)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}

	numerators := numerator.NewWithResolver(func(ctx context.Context) numerator.Querier {
		return txManager.GetQuerier(ctx)
	})

	stockService := stock.NewService(stockRepo)
	materialService := material.NewService(materialRepo, stockService, txManager, auditService)
	invoiceService := invoice.NewService(invoiceRepo, materialRepo, stockService, numerators, txManager, auditService)
	cartService := cart.NewService(materialService)
	reportService := reports.NewService(materialService, invoiceService)

	// --- Metrics ---
	var appMetrics *metrics.Metrics
	if cfg.Metrics.Enabled {
		appMetrics = metrics.New()
		appMetrics.RegisterInvoiceHooks(invoiceService.Hooks())
	}

	// --- Tenants ---
	tenants := tenant.NewCachedRegistry(tenant.NewPostgresRegistry(pool.Pool), cfg.Tenant.CacheTTL)

	// --- JWT ---
	var jwtValidator middleware.JWTValidator
	if cfg.Auth.Disabled {
		log.Warn("authentication is disabled; every request runs as admin")
	} else {
		jwtConfig := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
		jwtConfig.Issuer = cfg.Auth.Issuer
		jwtValidator = auth.NewJWTService(jwtConfig)
	}

	var idempotency middleware.IdempotencyStore
	if cfg.HTTP.IdempotencyEnabled {
		idempotency = postgres.NewIdempotencyStore(txManager, idempotencyTTL)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		AppName:      cfg.App.Name,
		Version:      version,
		Database:     pool,
		Tenants:      tenants,
		JWTValidator: jwtValidator,
		Idempotency:  idempotency,
		Metrics:      appMetrics,
		MetricsPath:  cfg.Metrics.Path,
		Materials:    materialService,
		Movements:    stockService,
		Invoices:     invoiceService,
		Cart:         cartService,
		Reports:      reportService,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func migrate(ctx context.Context, pool *postgres.Pool) error {
	migrator, err := postgres.NewMigrator(pool)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()
	return migrator.Up(ctx)
}
