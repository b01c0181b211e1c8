// Package main provides a CLI tool for seeding a tenant with initial data.
//
// It creates the tenant if needed, loads the default material catalog and
// prints a development token. With SEED_DEMO_DATA=true it also books an
// opening inventory of 100 kg per material.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"scrapdesk/internal/config"
	appctx "scrapdesk/internal/core/context"
	"scrapdesk/internal/core/id"
	"scrapdesk/internal/core/tenant"
	"scrapdesk/internal/core/types"
	"scrapdesk/internal/domain/auth"
	"scrapdesk/internal/domain/material"
	"scrapdesk/internal/domain/registers/stock"
	"scrapdesk/internal/infrastructure/storage/postgres"
	"scrapdesk/internal/infrastructure/storage/postgres/catalog_repo"
	"scrapdesk/internal/infrastructure/storage/postgres/register_repo"
	"scrapdesk/pkg/logger"
)

const seedUserID = "seed"

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	t, err := seedTenant(ctx, tenant.NewPostgresRegistry(pool.Pool), log)
	if err != nil {
		log.Fatalw("failed to seed tenant", "error", err)
	}

	ctx = tenant.WithTenant(ctx, t)
	ctx = appctx.WithUser(ctx, &appctx.UserContext{
		UserID:   seedUserID,
		TenantID: t.ID,
		Roles:    []string{appctx.RoleAdmin},
	})
	ctx = logger.WithLogger(ctx, log.With("tenant_id", t.ID))

	txManager := postgres.NewTxManager(pool, cfg.Database.StatementTimeout)
	auditService, err := postgres.NewAuditService(txManager, cfg.Audit.CompressThreshold)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}
	stockService := stock.NewService(register_repo.NewStockRepo(txManager))
	materials := material.NewService(catalog_repo.NewMaterialRepo(txManager), stockService, txManager, auditService)

	created, err := materials.EnsureDefaults(ctx)
	if err != nil {
		log.Fatalw("failed to seed default materials", "error", err)
	}
	log.Infow("default materials ensured", "created", created)

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedInventory(ctx, materials, log); err != nil {
			log.Fatalw("failed to seed demo inventory", "error", err)
		}
	}

	if cfg.Auth.JWTSecret != "" {
		jwtConfig := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
		jwtConfig.Issuer = cfg.Auth.Issuer
		token, expiresAt, err := auth.NewJWTService(jwtConfig).
			GenerateAccessToken(seedUserID, t.ID, "", []string{appctx.RoleAdmin})
		if err != nil {
			log.Fatalw("failed to issue token", "error", err)
		}
		fmt.Printf("\nX-Tenant-ID: %s\nAuthorization: Bearer %s\n(expires %s)\n", t.ID, token, expiresAt.Format("15:04:05"))
	}

	log.Info("seeding completed successfully")
}

// seedTenant returns the tenant named by SEED_TENANT_SLUG, creating it on
// first run.
func seedTenant(ctx context.Context, registry *tenant.PostgresRegistry, log *logger.Logger) (*tenant.Tenant, error) {
	in := tenant.CreateTenantInput{
		Slug:        getEnv("SEED_TENANT_SLUG", "demo"),
		DisplayName: getEnv("SEED_TENANT_NAME", "Demo Recycling"),
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := registry.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range existing {
		if t.Slug == in.Slug {
			log.Infow("tenant already exists", "slug", t.Slug, "tenant_id", t.ID)
			return t, nil
		}
	}

	t := &tenant.Tenant{Slug: in.Slug, DisplayName: in.DisplayName, Status: tenant.StatusActive}
	if err := registry.Create(ctx, t); err != nil {
		return nil, err
	}
	log.Infow("tenant created", "slug", t.Slug, "tenant_id", t.ID)
	return t, nil
}

func seedInventory(ctx context.Context, materials *material.Service, log *logger.Logger) error {
	status, err := materials.InventoryStatus(ctx)
	if err != nil {
		return err
	}
	if !status.Allowed {
		log.Info("stock already recorded, skipping demo inventory")
		return nil
	}

	all, err := materials.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return errors.New("no materials to stock")
	}

	in := material.InitialInventory{Quantities: make(map[id.ID]types.Quantity, len(all))}
	for _, m := range all {
		in.Quantities[m.ID] = types.NewQuantity(100)
	}

	n, err := materials.SetInitialInventory(ctx, in)
	if err != nil {
		return err
	}
	log.Infow("demo inventory recorded", "materials", n)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
