// Package main provides CLI for tenant management.
// Usage: tenant create --slug acme --name "ACME Recycling"
//
//	tenant list
//	tenant suspend <tenant-id>
//	tenant activate <tenant-id>
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"scrapdesk/internal/config"
	"scrapdesk/internal/core/tenant"
	"scrapdesk/internal/infrastructure/storage/postgres"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "create":
		createTenant(ctx)
	case "list":
		listTenants(ctx)
	case "suspend":
		setStatus(ctx, tenant.StatusSuspended)
	case "activate":
		setStatus(ctx, tenant.StatusActive)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ScrapDesk Tenant Management CLI

Usage:
  tenant <command> [options]

Commands:
  create    Create a new tenant
  list      List all tenants
  suspend   Suspend a tenant
  activate  Activate a suspended tenant
  help      Show this help

Environment Variables:
  SCRAPDESK_DATABASE_DSN   Connection string (required in production)

Examples:
  tenant create --slug acme --name "ACME Recycling"
  tenant list
  tenant suspend <tenant-uuid>
  tenant activate <tenant-uuid>`)
}

func openRegistry(ctx context.Context) (*tenant.PostgresRegistry, func()) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.AppName = cfg.App.Name + "-tenant-cli"
	poolCfg.MaxConns = 2
	poolCfg.MinConns = 0

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}

	return tenant.NewPostgresRegistry(pool.Pool), pool.Close
}

func createTenant(ctx context.Context) {
	var in tenant.CreateTenantInput

	// Parse arguments
	for i := 2; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "--slug":
			if i+1 < len(os.Args) {
				in.Slug = os.Args[i+1]
				i++
			}
		case "--name":
			if i+1 < len(os.Args) {
				in.DisplayName = os.Args[i+1]
				i++
			}
		}
	}

	if err := in.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("Usage: tenant create --slug <slug> --name <name>")
		os.Exit(1)
	}

	registry, closeFn := openRegistry(ctx)
	defer closeFn()

	fmt.Printf("Creating tenant '%s'...\n", in.Slug)

	t := &tenant.Tenant{
		Slug:        in.Slug,
		DisplayName: in.DisplayName,
		Status:      tenant.StatusActive,
	}
	if err := registry.Create(ctx, t); err != nil {
		fmt.Printf("Error registering tenant: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✓ Tenant '%s' created successfully!\n", in.Slug)
	fmt.Printf("  Tenant ID: %s\n", t.ID)
	fmt.Printf("  Status: %s\n", t.Status)
	fmt.Println("  Run 'SEED_TENANT_SLUG=" + t.Slug + " seed' to load the default materials.")
}

func listTenants(ctx context.Context) {
	registry, closeFn := openRegistry(ctx)
	defer closeFn()

	tenants, err := registry.ListAll(ctx)
	if err != nil {
		fmt.Printf("Error listing tenants: %v\n", err)
		os.Exit(1)
	}

	if len(tenants) == 0 {
		fmt.Println("No tenants found")
		return
	}

	fmt.Printf("%-36s %-20s %-30s %-10s\n", "TENANT_ID", "SLUG", "NAME", "STATUS")
	fmt.Println(strings.Repeat("-", 99))

	for _, t := range tenants {
		fmt.Printf("%-36s %-20s %-30s %-10s\n",
			truncate(t.ID, 36),
			truncate(t.Slug, 20),
			truncate(t.DisplayName, 30),
			t.Status,
		)
	}
}

func setStatus(ctx context.Context, status tenant.Status) {
	if len(os.Args) < 3 {
		fmt.Printf("Usage: tenant %s <tenant-uuid>\n", os.Args[1])
		os.Exit(1)
	}

	tenantID := os.Args[2]

	registry, closeFn := openRegistry(ctx)
	defer closeFn()

	if err := registry.UpdateStatusByID(ctx, tenantID, status); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Tenant '%s' is now %s\n", tenantID, status)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
