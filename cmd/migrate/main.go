// Package main applies the embedded schema migrations.
// Usage: migrate [up|down|status]
package main

import (
	"context"
	"fmt"
	"os"

	"scrapdesk/internal/config"
	"scrapdesk/internal/infrastructure/storage/postgres"
	"scrapdesk/pkg/logger"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := logger.WithLogger(context.Background(), log)

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.AppName = cfg.App.Name + "-migrate"
	poolCfg.MaxConns = 2
	poolCfg.MinConns = 0

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	migrator, err := postgres.NewMigrator(pool)
	if err != nil {
		log.Fatalw("failed to create migrator", "error", err)
	}
	defer func() { _ = migrator.Close() }()

	switch command {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "status":
		err = printStatus(ctx, migrator)
	default:
		fmt.Printf("Unknown command: %s\nUsage: migrate [up|down|status]\n", command)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalw("migration failed", "command", command, "error", err)
	}
}

func printStatus(ctx context.Context, migrator *postgres.Migrator) error {
	statuses, err := migrator.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%-8s %-10s %-20s %s\n", "VERSION", "STATE", "APPLIED_AT", "SOURCE")
	for _, st := range statuses {
		applied := "-"
		if !st.AppliedAt.IsZero() {
			applied = st.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-8d %-10s %-20s %s\n", st.Source.Version, st.State, applied, st.Source.Path)
	}
	return nil
}
