// Package main is the entry point for the ScrapDesk housekeeping worker.
// It purges expired idempotency records and reports pool usage.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"scrapdesk/internal/config"
	"scrapdesk/internal/infrastructure/storage/postgres"
	"scrapdesk/pkg/logger"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting scrapdesk worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.AppName = cfg.App.Name + "-worker"
	poolCfg.MaxConns = 2
	poolCfg.MinConns = 1

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool, cfg.Database.StatementTimeout)
	worker := NewWorker(postgres.NewIdempotencyStore(txManager, 0), pool, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// IdempotencyCleaner removes replay records past their expiry.
type IdempotencyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// StatsLogger reports connection pool usage.
type StatsLogger interface {
	LogStats(ctx context.Context)
}

// Worker runs periodic maintenance jobs.
type Worker struct {
	idempotency IdempotencyCleaner
	pool        StatsLogger
	log         *logger.Logger

	cleanupInterval time.Duration
	statsInterval   time.Duration
}

func NewWorker(idempotency IdempotencyCleaner, pool StatsLogger, log *logger.Logger) *Worker {
	return &Worker{
		idempotency:     idempotency,
		pool:            pool,
		log:             log.WithComponent("worker"),
		cleanupInterval: time.Hour,
		statsInterval:   5 * time.Minute,
	}
}

// Run blocks until ctx is cancelled. The cleanup also runs once on start.
func (w *Worker) Run(ctx context.Context) {
	cleanupTicker := time.NewTicker(w.cleanupInterval)
	defer cleanupTicker.Stop()

	statsTicker := time.NewTicker(w.statsInterval)
	defer statsTicker.Stop()

	ctx = logger.WithLogger(ctx, w.log)
	w.cleanupIdempotency(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanupTicker.C:
			w.cleanupIdempotency(ctx)
		case <-statsTicker.C:
			w.pool.LogStats(ctx)
		}
	}
}

func (w *Worker) cleanupIdempotency(ctx context.Context) {
	removed, err := w.idempotency.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("failed to clean up idempotency keys", "error", err)
		return
	}
	if removed > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", removed)
	}
}
