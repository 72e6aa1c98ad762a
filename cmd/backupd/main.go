package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/edvin/backupd/internal/api"
	"github.com/edvin/backupd/internal/backup"
	"github.com/edvin/backupd/internal/config"
	"github.com/edvin/backupd/internal/db"
	"github.com/edvin/backupd/internal/executor"
	"github.com/edvin/backupd/internal/logging"
	"github.com/edvin/backupd/internal/metrics"
	"github.com/edvin/backupd/internal/store"
	"github.com/edvin/backupd/internal/store/memory"
	"github.com/edvin/backupd/internal/store/postgres"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		ledger        store.Ledger
		schedules     store.ScheduleRegistry
		restorePoints store.RestorePointStore
		pool          *pgxpool.Pool
	)
	if cfg.DatabaseURL != "" {
		if *migrateFlag {
			logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
			if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
				logger.Fatal().Err(err).Msg("migration failed")
			}
		}

		pool, err = db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		metrics.RegisterPgxPoolMetrics(pool)

		stores := postgres.New(pool)
		ledger = stores.Ledger
		schedules = stores.Schedules
		restorePoints = stores.RestorePoints
		logger.Info().Msg("using postgres stores")
	} else {
		ledger = memory.NewLedger(nil)
		schedules = memory.NewScheduleRegistry()
		restorePoints = memory.NewRestorePointStore()
		logger.Warn().Msg("DATABASE_URL not set, using in-memory stores")
	}

	exec, err := newExecutor(logger, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create executor")
	}

	engine := backup.NewEngine(logger, ledger, schedules, restorePoints, exec)

	// Records left mid-run by a previous process lifetime become
	// Failed before the scheduler starts.
	if n, err := engine.ReconcileOrphans(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to reconcile orphaned backups")
	} else if n > 0 {
		logger.Warn().Int("count", n).Msg("orphaned backups reconciled")
	}

	if cfg.ScheduleSeedFile != "" {
		if _, err := engine.SeedSchedules(ctx, cfg.ScheduleSeedFile); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.ScheduleSeedFile).Msg("failed to seed schedules")
		}
	}

	go func() {
		if err := engine.RunScheduler(ctx, cfg.SchedulerTick); err != nil {
			logger.Error().Err(err).Msg("scheduler stopped with error")
		}
	}()
	go runCleanupLoop(ctx, logger, engine, cfg.CleanupInterval)

	srv := api.NewServer(logger, engine, pool)
	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting backup API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	// Cancelling ctx stops the scheduler and fails any in-flight run
	// with a terminal record.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

func newExecutor(logger zerolog.Logger, cfg *config.Config) (backup.Executor, error) {
	switch cfg.Executor {
	case "s3":
		return executor.NewS3(logger, executor.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		}, cfg.SourceDir, cfg.EncryptionKey), nil
	default:
		return executor.NewLocal(logger, cfg.SourceDir, cfg.BackupDir, cfg.EncryptionKey)
	}
}

func runCleanupLoop(ctx context.Context, logger zerolog.Logger, engine *backup.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := engine.RunCleanup(ctx); err != nil {
				logger.Error().Err(err).Msg("retention sweep failed")
			}
		}
	}
}
