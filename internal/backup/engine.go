// Package backup implements the backup engine: creating backup runs
// through a pluggable executor, recording them in the ledger, driving
// scheduled runs, enforcing retention, and coordinating restores and
// integrity checks.
package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/platform"
	"github.com/edvin/backupd/internal/store"
)

// Default retention windows applied when a request does not set one.
const (
	DefaultRetentionFullDays  = 30
	DefaultRetentionOtherDays = 7
)

// Engine is the orchestration facade. All mutation of backup state
// flows through it and the stores it owns references to.
type Engine struct {
	logger        zerolog.Logger
	ledger        store.Ledger
	schedules     store.ScheduleRegistry
	restorePoints store.RestorePointStore
	executor      Executor
	notifier      Notifier
	now           func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock injects the time source. Tests use a fixed clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithNotifier replaces the default log-based notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func NewEngine(logger zerolog.Logger, ledger store.Ledger, schedules store.ScheduleRegistry, restorePoints store.RestorePointStore, executor Executor, opts ...Option) *Engine {
	e := &Engine{
		logger:        logger.With().Str("component", "backup-engine").Logger(),
		ledger:        ledger,
		schedules:     schedules,
		restorePoints: restorePoints,
		executor:      executor,
		now:           time.Now,
	}
	e.notifier = &logNotifier{logger: e.logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateOptions tunes a single backup run. Zero values fall back to
// the defaults: compress and encrypt on, all tables, retention per
// kind.
type CreateOptions struct {
	Compress      *bool
	Encrypt       *bool
	Tables        []string
	RetentionDays int
}

func defaultRetention(kind model.BackupKind) int {
	if kind == model.KindFull {
		return DefaultRetentionFullDays
	}
	return DefaultRetentionOtherDays
}

// CreateBackup runs one backup attempt end to end. The record is
// appended to the ledger before the executor is invoked, so a crash
// mid-run never leaves an invisible backup. An executor failure is
// recorded as a Failed record and returned normally; the error return
// reports only ledger faults. Every invocation makes exactly one
// terminal transition.
func (e *Engine) CreateBackup(ctx context.Context, kind model.BackupKind, opts CreateOptions) (*model.BackupRecord, error) {
	compress := opts.Compress == nil || *opts.Compress
	encrypt := opts.Encrypt == nil || *opts.Encrypt
	tables := opts.Tables
	if len(tables) == 0 {
		tables = model.TablesAll
	}
	retention := opts.RetentionDays
	if retention <= 0 {
		retention = defaultRetention(kind)
	}

	rec := &model.BackupRecord{
		ID:            platform.NewID(),
		Kind:          kind,
		Status:        model.StatusPending,
		Tables:        tables,
		Compressed:    compress,
		Encrypted:     encrypt,
		RetentionDays: retention,
		CreatedAt:     e.now(),
	}
	if err := e.ledger.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("append backup record: %w", err)
	}
	// Transition returns a nil record on a ledger fault; keep the id
	// in a local so the error paths never touch rec.
	id := rec.ID

	rec, err := e.ledger.Transition(ctx, id, model.StatusInProgress, store.TransitionFields{})
	if err != nil {
		return nil, fmt.Errorf("start backup %s: %w", id, err)
	}

	e.logger.Info().Str("backup_id", id).Str("kind", string(kind)).
		Strs("tables", tables).Msg("backup started")
	backupsInProgress.Inc()
	start := e.now()

	result, execErr := e.executor.Backup(ctx, id, tables, ExecuteOptions{Compress: compress, Encrypt: encrypt})

	backupsInProgress.Dec()
	backupDuration.Observe(e.now().Sub(start).Seconds())

	if execErr != nil {
		return e.failBackup(ctx, id, kind, execErr)
	}

	completed := e.now()
	rec, err = e.ledger.Transition(ctx, id, model.StatusCompleted, store.TransitionFields{
		SizeBytes:   result.SizeBytes,
		RecordCount: result.RecordCount,
		StoragePath: result.StoragePath,
		Checksum:    result.Checksum,
		CompletedAt: &completed,
	})
	if err != nil {
		return nil, fmt.Errorf("complete backup %s: %w", id, err)
	}

	backupsTotal.WithLabelValues(string(kind), string(model.StatusCompleted)).Inc()
	backupBytesWritten.Add(float64(result.SizeBytes))
	e.logger.Info().Str("backup_id", rec.ID).Int64("size_bytes", result.SizeBytes).
		Str("storage_path", result.StoragePath).Msg("backup completed")
	return rec, nil
}

// failBackup records the terminal Failed state for an executor error.
// The executor's error never propagates to the caller; a cancelled
// context is recorded as "cancelled" so shutdown leaves no record
// stranded in progress.
func (e *Engine) failBackup(ctx context.Context, id string, kind model.BackupKind, execErr error) (*model.BackupRecord, error) {
	detail := execErr.Error()
	if errors.Is(execErr, context.Canceled) || errors.Is(execErr, context.DeadlineExceeded) {
		detail = "cancelled"
	}

	// The run's context may already be dead; the terminal transition
	// must still land.
	failCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		failCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	completed := e.now()
	rec, err := e.ledger.Transition(failCtx, id, model.StatusFailed, store.TransitionFields{
		ErrorDetail: detail,
		CompletedAt: &completed,
	})
	if err != nil {
		return nil, fmt.Errorf("fail backup %s: %w", id, err)
	}

	backupsTotal.WithLabelValues(string(kind), string(model.StatusFailed)).Inc()
	e.logger.Error().Str("backup_id", id).Str("error_detail", detail).Msg("backup failed")
	return rec, nil
}

func (e *Engine) GetBackup(ctx context.Context, id string) (*model.BackupRecord, error) {
	return e.ledger.Find(ctx, id)
}

func (e *Engine) ListBackups(ctx context.Context, f store.ListFilter) ([]model.BackupRecord, int, error) {
	return e.ledger.List(ctx, f)
}

func (e *Engine) DeleteBackup(ctx context.Context, id string) error {
	if err := e.ledger.Remove(ctx, id); err != nil {
		return err
	}
	e.logger.Info().Str("backup_id", id).Msg("backup deleted")
	return nil
}

// StatsReport is the aggregate served by the stats endpoint.
type StatsReport struct {
	model.BackupStats
	NextScheduledRun *time.Time `json:"next_scheduled_run,omitempty"`
	RetentionPolicy  string     `json:"retention_policy"`
}

// Stats returns ledger aggregates plus the soonest next run across
// all enabled schedules.
func (e *Engine) Stats(ctx context.Context) (*StatsReport, error) {
	stats, err := e.ledger.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}

	scheds, err := e.schedules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	var next *time.Time
	for i := range scheds {
		s := &scheds[i]
		if !s.Enabled {
			continue
		}
		if next == nil || s.NextRun.Before(*next) {
			t := s.NextRun
			next = &t
		}
	}

	return &StatsReport{
		BackupStats:      *stats,
		NextScheduledRun: next,
		RetentionPolicy: fmt.Sprintf("full backups kept %d days, incremental and differential kept %d days unless overridden per backup",
			DefaultRetentionFullDays, DefaultRetentionOtherDays),
	}, nil
}

// ReconcileOrphans fails every record left pending or in progress by a
// prior process lifetime. Called once at startup before the scheduler
// begins.
func (e *Engine) ReconcileOrphans(ctx context.Context) (int, error) {
	reconciled := 0
	for _, status := range []model.BackupStatus{model.StatusPending, model.StatusInProgress} {
		s := status
		recs, _, err := e.ledger.List(ctx, store.ListFilter{Status: &s})
		if err != nil {
			return reconciled, fmt.Errorf("list %s backups: %w", status, err)
		}
		for i := range recs {
			completed := e.now()
			if _, err := e.ledger.Transition(ctx, recs[i].ID, model.StatusFailed, store.TransitionFields{
				ErrorDetail: "orphaned: process restarted",
				CompletedAt: &completed,
			}); err != nil {
				return reconciled, fmt.Errorf("reconcile backup %s: %w", recs[i].ID, err)
			}
			e.logger.Warn().Str("backup_id", recs[i].ID).Msg("orphaned backup marked failed")
			reconciled++
		}
	}
	return reconciled, nil
}
