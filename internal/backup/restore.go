package backup

import (
	"context"
	"fmt"

	"github.com/edvin/backupd/internal/model"
)

// RestoreOptions narrows a restore. Nil Tables restores the backup's
// own table set.
type RestoreOptions struct {
	Tables []string
	DryRun bool
}

// RestoreResult reports what a restore did, or would do for a dry run.
type RestoreResult struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	RestoredTables  []string `json:"restored_tables"`
	RecordsRestored int64    `json:"records_restored"`
	DurationMs      int64    `json:"duration_ms"`
}

// Restore replays a completed backup through the executor. Only
// completed backups are restorable. A dry run never reaches the
// executor's restore path; the result says so explicitly.
func (e *Engine) Restore(ctx context.Context, backupID string, opts RestoreOptions) (*RestoreResult, error) {
	rec, err := e.ledger.Find(ctx, backupID)
	if err != nil {
		return nil, err
	}
	if rec.Status != model.StatusCompleted {
		return nil, &model.InvalidStateError{ID: backupID, Status: rec.Status, Op: "restore"}
	}

	tables := opts.Tables
	if len(tables) == 0 {
		tables = rec.Tables
	}

	if opts.DryRun {
		return &RestoreResult{
			Success:        true,
			Message:        fmt.Sprintf("dry run: no changes made, would restore %d table(s) from backup %s", len(tables), backupID),
			RestoredTables: tables,
		}, nil
	}

	e.logger.Info().Str("backup_id", backupID).Strs("tables", tables).Msg("restore started")
	start := e.now()

	outcome, execErr := e.executor.Restore(ctx, rec.StoragePath, tables, ExecuteOptions{
		Compress: rec.Compressed,
		Encrypt:  rec.Encrypted,
	})
	durationMs := e.now().Sub(start).Milliseconds()

	if execErr != nil {
		restoresTotal.WithLabelValues("failed").Inc()
		e.logger.Error().Str("backup_id", backupID).Err(execErr).Msg("restore failed")
		return nil, &model.ExecutorError{Op: "restore", Err: execErr}
	}

	restoresTotal.WithLabelValues("completed").Inc()
	e.logger.Info().Str("backup_id", backupID).Strs("tables", outcome.RestoredTables).
		Int64("records", outcome.RecordsRestored).Msg("restore completed")
	return &RestoreResult{
		Success:         true,
		Message:         fmt.Sprintf("restored %d table(s) from backup %s", len(outcome.RestoredTables), backupID),
		RestoredTables:  outcome.RestoredTables,
		RecordsRestored: outcome.RecordsRestored,
		DurationMs:      durationMs,
	}, nil
}
