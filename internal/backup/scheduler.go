package backup

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/backupd/internal/cronexpr"
	"github.com/edvin/backupd/internal/model"
)

// Notifier is told about schedule-triggered outcomes when the schedule
// asks for it. The default implementation just logs.
type Notifier interface {
	BackupCompleted(ctx context.Context, sched *model.BackupSchedule, rec *model.BackupRecord)
	BackupFailed(ctx context.Context, sched *model.BackupSchedule, rec *model.BackupRecord)
}

type logNotifier struct {
	logger zerolog.Logger
}

func (n *logNotifier) BackupCompleted(_ context.Context, sched *model.BackupSchedule, rec *model.BackupRecord) {
	n.logger.Info().Str("schedule", sched.Name).Str("backup_id", rec.ID).
		Int64("size_bytes", rec.SizeBytes).Msg("scheduled backup completed")
}

func (n *logNotifier) BackupFailed(_ context.Context, sched *model.BackupSchedule, rec *model.BackupRecord) {
	event := n.logger.Error().Str("schedule", sched.Name).Str("backup_id", rec.ID)
	if rec.ErrorDetail != nil {
		event = event.Str("error_detail", *rec.ErrorDetail)
	}
	event.Msg("scheduled backup failed")
}

// RunScheduler drives the scheduling loop until ctx is cancelled. A
// single ticker evaluates every schedule against the clock; due
// schedules trigger concurrently since each backup record is
// independent. Errors from triggered backups end up in Failed records
// and never stop the loop.
func (e *Engine) RunScheduler(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		tick = time.Minute
	}
	e.logger.Info().Dur("tick", tick).Msg("scheduler started")

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("scheduler stopped")
			return nil
		case <-ticker.C:
			e.evaluateSchedules(ctx)
		}
	}
}

// evaluateSchedules runs one scheduler tick.
func (e *Engine) evaluateSchedules(ctx context.Context) {
	scheds, err := e.schedules.List(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("list schedules")
		return
	}

	now := e.now()
	var g errgroup.Group
	for i := range scheds {
		sched := scheds[i]
		if !sched.Enabled {
			// Keep NextRun current while disabled so re-enabling
			// does not fire a backlog.
			if !now.Before(sched.NextRun) {
				next := cronexpr.Next(sched.CronExpression, now)
				if err := e.schedules.SetNextRun(ctx, sched.ID, next); err != nil {
					e.logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("advance disabled schedule")
				}
			}
			continue
		}
		if !sched.Due(now) {
			continue
		}
		g.Go(func() error {
			e.triggerSchedule(ctx, &sched, now)
			return nil
		})
	}
	g.Wait()
}

// triggerSchedule runs one due schedule. NextRun is advanced before
// the backup starts so a run outlasting the tick interval cannot
// double-trigger.
func (e *Engine) triggerSchedule(ctx context.Context, sched *model.BackupSchedule, now time.Time) {
	next := cronexpr.Next(sched.CronExpression, now)
	if err := e.schedules.MarkRun(ctx, sched.ID, now, next); err != nil {
		e.logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("mark schedule run")
		return
	}
	scheduledTriggers.Inc()
	e.logger.Info().Str("schedule_id", sched.ID).Str("name", sched.Name).
		Time("next_run", next).Msg("schedule triggered")

	rec, err := e.CreateBackup(ctx, sched.Kind, CreateOptions{
		Compress:      &sched.Compress,
		Encrypt:       &sched.Encrypt,
		RetentionDays: sched.RetentionDays,
	})
	if err != nil {
		// Ledger fault, not an executor failure; those become Failed
		// records inside CreateBackup.
		e.logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("scheduled backup not recorded")
		return
	}

	switch {
	case rec.Status == model.StatusCompleted && sched.NotifyOnComplete:
		e.notifier.BackupCompleted(ctx, sched, rec)
	case rec.Status == model.StatusFailed && sched.NotifyOnFailure:
		e.notifier.BackupFailed(ctx, sched, rec)
	}
}
