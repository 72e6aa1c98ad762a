package backup

import (
	"context"
	"strings"

	"github.com/edvin/backupd/internal/cronexpr"
	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/platform"
)

// ScheduleInput carries the operator-settable fields of a schedule.
type ScheduleInput struct {
	Name             string
	Kind             model.BackupKind
	CronExpression   string
	Enabled          bool
	RetentionDays    int
	Compress         bool
	Encrypt          bool
	NotifyOnComplete bool
	NotifyOnFailure  bool
}

func (e *Engine) validateScheduleInput(in *ScheduleInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return &model.ValidationError{Field: "name", Detail: "must not be empty"}
	}
	if err := cronexpr.Validate(in.CronExpression); err != nil {
		return &model.ValidationError{Field: "cron_expression", Detail: err.Error()}
	}
	if in.RetentionDays <= 0 {
		in.RetentionDays = defaultRetention(in.Kind)
	}
	return nil
}

// CreateSchedule registers a recurring policy. The cron expression is
// validated here so the scheduler never sees a malformed one, and
// NextRun is computed immediately.
func (e *Engine) CreateSchedule(ctx context.Context, in ScheduleInput) (*model.BackupSchedule, error) {
	if err := e.validateScheduleInput(&in); err != nil {
		return nil, err
	}

	now := e.now()
	sched := &model.BackupSchedule{
		ID:               platform.NewID(),
		Name:             in.Name,
		Kind:             in.Kind,
		CronExpression:   in.CronExpression,
		Enabled:          in.Enabled,
		RetentionDays:    in.RetentionDays,
		Compress:         in.Compress,
		Encrypt:          in.Encrypt,
		NotifyOnComplete: in.NotifyOnComplete,
		NotifyOnFailure:  in.NotifyOnFailure,
		NextRun:          cronexpr.Next(in.CronExpression, now),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := e.schedules.Create(ctx, sched); err != nil {
		return nil, err
	}

	e.logger.Info().Str("schedule_id", sched.ID).Str("name", sched.Name).
		Str("cron", sched.CronExpression).Time("next_run", sched.NextRun).Msg("schedule created")
	return sched, nil
}

// UpdateSchedule replaces the operator-settable fields of a schedule.
// NextRun is recomputed from now when the cron expression changes or
// when a disabled schedule is re-enabled, so re-enabling never causes
// a backlog of immediate triggers.
func (e *Engine) UpdateSchedule(ctx context.Context, id string, in ScheduleInput) (*model.BackupSchedule, error) {
	if err := e.validateScheduleInput(&in); err != nil {
		return nil, err
	}

	sched, err := e.schedules.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := e.now()
	recompute := sched.CronExpression != in.CronExpression || (!sched.Enabled && in.Enabled)

	sched.Name = in.Name
	sched.Kind = in.Kind
	sched.CronExpression = in.CronExpression
	sched.Enabled = in.Enabled
	sched.RetentionDays = in.RetentionDays
	sched.Compress = in.Compress
	sched.Encrypt = in.Encrypt
	sched.NotifyOnComplete = in.NotifyOnComplete
	sched.NotifyOnFailure = in.NotifyOnFailure
	sched.UpdatedAt = now

	if err := e.schedules.Update(ctx, sched); err != nil {
		return nil, err
	}
	if recompute {
		sched.NextRun = cronexpr.Next(in.CronExpression, now)
		if err := e.schedules.SetNextRun(ctx, id, sched.NextRun); err != nil {
			return nil, err
		}
	}

	e.logger.Info().Str("schedule_id", sched.ID).Time("next_run", sched.NextRun).Msg("schedule updated")
	return sched, nil
}

func (e *Engine) GetSchedule(ctx context.Context, id string) (*model.BackupSchedule, error) {
	return e.schedules.Get(ctx, id)
}

func (e *Engine) ListSchedules(ctx context.Context) ([]model.BackupSchedule, error) {
	return e.schedules.List(ctx)
}

func (e *Engine) DeleteSchedule(ctx context.Context, id string) error {
	if err := e.schedules.Delete(ctx, id); err != nil {
		return err
	}
	e.logger.Info().Str("schedule_id", id).Msg("schedule deleted")
	return nil
}
