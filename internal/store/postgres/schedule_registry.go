package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/backupd/internal/model"
)

const scheduleColumns = `id, name, kind, cron_expression, enabled, retention_days, compress, encrypt, notify_on_complete, notify_on_failure, last_run, next_run, created_at, updated_at`

// ScheduleRegistry is a postgres-backed store.ScheduleRegistry.
type ScheduleRegistry struct {
	db DB
}

func NewScheduleRegistry(db DB) *ScheduleRegistry {
	return &ScheduleRegistry{db: db}
}

func (r *ScheduleRegistry) Create(ctx context.Context, sched *model.BackupSchedule) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO backup_schedules (id, name, kind, cron_expression, enabled, retention_days, compress, encrypt, notify_on_complete, notify_on_failure, last_run, next_run, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		sched.ID, sched.Name, sched.Kind, sched.CronExpression, sched.Enabled,
		sched.RetentionDays, sched.Compress, sched.Encrypt, sched.NotifyOnComplete,
		sched.NotifyOnFailure, sched.LastRun, sched.NextRun, sched.CreatedAt, sched.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRegistry) Get(ctx context.Context, id string) (*model.BackupSchedule, error) {
	row := r.db.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM backup_schedules WHERE id = $1`, id)
	sched, err := scanSchedule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &model.NotFoundError{Resource: "schedule", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule %s: %w", id, err)
	}
	return sched, nil
}

func (r *ScheduleRegistry) List(ctx context.Context) ([]model.BackupSchedule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+scheduleColumns+` FROM backup_schedules ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	schedules := []model.BackupSchedule{}
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, *sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return schedules, nil
}

func (r *ScheduleRegistry) Update(ctx context.Context, sched *model.BackupSchedule) error {
	// next_run and last_run are deliberately absent: the run cursor is
	// written only through MarkRun and SetNextRun.
	tag, err := r.db.Exec(ctx,
		`UPDATE backup_schedules SET name = $1, kind = $2, cron_expression = $3, enabled = $4,
			retention_days = $5, compress = $6, encrypt = $7, notify_on_complete = $8,
			notify_on_failure = $9, updated_at = $10
		 WHERE id = $11`,
		sched.Name, sched.Kind, sched.CronExpression, sched.Enabled, sched.RetentionDays,
		sched.Compress, sched.Encrypt, sched.NotifyOnComplete, sched.NotifyOnFailure,
		sched.UpdatedAt, sched.ID,
	)
	if err != nil {
		return fmt.Errorf("update schedule %s: %w", sched.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return &model.NotFoundError{Resource: "schedule", ID: sched.ID}
	}
	return nil
}

func (r *ScheduleRegistry) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM backup_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &model.NotFoundError{Resource: "schedule", ID: id}
	}
	return nil
}

func (r *ScheduleRegistry) MarkRun(ctx context.Context, id string, lastRun, nextRun time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE backup_schedules SET last_run = $1, next_run = $2, updated_at = $1 WHERE id = $3`,
		lastRun, nextRun, id,
	)
	if err != nil {
		return fmt.Errorf("mark schedule %s run: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &model.NotFoundError{Resource: "schedule", ID: id}
	}
	return nil
}

func (r *ScheduleRegistry) SetNextRun(ctx context.Context, id string, nextRun time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE backup_schedules SET next_run = $1 WHERE id = $2`,
		nextRun, id,
	)
	if err != nil {
		return fmt.Errorf("set schedule %s next run: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &model.NotFoundError{Resource: "schedule", ID: id}
	}
	return nil
}

func scanSchedule(row pgx.Row) (*model.BackupSchedule, error) {
	var sched model.BackupSchedule
	err := row.Scan(&sched.ID, &sched.Name, &sched.Kind, &sched.CronExpression, &sched.Enabled,
		&sched.RetentionDays, &sched.Compress, &sched.Encrypt, &sched.NotifyOnComplete,
		&sched.NotifyOnFailure, &sched.LastRun, &sched.NextRun, &sched.CreatedAt, &sched.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sched, nil
}
