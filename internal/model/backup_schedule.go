package model

import "time"

// BackupSchedule is a recurring backup policy evaluated by the
// scheduler. NextRun is always recomputed whenever the schedule or its
// cron expression changes and is kept current even while disabled.
type BackupSchedule struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Kind             BackupKind `json:"kind"`
	CronExpression   string     `json:"cron_expression"`
	Enabled          bool       `json:"enabled"`
	RetentionDays    int        `json:"retention_days"`
	Compress         bool       `json:"compress"`
	Encrypt          bool       `json:"encrypt"`
	NotifyOnComplete bool       `json:"notify_on_complete"`
	NotifyOnFailure  bool       `json:"notify_on_failure"`
	LastRun          *time.Time `json:"last_run,omitempty"`
	NextRun          time.Time  `json:"next_run"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Due reports whether the schedule should trigger at now.
func (s *BackupSchedule) Due(now time.Time) bool {
	return s.Enabled && !now.Before(s.NextRun)
}
