package request

type SaveSchedule struct {
	Name             string `json:"name" validate:"required,max=128"`
	Type             string `json:"type" validate:"required,oneof=full incremental differential"`
	CronExpression   string `json:"cron_expression" validate:"required"`
	Enabled          bool   `json:"enabled"`
	RetentionDays    int    `json:"retention_days" validate:"omitempty,min=1,max=3650"`
	Compress         bool   `json:"compress"`
	Encrypt          bool   `json:"encrypt"`
	NotifyOnComplete bool   `json:"notify_on_complete"`
	NotifyOnFailure  bool   `json:"notify_on_failure"`
}
