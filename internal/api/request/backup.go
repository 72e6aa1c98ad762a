package request

type CreateBackup struct {
	Type          string   `json:"type" validate:"required,oneof=full incremental differential"`
	Compress      *bool    `json:"compress"`
	Encrypt       *bool    `json:"encrypt"`
	Tables        []string `json:"tables"`
	RetentionDays int      `json:"retention_days" validate:"omitempty,min=1,max=3650"`
}

type RestoreBackup struct {
	Tables []string `json:"tables"`
	DryRun bool     `json:"dry_run"`
}

type CreateRestorePoint struct {
	BackupID    string `json:"backup_id" validate:"required"`
	Description string `json:"description" validate:"required"`
}
