package model

import "time"

// RestorePoint is a named, operator-curated checkpoint referencing one
// completed backup. The reference is weak: deleting the backup does not
// cascade, so readers must tolerate a dangling BackupID.
type RestorePoint struct {
	ID          string    `json:"id"`
	BackupID    string    `json:"backup_id"`
	Description string    `json:"description"`
	Tables      []string  `json:"tables"`
	RecordCount int64     `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}
