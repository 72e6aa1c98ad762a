package model

import (
	"fmt"
	"time"
)

// BackupKind is the scope of a backup run.
type BackupKind string

const (
	KindFull         BackupKind = "full"
	KindIncremental  BackupKind = "incremental"
	KindDifferential BackupKind = "differential"
)

// ParseBackupKind validates a wire-level kind string.
func ParseBackupKind(s string) (BackupKind, error) {
	switch BackupKind(s) {
	case KindFull, KindIncremental, KindDifferential:
		return BackupKind(s), nil
	}
	return "", fmt.Errorf("unknown backup kind %q", s)
}

// BackupStatus is the lifecycle state of a backup record. Status only
// moves forward: pending -> in_progress -> completed | failed.
type BackupStatus string

const (
	StatusPending    BackupStatus = "pending"
	StatusInProgress BackupStatus = "in_progress"
	StatusCompleted  BackupStatus = "completed"
	StatusFailed     BackupStatus = "failed"
)

// ParseBackupStatus validates a wire-level status string.
func ParseBackupStatus(s string) (BackupStatus, error) {
	switch BackupStatus(s) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return BackupStatus(s), nil
	}
	return "", fmt.Errorf("unknown backup status %q", s)
}

// Terminal reports whether no further transition is allowed from s.
func (s BackupStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// rank orders statuses for the forward-only transition check.
func (s BackupStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next is a forward
// transition. Terminal states never transition again.
func (s BackupStatus) CanTransitionTo(next BackupStatus) bool {
	if s.Terminal() {
		return false
	}
	return next.rank() > s.rank()
}

// TablesAll is the sentinel table set meaning "every partition".
var TablesAll = []string{"all"}

// BackupRecord is one discrete backup attempt. The ledger owns its
// lifecycle; ids are never reused.
type BackupRecord struct {
	ID            string       `json:"id"`
	Kind          BackupKind   `json:"kind"`
	Status        BackupStatus `json:"status"`
	SizeBytes     int64        `json:"size_bytes"`
	RecordCount   int64        `json:"record_count"`
	StoragePath   string       `json:"storage_path,omitempty"`
	Checksum      string       `json:"checksum,omitempty"`
	Tables        []string     `json:"tables"`
	Compressed    bool         `json:"compressed"`
	Encrypted     bool         `json:"encrypted"`
	RetentionDays int          `json:"retention_days"`
	ErrorDetail   *string      `json:"error_detail,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}

// Age returns how long ago the record was created.
func (r *BackupRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}

// Expired reports whether the record's retention window has elapsed.
// Only completed records ever expire; failed backups are kept for
// diagnosis until an operator deletes them.
func (r *BackupRecord) Expired(now time.Time) bool {
	if r.Status != StatusCompleted {
		return false
	}
	return r.Age(now) > time.Duration(r.RetentionDays)*24*time.Hour
}

// BackupStats is the ledger aggregate served by the stats endpoint.
type BackupStats struct {
	Total      int   `json:"total"`
	Succeeded  int   `json:"succeeded"`
	Failed     int   `json:"failed"`
	TotalBytes int64 `json:"total_bytes"`
}
