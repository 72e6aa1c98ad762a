// Package store defines the persistence contracts for the backup
// engine. The ledger exclusively owns BackupRecord lifecycle and the
// schedule registry exclusively owns BackupSchedule; all mutation goes
// through these narrow APIs, which is what keeps concurrent scheduling
// safe without cross-backup coordination.
package store

import (
	"context"
	"time"

	"github.com/edvin/backupd/internal/model"
)

// ProtectionWindow is the minimum age before a backup may be deleted.
// It guards against removing a backup that might still be mid-verify
// or referenced by an in-flight restore.
const ProtectionWindow = 24 * time.Hour

// ListFilter narrows and pages ledger listings. A nil field means "any".
// Limit <= 0 means no limit. Results are ordered newest-first by
// creation time.
type ListFilter struct {
	Status *model.BackupStatus
	Kind   *model.BackupKind
	Start  *time.Time
	End    *time.Time
	Offset int
	Limit  int
}

// TransitionFields carries the values written alongside a status
// transition. CompletedAt is required for terminal transitions; the
// failed path sets it too, so every terminal record carries one.
type TransitionFields struct {
	SizeBytes   int64
	RecordCount int64
	StoragePath string
	Checksum    string
	ErrorDetail string
	CompletedAt *time.Time
}

// Ledger is the append-only store of backup records.
type Ledger interface {
	// Append inserts a new record. The id must be unique and the
	// status must not be terminal.
	Append(ctx context.Context, rec *model.BackupRecord) error

	// Transition moves a record's status forward and applies fields,
	// returning the updated record. Backward and terminal-to-anything
	// transitions are rejected.
	Transition(ctx context.Context, id string, next model.BackupStatus, fields TransitionFields) (*model.BackupRecord, error)

	Find(ctx context.Context, id string) (*model.BackupRecord, error)

	// List returns a page of records plus the total match count.
	List(ctx context.Context, f ListFilter) ([]model.BackupRecord, int, error)

	// Remove hard-deletes a record. Records younger than
	// ProtectionWindow are rejected with a ProtectedRecordError
	// regardless of status.
	Remove(ctx context.Context, id string) error

	Stats(ctx context.Context) (*model.BackupStats, error)
}

// ScheduleRegistry stores recurring backup policies.
type ScheduleRegistry interface {
	Create(ctx context.Context, sched *model.BackupSchedule) error
	Get(ctx context.Context, id string) (*model.BackupSchedule, error)
	List(ctx context.Context) ([]model.BackupSchedule, error)

	// Update replaces the operator-settable fields. LastRun and
	// NextRun are owned by MarkRun and SetNextRun and are never
	// written here, so a stale copy cannot roll the run cursor back
	// under a concurrent trigger.
	Update(ctx context.Context, sched *model.BackupSchedule) error

	Delete(ctx context.Context, id string) error

	// MarkRun records a completed trigger: last run and the freshly
	// computed next run.
	MarkRun(ctx context.Context, id string, lastRun, nextRun time.Time) error

	// SetNextRun moves the run cursor without recording a run.
	SetNextRun(ctx context.Context, id string, nextRun time.Time) error
}

// RestorePointStore stores operator-curated checkpoints. Restore
// points are never mutated after creation.
type RestorePointStore interface {
	Create(ctx context.Context, rp *model.RestorePoint) error
	Get(ctx context.Context, id string) (*model.RestorePoint, error)
	List(ctx context.Context) ([]model.RestorePoint, error)
	Delete(ctx context.Context, id string) error
}
