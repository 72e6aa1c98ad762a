package model

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy shared by the store and engine layers. Handlers map
// these onto HTTP status codes; everything else wraps with %w.

// NotFoundError reports an unknown backup, schedule or restore point id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// InvalidStateError reports an operation attempted against a record in
// a status that does not permit it, e.g. restoring a failed backup.
type InvalidStateError struct {
	ID     string
	Status BackupStatus
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s backup %s in status %s", e.Op, e.ID, e.Status)
}

// ProtectedRecordError reports a deletion attempt against a backup
// younger than the minimum protection window.
type ProtectedRecordError struct {
	ID     string
	Age    time.Duration
	Window time.Duration
}

func (e *ProtectedRecordError) Error() string {
	return fmt.Sprintf("backup %s is %s old, protected for %s after creation", e.ID, e.Age.Round(time.Second), e.Window)
}

// ValidationError reports malformed operator input, e.g. a cron
// expression that does not parse or an empty restore point description.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// ExecutorError wraps a failure from the external backup executor.
type ExecutorError struct {
	Op  string
	Err error
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("executor %s: %v", e.Op, e.Err)
}

func (e *ExecutorError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
