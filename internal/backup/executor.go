package backup

import "context"

// ExecuteOptions describes how the executor should treat the payload.
type ExecuteOptions struct {
	Compress bool
	Encrypt  bool
}

// BackupResult is what a successful executor run reports back.
type BackupResult struct {
	StoragePath string
	SizeBytes   int64
	RecordCount int64
	Checksum    string
}

// RestoreOutcome reports what a restore touched.
type RestoreOutcome struct {
	RestoredTables  []string
	RecordsRestored int64
}

// Executor performs the actual data movement: copy, compress, encrypt,
// and the reverse. The engine orchestrates when and what; the executor
// owns the bytes. Calls may take arbitrarily long and must honor ctx
// cancellation.
type Executor interface {
	Backup(ctx context.Context, id string, tables []string, opts ExecuteOptions) (*BackupResult, error)
	Restore(ctx context.Context, storagePath string, tables []string, opts ExecuteOptions) (*RestoreOutcome, error)
	Checksum(ctx context.Context, storagePath string) (string, error)
}
