package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/edvin/backupd/internal/backup"
)

// Local stores archives on the local filesystem. One file per backup
// run, named after the record id.
type Local struct {
	logger   zerolog.Logger
	archiver archiver
	dir      string
}

// NewLocal creates a local executor reading partitions from sourceDir
// and writing archives under dir.
func NewLocal(logger zerolog.Logger, sourceDir, dir, passphrase string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	return &Local{
		logger:   logger.With().Str("component", "local-executor").Logger(),
		archiver: archiver{sourceDir: sourceDir, passphrase: passphrase},
		dir:      dir,
	}, nil
}

func (e *Local) Backup(ctx context.Context, id string, tables []string, opts backup.ExecuteOptions) (*backup.BackupResult, error) {
	data, resolved, files, err := e.archiver.pack(ctx, tables, opts)
	if err != nil {
		return nil, fmt.Errorf("pack archive: %w", err)
	}

	path := filepath.Join(e.dir, id+".bak")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}

	e.logger.Debug().Str("backup_id", id).Str("path", path).Int("tables", len(resolved)).Msg("archive written")
	return &backup.BackupResult{
		StoragePath: path,
		SizeBytes:   int64(len(data)),
		RecordCount: files,
		Checksum:    checksumBytes(data),
	}, nil
}

func (e *Local) Restore(ctx context.Context, storagePath string, tables []string, opts backup.ExecuteOptions) (*backup.RestoreOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(storagePath)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	restored, files, err := e.archiver.unpack(data, tables, e.archiver.sourceDir, opts)
	if err != nil {
		return nil, fmt.Errorf("unpack archive: %w", err)
	}
	return &backup.RestoreOutcome{RestoredTables: restored, RecordsRestored: files}, nil
}

func (e *Local) Checksum(ctx context.Context, storagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(storagePath)
	if err != nil {
		return "", fmt.Errorf("read archive: %w", err)
	}
	return checksumBytes(data), nil
}
