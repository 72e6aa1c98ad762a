package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/store"
)

const backupColumns = `id, kind, status, size_bytes, record_count, storage_path, checksum, tables, compressed, encrypted, retention_days, error_detail, created_at, completed_at`

// Ledger is a postgres-backed store.Ledger.
type Ledger struct {
	db  DB
	now func() time.Time
}

func NewLedger(db DB, now func() time.Time) *Ledger {
	return &Ledger{db: db, now: defaultNow(now)}
}

func (l *Ledger) Append(ctx context.Context, rec *model.BackupRecord) error {
	if rec.Status.Terminal() {
		return fmt.Errorf("cannot append backup %s in terminal status %s", rec.ID, rec.Status)
	}
	_, err := l.db.Exec(ctx,
		`INSERT INTO backups (id, kind, status, size_bytes, record_count, storage_path, checksum, tables, compressed, encrypted, retention_days, error_detail, created_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.Kind, rec.Status, rec.SizeBytes, rec.RecordCount, rec.StoragePath,
		rec.Checksum, rec.Tables, rec.Compressed, rec.Encrypted, rec.RetentionDays,
		rec.ErrorDetail, rec.CreatedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert backup: %w", err)
	}
	return nil
}

func (l *Ledger) Transition(ctx context.Context, id string, next model.BackupStatus, fields store.TransitionFields) (*model.BackupRecord, error) {
	cur, err := l.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cur.Status.CanTransitionTo(next) {
		return nil, &model.InvalidStateError{ID: id, Status: cur.Status, Op: "transition to " + string(next)}
	}
	if fields.SizeBytes > 0 && next != model.StatusCompleted {
		return nil, fmt.Errorf("backup %s: size may only be set on completion", id)
	}

	var completedAt *time.Time
	if next.Terminal() {
		completed := l.now()
		if fields.CompletedAt != nil {
			completed = *fields.CompletedAt
		}
		completedAt = &completed
	}

	var errorDetail *string
	if fields.ErrorDetail != "" {
		errorDetail = &fields.ErrorDetail
	}

	// The status guard makes the forward-only rule hold in the store
	// itself: a row another transitioner moved since the Find above
	// matches nothing here.
	row := l.db.QueryRow(ctx,
		`UPDATE backups SET
			status = $1,
			size_bytes = CASE WHEN $2::bigint > 0 THEN $2 ELSE size_bytes END,
			record_count = CASE WHEN $3::bigint > 0 THEN $3 ELSE record_count END,
			storage_path = CASE WHEN $4 <> '' THEN $4 ELSE storage_path END,
			checksum = CASE WHEN $5 <> '' THEN $5 ELSE checksum END,
			error_detail = COALESCE($6, error_detail),
			completed_at = COALESCE($7, completed_at)
		 WHERE id = $8 AND status = $9
		 RETURNING `+backupColumns,
		next, fields.SizeBytes, fields.RecordCount, fields.StoragePath, fields.Checksum, errorDetail, completedAt, id, cur.Status,
	)
	rec, err := scanBackup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		lost, ferr := l.Find(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, &model.InvalidStateError{ID: id, Status: lost.Status, Op: "transition to " + string(next)}
	}
	if err != nil {
		return nil, fmt.Errorf("transition backup %s: %w", id, err)
	}
	return rec, nil
}

func (l *Ledger) Find(ctx context.Context, id string) (*model.BackupRecord, error) {
	row := l.db.QueryRow(ctx, `SELECT `+backupColumns+` FROM backups WHERE id = $1`, id)
	rec, err := scanBackup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &model.NotFoundError{Resource: "backup", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %s: %w", id, err)
	}
	return rec, nil
}

func (l *Ledger) List(ctx context.Context, f store.ListFilter) ([]model.BackupRecord, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.Status != nil {
		where += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, *f.Status)
		argIdx++
	}
	if f.Kind != nil {
		where += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, *f.Kind)
		argIdx++
	}
	if f.Start != nil {
		where += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, *f.Start)
		argIdx++
	}
	if f.End != nil {
		where += fmt.Sprintf(` AND created_at <= $%d`, argIdx)
		args = append(args, *f.End)
		argIdx++
	}

	var total int
	if err := l.db.QueryRow(ctx, `SELECT count(*) FROM backups`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count backups: %w", err)
	}

	query := `SELECT ` + backupColumns + ` FROM backups` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, f.Limit)
		argIdx++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, f.Offset)
	}

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	records := []model.BackupRecord{}
	for rows.Next() {
		rec, err := scanBackup(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan backup: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate backups: %w", err)
	}
	return records, total, nil
}

func (l *Ledger) Remove(ctx context.Context, id string) error {
	var createdAt time.Time
	err := l.db.QueryRow(ctx, `SELECT created_at FROM backups WHERE id = $1`, id).Scan(&createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &model.NotFoundError{Resource: "backup", ID: id}
	}
	if err != nil {
		return fmt.Errorf("get backup %s for delete: %w", id, err)
	}

	if age := l.now().Sub(createdAt); age < store.ProtectionWindow {
		return &model.ProtectedRecordError{ID: id, Age: age, Window: store.ProtectionWindow}
	}

	if _, err := l.db.Exec(ctx, `DELETE FROM backups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete backup %s: %w", id, err)
	}
	return nil
}

func (l *Ledger) Stats(ctx context.Context) (*model.BackupStats, error) {
	var stats model.BackupStats
	err := l.db.QueryRow(ctx,
		`SELECT count(*),
			count(*) FILTER (WHERE status = 'completed'),
			count(*) FILTER (WHERE status = 'failed'),
			COALESCE(sum(size_bytes) FILTER (WHERE status = 'completed'), 0)
		 FROM backups`,
	).Scan(&stats.Total, &stats.Succeeded, &stats.Failed, &stats.TotalBytes)
	if err != nil {
		return nil, fmt.Errorf("backup stats: %w", err)
	}
	return &stats, nil
}

func scanBackup(row pgx.Row) (*model.BackupRecord, error) {
	var rec model.BackupRecord
	err := row.Scan(&rec.ID, &rec.Kind, &rec.Status, &rec.SizeBytes, &rec.RecordCount,
		&rec.StoragePath, &rec.Checksum, &rec.Tables, &rec.Compressed, &rec.Encrypted,
		&rec.RetentionDays, &rec.ErrorDetail, &rec.CreatedAt, &rec.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
