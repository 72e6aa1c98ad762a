package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/backupd/internal/model"
)

const restorePointColumns = `id, backup_id, description, tables, record_count, created_at`

// RestorePointStore is a postgres-backed store.RestorePointStore.
type RestorePointStore struct {
	db DB
}

func NewRestorePointStore(db DB) *RestorePointStore {
	return &RestorePointStore{db: db}
}

func (s *RestorePointStore) Create(ctx context.Context, rp *model.RestorePoint) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO restore_points (id, backup_id, description, tables, record_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rp.ID, rp.BackupID, rp.Description, rp.Tables, rp.RecordCount, rp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert restore point: %w", err)
	}
	return nil
}

func (s *RestorePointStore) Get(ctx context.Context, id string) (*model.RestorePoint, error) {
	row := s.db.QueryRow(ctx, `SELECT `+restorePointColumns+` FROM restore_points WHERE id = $1`, id)
	rp, err := scanRestorePoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &model.NotFoundError{Resource: "restore point", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get restore point %s: %w", id, err)
	}
	return rp, nil
}

func (s *RestorePointStore) List(ctx context.Context) ([]model.RestorePoint, error) {
	rows, err := s.db.Query(ctx, `SELECT `+restorePointColumns+` FROM restore_points ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list restore points: %w", err)
	}
	defer rows.Close()

	points := []model.RestorePoint{}
	for rows.Next() {
		rp, err := scanRestorePoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan restore point: %w", err)
		}
		points = append(points, *rp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restore points: %w", err)
	}
	return points, nil
}

func (s *RestorePointStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM restore_points WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete restore point %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &model.NotFoundError{Resource: "restore point", ID: id}
	}
	return nil
}

func scanRestorePoint(row pgx.Row) (*model.RestorePoint, error) {
	var rp model.RestorePoint
	err := row.Scan(&rp.ID, &rp.BackupID, &rp.Description, &rp.Tables, &rp.RecordCount, &rp.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rp, nil
}
