package backup

import (
	"context"
	"slices"
	"strings"

	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/platform"
)

// RestorePointDetail pairs a restore point with the referenced backup
// when it still exists. The reference is weak, so Backup is nil for a
// dangling one.
type RestorePointDetail struct {
	model.RestorePoint
	Backup *model.BackupRecord `json:"backup,omitempty"`
}

// CreateRestorePoint snapshots a completed backup as a named
// checkpoint. The table set and record count are copied at creation
// time and never change afterwards.
func (e *Engine) CreateRestorePoint(ctx context.Context, backupID, description string) (*model.RestorePoint, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, &model.ValidationError{Field: "description", Detail: "must not be empty"}
	}

	rec, err := e.ledger.Find(ctx, backupID)
	if err != nil {
		return nil, err
	}
	if rec.Status != model.StatusCompleted {
		return nil, &model.InvalidStateError{ID: backupID, Status: rec.Status, Op: "create restore point from"}
	}

	rp := &model.RestorePoint{
		ID:          platform.NewName("rp-"),
		BackupID:    backupID,
		Description: description,
		Tables:      slices.Clone(rec.Tables),
		RecordCount: rec.RecordCount,
		CreatedAt:   e.now(),
	}
	if err := e.restorePoints.Create(ctx, rp); err != nil {
		return nil, err
	}

	e.logger.Info().Str("restore_point_id", rp.ID).Str("backup_id", backupID).Msg("restore point created")
	return rp, nil
}

// GetRestorePoint resolves a restore point and, when the referenced
// backup still exists, attaches it. A dangling reference is not an
// error.
func (e *Engine) GetRestorePoint(ctx context.Context, id string) (*RestorePointDetail, error) {
	rp, err := e.restorePoints.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &RestorePointDetail{RestorePoint: *rp}
	rec, err := e.ledger.Find(ctx, rp.BackupID)
	if err == nil {
		detail.Backup = rec
	} else if !model.IsNotFound(err) {
		return nil, err
	}
	return detail, nil
}

func (e *Engine) ListRestorePoints(ctx context.Context) ([]model.RestorePoint, error) {
	return e.restorePoints.List(ctx)
}

func (e *Engine) DeleteRestorePoint(ctx context.Context, id string) error {
	if err := e.restorePoints.Delete(ctx, id); err != nil {
		return err
	}
	e.logger.Info().Str("restore_point_id", id).Msg("restore point deleted")
	return nil
}
