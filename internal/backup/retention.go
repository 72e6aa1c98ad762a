package backup

import (
	"context"
	"fmt"

	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/store"
)

// CleanupResult summarizes one retention sweep.
type CleanupResult struct {
	DeletedCount int      `json:"deleted_count"`
	FreedBytes   int64    `json:"freed_bytes"`
	Errors       []string `json:"errors"`
}

// RunCleanup deletes every completed record whose retention window has
// elapsed. Per-record failures are collected, never aborting the
// sweep, so a single protected record cannot block the rest. Running
// the sweep twice back to back deletes nothing on the second pass.
// Pending, in-progress and failed records are never touched; failed
// backups stay until an operator deletes them.
func (e *Engine) RunCleanup(ctx context.Context) (*CleanupResult, error) {
	completed := model.StatusCompleted
	recs, _, err := e.ledger.List(ctx, store.ListFilter{Status: &completed})
	if err != nil {
		return nil, fmt.Errorf("list completed backups: %w", err)
	}

	now := e.now()
	result := &CleanupResult{Errors: []string{}}
	for i := range recs {
		rec := &recs[i]
		if !rec.Expired(now) {
			continue
		}
		if err := e.ledger.Remove(ctx, rec.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("delete backup %s: %v", rec.ID, err))
			continue
		}
		result.DeletedCount++
		result.FreedBytes += rec.SizeBytes
		e.logger.Info().Str("backup_id", rec.ID).Int("retention_days", rec.RetentionDays).
			Int64("size_bytes", rec.SizeBytes).Msg("expired backup deleted")
	}

	cleanupDeleted.Add(float64(result.DeletedCount))
	cleanupFreedBytes.Add(float64(result.FreedBytes))
	if result.DeletedCount > 0 || len(result.Errors) > 0 {
		e.logger.Info().Int("deleted", result.DeletedCount).Int64("freed_bytes", result.FreedBytes).
			Int("errors", len(result.Errors)).Msg("cleanup sweep finished")
	}
	return result, nil
}
