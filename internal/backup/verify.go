package backup

import (
	"context"
	"fmt"

	"github.com/edvin/backupd/internal/model"
)

// VerifyResult reports an integrity check over a stored backup.
type VerifyResult struct {
	BackupID                 string   `json:"backup_id"`
	Valid                    bool     `json:"valid"`
	ChecksumMismatchDetected bool     `json:"checksum_mismatch_detected"`
	Errors                   []string `json:"errors"`
}

// Verify recomputes the checksum over the stored payload and compares
// it against the one captured at backup time. A backup that is not
// completed is reported invalid with an explanatory error rather than
// silently passing. Only an unknown id is returned as an error.
func (e *Engine) Verify(ctx context.Context, backupID string) (*VerifyResult, error) {
	rec, err := e.ledger.Find(ctx, backupID)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{BackupID: backupID, Errors: []string{}}
	if rec.Status != model.StatusCompleted {
		result.Errors = append(result.Errors,
			fmt.Sprintf("backup %s is %s, only completed backups can be verified", backupID, rec.Status))
		return result, nil
	}
	if rec.Checksum == "" {
		result.Errors = append(result.Errors,
			fmt.Sprintf("backup %s has no recorded checksum", backupID))
		return result, nil
	}

	actual, err := e.executor.Checksum(ctx, rec.StoragePath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("recompute checksum: %v", err))
		return result, nil
	}

	if actual != rec.Checksum {
		result.ChecksumMismatchDetected = true
		result.Errors = append(result.Errors,
			fmt.Sprintf("checksum mismatch for backup %s: recorded %s, recomputed %s", backupID, rec.Checksum, actual))
		verificationsTotal.WithLabelValues("mismatch").Inc()
		e.logger.Warn().Str("backup_id", backupID).Msg("checksum mismatch detected")
		return result, nil
	}

	result.Valid = true
	verificationsTotal.WithLabelValues("valid").Inc()
	e.logger.Debug().Str("backup_id", backupID).Msg("backup verified")
	return result, nil
}
