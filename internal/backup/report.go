package backup

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/store"
)

const (
	ReportFormatJSON = "json"
	ReportFormatCSV  = "csv"
)

// ExportReport serializes the ledger slice bounded by the optional
// date range. It returns the payload and its content type. CSV output
// carries a header row and RFC 3339 timestamps; a failed record's
// completion column is left empty when unset.
func (e *Engine) ExportReport(ctx context.Context, format string, start, end *time.Time) ([]byte, string, error) {
	if format == "" {
		format = ReportFormatJSON
	}
	if format != ReportFormatJSON && format != ReportFormatCSV {
		return nil, "", &model.ValidationError{Field: "format", Detail: fmt.Sprintf("unknown format %q, want json or csv", format)}
	}

	recs, _, err := e.ledger.List(ctx, store.ListFilter{Start: start, End: end})
	if err != nil {
		return nil, "", fmt.Errorf("list backups for report: %w", err)
	}

	if format == ReportFormatJSON {
		payload, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshal report: %w", err)
		}
		return payload, "application/json", nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"ID", "Type", "Status", "Size", "Created", "Completed", "Compressed", "Encrypted"}); err != nil {
		return nil, "", fmt.Errorf("write report header: %w", err)
	}
	for i := range recs {
		rec := &recs[i]
		completed := ""
		if rec.CompletedAt != nil {
			completed = rec.CompletedAt.Format(time.RFC3339)
		}
		row := []string{
			rec.ID,
			string(rec.Kind),
			string(rec.Status),
			strconv.FormatInt(rec.SizeBytes, 10),
			rec.CreatedAt.Format(time.RFC3339),
			completed,
			strconv.FormatBool(rec.Compressed),
			strconv.FormatBool(rec.Encrypted),
		}
		if err := w.Write(row); err != nil {
			return nil, "", fmt.Errorf("write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("flush report: %w", err)
	}
	return buf.Bytes(), "text/csv", nil
}
