package request

import (
	"fmt"
	"net/http"
	"time"

	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/store"
)

// ParseHistoryFilter builds the ledger filter from history query
// parameters: status, type, startDate, endDate plus pagination.
func ParseHistoryFilter(r *http.Request) (store.ListFilter, error) {
	pg := ParsePagination(r)
	f := store.ListFilter{Offset: pg.Offset, Limit: pg.Limit}

	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		status, err := model.ParseBackupStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = &status
	}
	if k := q.Get("type"); k != "" {
		kind, err := model.ParseBackupKind(k)
		if err != nil {
			return f, err
		}
		f.Kind = &kind
	}

	var err error
	if f.Start, err = parseDate(q.Get("startDate")); err != nil {
		return f, err
	}
	if f.End, err = parseDate(q.Get("endDate")); err != nil {
		return f, err
	}
	return f, nil
}

// ParseDateRange extracts the optional startDate/endDate bounds used
// by the report export.
func ParseDateRange(r *http.Request) (start, end *time.Time, err error) {
	q := r.URL.Query()
	if start, err = parseDate(q.Get("startDate")); err != nil {
		return nil, nil, err
	}
	if end, err = parseDate(q.Get("endDate")); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

// parseDate accepts RFC 3339 timestamps or bare dates.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want RFC 3339 or YYYY-MM-DD", s)
	}
	return &t, nil
}
