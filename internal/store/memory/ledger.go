// Package memory provides mutex-guarded in-memory implementations of
// the store contracts. They back single-node deployments without a
// database and the engine's deterministic tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/store"
)

// Ledger is an in-memory store.Ledger.
type Ledger struct {
	mu      sync.Mutex
	records map[string]*model.BackupRecord
	now     func() time.Time
}

// NewLedger creates an empty ledger. now is the clock used by the
// deletion protection window; pass nil for time.Now.
func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		records: make(map[string]*model.BackupRecord),
		now:     now,
	}
}

func (l *Ledger) Append(_ context.Context, rec *model.BackupRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.records[rec.ID]; exists {
		return fmt.Errorf("backup %s already exists", rec.ID)
	}
	if rec.Status.Terminal() {
		return fmt.Errorf("cannot append backup %s in terminal status %s", rec.ID, rec.Status)
	}
	cp := cloneRecord(rec)
	l.records[rec.ID] = &cp
	return nil
}

func (l *Ledger) Transition(_ context.Context, id string, next model.BackupStatus, fields store.TransitionFields) (*model.BackupRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok {
		return nil, &model.NotFoundError{Resource: "backup", ID: id}
	}
	if !rec.Status.CanTransitionTo(next) {
		return nil, &model.InvalidStateError{ID: id, Status: rec.Status, Op: "transition to " + string(next)}
	}
	if fields.SizeBytes > 0 && next != model.StatusCompleted {
		return nil, fmt.Errorf("backup %s: size may only be set on completion", id)
	}

	rec.Status = next
	if fields.SizeBytes > 0 {
		rec.SizeBytes = fields.SizeBytes
	}
	if fields.RecordCount > 0 {
		rec.RecordCount = fields.RecordCount
	}
	if fields.StoragePath != "" {
		rec.StoragePath = fields.StoragePath
	}
	if fields.Checksum != "" {
		rec.Checksum = fields.Checksum
	}
	if fields.ErrorDetail != "" {
		detail := fields.ErrorDetail
		rec.ErrorDetail = &detail
	}
	if next.Terminal() {
		completed := l.now()
		if fields.CompletedAt != nil {
			completed = *fields.CompletedAt
		}
		rec.CompletedAt = &completed
	}

	cp := cloneRecord(rec)
	return &cp, nil
}

func (l *Ledger) Find(_ context.Context, id string) (*model.BackupRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok {
		return nil, &model.NotFoundError{Resource: "backup", ID: id}
	}
	cp := cloneRecord(rec)
	return &cp, nil
}

func (l *Ledger) List(_ context.Context, f store.ListFilter) ([]model.BackupRecord, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	matched := make([]model.BackupRecord, 0, len(l.records))
	for _, rec := range l.records {
		if f.Status != nil && rec.Status != *f.Status {
			continue
		}
		if f.Kind != nil && rec.Kind != *f.Kind {
			continue
		}
		if f.Start != nil && rec.CreatedAt.Before(*f.Start) {
			continue
		}
		if f.End != nil && rec.CreatedAt.After(*f.End) {
			continue
		}
		matched = append(matched, cloneRecord(rec))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if f.Offset > 0 {
		if f.Offset >= total {
			return []model.BackupRecord{}, total, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (l *Ledger) Remove(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok {
		return &model.NotFoundError{Resource: "backup", ID: id}
	}
	if age := rec.Age(l.now()); age < store.ProtectionWindow {
		return &model.ProtectedRecordError{ID: id, Age: age, Window: store.ProtectionWindow}
	}
	delete(l.records, id)
	return nil
}

func (l *Ledger) Stats(_ context.Context) (*model.BackupStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := &model.BackupStats{}
	for _, rec := range l.records {
		stats.Total++
		switch rec.Status {
		case model.StatusCompleted:
			stats.Succeeded++
			stats.TotalBytes += rec.SizeBytes
		case model.StatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func cloneRecord(rec *model.BackupRecord) model.BackupRecord {
	cp := *rec
	cp.Tables = append([]string(nil), rec.Tables...)
	if rec.ErrorDetail != nil {
		detail := *rec.ErrorDetail
		cp.ErrorDetail = &detail
	}
	if rec.CompletedAt != nil {
		completed := *rec.CompletedAt
		cp.CompletedAt = &completed
	}
	return cp
}
