package backup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/store"
	"github.com/edvin/backupd/internal/store/memory"
)

// fakeClock is a settable time source shared by the engine and its
// stores.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// stubExecutor is a scriptable Executor recording every call.
type stubExecutor struct {
	mu sync.Mutex

	backupResult *BackupResult
	backupErr    error
	waitForCtx   bool

	restoreOutcome *RestoreOutcome
	restoreErr     error

	checksum    string
	checksumErr error

	backupCalls  int
	restoreCalls int
}

func (s *stubExecutor) Backup(ctx context.Context, _ string, _ []string, _ ExecuteOptions) (*BackupResult, error) {
	s.mu.Lock()
	s.backupCalls++
	s.mu.Unlock()
	if s.waitForCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.backupErr != nil {
		return nil, s.backupErr
	}
	if s.backupResult != nil {
		return s.backupResult, nil
	}
	return &BackupResult{StoragePath: "/backups/stub.bak", SizeBytes: 2048, RecordCount: 12, Checksum: "deadbeef"}, nil
}

func (s *stubExecutor) Restore(_ context.Context, _ string, tables []string, _ ExecuteOptions) (*RestoreOutcome, error) {
	s.mu.Lock()
	s.restoreCalls++
	s.mu.Unlock()
	if s.restoreErr != nil {
		return nil, s.restoreErr
	}
	if s.restoreOutcome != nil {
		return s.restoreOutcome, nil
	}
	return &RestoreOutcome{RestoredTables: tables, RecordsRestored: 12}, nil
}

func (s *stubExecutor) Checksum(_ context.Context, _ string) (string, error) {
	if s.checksumErr != nil {
		return "", s.checksumErr
	}
	if s.checksum != "" {
		return s.checksum, nil
	}
	return "deadbeef", nil
}

func (s *stubExecutor) backups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backupCalls
}

func (s *stubExecutor) restores() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreCalls
}

func listAll() store.ListFilter { return store.ListFilter{} }

func newTestEngine(t *testing.T) (*Engine, *stubExecutor, *fakeClock) {
	t.Helper()
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	exec := &stubExecutor{}
	eng := NewEngine(
		zerolog.Nop(),
		memory.NewLedger(clock.Now),
		memory.NewScheduleRegistry(),
		memory.NewRestorePointStore(),
		exec,
		WithClock(clock.Now),
	)
	return eng, exec, clock
}

func TestCreateBackup_Defaults(t *testing.T) {
	eng, exec, clock := newTestEngine(t)
	ctx := context.Background()

	rec, err := eng.CreateBackup(ctx, model.KindFull, CreateOptions{})
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, rec.Status)
	assert.Equal(t, model.TablesAll, rec.Tables)
	assert.True(t, rec.Compressed)
	assert.True(t, rec.Encrypted)
	assert.Equal(t, DefaultRetentionFullDays, rec.RetentionDays)
	assert.Equal(t, int64(2048), rec.SizeBytes)
	assert.Equal(t, int64(12), rec.RecordCount)
	assert.Equal(t, "deadbeef", rec.Checksum)
	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, clock.Now(), *rec.CompletedAt)
	assert.Equal(t, 1, exec.backups())
}

func TestCreateBackup_IncrementalRetentionDefault(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	rec, err := eng.CreateBackup(context.Background(), model.KindIncremental, CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultRetentionOtherDays, rec.RetentionDays)
}

func TestCreateBackup_Options(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	off := false

	rec, err := eng.CreateBackup(context.Background(), model.KindDifferential, CreateOptions{
		Compress:      &off,
		Encrypt:       &off,
		Tables:        []string{"invoices", "clients"},
		RetentionDays: 90,
	})
	require.NoError(t, err)
	assert.False(t, rec.Compressed)
	assert.False(t, rec.Encrypted)
	assert.Equal(t, []string{"invoices", "clients"}, rec.Tables)
	assert.Equal(t, 90, rec.RetentionDays)
}

func TestCreateBackup_ExecutorFailure(t *testing.T) {
	eng, exec, _ := newTestEngine(t)
	exec.backupErr = errors.New("disk full")

	// An executor failure is a Failed record, not a returned error.
	rec, err := eng.CreateBackup(context.Background(), model.KindIncremental, CreateOptions{})
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, rec.Status)
	assert.Zero(t, rec.SizeBytes)
	require.NotNil(t, rec.ErrorDetail)
	assert.Equal(t, "disk full", *rec.ErrorDetail)
	require.NotNil(t, rec.CompletedAt)
}

func TestCreateBackup_Cancelled(t *testing.T) {
	eng, exec, _ := newTestEngine(t)
	exec.waitForCtx = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var rec *model.BackupRecord
	var err error
	go func() {
		rec, err = eng.CreateBackup(ctx, model.KindFull, CreateOptions{})
		close(done)
	}()

	cancel()
	<-done

	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, rec.Status)
	require.NotNil(t, rec.ErrorDetail)
	assert.Equal(t, "cancelled", *rec.ErrorDetail)
}

func TestCreateBackup_ExactlyOneTerminalTransition(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	rec, err := eng.CreateBackup(ctx, model.KindFull, CreateOptions{})
	require.NoError(t, err)
	require.True(t, rec.Status.Terminal())

	// A terminal record accepts no further transitions.
	_, err = eng.ledger.Transition(ctx, rec.ID, model.StatusFailed, store.TransitionFields{})
	var invalid *model.InvalidStateError
	require.ErrorAs(t, err, &invalid)
}

func TestGetBackup_NotFound(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	_, err := eng.GetBackup(context.Background(), "missing")
	assert.True(t, model.IsNotFound(err))
}

func TestDeleteBackup_Protected(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	rec, err := eng.CreateBackup(ctx, model.KindFull, CreateOptions{})
	require.NoError(t, err)

	err = eng.DeleteBackup(ctx, rec.ID)
	var protected *model.ProtectedRecordError
	require.ErrorAs(t, err, &protected)
	assert.Equal(t, rec.ID, protected.ID)
}

func TestDeleteBackup_AfterProtectionWindow(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()

	rec, err := eng.CreateBackup(ctx, model.KindFull, CreateOptions{})
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)
	require.NoError(t, eng.DeleteBackup(ctx, rec.ID))

	_, err = eng.GetBackup(ctx, rec.ID)
	assert.True(t, model.IsNotFound(err))
}

func TestStats(t *testing.T) {
	eng, exec, clock := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.CreateBackup(ctx, model.KindFull, CreateOptions{})
	require.NoError(t, err)
	exec.backupErr = errors.New("boom")
	_, err = eng.CreateBackup(ctx, model.KindIncremental, CreateOptions{})
	require.NoError(t, err)

	_, err = eng.CreateSchedule(ctx, ScheduleInput{
		Name:           "nightly",
		Kind:           model.KindFull,
		CronExpression: "0 2 * * *",
		Enabled:        true,
	})
	require.NoError(t, err)

	report, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, int64(2048), report.TotalBytes)
	require.NotNil(t, report.NextScheduledRun)
	assert.True(t, report.NextScheduledRun.After(clock.Now()))
	assert.NotEmpty(t, report.RetentionPolicy)
}

func TestStats_DisabledSchedulesExcluded(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.CreateSchedule(ctx, ScheduleInput{
		Name:           "paused",
		Kind:           model.KindFull,
		CronExpression: "0 2 * * *",
		Enabled:        false,
	})
	require.NoError(t, err)

	report, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Nil(t, report.NextScheduledRun)
}

func TestReconcileOrphans(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()

	// Simulate records left over from a previous process lifetime.
	require.NoError(t, eng.ledger.Append(ctx, &model.BackupRecord{
		ID:        "orphan-pending",
		Kind:      model.KindFull,
		Status:    model.StatusPending,
		Tables:    model.TablesAll,
		CreatedAt: clock.Now().Add(-time.Hour),
	}))
	require.NoError(t, eng.ledger.Append(ctx, &model.BackupRecord{
		ID:        "orphan-running",
		Kind:      model.KindIncremental,
		Status:    model.StatusInProgress,
		Tables:    model.TablesAll,
		CreatedAt: clock.Now().Add(-time.Hour),
	}))

	n, err := eng.ReconcileOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []string{"orphan-pending", "orphan-running"} {
		rec, err := eng.GetBackup(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusFailed, rec.Status)
		require.NotNil(t, rec.ErrorDetail)
		assert.Equal(t, "orphaned: process restarted", *rec.ErrorDetail)
		assert.NotNil(t, rec.CompletedAt)
	}

	// Nothing left to reconcile on a second pass.
	n, err = eng.ReconcileOrphans(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// faultyLedger fails Transition into the listed statuses, imitating a
// transient database fault mid-run.
type faultyLedger struct {
	store.Ledger
	failOn map[model.BackupStatus]bool
}

func (l *faultyLedger) Transition(ctx context.Context, id string, next model.BackupStatus, fields store.TransitionFields) (*model.BackupRecord, error) {
	if l.failOn[next] {
		return nil, errors.New("db connection reset")
	}
	return l.Ledger.Transition(ctx, id, next, fields)
}

func TestCreateBackup_LedgerFaultReturnsError(t *testing.T) {
	for _, next := range []model.BackupStatus{model.StatusInProgress, model.StatusCompleted} {
		t.Run(string(next), func(t *testing.T) {
			clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
			ledger := &faultyLedger{
				Ledger: memory.NewLedger(clock.Now),
				failOn: map[model.BackupStatus]bool{next: true},
			}
			eng := NewEngine(
				zerolog.Nop(),
				ledger,
				memory.NewScheduleRegistry(),
				memory.NewRestorePointStore(),
				&stubExecutor{},
				WithClock(clock.Now),
			)

			rec, err := eng.CreateBackup(context.Background(), model.KindFull, CreateOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "db connection reset")
			assert.Nil(t, rec)
		})
	}
}
