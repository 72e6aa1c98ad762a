package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/backupd/internal/backup"
	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/store/memory"
)

// fakeExecutor is a scriptable backup.Executor for handler tests.
type fakeExecutor struct {
	backupErr  error
	restoreErr error
	checksum   string
}

func (f *fakeExecutor) Backup(_ context.Context, _ string, _ []string, _ backup.ExecuteOptions) (*backup.BackupResult, error) {
	if f.backupErr != nil {
		return nil, f.backupErr
	}
	return &backup.BackupResult{StoragePath: "/backups/test.bak", SizeBytes: 1024, RecordCount: 7, Checksum: "abc123"}, nil
}

func (f *fakeExecutor) Restore(_ context.Context, _ string, tables []string, _ backup.ExecuteOptions) (*backup.RestoreOutcome, error) {
	if f.restoreErr != nil {
		return nil, f.restoreErr
	}
	return &backup.RestoreOutcome{RestoredTables: tables, RecordsRestored: 7}, nil
}

func (f *fakeExecutor) Checksum(_ context.Context, _ string) (string, error) {
	if f.checksum != "" {
		return f.checksum, nil
	}
	return "abc123", nil
}

func newTestServer(t *testing.T) (*Server, *fakeExecutor) {
	t.Helper()
	exec := &fakeExecutor{}
	engine := backup.NewEngine(
		zerolog.Nop(),
		memory.NewLedger(nil),
		memory.NewScheduleRegistry(),
		memory.NewRestorePointStore(),
		exec,
	)
	return NewServer(zerolog.Nop(), engine, nil), exec
}

func doJSON(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, r)
	return rec
}

func createTestBackup(t *testing.T, srv *Server) model.BackupRecord {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/backups", map[string]any{"type": "full"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.BackupRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz_MemoryStore(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "memory")
}

func TestCreateBackup(t *testing.T) {
	srv, _ := newTestServer(t)

	created := createTestBackup(t, srv)
	assert.Equal(t, model.StatusCompleted, created.Status)
	assert.Equal(t, int64(1024), created.SizeBytes)
}

func TestCreateBackup_UnknownType(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/backups", map[string]any{"type": "snapshot"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBackup_ExecutorFailureStillCreated(t *testing.T) {
	srv, exec := newTestServer(t)
	exec.backupErr = errors.New("disk full")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/backups", map[string]any{"type": "incremental"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.BackupRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, model.StatusFailed, created.Status)
	require.NotNil(t, created.ErrorDetail)
	assert.Equal(t, "disk full", *created.ErrorDetail)
}

func TestGetBackup_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/backups/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListBackups_FilterAndPage(t *testing.T) {
	srv, _ := newTestServer(t)
	createTestBackup(t, srv)
	createTestBackup(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/backups?status=completed&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Items []model.BackupRecord `json:"items"`
		Total int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Total)
}

func TestListBackups_BadStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/backups?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteBackup_Protected(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createTestBackup(t, srv)

	rec := doJSON(t, srv, http.MethodDelete, "/api/v1/backups/"+created.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyBackup(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createTestBackup(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/backups/"+created.ID+"/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result backup.VerifyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Valid)
}

func TestVerifyBackup_Mismatch(t *testing.T) {
	srv, exec := newTestServer(t)
	created := createTestBackup(t, srv)
	exec.checksum = "tampered"

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/backups/"+created.ID+"/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result backup.VerifyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Valid)
	assert.True(t, result.ChecksumMismatchDetected)
}

func TestRestoreBackup_DryRun(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createTestBackup(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/backups/"+created.ID+"/restore", map[string]any{"dry_run": true})
	require.Equal(t, http.StatusOK, rec.Code)

	var result backup.RestoreResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "no changes made")
}

func TestRestoreBackup_FailedBackupConflict(t *testing.T) {
	srv, exec := newTestServer(t)
	exec.backupErr = errors.New("boom")
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/backups", map[string]any{"type": "full"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.BackupRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/backups/"+created.ID+"/restore", map[string]any{})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRestoreBackup_ExecutorError(t *testing.T) {
	srv, exec := newTestServer(t)
	created := createTestBackup(t, srv)
	exec.restoreErr = errors.New("archive corrupt")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/backups/"+created.ID+"/restore", map[string]any{})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestScheduleCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/schedules", map[string]any{
		"name":            "nightly",
		"type":            "full",
		"cron_expression": "0 2 * * *",
		"enabled":         true,
		"compress":        true,
		"encrypt":         true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var sched model.BackupSchedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sched))
	assert.NotEmpty(t, sched.ID)
	assert.False(t, sched.NextRun.IsZero())

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/schedules/"+sched.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPut, "/api/v1/schedules/"+sched.ID, map[string]any{
		"name":            "nightly-renamed",
		"type":            "full",
		"cron_expression": "0 2 * * *",
		"enabled":         true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sched))
	assert.Equal(t, "nightly-renamed", sched.Name)

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/schedules/"+sched.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/schedules/"+sched.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSchedule_InvalidCron(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/schedules", map[string]any{
		"name":            "broken",
		"type":            "full",
		"cron_expression": "not a cron",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRestorePointLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createTestBackup(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/restore-points", map[string]any{
		"backup_id":   created.ID,
		"description": "before migration",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var rp model.RestorePoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rp))
	assert.Equal(t, created.ID, rp.BackupID)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/restore-points", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/restore-points/"+rp.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/restore-points/"+rp.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreateRestorePoint_MissingDescription(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createTestBackup(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/restore-points", map[string]any{
		"backup_id": created.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	srv, _ := newTestServer(t)
	createTestBackup(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats backup.StatsReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Succeeded)
}

func TestCleanup(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/cleanup", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result backup.CleanupResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Zero(t, result.DeletedCount)
}

func TestExportReport_CSV(t *testing.T) {
	srv, _ := newTestServer(t)
	createTestBackup(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/export/report?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Type,Status"))
}

func TestExportReport_UnknownFormat(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/export/report?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRestoreBackup_EmptyBody(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createTestBackup(t, srv)

	// Both restore options are optional; no body means a full restore.
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/backups/"+created.ID+"/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result backup.RestoreResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, model.TablesAll, result.RestoredTables)
}
