package backup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/backupd/internal/model"
)

func TestVerify_NotFound(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	_, err := eng.Verify(context.Background(), "missing")
	assert.True(t, model.IsNotFound(err))
}

func TestVerify_Valid(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	rec, err := eng.CreateBackup(ctx, model.KindFull, CreateOptions{})
	require.NoError(t, err)

	result, err := eng.Verify(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.False(t, result.ChecksumMismatchDetected)
	assert.Empty(t, result.Errors)
}

func TestVerify_Mismatch(t *testing.T) {
	eng, exec, _ := newTestEngine(t)
	ctx := context.Background()

	rec, err := eng.CreateBackup(ctx, model.KindFull, CreateOptions{})
	require.NoError(t, err)

	exec.checksum = "0000000000"

	result, err := eng.Verify(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.ChecksumMismatchDetected)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "mismatch")
}

func TestVerify_NonCompletedNeverPasses(t *testing.T) {
	eng, exec, _ := newTestEngine(t)
	ctx := context.Background()

	exec.backupErr = errors.New("boom")
	rec, err := eng.CreateBackup(ctx, model.KindFull, CreateOptions{})
	require.NoError(t, err)

	result, err := eng.Verify(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.False(t, result.ChecksumMismatchDetected)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "only completed backups")
}

func TestVerify_ChecksumError(t *testing.T) {
	eng, exec, _ := newTestEngine(t)
	ctx := context.Background()

	rec, err := eng.CreateBackup(ctx, model.KindFull, CreateOptions{})
	require.NoError(t, err)

	exec.checksumErr = errors.New("object gone")

	result, err := eng.Verify(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "object gone")
}
