// Package postgres provides pgx-backed implementations of the store
// contracts for deployments that need the ledger to survive restarts.
// Schema lives in migrations/ and is applied with goose.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the stores use.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Stores bundles the three postgres stores over one pool.
type Stores struct {
	Ledger        *Ledger
	Schedules     *ScheduleRegistry
	RestorePoints *RestorePointStore
}

func New(db DB) *Stores {
	return &Stores{
		Ledger:        NewLedger(db, nil),
		Schedules:     NewScheduleRegistry(db),
		RestorePoints: NewRestorePointStore(db),
	}
}

func defaultNow(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
