package backup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_runs_total",
			Help: "Total number of finished backup runs",
		},
		[]string{"kind", "status"},
	)

	backupsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_runs_in_progress",
			Help: "Number of backup runs currently executing",
		},
	)

	backupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_run_duration_seconds",
			Help:    "Backup run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	backupBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_bytes_written_total",
			Help: "Total archive bytes written by completed backups",
		},
	)

	restoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_restores_total",
			Help: "Total number of restore attempts",
		},
		[]string{"status"},
	)

	verificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_verifications_total",
			Help: "Total number of checksum verifications",
		},
		[]string{"result"},
	)

	scheduledTriggers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_schedule_triggers_total",
			Help: "Total number of schedule-triggered backup runs",
		},
	)

	cleanupDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_cleanup_deleted_total",
			Help: "Total number of backups removed by retention sweeps",
		},
	)

	cleanupFreedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_cleanup_freed_bytes_total",
			Help: "Total bytes freed by retention sweeps",
		},
	)
)
