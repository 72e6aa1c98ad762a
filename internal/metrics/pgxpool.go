package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegisterPgxPoolMetrics exposes ledger connection pool statistics as
// Prometheus gauges. Only called when the engine runs against postgres.
func RegisterPgxPoolMetrics(pool *pgxpool.Pool) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "backup_db_acquired_conns",
		Help: "Number of currently acquired connections in the ledger pool",
	}, func() float64 {
		return float64(pool.Stat().AcquiredConns())
	})
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "backup_db_idle_conns",
		Help: "Number of idle connections in the ledger pool",
	}, func() float64 {
		return float64(pool.Stat().IdleConns())
	})
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "backup_db_max_conns",
		Help: "Maximum size of the ledger pool",
	}, func() float64 {
		return float64(pool.Stat().MaxConns())
	})
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "backup_db_total_conns",
		Help: "Total connections open in the ledger pool",
	}, func() float64 {
		return float64(pool.Stat().TotalConns())
	})
}
