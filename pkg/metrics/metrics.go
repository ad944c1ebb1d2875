package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsImported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nft_ledger_transactions_imported_total",
		Help: "Total number of transactions read from CSV files",
	}, []string{"status"})

	ImportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nft_ledger_import_duration_seconds",
		Help:    "Duration of CSV import steps",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nft_ledger_cache_hits_total",
		Help: "Total number of cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nft_ledger_cache_misses_total",
		Help: "Total number of cache misses",
	})

	DatabaseQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nft_ledger_database_queries_total",
		Help: "Total number of database queries",
	}, []string{"query_type", "status"})

	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nft_ledger_database_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query_type"})

	BalanceComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nft_ledger_balance_computations_total",
		Help: "Total number of running balance computations",
	}, []string{"status", "cached"})

	BalancePoints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nft_ledger_balance_points",
		Help: "Number of points in the last computed balance series",
	})
)

func RecordCacheHit() {
	CacheHits.Inc()
}

func RecordCacheMiss() {
	CacheMisses.Inc()
}

func RecordDatabaseQuery(queryType, status string, duration float64) {
	DatabaseQueries.WithLabelValues(queryType, status).Inc()
	DatabaseQueryDuration.WithLabelValues(queryType).Observe(duration)
}

func RecordTransactionImported(status string, n int) {
	TransactionsImported.WithLabelValues(status).Add(float64(n))
}

func RecordBalanceComputation(status string, cached bool) {
	cachedStr := "false"
	if cached {
		cachedStr = "true"
	}
	BalanceComputations.WithLabelValues(status, cachedStr).Inc()
}

// WriteTextfile dumps the default registry in the node exporter textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("erro ao escrever métricas: %w", err)
	}
	return nil
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{
		start: time.Now(),
	}
}

func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
