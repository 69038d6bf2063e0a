package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the tick collector and the
// signal engine. Both binaries register the full set; unused series simply
// stay at zero.
type Metrics struct {
	// Collector pipeline
	TicksTotal     prometheus.Counter
	CandlesTotal   prometheus.Counter
	WSReconnects   prometheus.Counter
	DroppedTicks   prometheus.Counter
	FanoutDrops    *prometheus.CounterVec // labels: subscriber
	RedisWriteDur  prometheus.Histogram
	SQLiteBatchDur prometheus.Histogram

	// Signal engine
	SignalsOpened   *prometheus.CounterVec // labels: pair, direction
	GaleEscalations prometheus.Counter
	SignalsResolved *prometheus.CounterVec // labels: result (win|loss_final)
	OpenSignals     prometheus.Gauge
	AnalyzeCycleDur prometheus.Histogram
}

// New registers and returns all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalsys_ticks_total",
			Help: "Total ticks received from the price feed",
		}),
		CandlesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalsys_candles_total",
			Help: "Total 1m candles emitted",
		}),
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalsys_ws_reconnects_total",
			Help: "Total feed reconnection attempts",
		}),
		DroppedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalsys_dropped_ticks_total",
			Help: "Ticks dropped on a full ingest channel",
		}),
		FanoutDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalsys_fanout_drops_total",
			Help: "Candles dropped by the fanout bus per subscriber",
		}, []string{"subscriber"}),
		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalsys_redis_write_duration_seconds",
			Help:    "Redis write latency",
			Buckets: prometheus.DefBuckets,
		}),
		SQLiteBatchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalsys_sqlite_batch_duration_seconds",
			Help:    "SQLite batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),

		SignalsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalsys_signals_opened_total",
			Help: "Base signals opened, by pair and direction",
		}, []string{"pair", "direction"}),
		GaleEscalations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalsys_gale_escalations_total",
			Help: "Gale escalations performed",
		}),
		SignalsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalsys_signals_resolved_total",
			Help: "Signals resolved, by result",
		}, []string{"result"}),
		OpenSignals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalsys_open_signals",
			Help: "Currently open signals",
		}),
		AnalyzeCycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalsys_analyze_cycle_duration_seconds",
			Help:    "Scheduler cycle latency (analysis plus sweep)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.CandlesTotal,
		m.WSReconnects,
		m.DroppedTicks,
		m.FanoutDrops,
		m.RedisWriteDur,
		m.SQLiteBatchDur,
		m.SignalsOpened,
		m.GaleEscalations,
		m.SignalsResolved,
		m.OpenSignals,
		m.AnalyzeCycleDur,
	)

	return m
}
