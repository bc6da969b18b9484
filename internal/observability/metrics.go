package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// trigger analysis engine.
type Metrics struct {
	CyclesAnalyzed   prometheus.Counter
	CyclesSkipped    *prometheus.CounterVec // labels: reason={lead_time_unavailable,no_valid_members}
	RecordsEmitted   *prometheus.CounterVec // labels: level={HIGH,MODERATE,LOW}
	StationsAnalyzed prometheus.Counter
	CountryFailures  *prometheus.CounterVec // labels: reason={configuration,threshold,forecast}

	// Run loop metrics.
	RunDuration     prometheus.Histogram
	RunRunning      prometheus.Gauge
	LastRunUnixtime prometheus.Gauge
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_trigger",
			Name:      "cycles_analyzed_total",
			Help:      "Total forecast cycle/station combinations evaluated.",
		}),
		CyclesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_trigger",
			Name:      "cycles_skipped_total",
			Help:      "Forecast cycles skipped without a record, by reason.",
		}, []string{"reason"}),
		RecordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_trigger",
			Name:      "records_emitted_total",
			Help:      "Trigger records emitted, by alert level.",
		}, []string{"level"}),
		StationsAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_trigger",
			Name:      "stations_analyzed_total",
			Help:      "Total station analyses completed.",
		}),
		CountryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_trigger",
			Name:      "country_failures_total",
			Help:      "Aborted country analyses, by reason.",
		}, []string{"reason"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_trigger",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete analysis pass over all countries.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		RunRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_trigger",
			Name:      "run_running",
			Help:      "1 while an analysis pass is active, 0 otherwise.",
		}),
		LastRunUnixtime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_trigger",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed analysis pass.",
		}),
	}

	prometheus.MustRegister(
		m.CyclesAnalyzed,
		m.CyclesSkipped,
		m.RecordsEmitted,
		m.StationsAnalyzed,
		m.CountryFailures,
		m.RunDuration,
		m.RunRunning,
		m.LastRunUnixtime,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CyclesAnalyzed:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_trigger", Name: "cycles_analyzed_total"}),
		CyclesSkipped:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_trigger", Name: "cycles_skipped_total"}, []string{"reason"}),
		RecordsEmitted:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_trigger", Name: "records_emitted_total"}, []string{"level"}),
		StationsAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_trigger", Name: "stations_analyzed_total"}),
		CountryFailures:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_trigger", Name: "country_failures_total"}, []string{"reason"}),
		RunDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "flood_trigger", Name: "run_duration_seconds"}),
		RunRunning:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_trigger", Name: "run_running"}),
		LastRunUnixtime:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_trigger", Name: "last_run_timestamp_seconds"}),
	}
}
