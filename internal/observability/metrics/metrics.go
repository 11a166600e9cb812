package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	metricPrefix = "energy_"

	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
	ResultInvalid = "invalid"
)

var (
	registerOnce sync.Once

	importTotal   *prometheus.CounterVec
	importLatency *prometheus.HistogramVec
	importRows    *prometheus.CounterVec
	importSkipped *prometheus.CounterVec

	providerAttempts *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	payloadServed    *prometheus.CounterVec

	reconcileTotal *prometheus.CounterVec

	scenarioRuns    *prometheus.CounterVec
	scenarioLatency prometheus.Histogram
	exportTotal     *prometheus.CounterVec
)

// Init registers metrics and DB-backed gauges. A nil db skips the gauges.
func Init(db *sql.DB, logger logrus.FieldLogger) {
	registerOnce.Do(func() {
		importTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_files_total",
				Help: "Imported files by dataset and result",
			},
			[]string{"dataset", "result"},
		)
		importLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "import_latency_seconds",
				Help:    "Import latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"dataset", "result"},
		)
		importRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_buckets_written_total",
				Help: "Bucketed readings written by dataset",
			},
			[]string{"dataset"},
		)
		importSkipped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_rows_skipped_total",
				Help: "Rows skipped during parsing by dataset",
			},
			[]string{"dataset"},
		)

		providerAttempts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dashboard_provider_attempts_total",
				Help: "Dashboard provider attempts by provider and result",
			},
			[]string{"provider", "result"},
		)
		providerLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "dashboard_provider_latency_seconds",
				Help:    "Dashboard provider latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		)
		payloadServed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dashboard_payload_served_total",
				Help: "Dashboard payloads served by source",
			},
			[]string{"source"},
		)

		reconcileTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reconcile_total",
				Help: "Reconciled series by strategy",
			},
			[]string{"strategy"},
		)

		scenarioRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "battery_scenario_runs_total",
				Help: "Battery scenario runs by result",
			},
			[]string{"result"},
		)
		scenarioLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "battery_scenario_latency_seconds",
				Help:    "Battery scenario latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scenario_export_total",
				Help: "Scenario exports by format and result",
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			importTotal,
			importLatency,
			importRows,
			importSkipped,
			providerAttempts,
			providerLatency,
			payloadServed,
			reconcileTotal,
			scenarioRuns,
			scenarioLatency,
			exportTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveImport records one imported file.
func ObserveImport(dataset, result string, duration time.Duration, written, skipped int) {
	if dataset == "" {
		dataset = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if importTotal != nil {
		importTotal.WithLabelValues(dataset, result).Inc()
	}
	if importLatency != nil {
		importLatency.WithLabelValues(dataset, result).Observe(duration.Seconds())
	}
	if importRows != nil && written > 0 {
		importRows.WithLabelValues(dataset).Add(float64(written))
	}
	if importSkipped != nil && skipped > 0 {
		importSkipped.WithLabelValues(dataset).Add(float64(skipped))
	}
}

// ObserveProvider records one provider attempt.
func ObserveProvider(provider, result string, duration time.Duration) {
	if provider == "" {
		provider = "unknown"
	}
	if providerAttempts != nil {
		providerAttempts.WithLabelValues(provider, result).Inc()
	}
	if providerLatency != nil {
		providerLatency.WithLabelValues(provider).Observe(duration.Seconds())
	}
}

// IncPayloadServed counts the source tag of a served dashboard payload.
func IncPayloadServed(source string) {
	if payloadServed != nil {
		payloadServed.WithLabelValues(source).Inc()
	}
}

// IncReconcile counts a reconciled series by strategy.
func IncReconcile(strategy string) {
	if reconcileTotal != nil {
		reconcileTotal.WithLabelValues(strategy).Inc()
	}
}

// ObserveScenarioRun records a battery scenario run.
func ObserveScenarioRun(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if scenarioRuns != nil {
		scenarioRuns.WithLabelValues(result).Inc()
	}
	if scenarioLatency != nil {
		scenarioLatency.Observe(duration.Seconds())
	}
}

// ObserveExport records a scenario export.
func ObserveExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
}
