package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunMetrics holds the Prometheus metrics of one batch run. Metrics live in a
// private registry so they can be written to a node-exporter textfile after
// the run instead of being scraped.
type RunMetrics struct {
	registry *prometheus.Registry

	RowsIngested  prometheus.Counter
	RowsFlagged   prometheus.Counter
	Users         prometheus.Gauge
	DetectorHits  *prometheus.CounterVec
	StageDuration *prometheus.GaugeVec
	RunDuration   prometheus.Gauge
	LastSuccess   prometheus.Gauge
}

// NewRunMetrics creates and registers the run metrics.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		RowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txnguard",
			Name:      "rows_ingested_total",
			Help:      "Transactions read from the input.",
		}),
		RowsFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txnguard",
			Name:      "rows_flagged_total",
			Help:      "Transactions written to the output with at least one reason.",
		}),
		Users: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "txnguard",
			Name:      "users",
			Help:      "Distinct users in the last run.",
		}),
		DetectorHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txnguard",
			Name:      "detector_hits_total",
			Help:      "Transactions flagged per detector.",
		}, []string{"detector"}),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "txnguard",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each run stage.",
		}, []string{"stage"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "txnguard",
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "txnguard",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last successful run finished.",
		}),
	}
	m.registry.MustRegister(m.RowsIngested, m.RowsFlagged, m.Users, m.DetectorHits, m.StageDuration, m.RunDuration, m.LastSuccess)
	return m
}

// Registry returns the private registry.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records how long a stage took.
func (m *RunMetrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// MarkSuccess records the completion time of a successful run.
func (m *RunMetrics) MarkSuccess(at time.Time) {
	m.LastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes the metrics in Prometheus text format to path,
// atomically.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("metrics: failed to create directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: failed to write textfile: %w", err)
	}
	return nil
}
