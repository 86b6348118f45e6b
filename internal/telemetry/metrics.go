// Package telemetry exposes Prometheus counters and histograms for the
// governance pipeline's observability surface. It is purely observational:
// nothing here influences the scan/forecast/evaluate/cleanup decision path.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors a single Engine instance reports through.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal       *prometheus.CounterVec
	FilesDeletedTotal prometheus.Counter
	MBFreedTotal      prometheus.Counter
	ScanDuration      prometheus.Histogram
}

// New registers a fresh set of collectors against a private registry (so
// multiple Engine instances in one process, e.g. in tests, don't collide
// on the default global registry).
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fifoguard_cycles_total",
			Help: "Completed governance cycles, labeled by resulting action.",
		}, []string{"action"}),
		FilesDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fifoguard_files_deleted_total",
			Help: "Files removed by predictive cleanup across all cycles.",
		}),
		MBFreedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fifoguard_mb_freed_total",
			Help: "Megabytes freed by predictive cleanup across all cycles.",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fifoguard_scan_duration_seconds",
			Help:    "Wall-clock duration of the scan phase.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.CyclesTotal, m.FilesDeletedTotal, m.MBFreedTotal, m.ScanDuration)
	return m
}

// Handler returns the HTTP handler serving this Metrics' registry in the
// Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
