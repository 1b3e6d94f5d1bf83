package metrics

import (
	"fmt"
	"time"

	"github.com/osvaldoandrade/docprov/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts provisioning outcomes on a private registry. A one-shot
// CLI has nothing to scrape, so the registry is written out as a
// node-exporter textfile instead of served over HTTP.
type Recorder struct {
	registry    *prometheus.Registry
	collections *prometheus.CounterVec
	indexes     *prometheus.CounterVec
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
}

func NewRecorder() *Recorder {
	buckets := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		collections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docprov_collections_total",
			Help: "Collections provisioned, by action",
		}, []string{"action"}),
		indexes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docprov_indexes_total",
			Help: "Indexes provisioned, by action",
		}, []string{"action"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docprov_runs_total",
			Help: "Provisioning runs, by status",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docprov_run_seconds",
			Help:    "Duration of a provisioning run",
			Buckets: buckets,
		}),
	}
	r.registry.MustRegister(r.collections, r.indexes, r.runs, r.duration)
	return r
}

func (r *Recorder) CollectionApplied(action domain.CollectionAction) {
	r.collections.WithLabelValues(string(action)).Inc()
}

func (r *Recorder) IndexApplied(action domain.IndexAction) {
	r.indexes.WithLabelValues(string(action)).Inc()
}

func (r *Recorder) RunFinished(status domain.RunStatus, elapsed time.Duration) {
	r.runs.WithLabelValues(string(status)).Inc()
	r.duration.Observe(elapsed.Seconds())
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current values atomically to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
