package metrics

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	log "github.com/sirupsen/logrus"
)

const (
	defaultNamespace = "keeper"

	OutcomeOk = "ok"
)

// Recorder records the outcome and duration of operations.
type Recorder interface {
	// Observe must be deferred at the beginning of an operation. The outcome
	// label is derived from err, never from its message.
	Observe(operation string, start time.Time, err error)
}

// ClassifyFn returns the outcome label of an operation error. It must return
// a value from a small fixed set.
type ClassifyFn func(err error) string

type RecorderOpts struct {
	Namespace string
	Registry  *prometheus.Registry
	Classify  ClassifyFn
}

func (o RecorderOpts) validate() error {
	if o.Classify == nil {
		return fmt.Errorf("missing error classifier")
	}
	return nil
}

// PrometheusRecorder exposes the operations counter and duration histogram.
type PrometheusRecorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	classify   ClassifyFn
}

// NewRecorder registers the collectors on the given registry, or on a new
// one if not defined.
func NewRecorder(opts RecorderOpts) (*PrometheusRecorder, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Number of backup and recovery operations by outcome.",
	}, []string{"operation", "outcome"})
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of backup and recovery operations.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"operation"})

	for _, c := range []prometheus.Collector{operations, durations} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return &PrometheusRecorder{registry, operations, durations, opts.Classify}, nil
}

func (r *PrometheusRecorder) Observe(operation string, start time.Time, err error) {
	outcome := OutcomeOk
	if err != nil {
		outcome = r.classify(err)
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.durations.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// Dump writes the current state of the metrics to w in the Prometheus text
// exposition format.
func (r *PrometheusRecorder) Dump(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(w)
	for _, f := range families {
		if _, err := expfmt.MetricFamilyToText(writer, f); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// DumpToFile writes the metrics to a new timestamped file in datadir.
func (r *PrometheusRecorder) DumpToFile(datadir string) error {
	file, err := os.OpenFile(
		filepath.Join(datadir, fmt.Sprintf("metrics-%s", time.Now().Format(time.RFC3339))),
		os.O_APPEND|os.O_CREATE|os.O_RDWR,
		0644,
	)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := r.Dump(file); err != nil {
		log.WithError(err).Warn("metrics: failed to dump")
		return err
	}
	return nil
}

type noopRecorder struct{}

// NewNoopRecorder returns a recorder that discards everything.
func NewNoopRecorder() Recorder {
	return noopRecorder{}
}

func (noopRecorder) Observe(string, time.Time, error) {}
