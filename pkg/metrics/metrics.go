// Package metrics exposes pipeline counters and timings to Prometheus.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Recorder receives pipeline stage outcomes.
type Recorder interface {
	ObserveStage(stage string, err error, took time.Duration)
	AddRows(kind string, n int)
}

// Prometheus is a Recorder backed by its own registry.
type Prometheus struct {
	reg           *prometheus.Registry
	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	rowsTotal     *prometheus.CounterVec
}

func NewPrometheus() (*Prometheus, error) {
	reg := prometheus.NewRegistry()

	stageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sales_atlas",
			Name:      "stage_total",
			Help:      "Pipeline stage executions by stage and status.",
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sales_atlas",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"stage", "status"},
	)
	rowsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sales_atlas",
			Name:      "rows_total",
			Help:      "Rows seen by the pipeline (read, dropped).",
		},
		[]string{"kind"},
	)

	for _, c := range []prometheus.Collector{
		stageTotal,
		stageDuration,
		rowsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return &Prometheus{
		reg:           reg,
		stageTotal:    stageTotal,
		stageDuration: stageDuration,
		rowsTotal:     rowsTotal,
	}, nil
}

func (p *Prometheus) ObserveStage(stage string, err error, took time.Duration) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	p.stageTotal.WithLabelValues(stage, status).Inc()
	p.stageDuration.WithLabelValues(stage, status).Observe(took.Seconds())
}

func (p *Prometheus) AddRows(kind string, n int) {
	p.rowsTotal.WithLabelValues(kind).Add(float64(n))
}

// TrackStoredReports exposes count as the number of reports waiting to be
// downloaded.
func (p *Prometheus) TrackStoredReports(count func() int) error {
	gauge := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "sales_atlas",
			Name:      "reports_stored",
			Help:      "Generated reports held for download.",
		},
		func() float64 { return float64(count()) },
	)
	if err := p.reg.Register(gauge); err != nil {
		return fmt.Errorf("register stored reports gauge: %w", err)
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveStage(string, error, time.Duration) {}
func (Nop) AddRows(string, int)                      {}
