// Package prom implements a Prometheus backend for the metrics package.
package prom

import (
	"fmt"
	"net/http"

	"github.com/dukex/datapilot/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Backend keeps its collectors in a private registry served by Handler.
type Backend struct {
	reg *prometheus.Registry

	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
	haltsTotal    *prometheus.CounterVec
}

func NewBackend() (*Backend, error) {
	b := &Backend{
		reg: prometheus.NewRegistry(),
		stageTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.StageTotal,
				Help: "Stage invocations partitioned by stage and status.",
			},
			[]string{"stage", "status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metrics.StageDurationSeconds,
				Help:    "Stage duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.RunsTotal,
				Help: "Finished pipeline runs partitioned by final status.",
			},
			[]string{"status"},
		),
		haltsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.SupervisorHaltsTotal,
				Help: "Runs halted by the supervisor partitioned by reason.",
			},
			[]string{"reason"},
		),
	}

	for _, c := range []prometheus.Collector{
		b.stageTotal,
		b.stageDuration,
		b.runsTotal,
		b.haltsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prom: register collector: %w", err)
		}
	}

	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StageTotal:
		b.stageTotal.WithLabelValues(labels["stage"], labels["status"]).Add(delta)
	case metrics.RunsTotal:
		b.runsTotal.WithLabelValues(labels["status"]).Add(delta)
	case metrics.SupervisorHaltsTotal:
		b.haltsTotal.WithLabelValues(labels["reason"]).Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StageDurationSeconds {
		return
	}

	b.stageDuration.WithLabelValues(labels["stage"]).Observe(value)
}

// Registry exposes the underlying registry, mostly for tests.
func (b *Backend) Registry() *prometheus.Registry {
	return b.reg
}

// Handler serves the registry in the text exposition format.
func (b *Backend) Handler() http.Handler {
	return promhttp.HandlerFor(b.reg, promhttp.HandlerOpts{})
}
