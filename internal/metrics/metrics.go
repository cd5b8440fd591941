// Package metrics exposes workflow metrics through Prometheus collectors fed by
// engine lifecycle hooks.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/techtrends/pkg/domain"
)

const namespace = "techtrends"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics owns a private registry so several engines (and tests) never clash
// on the global one.
type Metrics struct {
	registry *prometheus.Registry

	StageRuns     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	Workflows     *prometheus.CounterVec
	InFlight      prometheus.Gauge
}

// New registers the collectors. Go runtime and process collectors are included
// when withRuntime is set.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		StageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Stage executions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Stage execution time.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage"}),
		Workflows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_total",
			Help:      "Terminated workflows by outcome and final status.",
		}, []string{"outcome", "status"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stages_in_flight",
			Help:      "Stages currently executing.",
		}),
	}
	m.registry.MustRegister(m.StageRuns, m.StageDuration, m.Workflows, m.InFlight)
	if withRuntime {
		m.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks recording into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(_ context.Context, _ *domain.StageEvent) {
			m.InFlight.Inc()
		},
		OnStageLeave: func(_ context.Context, e *domain.StageEvent) {
			m.InFlight.Dec()
			m.StageRuns.WithLabelValues(string(e.Stage), outcome(!e.IsError)).Inc()
			m.StageDuration.WithLabelValues(string(e.Stage)).Observe(e.Duration.Seconds())
		},
		OnTerminate: func(_ context.Context, e *domain.TerminateEvent) {
			m.Workflows.WithLabelValues(outcome(e.Succeeded), string(e.Status)).Inc()
		},
	}
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeError
}
