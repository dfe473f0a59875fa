package sio

import (
	"context"
	"net/http"
	"time"

	"github.com/BenIlies/NoPASARAN-sub000/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics counts Steps with Prometheus counters.
type Metrics struct {
	Events      *prometheus.CounterVec
	Actions     *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Stops       *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics makes and registers the counters.  A nil registry means
// a fresh one.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nopasaran_events_total",
				Help: "Events triggered, by chart, event, and whether a transition handled it.",
			},
			[]string{"chart", "event", "matched"},
		),
		Actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nopasaran_actions_total",
				Help: "Action lines executed, by chart and primitive.",
			},
			[]string{"chart", "primitive"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nopasaran_transitions_total",
				Help: "State changes, by chart and target state.",
			},
			[]string{"chart", "state"},
		),
		Stops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nopasaran_machines_stopped_total",
				Help: "Machines that stopped, by chart and outcome.",
			},
			[]string{"chart", "outcome"},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.Events, m.Actions, m.Transitions, m.Stops)
	return m
}

func (m *Metrics) Observe(ctx context.Context, s *core.Step) {
	switch s.Kind {
	case core.StepEvent:
		m.Events.WithLabelValues(s.Chart, s.Event, "true").Inc()
	case core.StepUnmatched:
		m.Events.WithLabelValues(s.Chart, s.Event, "false").Inc()
	case core.StepExecute:
		name := s.Line
		if c, err := core.ParseCommand(s.Line); err == nil {
			name = c.Name
		}
		m.Actions.WithLabelValues(s.Chart, name).Inc()
	case core.StepState:
		m.Transitions.WithLabelValues(s.Chart, s.To).Inc()
	case core.StepStopped:
		outcome := "ok"
		if s.Err != "" {
			outcome = "error"
		}
		m.Stops.WithLabelValues(s.Chart, outcome).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on the address until the context is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger logrus.FieldLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return serve(ctx, addr, mux, "metrics", logger)
}

// serve runs an HTTP server until the context is done.
func serve(ctx context.Context, addr string, h http.Handler, what string, logger logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	logger.WithField("address", addr).Infof("serving %s", what)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
