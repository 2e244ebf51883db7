// Package metrics counts registrar calls and events with Prometheus.
//
// There is no HTTP listener; the CLI dumps the registry in textfile-collector
// format after each invocation.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/registrar"
)

// Call outcomes used as the "result" label.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Sink is both a registrar.EventSink and a registrar.CallObserver.
type Sink struct {
	registry   *prometheus.Registry
	events     *prometheus.CounterVec
	calls      *prometheus.CounterVec
	rejections *prometheus.CounterVec
	lastSeq    prometheus.Gauge
}

var (
	_ registrar.EventSink    = (*Sink)(nil)
	_ registrar.CallObserver = (*Sink)(nil)
)

// New registers the registrar collectors on a fresh registry.
func New() *Sink {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Sink{
		registry: reg,
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_events_total",
			Help: "Events emitted after committed calls.",
		}, []string{"kind"}),
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_calls_total",
			Help: "Registrar calls by operation and result.",
		}, []string{"op", "result"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_rejections_total",
			Help: "Rejected calls by error kind.",
		}, []string{"op", "kind"}),
		lastSeq: factory.NewGauge(prometheus.GaugeOpts{
			Name: "registrar_last_event_seq",
			Help: "Sequence number of the last emitted event.",
		}),
	}
}

// Registry exposes the underlying registry.
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// Emit implements registrar.EventSink.
func (s *Sink) Emit(_ context.Context, ev ir.Event) {
	s.events.WithLabelValues(string(ev.Kind)).Inc()
	s.lastSeq.Set(float64(ev.Seq))
}

// ObserveCall implements registrar.CallObserver.
func (s *Sink) ObserveCall(op string, err error) {
	if err == nil {
		s.calls.WithLabelValues(op, ResultOK).Inc()
		return
	}
	if kind, ok := registrar.KindOf(err); ok {
		s.calls.WithLabelValues(op, ResultRejected).Inc()
		s.rejections.WithLabelValues(op, string(kind)).Inc()
		return
	}
	s.calls.WithLabelValues(op, ResultFailed).Inc()
}

// WriteTextfile writes the registry to path for the node exporter's
// textfile collector.
func (s *Sink) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, s.registry)
}
