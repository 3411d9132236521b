package client

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Metrics struct {
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	requestsActive  prometheus.Gauge
}

func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"request_type", "status"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "Total number of executed requests.",
			},
			[]string{"request_type"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "errors_total",
				Help:      "Total number of failed requests by error kind.",
			},
			[]string{"request_type", "error"},
		),
		requestsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "requests_active",
				Help:      "Current number of in-flight requests.",
			},
		),
	}

	registerer.MustRegister(
		m.requestDuration,
		m.requestsTotal,
		m.errorsTotal,
		m.requestsActive,
	)

	return m
}

func (m *Metrics) begin() {
	if m == nil {
		return
	}
	m.requestsActive.Inc()
}

// RecordRequest records the outcome of one execution.
func (m *Metrics) RecordRequest(typ RequestType, start time.Time, err error) {
	if m == nil {
		return
	}
	m.requestsActive.Dec()

	status := "success"
	if err != nil {
		status = "error"
		m.errorsTotal.WithLabelValues(string(typ), errorKind(err)).Inc()
	}
	m.requestDuration.WithLabelValues(string(typ), status).Observe(time.Since(start).Seconds())
	m.requestsTotal.WithLabelValues(string(typ)).Inc()
}

func errorKind(err error) string {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Code
	}
	return "unknown"
}

type TracingHelper struct {
	tracer trace.Tracer
}

func NewTracingHelper(tracer trace.Tracer) *TracingHelper {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &TracingHelper{
		tracer: tracer,
	}
}

// StartSpan starts a new span with optional attributes
func (t *TracingHelper) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
