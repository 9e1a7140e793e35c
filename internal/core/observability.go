package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer opens a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a span, recording the outcome.
type TraceSpan interface {
	End(err error)
}

// ExpvarMetricsRecorder aggregates per-operation counters into an
// expvar.Map for /debug/vars scraping.
type ExpvarMetricsRecorder struct {
	ops *expvar.Map
}

// NewExpvarMetricsRecorder returns an unpublished recorder; call Publish to
// expose it.
func NewExpvarMetricsRecorder() *ExpvarMetricsRecorder {
	return &ExpvarMetricsRecorder{ops: new(expvar.Map).Init()}
}

// Publish registers the counters under name. Publishing the same name twice
// panics, per expvar rules.
func (r *ExpvarMetricsRecorder) Publish(name string) {
	expvar.Publish(name, r.ops)
}

// Var exposes the underlying map.
func (r *ExpvarMetricsRecorder) Var() expvar.Var { return r.ops }

func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	r.ops.Add(operation+"_total", 1)
	if !success {
		r.ops.Add(operation+"_failures", 1)
	}
	r.ops.Add(operation+"_duration_ms", duration.Milliseconds())
}

// PrometheusMetricsRecorder exports operation counts and latencies.
type PrometheusMetricsRecorder struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the collectors with reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campuslife",
		Subsystem: "directory",
		Name:      "operations_total",
		Help:      "Service operations by outcome.",
	}, []string{"operation", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "campuslife",
		Subsystem: "directory",
		Name:      "operation_duration_seconds",
		Help:      "Service operation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	for _, c := range []prometheus.Collector{total, duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return &PrometheusMetricsRecorder{total: total, duration: duration}, nil
}

func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := "ok"
	if !success {
		status = "error"
	}
	r.total.WithLabelValues(operation, status).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// JSONTraceTracer emits one JSON line per completed span.
type JSONTraceTracer struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

// NewJSONTraceTracer writes spans to w.
func NewJSONTraceTracer(w io.Writer) *JSONTraceTracer {
	return &JSONTraceTracer{enc: json.NewEncoder(w), now: time.Now}
}

func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{tracer: t, operation: operation, start: t.now()}
}

type jsonSpan struct {
	tracer    *JSONTraceTracer
	operation string
	start     time.Time
}

type traceRecord struct {
	Operation  string `json:"operation"`
	StartedAt  string `json:"startedAt"`
	DurationMS int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

func (s *jsonSpan) End(err error) {
	record := traceRecord{
		Operation:  s.operation,
		StartedAt:  s.start.UTC().Format(time.RFC3339Nano),
		DurationMS: s.tracer.now().Sub(s.start).Milliseconds(),
	}
	if err != nil {
		record.Error = err.Error()
	}
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	_ = s.tracer.enc.Encode(record)
}

var (
	_ MetricsRecorder = (*ExpvarMetricsRecorder)(nil)
	_ MetricsRecorder = (*PrometheusMetricsRecorder)(nil)
	_ Tracer          = (*JSONTraceTracer)(nil)
)
