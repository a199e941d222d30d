// Package obs instruments a reactive runtime: Prometheus metrics for flush
// activity and contained errors, plus an OpenTelemetry span per flush pass.
package obs

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vdx-ui/vdx/pkg/reactive"
)

// Config configures runtime instrumentation.
type Config struct {
	// Namespace is the metrics namespace (default: "vdx").
	Namespace string

	// Buckets are the histogram buckets for flush duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// TracerName is the tracer name (default: "vdx").
	TracerName string

	// Tracing enables a span per flush pass. Disabled by default; metrics
	// alone cover most deployments.
	Tracing bool
}

// Option configures instrumentation.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithBuckets sets the flush-duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// WithTracing enables per-flush tracing.
func WithTracing(enabled bool) Option {
	return func(c *Config) {
		c.Tracing = enabled
	}
}

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

func defaultConfig() Config {
	return Config{
		Namespace:  "vdx",
		Buckets:    prometheus.DefBuckets,
		Registry:   prometheus.DefaultRegisterer,
		TracerName: "vdx",
	}
}

type metrics struct {
	flushes       prometheus.Counter
	flushDuration prometheus.Histogram
	effectRuns    prometheus.Counter
	triggers      prometheus.Counter
	disposals     prometheus.Counter
	guardTrips    prometheus.Counter
	errors        *prometheus.CounterVec
}

func newMetrics(cfg Config) *metrics {
	factory := promauto.With(cfg.Registry)
	return &metrics{
		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "reactive",
			Name:      "flushes_total",
			Help:      "Completed flush passes.",
		}),
		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "reactive",
			Name:      "flush_duration_seconds",
			Help:      "Wall time per flush pass.",
			Buckets:   cfg.Buckets,
		}),
		effectRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "reactive",
			Name:      "effect_runs_total",
			Help:      "Effect executions.",
		}),
		triggers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "reactive",
			Name:      "triggers_total",
			Help:      "Dependency invalidations.",
		}),
		disposals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "reactive",
			Name:      "effect_disposals_total",
			Help:      "Effects disposed.",
		}),
		guardTrips: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "reactive",
			Name:      "guard_trips_total",
			Help:      "Run-ceiling and flush-ceiling trips.",
		}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "reactive",
			Name:      "errors_total",
			Help:      "Contained effect errors by phase.",
		}, []string{"phase"}),
	}
}

// Observer owns one set of collectors. Collectors register once; any
// number of runtimes may attach, which lets a server aggregate every
// session's activity into the same series.
type Observer struct {
	cfg     Config
	metrics *metrics
	tracer  trace.Tracer
}

// New creates an observer and registers its collectors.
func New(opts ...Option) *Observer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	o := &Observer{cfg: cfg, metrics: newMetrics(cfg)}
	if cfg.Tracing {
		o.tracer = otel.Tracer(cfg.TracerName)
	}
	return o
}

// Instrument is the single-runtime shorthand: New plus Attach.
func Instrument(rt *reactive.Runtime, opts ...Option) *Observer {
	o := New(opts...)
	o.Attach(rt)
	return o
}

// Attach wires metrics, error counting, and optional tracing into rt. A
// previously installed debug hook or error handler keeps working; the
// observer chains onto it.
func (o *Observer) Attach(rt *reactive.Runtime) {
	a := &attachment{obs: o}

	rt.RegisterFlushHooks(a.beforeFlush, a.afterFlush)

	prevHook := rt.SetDebugHook(a.observe)
	if prevHook != nil {
		rt.SetDebugHook(func(ev reactive.Event) {
			a.observe(ev)
			prevHook(ev)
		})
	}

	var prevErr reactive.ErrorHandler
	prevErr = rt.SetErrorHandler(func(err *reactive.EffectError) {
		o.metrics.errors.WithLabelValues(err.Phase.String()).Inc()
		a.recordSpanError(err)
		if prevErr != nil {
			prevErr(err)
		}
	})
}

// attachment is the per-runtime flush state: one runtime's flush loop is
// serialised, so the span and timer below never interleave within an
// attachment.
type attachment struct {
	obs *Observer

	mu    sync.Mutex
	start time.Time
	span  trace.Span
	runs  uint64 // effect runs observed, for span attributes
}

func (a *attachment) observe(ev reactive.Event) {
	switch ev.Op {
	case reactive.OpRun:
		a.obs.metrics.effectRuns.Inc()
		a.mu.Lock()
		a.runs++
		a.mu.Unlock()
	case reactive.OpTrigger:
		a.obs.metrics.triggers.Inc()
	case reactive.OpDispose:
		a.obs.metrics.disposals.Inc()
	case reactive.OpGuardTrip:
		a.obs.metrics.guardTrips.Inc()
	}
}

func (a *attachment) beforeFlush() {
	a.mu.Lock()
	a.start = time.Now()
	a.runs = 0
	if a.obs.tracer != nil {
		_, a.span = a.obs.tracer.Start(context.Background(), "reactive.flush")
	}
	a.mu.Unlock()
}

func (a *attachment) afterFlush() {
	a.mu.Lock()
	start, span, runs := a.start, a.span, a.runs
	a.span = nil
	a.mu.Unlock()

	if !start.IsZero() {
		a.obs.metrics.flushDuration.Observe(time.Since(start).Seconds())
	}
	a.obs.metrics.flushes.Inc()
	if span != nil {
		span.SetAttributes(attribute.Int64("reactive.effect_runs", int64(runs)))
		span.End()
	}
}

func (a *attachment) recordSpanError(err *reactive.EffectError) {
	a.mu.Lock()
	span := a.span
	a.mu.Unlock()
	if span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Phase.String())
}
