// Package observe provides observability primitives for scriptcast:
// OpenTelemetry metrics, distributed tracing and trace-aware structured
// logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from /metrics while a long generation run is in progress. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided for
// convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all scriptcast metrics.
const meterName = "github.com/MrWong99/scriptcast"

// Segment statuses used with [Metrics.RecordSegment].
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// SynthesisDuration tracks one provider synthesis call. Use with
	// attributes: attribute.String("provider", ...), attribute.String("voice", ...)
	SynthesisDuration metric.Float64Histogram

	// AssemblyDuration tracks joining clips into one file.
	AssemblyDuration metric.Float64Histogram

	// MasteringDuration tracks the SoX/ffmpeg mastering pass. Use with
	// attribute: attribute.String("preset", ...)
	MasteringDuration metric.Float64Histogram

	// RunDuration tracks a whole script-to-episode run.
	RunDuration metric.Float64Histogram

	// --- Counters ---

	// Segments counts planned segments by outcome. Use with attributes:
	//   attribute.String("voice", ...), attribute.String("status", ...)
	Segments metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ScriptWarnings counts recoverable script problems. Use with attribute:
	//   attribute.String("kind", ...), e.g. "unknown_speaker",
	//   "multiple_emotions", "unbalanced_markup", "unparseable_line"
	ScriptWarnings metric.Int64Counter

	// SynthesizedChars counts characters sent to the provider, the unit most
	// TTS services bill by.
	SynthesizedChars metric.Int64Counter
}

// secondsBuckets defines histogram bucket boundaries (in seconds) for
// synthesis and post-processing latencies.
var secondsBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SynthesisDuration, err = m.Float64Histogram("scriptcast.synthesis.duration",
		metric.WithDescription("Latency of one text-to-speech synthesis call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(secondsBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AssemblyDuration, err = m.Float64Histogram("scriptcast.assembly.duration",
		metric.WithDescription("Time to join segment clips into one file."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(secondsBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MasteringDuration, err = m.Float64Histogram("scriptcast.mastering.duration",
		metric.WithDescription("Time spent in the mastering chain."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(secondsBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RunDuration, err = m.Float64Histogram("scriptcast.run.duration",
		metric.WithDescription("End-to-end time of a script-to-episode run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(secondsBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Segments, err = m.Int64Counter("scriptcast.segments",
		metric.WithDescription("Planned segments by voice and outcome."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("scriptcast.provider.requests",
		metric.WithDescription("Total provider API requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ScriptWarnings, err = m.Int64Counter("scriptcast.script.warnings",
		metric.WithDescription("Recoverable script problems by kind."),
	); err != nil {
		return nil, err
	}
	if met.SynthesizedChars, err = m.Int64Counter("scriptcast.synthesis.characters",
		metric.WithDescription("Characters of processed text sent for synthesis."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records a provider request counter increment with the
// standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordSegment records the outcome of one planned segment.
func (m *Metrics) RecordSegment(ctx context.Context, voice, status string) {
	m.Segments.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("voice", voice),
			attribute.String("status", status),
		),
	)
}

// RecordWarning records one recoverable script problem.
func (m *Metrics) RecordWarning(ctx context.Context, kind string) {
	m.ScriptWarnings.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
