// Package observe provides observability primitives for listenkit:
// OpenTelemetry metrics, distributed tracing and structured logging that
// carries trace correlation.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [Setup] builds
// SDK providers with a Prometheus exporter for host applications that
// expose a /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all listenkit metrics.
const meterName = "github.com/MrWong99/listenkit"

// Metrics holds all OpenTelemetry metric instruments for listenkit.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Transcript ---

	// TranscriptUpdates counts accepted result batches.
	TranscriptUpdates metric.Int64Counter

	// TranscriptDuplicates counts result batches dropped as repeated
	// terminal events.
	TranscriptDuplicates metric.Int64Counter

	// TranscriptClears counts transcript resets.
	TranscriptClears metric.Int64Counter

	// --- Commands ---

	// CommandMatches counts invoked command callbacks. Use with attributes:
	//   attribute.String("command", ...), attribute.String("mode", "exact"|"fuzzy")
	CommandMatches metric.Int64Counter

	// CommandFailures counts callbacks that returned an error or panicked.
	// Use with attribute:
	//   attribute.String("command", ...)
	CommandFailures metric.Int64Counter

	// CommandEvaluationDuration tracks the time spent matching one
	// transcript snapshot against all registered commands.
	CommandEvaluationDuration metric.Float64Histogram

	// --- Recognizer lifecycle ---

	// RecognizerStarts counts start attempts. Use with attribute:
	//   attribute.String("status", "ok"|"already_started"|"error")
	RecognizerStarts metric.Int64Counter

	// RecognizerRestarts counts automatic restarts in continuous mode.
	RecognizerRestarts metric.Int64Counter

	// RecognizerErrors counts error events. Use with attribute:
	//   attribute.String("code", ...)
	RecognizerErrors metric.Int64Counter

	// RecognizerStopDuration tracks how long stop and abort waited for the
	// recognizer to report the end of its turn.
	RecognizerStopDuration metric.Float64Histogram

	// --- HTTP ---

	// HTTPRequestDuration tracks status endpoint latency. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Gauges ---

	// Subscribers tracks the number of subscribers attached to sessions.
	Subscribers metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Command
// evaluation is sub-millisecond; stop waits are bounded by a timeout in the
// hundreds of milliseconds.
var latencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Transcript counters.
	if met.TranscriptUpdates, err = m.Int64Counter("listenkit.transcript.updates",
		metric.WithDescription("Total accepted recognition result batches."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptDuplicates, err = m.Int64Counter("listenkit.transcript.duplicates",
		metric.WithDescription("Total result batches dropped as repeated terminal events."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptClears, err = m.Int64Counter("listenkit.transcript.clears",
		metric.WithDescription("Total transcript resets."),
	); err != nil {
		return nil, err
	}

	// Command instruments.
	if met.CommandMatches, err = m.Int64Counter("listenkit.command.matches",
		metric.WithDescription("Total command callbacks invoked by command name and match mode."),
	); err != nil {
		return nil, err
	}
	if met.CommandFailures, err = m.Int64Counter("listenkit.command.failures",
		metric.WithDescription("Total command callbacks that failed by command name."),
	); err != nil {
		return nil, err
	}
	if met.CommandEvaluationDuration, err = m.Float64Histogram("listenkit.command.evaluation.duration",
		metric.WithDescription("Latency of matching one transcript against all commands."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Recognizer instruments.
	if met.RecognizerStarts, err = m.Int64Counter("listenkit.recognizer.starts",
		metric.WithDescription("Total recognizer start attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.RecognizerRestarts, err = m.Int64Counter("listenkit.recognizer.restarts",
		metric.WithDescription("Total automatic recognizer restarts in continuous mode."),
	); err != nil {
		return nil, err
	}
	if met.RecognizerErrors, err = m.Int64Counter("listenkit.recognizer.errors",
		metric.WithDescription("Total recognizer error events by code."),
	); err != nil {
		return nil, err
	}
	if met.RecognizerStopDuration, err = m.Float64Histogram("listenkit.recognizer.stop.duration",
		metric.WithDescription("Time spent waiting for the recognizer to end its turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// HTTP instruments.
	if met.HTTPRequestDuration, err = m.Float64Histogram("listenkit.http.request.duration",
		metric.WithDescription("Latency of status endpoint requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.Subscribers, err = m.Int64UpDownCounter("listenkit.subscribers",
		metric.WithDescription("Number of subscribers attached to sessions."),
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

// RecordCommandMatch records one invoked command callback.
func (m *Metrics) RecordCommandMatch(ctx context.Context, command, mode string) {
	m.CommandMatches.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("mode", mode),
		),
	)
}

// RecordCommandFailure records one failed command callback.
func (m *Metrics) RecordCommandFailure(ctx context.Context, command string) {
	m.CommandFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("command", command)),
	)
}

// RecordStart records a recognizer start attempt with the given status.
func (m *Metrics) RecordStart(ctx context.Context, status string) {
	m.RecognizerStarts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordRecognizerError records a recognizer error event.
func (m *Metrics) RecordRecognizerError(ctx context.Context, code string) {
	m.RecognizerErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("code", code)),
	)
}

// Since records the seconds elapsed since start into h.
func Since(ctx context.Context, h metric.Float64Histogram, start time.Time) {
	h.Record(ctx, time.Since(start).Seconds())
}
