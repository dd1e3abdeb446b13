package session

import (
	"log/slog"
	"time"

	"github.com/MrWong99/listenkit/pkg/observe"
)

// defaultStopTimeout bounds how long stop and abort wait for the recognizer
// to report the end of its turn.
const defaultStopTimeout = 100 * time.Millisecond

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithStopTimeout sets how long StopListening and AbortListening wait for
// the recognizer's end event. Non-positive values are ignored.
func WithStopTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.stopTimeout = d
		}
	}
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithMetrics sets the metric instruments. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithDefaults sets the recognizer configuration applied before the first
// StartListening call.
func WithDefaults(continuous bool, language string) Option {
	return func(o *Orchestrator) {
		o.continuous = continuous
		o.language = language
	}
}
