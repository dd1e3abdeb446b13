// Package recognizer defines the port through which listenkit consumes a
// platform speech recognizer.
//
// A recognizer wraps a continuous speech-to-text engine (a browser Web Speech
// bridge, a cloud streaming API, a local model) and exposes a uniform
// turn-based interface: Start opens a recognition turn, Stop lets the current
// utterance finalise, and Abort discards it. While a turn is running the
// recognizer reports progress through the attached [Handlers]: append-style
// result batches, a single end-of-turn event, and errors.
//
// Adapters are supplied by the host application. listenkit never captures
// audio itself.
package recognizer

import (
	"context"
	"errors"
)

// ErrAlreadyStarted is returned by [Recognizer.Start] when a turn is already
// running. Callers treat it as a no-op.
var ErrAlreadyStarted = errors.New("recognizer: already started")

// Error codes reported through [ErrorEvent.Code]. Only [ErrorNotAllowed] is
// acted upon; the others are informational.
const (
	// ErrorNotAllowed signals that the user or platform refused microphone
	// access.
	ErrorNotAllowed = "not-allowed"

	// ErrorNoSpeech signals that the turn ended without detected speech.
	ErrorNoSpeech = "no-speech"

	// ErrorNetwork signals a transport failure in a remote recognizer.
	ErrorNetwork = "network"

	// ErrorAborted signals that the turn was aborted.
	ErrorAborted = "aborted"
)

// Kind tags where a recognizer implementation comes from. It is supplied by
// the adapter at construction time.
type Kind int

const (
	// Native is a recognizer built into the host platform.
	Native Kind = iota

	// Polyfill is a recognizer installed by the application to replace or
	// stand in for the native one.
	Polyfill
)

// String returns the lower-case name of k.
func (k Kind) String() string {
	switch k {
	case Native:
		return "native"
	case Polyfill:
		return "polyfill"
	}
	return "unknown"
}

// Alternative is one recognition hypothesis for a result.
type Alternative struct {
	// Transcript is the recognised text.
	Transcript string

	// Confidence is the recogniser's confidence (0.0–1.0). May be zero when
	// the platform does not report it.
	Confidence float64
}

// Result is one entry of a [ResultEvent]. The first alternative is the
// recognizer's best guess.
type Result struct {
	// IsFinal reports whether the recognizer will revise this result further.
	IsFinal bool

	// Alternatives are ordered best-first.
	Alternatives []Alternative
}

// Top returns the transcript of the best alternative, or "" when r carries
// no alternatives.
func (r Result) Top() string {
	if len(r.Alternatives) == 0 {
		return ""
	}
	return r.Alternatives[0].Transcript
}

// ResultEvent is an append-style batch of results. Entries before
// ResultIndex were delivered by an earlier event and must not be processed
// again.
type ResultEvent struct {
	ResultIndex int
	Results     []Result
}

// ErrorEvent describes a recognizer failure.
type ErrorEvent struct {
	// Code classifies the failure, e.g. [ErrorNotAllowed].
	Code string

	// Message is a human-readable description. May be empty.
	Message string
}

// Error implements the error interface so that events can be logged and
// wrapped like ordinary errors.
func (e ErrorEvent) Error() string {
	if e.Message == "" {
		return "recognizer: " + e.Code
	}
	return "recognizer: " + e.Code + ": " + e.Message
}

// Handlers are the callbacks a [Recognizer] invokes while a turn runs. Any
// field may be nil. The zero value detaches all handlers.
type Handlers struct {
	// OnResult receives each result batch.
	OnResult func(ResultEvent)

	// OnEnd fires once when a recognition turn ends, whether naturally, after
	// Stop, or after Abort.
	OnEnd func()

	// OnError receives recognizer failures. A turn that fails still fires
	// OnEnd afterwards.
	OnError func(ErrorEvent)
}

// Recognizer is the abstraction over a continuous speech recognizer.
//
// Start, Stop and Abort are best-effort: they may return before the
// recognizer has actually changed state. Completion is signalled through
// [Handlers.OnEnd]. Implementations may invoke handlers synchronously from
// within Start, Stop or Abort, or from their own goroutines.
type Recognizer interface {
	// Start opens a new recognition turn. Returns [ErrAlreadyStarted] when a
	// turn is already running.
	Start(ctx context.Context) error

	// Stop ends the current turn gracefully, letting the final result for the
	// current utterance arrive before OnEnd fires.
	Stop(ctx context.Context) error

	// Abort ends the current turn immediately, discarding any unflushed
	// interim result.
	Abort(ctx context.Context) error

	// SetContinuous configures whether a single turn keeps listening across
	// pauses in speech.
	SetContinuous(continuous bool)

	// SetLanguage configures the BCP 47 recognition language. An empty
	// string selects the platform default.
	SetLanguage(lang string)

	// SetHandlers replaces the attached event handlers.
	SetHandlers(h Handlers)

	// Kind reports where this implementation comes from.
	Kind() Kind

	// SupportsContinuous reports whether the implementation can keep a
	// session alive across turns.
	SupportsContinuous() bool
}
