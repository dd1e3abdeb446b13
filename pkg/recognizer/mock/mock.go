// Package mock provides a scriptable test double for [recognizer.Recognizer].
//
// The mock tracks whether a turn is running, records every control call, and
// lets tests drive the attached handlers directly:
//
//	rec := mock.New(recognizer.Native)
//	orch := session.New(rec)
//	_ = orch.StartListening(ctx, session.ListenOptions{})
//	rec.EmitFinal("hello world")
//	rec.End()
//
// By default Stop and Abort fire OnEnd synchronously, mimicking an engine
// that completes its turn promptly. Set SilentStop to simulate an engine that
// never reports completion.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/listenkit/pkg/recognizer"
)

// Recognizer is a mock implementation of recognizer.Recognizer.
type Recognizer struct {
	mu sync.Mutex

	kind       recognizer.Kind
	continuous bool
	handlers   recognizer.Handlers
	running    bool

	// StartErr, if non-nil, is returned by Start instead of opening a turn.
	StartErr error

	// SilentStop suppresses the synchronous OnEnd normally fired by Stop and
	// Abort.
	SilentStop bool

	// NoContinuous makes SupportsContinuous report false.
	NoContinuous bool

	// --- Call records ---

	// StartCalls is the number of times Start was called.
	StartCalls int

	// StopCalls is the number of times Stop was called.
	StopCalls int

	// AbortCalls is the number of times Abort was called.
	AbortCalls int

	// Languages records every SetLanguage argument in order.
	Languages []string

	// ContinuousCalls records every SetContinuous argument in order.
	ContinuousCalls []bool
}

// New returns a mock recognizer tagged with kind.
func New(kind recognizer.Kind) *Recognizer {
	return &Recognizer{kind: kind}
}

// Start records the call. It returns StartErr when set, or
// recognizer.ErrAlreadyStarted when a turn is already running.
func (r *Recognizer) Start(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StartCalls++
	if r.StartErr != nil {
		return r.StartErr
	}
	if r.running {
		return recognizer.ErrAlreadyStarted
	}
	r.running = true
	return nil
}

// Stop records the call and ends the turn.
func (r *Recognizer) Stop(_ context.Context) error {
	r.mu.Lock()
	r.StopCalls++
	fire := r.running && !r.SilentStop
	if fire {
		r.running = false
	}
	onEnd := r.handlers.OnEnd
	r.mu.Unlock()

	if fire && onEnd != nil {
		onEnd()
	}
	return nil
}

// Abort records the call and ends the turn.
func (r *Recognizer) Abort(_ context.Context) error {
	r.mu.Lock()
	r.AbortCalls++
	fire := r.running && !r.SilentStop
	if fire {
		r.running = false
	}
	onEnd := r.handlers.OnEnd
	r.mu.Unlock()

	if fire && onEnd != nil {
		onEnd()
	}
	return nil
}

// SetContinuous records the call.
func (r *Recognizer) SetContinuous(continuous bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.continuous = continuous
	r.ContinuousCalls = append(r.ContinuousCalls, continuous)
}

// SetLanguage records the call.
func (r *Recognizer) SetLanguage(lang string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Languages = append(r.Languages, lang)
}

// SetHandlers replaces the attached handlers.
func (r *Recognizer) SetHandlers(h recognizer.Handlers) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = h
}

// Kind returns the kind supplied to New.
func (r *Recognizer) Kind() recognizer.Kind {
	return r.kind
}

// SupportsContinuous reports !NoContinuous.
func (r *Recognizer) SupportsContinuous() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.NoContinuous
}

// Running reports whether a turn is open. Thread-safe.
func (r *Recognizer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Continuous reports the last value passed to SetContinuous. Thread-safe.
func (r *Recognizer) Continuous() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.continuous
}

// Attached reports whether any handler is currently attached. Thread-safe.
func (r *Recognizer) Attached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.handlers
	return h.OnResult != nil || h.OnEnd != nil || h.OnError != nil
}

// Calls returns the start, stop and abort call counts. Thread-safe.
func (r *Recognizer) Calls() (start, stop, abort int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.StartCalls, r.StopCalls, r.AbortCalls
}

// Emit delivers ev to the attached OnResult handler.
func (r *Recognizer) Emit(ev recognizer.ResultEvent) {
	r.mu.Lock()
	onResult := r.handlers.OnResult
	r.mu.Unlock()
	if onResult != nil {
		onResult(ev)
	}
}

// EmitFinal delivers a batch holding a single final result.
func (r *Recognizer) EmitFinal(text string) {
	r.Emit(recognizer.ResultEvent{Results: []recognizer.Result{{
		IsFinal:      true,
		Alternatives: []recognizer.Alternative{{Transcript: text, Confidence: 0.9}},
	}}})
}

// EmitInterim delivers a batch holding a single non-final result.
func (r *Recognizer) EmitInterim(text string) {
	r.Emit(recognizer.ResultEvent{Results: []recognizer.Result{{
		Alternatives: []recognizer.Alternative{{Transcript: text}},
	}}})
}

// End closes the running turn and fires OnEnd, as a recognizer does when the
// speaker falls silent.
func (r *Recognizer) End() {
	r.mu.Lock()
	r.running = false
	onEnd := r.handlers.OnEnd
	r.mu.Unlock()
	if onEnd != nil {
		onEnd()
	}
}

// Fail delivers ev to the attached OnError handler.
func (r *Recognizer) Fail(ev recognizer.ErrorEvent) {
	r.mu.Lock()
	onError := r.handlers.OnError
	r.mu.Unlock()
	if onError != nil {
		onError(ev)
	}
}

// Ensure Recognizer implements recognizer.Recognizer at compile time.
var _ recognizer.Recognizer = (*Recognizer)(nil)
