// Package session drives a speech recognizer through listening sessions and
// fans transcript updates out to subscribers.
//
// An [Orchestrator] owns one [recognizer.Recognizer] and the authoritative
// [transcript.Machine] for it. Continuous listening is realised as a chain of
// discrete recognition turns: whenever a turn ends and no stop was requested
// the orchestrator starts the next one. This hides the differences between
// platforms whose native continuous mode is unreliable.
//
// Public control methods never fail because of platform conditions. A
// refused microphone, a failed start or a recognizer that never reports the
// end of its turn are absorbed and surfaced through [Callbacks] only.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	"github.com/MrWong99/listenkit/pkg/observe"
	"github.com/MrWong99/listenkit/pkg/recognizer"
	"github.com/MrWong99/listenkit/pkg/transcript"
)

// ErrInvalidLanguage is returned by [Orchestrator.StartListening] for a
// language that is not a well-formed BCP 47 tag.
var ErrInvalidLanguage = errors.New("session: invalid language tag")

// ListenOptions configure a listening session.
type ListenOptions struct {
	// Continuous keeps listening across pauses in speech by restarting the
	// recognizer after every turn.
	Continuous bool

	// Language is a BCP 47 tag such as "en-US". Empty keeps the current
	// language.
	Language string
}

// Callbacks receive session notifications. Any field may be nil. Callbacks
// run synchronously on the goroutine that caused the change; they must not
// block.
type Callbacks struct {
	OnListeningChange              func(listening bool)
	OnMicrophoneAvailabilityChange func(available bool)
	OnTranscriptChange             func(snap transcript.Snapshot)
	OnClearTranscript              func()
	OnRecognitionSupportChange     func()

	// OnInterimDiscarded reports the transcript after an abort dropped its
	// interim text. The final text is unchanged, so it is not a transcript
	// change.
	OnInterimDiscarded func(snap transcript.Snapshot)
}

// State is a point-in-time view of the session.
type State struct {
	Listening           bool
	MicrophoneAvailable bool
	Continuous          bool
	Language            string
}

// Orchestrator coordinates one recognizer, its transcript and its
// subscribers.
//
// All methods are safe for concurrent use, but StartListening,
// StopListening, AbortListening and ResetTranscript are expected to be
// serialised by the caller. Overlapping control calls are not queued.
type Orchestrator struct {
	native      recognizer.Recognizer
	machine     *transcript.Machine
	stopTimeout time.Duration
	logger      *slog.Logger
	metrics     *observe.Metrics

	mu sync.Mutex

	rec recognizer.Recognizer
	// gen increments on every recognizer swap. Handlers bound to an older
	// generation are ignored.
	gen uint64

	continuous   bool
	language     string
	listening    bool
	running      bool // a turn was started and has not ended yet
	pause        bool // the next end event must not restart
	micAvailable bool
	// disabled is set after a failed start or a refused microphone. Starts
	// are no-ops until the recognizer is swapped.
	disabled bool
	pending  *completion

	subs map[string]Callbacks
}

// New returns an orchestrator driving native. native may be nil when the
// platform has no recognizer; every control call is then a no-op until a
// polyfill is applied.
func New(native recognizer.Recognizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		native:       native,
		machine:      transcript.NewMachine(),
		stopTimeout:  defaultStopTimeout,
		logger:       slog.Default(),
		metrics:      observe.DefaultMetrics(),
		micAvailable: true,
		subs:         make(map[string]Callbacks),
	}
	for _, opt := range opts {
		opt(o)
	}
	if native != nil {
		o.attach(native)
	}
	return o
}

var (
	defaultMu   sync.Mutex
	defaultOrch *Orchestrator
)

// Default returns the process-wide orchestrator, creating one without a
// recognizer on first use. Hosts typically call [Orchestrator.ApplyPolyfill]
// on it or replace it with [SetDefault].
func Default() *Orchestrator {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultOrch == nil {
		defaultOrch = New(nil)
	}
	return defaultOrch
}

// SetDefault replaces the process-wide orchestrator.
func SetDefault(o *Orchestrator) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultOrch = o
}

// --- Capability and state queries ---

// SupportsRecognition reports whether a recognizer is attached.
func (o *Orchestrator) SupportsRecognition() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rec != nil
}

// SupportsContinuousListening reports whether the attached recognizer can
// keep a session alive across turns.
func (o *Orchestrator) SupportsContinuousListening() bool {
	o.mu.Lock()
	rec := o.rec
	o.mu.Unlock()
	return rec != nil && rec.SupportsContinuous()
}

// State returns the current session state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return State{
		Listening:           o.listening,
		MicrophoneAvailable: o.micAvailable,
		Continuous:          o.continuous,
		Language:            o.language,
	}
}

// Snapshot returns the current transcript.
func (o *Orchestrator) Snapshot() transcript.Snapshot {
	return o.machine.Snapshot()
}

// --- Subscribers ---

// Subscribe registers cb and returns an opaque id for [Orchestrator.Unsubscribe].
func (o *Orchestrator) Subscribe(cb Callbacks) string {
	id := uuid.NewString()
	o.mu.Lock()
	o.subs[id] = cb
	o.mu.Unlock()
	o.metrics.Subscribers.Add(context.Background(), 1)
	return id
}

// Unsubscribe removes the subscriber registered under id. Unknown ids are
// ignored.
func (o *Orchestrator) Unsubscribe(id string) {
	o.mu.Lock()
	_, ok := o.subs[id]
	delete(o.subs, id)
	o.mu.Unlock()
	if ok {
		o.metrics.Subscribers.Add(context.Background(), -1)
	}
}

// notify calls fn for every subscriber outside the lock. A panicking
// subscriber is logged and skipped.
func (o *Orchestrator) notify(event string, fn func(Callbacks)) {
	o.mu.Lock()
	subs := make([]Callbacks, 0, len(o.subs))
	for _, cb := range o.subs {
		subs = append(subs, cb)
	}
	o.mu.Unlock()

	for _, cb := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("session: subscriber panic", "event", event, "panic", r)
				}
			}()
			fn(cb)
		}()
	}
}

func (o *Orchestrator) notifyListening(listening bool) {
	o.notify("listening", func(cb Callbacks) {
		if cb.OnListeningChange != nil {
			cb.OnListeningChange(listening)
		}
	})
}

func (o *Orchestrator) notifyMicrophone(available bool) {
	o.notify("microphone", func(cb Callbacks) {
		if cb.OnMicrophoneAvailabilityChange != nil {
			cb.OnMicrophoneAvailabilityChange(available)
		}
	})
}

func (o *Orchestrator) notifyDiscard(snap transcript.Snapshot) {
	o.notify("discard", func(cb Callbacks) {
		if cb.OnInterimDiscarded != nil {
			cb.OnInterimDiscarded(snap)
		}
	})
}

func (o *Orchestrator) notifyTranscript(snap transcript.Snapshot) {
	o.notify("transcript", func(cb Callbacks) {
		if cb.OnTranscriptChange != nil {
			cb.OnTranscriptChange(snap)
		}
	})
}

// --- Control ---

// StartListening starts a listening session.
//
// When the continuous flag or a non-empty language differs from the current
// configuration, the running turn is stopped first and the recognizer is
// reconfigured. When not already listening, a non-continuous session clears
// the transcript before the recognizer is started. A recognizer disabled by
// a failed start or a denied microphone stays disabled until a start
// changes the configuration.
//
// The only error is [ErrInvalidLanguage]. Platform failures mark the
// microphone unavailable instead.
func (o *Orchestrator) StartListening(ctx context.Context, opts ListenOptions) error {
	if opts.Language != "" {
		if _, err := language.Parse(opts.Language); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidLanguage, opts.Language, err)
		}
	}

	ctx, span := observe.StartSpan(ctx, "session.start_listening",
		trace.WithAttributes(
			attribute.Bool("continuous", opts.Continuous),
			attribute.String("language", opts.Language),
		),
	)
	defer span.End()

	o.mu.Lock()
	rec := o.rec
	if rec == nil {
		o.mu.Unlock()
		return nil
	}
	reconfigure := opts.Continuous != o.continuous ||
		(opts.Language != "" && opts.Language != o.language)
	disabled := o.disabled
	active := o.listening || o.running
	o.mu.Unlock()

	if disabled {
		if !reconfigure {
			return nil
		}
		observe.Logger(ctx, o.logger).Info("session: reconfiguration re-enables recognizer",
			"kind", rec.Kind().String(),
		)
		o.attach(rec)
		o.restoreMicrophone()
		active = false
	}

	if reconfigure {
		if active {
			o.halt(ctx, false)
		}

		o.mu.Lock()
		o.continuous = opts.Continuous
		if opts.Language != "" {
			o.language = opts.Language
		}
		lang := o.language
		o.mu.Unlock()

		rec.SetContinuous(opts.Continuous)
		if lang != "" {
			rec.SetLanguage(lang)
		}
	}

	o.mu.Lock()
	if o.listening || o.rec != rec {
		o.mu.Unlock()
		return nil
	}
	o.pause = false
	continuous := o.continuous
	o.mu.Unlock()

	if !continuous {
		o.clear(ctx)
	}
	o.start(ctx, rec, false)
	return nil
}

// StopListening ends the session gracefully, letting the final result of
// the current utterance arrive. Subscribers see listening=false immediately.
// When a turn is running StopListening waits for its end, at most for the
// stop timeout.
func (o *Orchestrator) StopListening(ctx context.Context) error {
	ctx, span := observe.StartSpan(ctx, "session.stop_listening")
	defer span.End()
	o.halt(ctx, false)
	return nil
}

// AbortListening ends the session immediately and discards interim text
// that was not finalised. Otherwise it behaves like StopListening.
func (o *Orchestrator) AbortListening(ctx context.Context) error {
	ctx, span := observe.StartSpan(ctx, "session.abort_listening")
	defer span.End()
	o.halt(ctx, true)
	return nil
}

// ResetTranscript clears the transcript and aborts the running turn without
// requesting a pause, so a continuous session restarts immediately with
// empty state.
func (o *Orchestrator) ResetTranscript(ctx context.Context) error {
	o.clear(ctx)

	o.mu.Lock()
	rec := o.rec
	running := o.running
	o.mu.Unlock()

	if rec != nil && running {
		if err := rec.Abort(ctx); err != nil {
			observe.Logger(ctx, o.logger).Warn("session: abort on reset failed", "err", err)
		}
	}
	return nil
}

// ApplyPolyfill replaces the active recognizer with r. The previous
// recognizer is disabled first. Subscribers are kept and notified through
// OnRecognitionSupportChange.
func (o *Orchestrator) ApplyPolyfill(ctx context.Context, r recognizer.Recognizer) {
	o.swap(ctx, r)
}

// RemovePolyfill reverts to the native recognizer when a polyfill is active.
func (o *Orchestrator) RemovePolyfill(ctx context.Context) {
	o.mu.Lock()
	rec := o.rec
	o.mu.Unlock()
	if rec == nil || rec.Kind() != recognizer.Polyfill {
		return
	}
	o.swap(ctx, o.native)
}

func (o *Orchestrator) swap(ctx context.Context, r recognizer.Recognizer) {
	o.mu.Lock()
	old := o.rec
	o.mu.Unlock()

	if old != nil {
		o.disable(ctx, old)
	}
	o.attach(r)
	o.restoreMicrophone()
	o.notify("support", func(cb Callbacks) {
		if cb.OnRecognitionSupportChange != nil {
			cb.OnRecognitionSupportChange()
		}
	})
}

// restoreMicrophone marks the microphone available again after a swap or a
// reconfiguration.
func (o *Orchestrator) restoreMicrophone() {
	o.mu.Lock()
	changed := !o.micAvailable
	o.micAvailable = true
	o.mu.Unlock()
	if changed {
		o.notifyMicrophone(true)
	}
}

// attach makes r the active recognizer and binds handlers to a new
// generation. r may be nil.
func (o *Orchestrator) attach(r recognizer.Recognizer) {
	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.rec = r
	o.running = false
	o.pause = false
	o.disabled = false
	continuous := o.continuous
	lang := o.language
	o.mu.Unlock()

	if r == nil {
		return
	}
	r.SetContinuous(continuous)
	if lang != "" {
		r.SetLanguage(lang)
	}
	r.SetHandlers(recognizer.Handlers{
		OnResult: func(ev recognizer.ResultEvent) { o.handleResult(gen, ev) },
		OnEnd:    func() { o.handleEnd(gen) },
		OnError:  func(ev recognizer.ErrorEvent) { o.handleError(gen, ev) },
	})
}

// disable detaches rec's handlers and stops it if a turn is running.
// Listening ends without waiting, since rec can no longer report its end.
func (o *Orchestrator) disable(ctx context.Context, rec recognizer.Recognizer) {
	rec.SetHandlers(recognizer.Handlers{})

	o.mu.Lock()
	running := o.running
	wasListening := o.listening
	pending := o.pending
	o.running = false
	o.listening = false
	o.pending = nil
	o.mu.Unlock()

	if running {
		if err := rec.Stop(ctx); err != nil {
			observe.Logger(ctx, o.logger).Warn("session: stop on disable failed", "err", err)
		}
	}
	pending.resolve()
	if wasListening {
		o.notifyListening(false)
	}
}

// start invokes the start primitive and records the outcome.
func (o *Orchestrator) start(ctx context.Context, rec recognizer.Recognizer, restart bool) {
	o.mu.Lock()
	o.running = true
	o.mu.Unlock()

	err := rec.Start(ctx)
	switch {
	case err == nil, errors.Is(err, recognizer.ErrAlreadyStarted):
		status := "ok"
		if err != nil {
			status = "already_started"
		}
		o.metrics.RecordStart(ctx, status)
		if restart {
			o.metrics.RecognizerRestarts.Add(ctx, 1)
		}

		o.mu.Lock()
		changed := !o.listening && o.rec == rec
		if o.rec == rec {
			o.listening = true
		}
		o.mu.Unlock()
		if changed {
			o.notifyListening(true)
		}

	default:
		o.metrics.RecordStart(ctx, "error")
		observe.Logger(ctx, o.logger).Warn("session: recognizer start failed",
			"kind", rec.Kind().String(),
			"restart", restart,
			"err", err,
		)

		o.mu.Lock()
		o.running = false
		o.disabled = true
		micChanged := o.micAvailable
		o.micAvailable = false
		wasListening := o.listening
		o.listening = false
		o.mu.Unlock()

		if micChanged {
			o.notifyMicrophone(false)
		}
		if wasListening {
			o.notifyListening(false)
		}
	}
}

// halt requests a pause and ends the running turn with stop or abort.
// Subscribers see listening=false before the primitive is invoked. When a
// turn is running, halt waits for its end event up to the stop timeout.
func (o *Orchestrator) halt(ctx context.Context, abort bool) {
	o.mu.Lock()
	rec := o.rec
	if rec == nil {
		o.mu.Unlock()
		return
	}
	o.pause = true
	wasListening := o.listening
	o.listening = false
	var pending *completion
	if o.running {
		if o.pending == nil {
			o.pending = newCompletion()
		}
		pending = o.pending
	}
	o.mu.Unlock()

	if wasListening {
		o.notifyListening(false)
	}

	var err error
	if abort {
		err = rec.Abort(ctx)
	} else {
		err = rec.Stop(ctx)
	}
	if err != nil {
		observe.Logger(ctx, o.logger).Warn("session: recognizer halt failed", "abort", abort, "err", err)
	}

	if abort && o.machine.DiscardInterim() {
		o.notifyDiscard(o.machine.Snapshot())
	}

	if pending == nil {
		return
	}
	start := time.Now()
	if !pending.wait(ctx, o.stopTimeout) {
		observe.Logger(ctx, o.logger).Debug("session: recognizer did not report end in time",
			"timeout", o.stopTimeout,
		)
	}
	observe.Since(ctx, o.metrics.RecognizerStopDuration, start)
}

// clear empties the transcript and notifies subscribers.
func (o *Orchestrator) clear(ctx context.Context) {
	o.machine.Clear()
	o.metrics.TranscriptClears.Add(ctx, 1)
	o.notify("clear", func(cb Callbacks) {
		if cb.OnClearTranscript != nil {
			cb.OnClearTranscript()
		}
	})
}

// --- Recognizer handlers ---

func (o *Orchestrator) current(gen uint64) (recognizer.Recognizer, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rec, o.gen == gen && o.rec != nil
}

func (o *Orchestrator) handleResult(gen uint64, ev recognizer.ResultEvent) {
	if _, ok := o.current(gen); !ok {
		return
	}
	ctx := context.Background()
	snap, changed := o.machine.Update(ev)
	if !changed {
		o.metrics.TranscriptDuplicates.Add(ctx, 1)
		return
	}
	o.metrics.TranscriptUpdates.Add(ctx, 1)
	o.notifyTranscript(snap)
}

func (o *Orchestrator) handleEnd(gen uint64) {
	o.mu.Lock()
	if o.gen != gen || o.rec == nil {
		o.mu.Unlock()
		return
	}
	rec := o.rec
	o.running = false
	pending := o.pending
	o.pending = nil
	pause := o.pause
	o.pause = false
	restart := !pause && o.continuous && o.listening && !o.disabled
	wasListening := o.listening
	if !restart {
		o.listening = false
	}
	o.mu.Unlock()

	pending.resolve()

	if restart {
		o.start(context.Background(), rec, true)
		return
	}
	if wasListening {
		o.notifyListening(false)
	}
}

func (o *Orchestrator) handleError(gen uint64, ev recognizer.ErrorEvent) {
	rec, ok := o.current(gen)
	if !ok {
		return
	}
	ctx := context.Background()
	o.metrics.RecordRecognizerError(ctx, ev.Code)

	if ev.Code != recognizer.ErrorNotAllowed {
		o.logger.Info("session: recognizer error", "code", ev.Code, "message", ev.Message)
		return
	}

	o.logger.Warn("session: microphone access refused", "kind", rec.Kind().String(), "message", ev.Message)

	o.mu.Lock()
	o.disabled = true
	micChanged := o.micAvailable
	o.micAvailable = false
	o.mu.Unlock()

	if micChanged {
		o.notifyMicrophone(false)
	}
	o.disable(ctx, rec)
}
