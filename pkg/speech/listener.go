// Package speech binds a voice command grammar to a listening session.
//
// A [Listener] subscribes to a [session.Orchestrator], mirrors its state and
// runs a [command.Engine] over every transcript change:
//
//	orch := session.New(rec)
//	l, err := speech.Listen(orch, []command.Command{{
//		Name:     "clear",
//		Patterns: command.Literals("clear"),
//		Callback: func(ctx context.Context, m command.Match) error {
//			m.ResetTranscript()
//			return nil
//		},
//	}})
//	if err != nil { ... }
//	defer l.Close()
//	_ = orch.StartListening(ctx, session.ListenOptions{Continuous: true})
//
// Several listeners may share one orchestrator. Each sees the same
// transcript and evaluates its own commands.
package speech

import (
	"context"
	"log/slog"
	"sync"

	"github.com/MrWong99/listenkit/pkg/command"
	"github.com/MrWong99/listenkit/pkg/observe"
	"github.com/MrWong99/listenkit/pkg/session"
	"github.com/MrWong99/listenkit/pkg/transcript"
)

// Option configures a [Listener].
type Option func(*Listener)

// WithOnChange registers fn to observe every transcript snapshot the
// listener receives. For transcript changes fn runs after the commands were
// evaluated; snapshots left by an aborted turn are passed on without
// evaluation.
func WithOnChange(fn func(transcript.Snapshot)) Option {
	return func(l *Listener) {
		l.onChange = fn
	}
}

// WithMatches makes the listener publish every match on ch. Sends never
// block; matches are dropped when ch is full.
func WithMatches(ch chan<- command.Match) Option {
	return func(l *Listener) {
		l.matches = ch
	}
}

// WithLogger sets the logger used by the listener and its engine.
// Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(l *Listener) {
		l.logger = log
	}
}

// WithMetrics sets the metric instruments of the listener's engine.
func WithMetrics(m *observe.Metrics) Option {
	return func(l *Listener) {
		l.metrics = m
	}
}

// Listener evaluates a set of commands against one orchestrator's
// transcript.
//
// All methods are safe for concurrent use.
type Listener struct {
	orch     *session.Orchestrator
	engine   *command.Engine
	logger   *slog.Logger
	metrics  *observe.Metrics
	onChange func(transcript.Snapshot)
	matches  chan<- command.Match

	mu           sync.Mutex
	id           string
	snap         transcript.Snapshot
	listening    bool
	micAvailable bool
	closed       bool
}

// Listen validates cmds, subscribes to orch and returns the listener. An
// invalid command fails the call before anything is subscribed.
func Listen(orch *session.Orchestrator, cmds []command.Command, opts ...Option) (*Listener, error) {
	l := &Listener{
		orch:   orch,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}

	engineOpts := []command.Option{command.WithLogger(l.logger)}
	if l.metrics != nil {
		engineOpts = append(engineOpts, command.WithMetrics(l.metrics))
	}
	engine, err := command.NewEngine(cmds, engineOpts...)
	if err != nil {
		return nil, err
	}
	l.engine = engine

	st := orch.State()
	l.snap = orch.Snapshot()
	l.listening = st.Listening
	l.micAvailable = st.MicrophoneAvailable

	l.id = orch.Subscribe(session.Callbacks{
		OnListeningChange:              l.handleListening,
		OnMicrophoneAvailabilityChange: l.handleMicrophone,
		OnTranscriptChange:             l.handleTranscript,
		OnClearTranscript:              l.handleClear,
		OnInterimDiscarded:             l.handleDiscard,
	})
	return l, nil
}

// Transcript returns the final and interim text combined.
func (l *Listener) Transcript() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap.Transcript()
}

// InterimTranscript returns the provisional text of the running utterance.
func (l *Listener) InterimTranscript() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap.Interim
}

// FinalTranscript returns the committed text.
func (l *Listener) FinalTranscript() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap.Final
}

// Listening reports whether the session is listening.
func (l *Listener) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listening
}

// MicrophoneAvailable reports whether the microphone can be used.
func (l *Listener) MicrophoneAvailable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.micAvailable
}

// SetCommands replaces the command set. On error the previous set stays
// active.
func (l *Listener) SetCommands(cmds []command.Command) error {
	return l.engine.SetCommands(cmds)
}

// Commands returns the active command set.
func (l *Listener) Commands() []command.Command {
	return l.engine.Commands()
}

// ResetTranscript clears the shared session transcript. It is the reset
// hook handed to matched commands.
func (l *Listener) ResetTranscript() {
	_ = l.orch.ResetTranscript(context.Background())
}

// Close unsubscribes the listener. Safe to call multiple times.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	id := l.id
	l.mu.Unlock()

	l.orch.Unsubscribe(id)
	return nil
}

func (l *Listener) handleListening(listening bool) {
	l.mu.Lock()
	l.listening = listening
	l.mu.Unlock()
}

func (l *Listener) handleMicrophone(available bool) {
	l.mu.Lock()
	l.micAvailable = available
	l.mu.Unlock()
}

func (l *Listener) handleClear() {
	l.mu.Lock()
	l.snap = transcript.Snapshot{}
	l.mu.Unlock()
}

// handleDiscard mirrors the snapshot left by an abort. The final text did
// not change, so commands are not evaluated again.
func (l *Listener) handleDiscard(snap transcript.Snapshot) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.snap = snap
	l.mu.Unlock()

	if l.onChange != nil {
		l.onChange(snap)
	}
}

func (l *Listener) handleTranscript(snap transcript.Snapshot) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.snap = snap
	l.mu.Unlock()

	for _, m := range l.engine.Evaluate(context.Background(), snap, l.ResetTranscript) {
		l.publish(m)
	}
	if l.onChange != nil {
		l.onChange(snap)
	}
}

func (l *Listener) publish(m command.Match) {
	if l.matches == nil {
		return
	}
	select {
	case l.matches <- m:
	default:
		l.logger.Debug("speech: match dropped, channel full", "command", m.Command)
	}
}
