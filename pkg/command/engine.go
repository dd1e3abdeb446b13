package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/listenkit/pkg/observe"
	"github.com/MrWong99/listenkit/pkg/similarity"
	"github.com/MrWong99/listenkit/pkg/transcript"
)

// Match modes reported in metrics.
const (
	modeExact = "exact"
	modeFuzzy = "fuzzy"
)

// Option configures an [Engine].
type Option func(*Engine)

// WithLogger sets the logger used for callback failures.
// Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics sets the metric instruments. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// compiled is a validated command with its patterns prepared for matching.
type compiled struct {
	cmd      Command
	matchers []*Matcher // exact mode
	cleaned  []string   // fuzzy mode
	scorer   similarity.Scorer
}

// Engine evaluates a set of commands against transcript snapshots.
//
// Evaluate and SetCommands are safe for concurrent use. Callbacks run on the
// goroutine that called Evaluate.
type Engine struct {
	logger  *slog.Logger
	metrics *observe.Metrics

	mu   sync.RWMutex
	cmds []compiled
}

// NewEngine validates cmds and returns an engine that evaluates them. All
// invalid commands are reported in one joined error.
func NewEngine(cmds []Command, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:  slog.Default(),
		metrics: observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(e)
	}
	if err := e.SetCommands(cmds); err != nil {
		return nil, err
	}
	return e, nil
}

// SetCommands replaces the command set. When any command is invalid the
// current set is kept and the joined validation error is returned.
func (e *Engine) SetCommands(cmds []Command) error {
	prepared := make([]compiled, 0, len(cmds))
	var errs []error
	for _, c := range cmds {
		p, err := prepare(c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		prepared = append(prepared, p)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	e.mu.Lock()
	e.cmds = prepared
	e.mu.Unlock()
	return nil
}

// Commands returns the registered commands in registration order.
func (e *Engine) Commands() []Command {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Command, len(e.cmds))
	for i, c := range e.cmds {
		out[i] = c.cmd
	}
	return out
}

func prepare(c Command) (compiled, error) {
	if err := Validate(c); err != nil {
		return compiled{}, err
	}
	p := compiled{cmd: c, scorer: c.Scorer}
	if p.scorer == nil {
		p.scorer = similarity.Dice
	}
	for _, pat := range c.Patterns {
		if c.Fuzzy {
			p.cleaned = append(p.cleaned, cleanPattern(pat.String()))
			continue
		}
		m, err := Compile(pat)
		if err != nil {
			return compiled{}, fmt.Errorf("command %q: %w", c.Label(), err)
		}
		p.matchers = append(p.matchers, m)
	}
	return p, nil
}

// Evaluate matches every command against snap and invokes the callbacks of
// all matches. reset is handed to callbacks as [Match.ResetTranscript]; a
// nil reset is replaced by a no-op.
//
// Commands that do not opt into interim matching are skipped while snap
// carries interim text. A failing or panicking callback is logged and
// counted, and evaluation continues with the next match.
//
// Evaluate returns the matches in invocation order.
func (e *Engine) Evaluate(ctx context.Context, snap transcript.Snapshot, reset func()) []Match {
	e.mu.RLock()
	cmds := e.cmds
	e.mu.RUnlock()

	if reset == nil {
		reset = func() {}
	}

	ctx, span := observe.StartSpan(ctx, "command.evaluate",
		trace.WithAttributes(attribute.Int("commands", len(cmds))),
	)
	defer span.End()
	start := time.Now()
	defer observe.Since(ctx, e.metrics.CommandEvaluationDuration, start)

	combined := snap.Transcript()
	hasInterim := strings.TrimSpace(snap.Interim) != ""

	var matches []Match
	for _, c := range cmds {
		if hasInterim && !c.cmd.MatchInterim {
			continue
		}
		if strings.TrimSpace(combined) == "" {
			continue
		}
		test := snap.Final
		if c.cmd.MatchInterim {
			test = combined
		}
		test = strings.TrimSpace(test)
		if test == "" {
			continue
		}

		var found []Match
		if c.cmd.Fuzzy {
			found = c.fuzzy(test)
		} else {
			found = c.exact(test)
		}
		for _, m := range found {
			m.ResetTranscript = reset
			e.invoke(ctx, c.cmd, m)
			matches = append(matches, m)
		}
	}

	span.SetAttributes(attribute.Int("matches", len(matches)))
	return matches
}

func (c compiled) exact(test string) []Match {
	var out []Match
	for _, m := range c.matchers {
		params, ok := m.Match(test)
		if !ok {
			continue
		}
		out = append(out, Match{
			Command:    c.cmd.Label(),
			Pattern:    m.Pattern().String(),
			Params:     params,
			Transcript: test,
			Similarity: 1,
		})
	}
	return out
}

func (c compiled) fuzzy(test string) []Match {
	threshold := c.cmd.Threshold()
	var out []Match
	best := -1
	for _, pattern := range c.cleaned {
		score := c.scorer(pattern, test)
		if score < threshold {
			continue
		}
		m := Match{
			Command:    c.cmd.Label(),
			Pattern:    pattern,
			Transcript: test,
			Similarity: score,
			Fuzzy:      true,
		}
		if !c.cmd.BestMatchOnly {
			out = append(out, m)
			continue
		}
		if best < 0 || score > out[best].Similarity {
			out = []Match{m}
			best = 0
		}
	}
	return out
}

// invoke runs the command callback, isolating errors and panics.
func (e *Engine) invoke(ctx context.Context, c Command, m Match) {
	mode := modeExact
	if m.Fuzzy {
		mode = modeFuzzy
	}
	e.metrics.RecordCommandMatch(ctx, m.Command, mode)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return c.Callback(ctx, m)
	}()
	if err != nil {
		e.metrics.RecordCommandFailure(ctx, m.Command)
		observe.Logger(ctx, e.logger).Warn("command: callback failed",
			"command", m.Command,
			"pattern", m.Pattern,
			"err", err,
		)
	}
}

// cleanPattern keeps only letters, digits and spaces and collapses runs of
// whitespace, so that punctuation in a fuzzy pattern does not dilute the
// score.
func cleanPattern(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case unicode.IsSpace(r):
			return ' '
		}
		return -1
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
