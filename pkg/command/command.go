// Package command matches spoken utterances against a declarative voice
// command grammar.
//
// A [Command] pairs one or more [Pattern] alternatives with a [Callback].
// Commands are evaluated by an [Engine] against every transcript update.
// In exact mode a pattern is compiled into an anchored case-insensitive
// regular expression (see [Pattern] for the placeholder syntax) and the
// callback receives the captured parameters. In fuzzy mode the pattern is
// scored against the utterance with a [similarity.Scorer] and the callback
// fires when the score reaches the command's threshold.
package command

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/MrWong99/listenkit/pkg/similarity"
)

// DefaultFuzzyThreshold is the similarity a fuzzy command requires when
// [Command.FuzzyThreshold] is zero.
const DefaultFuzzyThreshold = 0.8

// Sentinel errors returned by [Validate] and [NewEngine].
var (
	// ErrNoPatterns is returned for a command without any pattern.
	ErrNoPatterns = errors.New("command: no patterns")

	// ErrInvalidThreshold is returned for a fuzzy threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("command: fuzzy threshold must be within [0, 1]")

	// ErrNoCallback is returned for a command without a callback.
	ErrNoCallback = errors.New("command: nil callback")
)

// Callback is invoked once for every matching pattern. A returned error is
// logged and counted but never stops evaluation of other commands.
type Callback func(ctx context.Context, m Match) error

// Match describes one successful pattern match.
type Match struct {
	// Command is the name of the matched command.
	Command string

	// Pattern is the matched pattern text. In fuzzy mode it is the cleaned
	// pattern that was scored.
	Pattern string

	// Params holds the captured placeholder values in pattern order. It is
	// nil in fuzzy mode.
	Params []string

	// Transcript is the text the pattern was tested against.
	Transcript string

	// Similarity is the fuzzy score. It is 1 for exact matches.
	Similarity float64

	// Fuzzy reports whether the match was produced in fuzzy mode.
	Fuzzy bool

	// ResetTranscript clears the session transcript. It is never nil.
	ResetTranscript func()
}

// Command is one entry of a voice command grammar. Commands are treated as
// immutable once handed to an [Engine].
type Command struct {
	// Name identifies the command in logs and metrics. Defaults to the text
	// of the first pattern.
	Name string

	// Patterns are the alternative phrasings. At least one is required.
	Patterns []Pattern

	// MatchInterim evaluates the command against interim text as well.
	// Without it the command only sees final text and is skipped while the
	// recognizer is still revising.
	MatchInterim bool

	// Fuzzy selects approximate matching.
	Fuzzy bool

	// FuzzyThreshold is the minimum similarity for a fuzzy match.
	// Zero selects [DefaultFuzzyThreshold], so a threshold of exactly 0
	// cannot be set. Use a small positive value such as
	// math.SmallestNonzeroFloat64 to accept any non-zero score.
	FuzzyThreshold float64

	// BestMatchOnly invokes the callback only for the highest-scoring fuzzy
	// alternative.
	BestMatchOnly bool

	// Scorer computes fuzzy similarity. Defaults to [similarity.Dice].
	Scorer similarity.Scorer

	// Callback receives every match.
	Callback Callback
}

// Label returns the name used for c in logs and metrics.
func (c Command) Label() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Patterns) > 0 {
		return c.Patterns[0].String()
	}
	return "<unnamed>"
}

// Threshold returns the effective fuzzy threshold.
func (c Command) Threshold() float64 {
	if c.FuzzyThreshold == 0 {
		return DefaultFuzzyThreshold
	}
	return c.FuzzyThreshold
}

// Validate checks c for programmer errors. In exact mode every pattern must
// compile. All problems are reported together.
func Validate(c Command) error {
	var errs []error
	if len(c.Patterns) == 0 {
		errs = append(errs, ErrNoPatterns)
	}
	if c.Callback == nil {
		errs = append(errs, ErrNoCallback)
	}
	if math.IsNaN(c.FuzzyThreshold) || c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("%w: got %v", ErrInvalidThreshold, c.FuzzyThreshold))
	}
	if !c.Fuzzy {
		for _, p := range c.Patterns {
			if _, err := Compile(p); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("command %q: %w", c.Label(), err)
	}
	return nil
}
