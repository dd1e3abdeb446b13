// Package config provides the YAML configuration schema, loader and action
// registry for listenkit voice command grammars.
//
// A configuration file declares session defaults and a list of commands.
// Each command names an action; the host application registers a
// [command.Callback] per action in a [Registry] and turns the file into
// runnable commands with [BuildCommands]. A [Watcher] reloads the file when
// it changes.
package config

import (
	"log/slog"
	"time"

	"github.com/MrWong99/listenkit/pkg/session"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel maps l to the matching [slog.Level]. Unknown and empty levels
// map to [slog.LevelInfo].
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// Session holds the defaults applied to the orchestrator.
	Session SessionConfig `yaml:"session"`

	// Commands is the voice command grammar.
	Commands []CommandConfig `yaml:"commands"`
}

// SessionConfig holds listening defaults.
type SessionConfig struct {
	// Continuous restarts recognition after every turn.
	Continuous bool `yaml:"continuous"`

	// Language is a BCP 47 tag such as "en-US". Empty selects the platform
	// default.
	Language string `yaml:"language"`

	// StopTimeout bounds how long stop and abort wait for the recognizer.
	// Zero keeps the orchestrator default.
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

// Options returns the orchestrator options matching s.
func (s SessionConfig) Options() []session.Option {
	opts := []session.Option{session.WithDefaults(s.Continuous, s.Language)}
	if s.StopTimeout > 0 {
		opts = append(opts, session.WithStopTimeout(s.StopTimeout))
	}
	return opts
}

// ListenOptions returns the listen options matching s.
func (s SessionConfig) ListenOptions() session.ListenOptions {
	return session.ListenOptions{Continuous: s.Continuous, Language: s.Language}
}

// CommandConfig declares one voice command.
type CommandConfig struct {
	// Name uniquely identifies the command. Required.
	Name string `yaml:"name"`

	// Action is the registry key of the callback. Defaults to Name.
	Action string `yaml:"action"`

	// Patterns are literal alternatives in placeholder syntax, e.g.
	// "turn :state the lights" or "search for *".
	Patterns []string `yaml:"patterns"`

	// Regexp is an optional raw regular expression alternative.
	Regexp string `yaml:"regexp"`

	// MatchInterim evaluates the command against interim text.
	MatchInterim bool `yaml:"match_interim"`

	// Fuzzy selects approximate matching.
	Fuzzy bool `yaml:"fuzzy"`

	// FuzzyThreshold is the minimum similarity in [0, 1]. Zero selects the
	// default of 0.8; a tiny positive value such as 1e-9 accepts any
	// non-zero score.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`

	// BestMatchOnly fires only the best fuzzy alternative.
	BestMatchOnly bool `yaml:"best_match_only"`

	// Scorer names the fuzzy similarity measure: "dice" (default),
	// "jaro-winkler" or "phonetic".
	Scorer string `yaml:"scorer"`
}

// ActionName returns the registry key of c.
func (c CommandConfig) ActionName() string {
	if c.Action != "" {
		return c.Action
	}
	return c.Name
}
