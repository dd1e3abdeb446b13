package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/MrWong99/listenkit/pkg/command"
	"github.com/MrWong99/listenkit/pkg/similarity"
)

// ErrActionNotRegistered is returned by [Registry.Lookup] and [BuildCommands]
// when a command references an action that has no registered callback.
var ErrActionNotRegistered = errors.New("config: action not registered")

// Registry maps action names to command callbacks.
//
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]command.Callback
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]command.Callback)}
}

// Register binds cb to name, replacing any previous binding.
func (r *Registry) Register(name string, cb command.Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = cb
}

// Lookup returns the callback registered under name.
func (r *Registry) Lookup(name string) (command.Callback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cb, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrActionNotRegistered, name)
	}
	return cb, nil
}

// Actions returns the registered action names in sorted order.
func (r *Registry) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildCommands turns the commands declared in cfg into runnable commands,
// resolving each action through reg. All unresolved actions are reported in
// one joined error.
func BuildCommands(cfg *Config, reg *Registry) ([]command.Command, error) {
	cmds := make([]command.Command, 0, len(cfg.Commands))
	var errs []error
	for i, c := range cfg.Commands {
		cb, err := reg.Lookup(c.ActionName())
		if err != nil {
			errs = append(errs, fmt.Errorf("commands[%d] %q: %w", i, c.Name, err))
			continue
		}
		cmd, err := c.toCommand(cb)
		if err != nil {
			errs = append(errs, fmt.Errorf("commands[%d] %q: %w", i, c.Name, err))
			continue
		}
		cmds = append(cmds, cmd)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cmds, nil
}

func (c CommandConfig) toCommand(cb command.Callback) (command.Command, error) {
	patterns := command.Literals(c.Patterns...)
	if c.Regexp != "" {
		re, err := regexp.Compile(c.Regexp)
		if err != nil {
			return command.Command{}, fmt.Errorf("regexp: %w", err)
		}
		patterns = append(patterns, command.Regexp(re))
	}
	scorer, ok := similarity.ByName(c.Scorer)
	if !ok {
		return command.Command{}, fmt.Errorf("unknown scorer %q", c.Scorer)
	}
	cmd := command.Command{
		Name:           c.Name,
		Patterns:       patterns,
		MatchInterim:   c.MatchInterim,
		Fuzzy:          c.Fuzzy,
		FuzzyThreshold: c.FuzzyThreshold,
		BestMatchOnly:  c.BestMatchOnly,
		Scorer:         scorer,
		Callback:       cb,
	}
	if err := command.Validate(cmd); err != nil {
		return command.Command{}, err
	}
	return cmd, nil
}
