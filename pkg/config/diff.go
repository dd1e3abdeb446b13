package config

import "slices"

// ConfigDiff describes what changed between two configurations.
type ConfigDiff struct {
	// LogLevelChanged is true when the log level differs.
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// SessionChanged is true when any session default differs.
	SessionChanged bool

	// Commands lists per-command changes, in the order of the new config
	// followed by removals.
	Commands []CommandDiff
}

// CommandDiff describes a change to a single command, keyed by name.
type CommandDiff struct {
	Name     string
	Added    bool
	Removed  bool
	Modified bool
}

// CommandsChanged reports whether the command grammar differs.
func (d ConfigDiff) CommandsChanged() bool {
	return len(d.Commands) > 0
}

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.SessionChanged && !d.CommandsChanged()
}

// Diff compares two configs. A nil old config reports every command as added.
func Diff(old, new *Config) ConfigDiff {
	if old == nil {
		old = &Config{}
	}
	var d ConfigDiff

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}
	d.SessionChanged = old.Session != new.Session

	oldCmds := make(map[string]CommandConfig, len(old.Commands))
	for _, c := range old.Commands {
		oldCmds[c.Name] = c
	}
	seen := make(map[string]bool, len(new.Commands))
	for _, c := range new.Commands {
		seen[c.Name] = true
		prev, ok := oldCmds[c.Name]
		switch {
		case !ok:
			d.Commands = append(d.Commands, CommandDiff{Name: c.Name, Added: true})
		case !c.equal(prev):
			d.Commands = append(d.Commands, CommandDiff{Name: c.Name, Modified: true})
		}
	}
	for _, c := range old.Commands {
		if !seen[c.Name] {
			d.Commands = append(d.Commands, CommandDiff{Name: c.Name, Removed: true})
		}
	}
	return d
}

func (c CommandConfig) equal(o CommandConfig) bool {
	return c.Name == o.Name &&
		c.Action == o.Action &&
		slices.Equal(c.Patterns, o.Patterns) &&
		c.Regexp == o.Regexp &&
		c.MatchInterim == o.MatchInterim &&
		c.Fuzzy == o.Fuzzy &&
		c.FuzzyThreshold == o.FuzzyThreshold &&
		c.BestMatchOnly == o.BestMatchOnly &&
		c.Scorer == o.Scorer
}
