package config

import (
	"log/slog"

	"github.com/MrWong99/listenkit/pkg/command"
)

// CommandSetter receives rebuilt command sets. [speech.Listener] and
// [command.Engine] both satisfy it.
type CommandSetter interface {
	SetCommands([]command.Command) error
}

// Reloader applies configuration changes to a running listener. Pass its
// Apply method to [Watcher.Run].
type Reloader struct {
	// Registry resolves command actions. Required.
	Registry *Registry

	// Target receives the rebuilt commands. Required.
	Target CommandSetter

	// Level, when set, follows log_level changes.
	Level *slog.LevelVar

	// Logger defaults to [slog.Default].
	Logger *slog.Logger
}

// Apply installs the parts of cfg that d reports as changed. The command
// grammar is rebuilt only when a command changed, and a grammar that fails
// to build leaves the previous one active.
func (r *Reloader) Apply(d ConfigDiff, cfg *Config) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}

	if d.LogLevelChanged && r.Level != nil {
		r.Level.Set(d.NewLogLevel.SlogLevel())
		log.Info("config: log level changed", "level", d.NewLogLevel)
	}
	if d.SessionChanged {
		log.Info("config: session defaults changed; they apply to the next start")
	}
	if !d.CommandsChanged() {
		return
	}

	cmds, err := BuildCommands(cfg, r.Registry)
	if err != nil {
		log.Error("config: rebuild commands", "err", err)
		return
	}
	if err := r.Target.SetCommands(cmds); err != nil {
		log.Error("config: install commands", "err", err)
		return
	}
	for _, c := range d.Commands {
		log.Info("config: command updated",
			"command", c.Name,
			"added", c.Added,
			"removed", c.Removed,
			"modified", c.Modified,
		)
	}
}
