package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ApplyFunc receives a non-empty change and the configuration it produced.
// [Reloader.Apply] is the usual implementation.
type ApplyFunc func(d ConfigDiff, cfg *Config)

// Watcher tracks a command grammar file on disk. [Watcher.Check] reloads it
// when its content changed and reports what differs from the grammar that
// was active before; [Watcher.Run] does the same on a timer.
//
// Edits that fail validation are logged and the last good configuration
// stays current. Edits that only touch formatting or comments produce an
// empty [ConfigDiff] and are not applied.
type Watcher struct {
	path     string
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	current *Config
	seen    fileState
}

// fileState identifies one version of the file on disk.
type fileState struct {
	modTime time.Time
	size    int64
	sum     [sha256.Size]byte
}

// sameStat reports whether the cheap stat fields still match.
func (s fileState) sameStat(info os.FileInfo) bool {
	return s.modTime.Equal(info.ModTime()) && s.size == info.Size()
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval used by [Watcher.Run]. The default
// is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatcherLogger sets the logger for reload events and configuration
// warnings. Defaults to [slog.Default].
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher loads the grammar file at path. The initial load must succeed.
// Nothing is polled until [Watcher.Check] or [Watcher.Run] is called.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, state, err := w.load()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.seen = state
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Check reloads the file if it changed since the last successful read and
// returns the difference to the previous configuration together with the
// now current one. An unchanged or semantically identical file yields an
// empty diff. A file that cannot be read or fails validation returns an
// error and leaves the current configuration in place.
func (w *Watcher) Check() (ConfigDiff, *Config, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return ConfigDiff{}, w.Current(), fmt.Errorf("config: stat %q: %w", w.path, err)
	}

	w.mu.Lock()
	unchanged := w.seen.sameStat(info)
	w.mu.Unlock()
	if unchanged {
		return ConfigDiff{}, w.Current(), nil
	}

	cfg, state, err := w.load()
	if err != nil {
		return ConfigDiff{}, w.Current(), err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if state.sum == w.seen.sum {
		w.seen = state
		return ConfigDiff{}, w.current, nil
	}
	d := Diff(w.current, cfg)
	w.seen = state
	if d.Empty() {
		// Keep the previous value so callers holding it see no change.
		return d, w.current, nil
	}
	w.current = cfg
	return d, cfg, nil
}

// Run calls [Watcher.Check] every interval until ctx is done and hands every
// non-empty change to apply. Failed reloads are logged and polling goes on.
// Run returns ctx.Err() once ctx is done.
func (w *Watcher) Run(ctx context.Context, apply ApplyFunc) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		d, cfg, err := w.Check()
		if err != nil {
			w.logger.WarnContext(ctx, "config: keeping previous grammar", "path", w.path, "err", err)
			continue
		}
		if d.Empty() {
			continue
		}
		w.logger.InfoContext(ctx, "config: grammar file changed",
			"path", w.path,
			"commands_changed", len(d.Commands),
			"log_level_changed", d.LogLevelChanged,
			"session_changed", d.SessionChanged,
		)
		if apply != nil {
			apply(d, cfg)
		}
	}
}

// load reads and validates the file and logs its warnings.
func (w *Watcher) load() (*Config, fileState, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fileState{}, err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, fileState{}, err
	}

	cfg, err := LoadFromReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fileState{}, fmt.Errorf("config: parse %q: %w", w.path, err)
	}
	for _, warn := range Warnings(cfg) {
		w.logger.Warn("config: "+warn.Message, "path", w.path, "command", warn.Command)
	}
	return cfg, fileState{modTime: info.ModTime(), size: info.Size(), sum: sha256.Sum256(buf.Bytes())}, nil
}
