package config_test

import (
	"testing"

	"github.com/MrWong99/listenkit/pkg/config"
)

func TestDiff(t *testing.T) {
	t.Parallel()

	old := &config.Config{
		LogLevel: config.LogInfo,
		Commands: []config.CommandConfig{
			{Name: "keep", Patterns: []string{"keep"}},
			{Name: "change", Patterns: []string{"before"}},
			{Name: "drop", Patterns: []string{"drop"}},
		},
	}
	next := &config.Config{
		LogLevel: config.LogDebug,
		Session:  config.SessionConfig{Continuous: true},
		Commands: []config.CommandConfig{
			{Name: "keep", Patterns: []string{"keep"}},
			{Name: "change", Patterns: []string{"after"}},
			{Name: "new", Patterns: []string{"new"}},
		},
	}

	d := config.Diff(old, next)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("log level diff = %v/%q", d.LogLevelChanged, d.NewLogLevel)
	}
	if !d.SessionChanged {
		t.Error("SessionChanged = false, want true")
	}

	want := []config.CommandDiff{
		{Name: "change", Modified: true},
		{Name: "new", Added: true},
		{Name: "drop", Removed: true},
	}
	if len(d.Commands) != len(want) {
		t.Fatalf("Commands = %+v, want %+v", d.Commands, want)
	}
	for i := range want {
		if d.Commands[i] != want[i] {
			t.Errorf("Commands[%d] = %+v, want %+v", i, d.Commands[i], want[i])
		}
	}
}

func TestDiff_Identical(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Commands: []config.CommandConfig{{Name: "a", Patterns: []string{"a", "b"}}}}
	clone := &config.Config{Commands: []config.CommandConfig{{Name: "a", Patterns: []string{"a", "b"}}}}
	if d := config.Diff(cfg, clone); !d.Empty() {
		t.Errorf("Diff of identical configs = %+v, want empty", d)
	}
}

func TestDiff_NilOld(t *testing.T) {
	t.Parallel()

	d := config.Diff(nil, &config.Config{Commands: []config.CommandConfig{{Name: "a"}}})
	if len(d.Commands) != 1 || !d.Commands[0].Added {
		t.Errorf("Commands = %+v, want one addition", d.Commands)
	}
}
