package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/MrWong99/listenkit/pkg/command"
	"github.com/MrWong99/listenkit/pkg/similarity"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Unknown fields are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Session.Language != "" {
		if _, err := language.Parse(cfg.Session.Language); err != nil {
			errs = append(errs, fmt.Errorf("session.language %q is not a valid BCP 47 tag: %w", cfg.Session.Language, err))
		}
	}
	if cfg.Session.StopTimeout < 0 {
		errs = append(errs, fmt.Errorf("session.stop_timeout %v must not be negative", cfg.Session.StopTimeout))
	}

	namesSeen := make(map[string]int, len(cfg.Commands))
	for i, c := range cfg.Commands {
		prefix := fmt.Sprintf("commands[%d]", i)
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := namesSeen[c.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of commands[%d]", prefix, c.Name, prev))
			}
			namesSeen[c.Name] = i
		}
		if len(c.Patterns) == 0 && c.Regexp == "" {
			errs = append(errs, fmt.Errorf("%s: at least one of patterns or regexp is required", prefix))
		}
		if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
			errs = append(errs, fmt.Errorf("%s.fuzzy_threshold %.2f is out of range [0, 1]", prefix, c.FuzzyThreshold))
		}
		if _, ok := similarity.ByName(c.Scorer); !ok {
			errs = append(errs, fmt.Errorf("%s.scorer %q is invalid; valid values: dice, jaro-winkler, phonetic", prefix, c.Scorer))
		}
		if c.Regexp != "" {
			if _, err := regexp.Compile(c.Regexp); err != nil {
				errs = append(errs, fmt.Errorf("%s.regexp: %w", prefix, err))
			}
		}
		if !c.Fuzzy {
			for j, p := range c.Patterns {
				if _, err := command.Compile(command.Literal(p)); err != nil {
					errs = append(errs, fmt.Errorf("%s.patterns[%d]: %w", prefix, j, err))
				}
			}
		}
	}

	return errors.Join(errs...)
}

// Warning flags a setting that validates but probably does not do what the
// author meant.
type Warning struct {
	Command string
	Message string
}

// Warnings lists the questionable settings in cfg. Callers log them with
// their own logger; [Watcher] does so on every load.
func Warnings(cfg *Config) []Warning {
	var ws []Warning
	for _, c := range cfg.Commands {
		if c.Fuzzy && c.Regexp != "" {
			ws = append(ws, Warning{
				Command: c.Name,
				Message: "fuzzy command scores the regexp source text; literal patterns are usually a better fit",
			})
		}
		if !c.Fuzzy && (c.FuzzyThreshold != 0 || c.BestMatchOnly || c.Scorer != "") {
			ws = append(ws, Warning{
				Command: c.Name,
				Message: "fuzzy settings have no effect without fuzzy: true",
			})
		}
	}
	return ws
}
