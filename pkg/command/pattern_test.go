package command_test

import (
	"regexp"
	"slices"
	"sync"
	"testing"

	"github.com/MrWong99/listenkit/pkg/command"
)

func TestCompile_Literal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		input   string
		wantOK  bool
		want    []string
	}{
		{"plain", "lights off", "lights off", true, []string{}},
		{"case insensitive", "Lights Off", "LIGHTS off", true, []string{}},
		{"anchored start", "lights off", "turn lights off", false, nil},
		{"anchored end", "lights off", "lights off now", false, nil},
		{"splat", "I want *", "I want pizza and chips", true, []string{"pizza and chips"}},
		{"splat empty", "I want *", "I want ", true, []string{""}},
		{"named param", "call :name", "call Alice", true, []string{"Alice"}},
		{"named param one token only", "call :name", "call Alice Smith", false, nil},
		{"two named params", "move :from to :to", "move kitchen to hall", true, []string{"kitchen", "hall"}},
		{"optional present", "Hello (there)", "Hello there", true, []string{}},
		{"optional absent", "Hello (there)", "hello", true, []string{}},
		{"optional glued", "Hello (there)", "hellothere", true, []string{}},
		{"dot is literal", "version 1.2", "version 1x2", false, nil},
		{"dot matches itself", "version 1.2", "version 1.2", true, []string{}},
		{"question mark literal", "are you there?", "are you there?", true, []string{}},
		{"dollar literal", "costs $5", "costs $5", true, []string{}},
		{"splat and param", ":verb the *", "open the pod bay doors", true, []string{"open", "pod bay doors"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m, err := command.Compile(command.Literal(tc.pattern))
			if err != nil {
				t.Fatalf("Compile(%q): %v", tc.pattern, err)
			}
			got, ok := m.Match(tc.input)
			if ok != tc.wantOK {
				t.Fatalf("Match(%q) ok = %v, want %v", tc.input, ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if got == nil {
				t.Fatalf("Match(%q) params = nil, want non-nil", tc.input)
			}
			if !slices.Equal(got, tc.want) {
				t.Errorf("Match(%q) params = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCompile_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := command.Compile(command.Literal("Hello (there")); err == nil {
		t.Error("Compile with unbalanced parenthesis returned nil error")
	}
}

func TestCompile_Regexp(t *testing.T) {
	t.Parallel()

	m, err := command.Compile(command.Regexp(regexp.MustCompile(`^set volume to (\d+)$`)))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	params, ok := m.Match("SET VOLUME TO 11")
	if !ok {
		t.Fatal("regexp pattern did not match case-insensitively")
	}
	if !slices.Equal(params, []string{"11"}) {
		t.Errorf("params = %q, want [11]", params)
	}
	if got := m.Pattern().String(); got != `^set volume to (\d+)$` {
		t.Errorf("Pattern().String() = %q", got)
	}
	if !m.Pattern().IsRegexp() {
		t.Error("IsRegexp() = false, want true")
	}
}

func TestCompile_CachesLiterals(t *testing.T) {
	t.Parallel()

	const text = "cache me :please"
	var wg sync.WaitGroup
	results := make([]*command.Matcher, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := command.Compile(command.Literal(text))
			if err != nil {
				t.Errorf("Compile: %v", err)
				return
			}
			results[i] = m
		}()
	}
	wg.Wait()

	for i, m := range results {
		if m != results[0] {
			t.Fatalf("Compile result %d differs from result 0", i)
		}
	}
}

func TestLiterals(t *testing.T) {
	t.Parallel()

	ps := command.Literals("hi", "hello")
	if len(ps) != 2 || ps[0].String() != "hi" || ps[1].String() != "hello" {
		t.Errorf("Literals = %v", ps)
	}
	if ps[0].IsRegexp() {
		t.Error("literal reported IsRegexp")
	}
}
