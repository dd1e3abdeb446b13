package transcript_test

import (
	"testing"

	"github.com/MrWong99/listenkit/pkg/recognizer"
	"github.com/MrWong99/listenkit/pkg/transcript"
)

func TestRemoveDuplicateWords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
		{"single word", "hello", "hello"},
		{"adjacent only", "Hello Hello Hello How you doing Hello How you doing", "Hello How you doing Hello How you doing"},
		{"case insensitive", "stop STOP Stop now", "stop now"},
		{"punctuation stripped", "Hello, hello there", "Hello, there"},
		{"keeps first casing", "WORLD world", "WORLD"},
		{"trims ends", "  go go home  ", "go home"},
		{"keeps separators of survivors", "one  two two\tthree", "one  two\tthree"},
		{"non adjacent kept", "a b a", "a b a"},
		{"unicode letters", "grüße Grüße!", "grüße"},
		{"numbers", "1 1 2", "1 2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := transcript.RemoveDuplicateWords(tc.in); got != tc.want {
				t.Errorf("RemoveDuplicateWords(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRemoveDuplicateWords_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Hello Hello Hello How you doing Hello How you doing",
		"a  a\tb b, B. c",
		"  spaced   out   out  ",
		"no duplicates here",
		"!! ?? .. word",
	}
	for _, in := range inputs {
		once := transcript.RemoveDuplicateWords(in)
		twice := transcript.RemoveDuplicateWords(once)
		if once != twice {
			t.Errorf("not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestCombine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		fragments []string
		want      string
	}{
		{"empty left", []string{"", "world"}, "world"},
		{"empty right", []string{"hello", ""}, "hello"},
		{"both padded", []string{"  hello  ", "  world  "}, "hello world"},
		{"both empty", []string{"", ""}, ""},
		{"no fragments", nil, ""},
		{"duplicate across joint", []string{"turn on the light", "light please"}, "turn on the light please"},
		{"three fragments", []string{"a", " ", "b", "c"}, "a b c"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := transcript.Combine(tc.fragments...); got != tc.want {
				t.Errorf("Combine(%q) = %q, want %q", tc.fragments, got, tc.want)
			}
		})
	}
}

func result(final bool, text string) recognizer.Result {
	return recognizer.Result{
		IsFinal:      final,
		Alternatives: []recognizer.Alternative{{Transcript: text}, {Transcript: "ignored alternative"}},
	}
}

func TestParseResults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		ev          recognizer.ResultEvent
		wantInterim string
		wantFinal   string
	}{
		{
			name: "skips consumed results",
			ev: recognizer.ResultEvent{
				ResultIndex: 1,
				Results:     []recognizer.Result{result(true, "old"), result(false, "hello hello"), result(true, "world")},
			},
			wantInterim: "hello",
			wantFinal:   "world",
		},
		{
			name: "joins finals and collapses joint",
			ev: recognizer.ResultEvent{
				Results: []recognizer.Result{result(true, "turn left"), result(true, "left now")},
			},
			wantFinal: "turn left now",
		},
		{
			name: "interim only",
			ev: recognizer.ResultEvent{
				Results: []recognizer.Result{result(false, "what is"), result(false, "the time")},
			},
			wantInterim: "what is the time",
		},
		{
			name: "index past end",
			ev: recognizer.ResultEvent{
				ResultIndex: 5,
				Results:     []recognizer.Result{result(true, "seen")},
			},
		},
		{
			name: "negative index clamped",
			ev: recognizer.ResultEvent{
				ResultIndex: -3,
				Results:     []recognizer.Result{result(true, "seen")},
			},
			wantFinal: "seen",
		},
		{
			name: "result without alternatives",
			ev: recognizer.ResultEvent{
				Results: []recognizer.Result{{IsFinal: true}, result(false, "next")},
			},
			wantInterim: "next",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			interim, final := transcript.ParseResults(tc.ev)
			if interim != tc.wantInterim {
				t.Errorf("interim = %q, want %q", interim, tc.wantInterim)
			}
			if final != tc.wantFinal {
				t.Errorf("final = %q, want %q", final, tc.wantFinal)
			}
		})
	}
}

func TestFragments(t *testing.T) {
	t.Parallel()

	ev := recognizer.ResultEvent{
		ResultIndex: 1,
		Results:     []recognizer.Result{result(true, "a"), result(false, "b"), result(true, "c")},
	}
	got := transcript.Fragments(ev)
	want := []transcript.Fragment{{Text: "b"}, {Text: "c", Final: true}}
	if len(got) != len(want) {
		t.Fatalf("Fragments: got %d fragments, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Fragments[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
