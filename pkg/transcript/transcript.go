// Package transcript turns the raw, overlapping output of a continuous speech
// recognizer into a stable transcript.
//
// Recognizers revise their guesses in place: an utterance first arrives as a
// string of interim results that are replaced on every event, and is later
// committed as a final result. Along the way recognizers frequently repeat
// the word they just emitted, or fire the same terminal event twice. This
// package provides the building blocks that absorb those quirks:
//
//  1. [RemoveDuplicateWords] collapses runs of immediately repeated tokens.
//  2. [Combine] joins fragments with correct spacing and re-normalises across
//     the joint.
//  3. [ParseResults] splits one result batch into interim and final text.
//  4. [Machine] owns the authoritative interim/final state and suppresses
//     duplicate terminal batches.
package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Fragment is the text of a single recognition result together with its
// finality.
type Fragment struct {
	Text  string
	Final bool
}

// RemoveDuplicateWords collapses every run of consecutive duplicate tokens in
// s to its first occurrence.
//
// Tokens are whitespace-delimited. Two tokens are duplicates when they are
// equal after lower-casing and discarding everything except letters and
// digits, so "Hello," and "hello" collapse. Each token is compared with its
// immediate predecessor only; repeats further apart are kept. The surviving
// token keeps its casing, its punctuation and the whitespace that preceded
// it. Leading and trailing whitespace is dropped.
//
// RemoveDuplicateWords is idempotent.
func RemoveDuplicateWords(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	prevKey := ""
	first := true
	i := 0
	for i < len(s) {
		sepStart := i
		i = skip(s, i, true)
		sep := s[sepStart:i]

		tokStart := i
		i = skip(s, i, false)
		tok := s[tokStart:i]
		if tok == "" {
			continue
		}

		key := comparisonKey(tok)
		if !first && key == prevKey {
			continue
		}
		if !first {
			b.WriteString(sep)
		}
		b.WriteString(tok)
		prevKey = key
		first = false
	}
	return b.String()
}

// Combine trims each fragment, drops empty ones, joins the rest with single
// spaces and runs [RemoveDuplicateWords] over the result, so that a
// duplicate straddling two fragments is collapsed as well.
func Combine(fragments ...string) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return RemoveDuplicateWords(strings.Join(parts, " "))
}

// skip advances from i over runes that are whitespace (space == true) or
// non-whitespace (space == false) and returns the new offset.
func skip(s string, i int, space bool) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) != space {
			break
		}
		i += size
	}
	return i
}

// comparisonKey reduces a token to the form used for duplicate detection.
func comparisonKey(tok string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, tok)
}
