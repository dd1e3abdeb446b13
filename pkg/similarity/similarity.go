// Package similarity implements the string similarity measures used for fuzzy
// voice-command matching.
//
// The default measure is [Dice], a Sørensen–Dice coefficient over character
// bigrams. It is tolerant of small recognition slips ("helo" vs "hello") and
// of word-boundary errors, because whitespace is ignored. [JaroWinkler] is an
// alternative that weights shared prefixes more heavily and tends to suit
// short single-word commands. [Phonetic] compares Double Metaphone
// encodings, so words that sound alike score high even when spelled apart.
//
// All functions return a score in [0.0, 1.0] where 1.0 means identical, and
// are safe for concurrent use.
package similarity

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// Scorer computes a similarity score in [0.0, 1.0] between two strings.
type Scorer func(a, b string) float64

// Dice returns the Dice coefficient of the character bigrams of a and b.
//
// Both strings are lower-cased and stripped of all whitespace first. Identical
// strings score exactly 1, including two empty strings. When the strings
// differ and either is shorter than two characters the score is 0. Each
// bigram of a can be matched at most once per occurrence.
func Dice(a, b string) float64 {
	first := []rune(compact(a))
	second := []rune(compact(b))

	if string(first) == string(second) {
		return 1
	}
	if len(first) < 2 || len(second) < 2 {
		return 0
	}

	bigrams := make(map[[2]rune]int, len(first)-1)
	for i := 0; i < len(first)-1; i++ {
		bigrams[[2]rune{first[i], first[i+1]}]++
	}

	intersection := 0
	for i := 0; i < len(second)-1; i++ {
		bg := [2]rune{second[i], second[i+1]}
		if n := bigrams[bg]; n > 0 {
			bigrams[bg] = n - 1
			intersection++
		}
	}

	return 2 * float64(intersection) / float64(len(first)+len(second)-2)
}

// JaroWinkler returns the Jaro-Winkler similarity of a and b, compared
// case-insensitively after collapsing whitespace.
func JaroWinkler(a, b string) float64 {
	a = strings.ToLower(strings.Join(strings.Fields(a), " "))
	b = strings.ToLower(strings.Join(strings.Fields(b), " "))
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return matchr.JaroWinkler(a, b, false)
}

// Phonetic encodes a and b word by word with Double Metaphone and compares
// the encodings with Jaro-Winkler. Phrases with no encodable word fall back
// to [JaroWinkler] on the text.
func Phonetic(a, b string) float64 {
	ca, cb := metaphone(a), metaphone(b)
	if ca == "" || cb == "" {
		return JaroWinkler(a, b)
	}
	if ca == cb {
		return 1
	}
	return matchr.JaroWinkler(ca, cb, false)
}

// metaphone returns the primary Double Metaphone code of every word in s,
// space separated. Words without a primary code use their secondary one.
func metaphone(s string) string {
	var codes []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		p, sec := matchr.DoubleMetaphone(w)
		if p == "" {
			p = sec
		}
		if p != "" {
			codes = append(codes, p)
		}
	}
	return strings.Join(codes, " ")
}

// ByName returns the scorer registered under name. Recognised names are
// "dice", "jaro-winkler" and "phonetic"; an empty name selects [Dice].
func ByName(name string) (Scorer, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "dice":
		return Dice, true
	case "jaro-winkler", "jarowinkler":
		return JaroWinkler, true
	case "phonetic":
		return Phonetic, true
	}
	return nil, false
}

// compact lower-cases s and removes every whitespace rune.
func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
