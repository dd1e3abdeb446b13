package command

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Pattern is one alternative of a command grammar: either a literal with
// inline placeholders or a caller-supplied regular expression.
//
// Literal syntax:
//
//	:name   matches exactly one whitespace-free token and captures it
//	*       matches any text (possibly empty) and captures it
//	(word)  marks an optional segment; surrounding whitespace is optional too
//
// All other characters match themselves, case-insensitively. The whole
// utterance must match.
type Pattern struct {
	text string
	re   *regexp.Regexp
}

// Literal returns a pattern written in the placeholder syntax.
func Literal(s string) Pattern {
	return Pattern{text: s}
}

// Literals returns one literal pattern per argument, for commands with
// several alternative phrasings.
func Literals(ss ...string) []Pattern {
	out := make([]Pattern, len(ss))
	for i, s := range ss {
		out[i] = Literal(s)
	}
	return out
}

// Regexp returns a pattern backed by re. The expression is recompiled
// case-insensitively; anchoring is left to the caller.
func Regexp(re *regexp.Regexp) Pattern {
	return Pattern{re: re}
}

// String returns the pattern source: the literal text or the expression.
func (p Pattern) String() string {
	if p.re != nil {
		return p.re.String()
	}
	return p.text
}

// IsRegexp reports whether p wraps a caller-supplied regular expression.
func (p Pattern) IsRegexp() bool {
	return p.re != nil
}

// Matcher is a compiled [Pattern].
type Matcher struct {
	pattern Pattern
	re      *regexp.Regexp
}

// Pattern returns the pattern m was compiled from.
func (m *Matcher) Pattern() Pattern {
	return m.pattern
}

// Match tests s against the compiled pattern. On success it returns the
// captured parameters in pattern order. The slice is empty but non-nil for
// patterns without placeholders. Optional placeholders that did not take
// part in the match yield "".
func (m *Matcher) Match(s string) ([]string, bool) {
	sub := m.re.FindStringSubmatch(s)
	if sub == nil {
		return nil, false
	}
	params := make([]string, 0, len(sub)-1)
	params = append(params, sub[1:]...)
	return params, true
}

var (
	escapeChars   = regexp.MustCompile(`[\-{}\[\]+?.,\\^$|#]`)
	optionalParam = regexp.MustCompile(`\s*\((.*?)\)\s*`)
	namedParam    = regexp.MustCompile(`(\(\?)?:\w+`)
	splatParam    = regexp.MustCompile(`\*`)
	optionalGroup = regexp.MustCompile(`(\(\?:[^)]+\))\?`)
)

// Compiled literals live for the lifetime of the process.
var (
	literalCache sync.Map // string -> *Matcher
	compileGroup singleflight.Group
)

// Compile compiles p. Literal patterns are cached, so compiling the same text
// twice returns the same [Matcher]. A malformed literal, for instance one
// with an unbalanced parenthesis, returns an error.
func Compile(p Pattern) (*Matcher, error) {
	if p.re != nil {
		re, err := regexp.Compile("(?i)" + p.re.String())
		if err != nil {
			return nil, fmt.Errorf("command: compile regexp %q: %w", p.re.String(), err)
		}
		return &Matcher{pattern: p, re: re}, nil
	}

	if m, ok := literalCache.Load(p.text); ok {
		return m.(*Matcher), nil
	}
	v, err, _ := compileGroup.Do(p.text, func() (any, error) {
		if m, ok := literalCache.Load(p.text); ok {
			return m, nil
		}
		re, err := regexp.Compile(literalToExpr(p.text))
		if err != nil {
			return nil, fmt.Errorf("command: compile pattern %q: %w", p.text, err)
		}
		m := &Matcher{pattern: p, re: re}
		literalCache.Store(p.text, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Matcher), nil
}

// literalToExpr rewrites a literal pattern into an anchored, case-insensitive
// regular expression. The rewrite steps run in a fixed order; later steps
// rely on the groups produced by earlier ones.
func literalToExpr(s string) string {
	s = escapeChars.ReplaceAllStringFunc(s, func(c string) string { return `\` + c })
	s = optionalParam.ReplaceAllString(s, `(?:${1})?`)
	s = namedParam.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(m, "(?") {
			return m
		}
		return `([^\s]+)`
	})
	s = splatParam.ReplaceAllLiteralString(s, `(.*?)`)
	s = optionalGroup.ReplaceAllString(s, `\s*${1}?\s*`)
	return "(?i)^" + s + "$"
}
