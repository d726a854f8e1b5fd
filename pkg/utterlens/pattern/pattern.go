// Package pattern implements SQL LIKE matching over utterance text.
//
// A pattern uses two wildcards: '%' matches any run of characters
// (including none) and '_' matches exactly one character. Every other
// character matches itself. Matching is case-insensitive and anchored at
// both ends of the value.
package pattern

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheSize bounds how many compiled patterns are kept.
const CacheSize = 1024

// Matcher is a compiled LIKE pattern. It is safe for concurrent use.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
}

var cache = newCache(CacheSize)

func newCache(size int) *lru.Cache[string, *Matcher] {
	c, err := lru.New[string, *Matcher](size)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return c
}

// Compile translates a LIKE pattern into a Matcher. The most recently used
// CacheSize matchers are cached, so calling Compile repeatedly with the
// same pattern is cheap.
func Compile(pattern string) *Matcher {
	if m, ok := cache.Get(pattern); ok {
		return m
	}
	m := &Matcher{pattern: pattern, re: regexp.MustCompile(translate(pattern))}
	if prev, ok, _ := cache.PeekOrAdd(pattern, m); ok {
		return prev
	}
	return m
}

// translate builds an anchored, case-insensitive regular expression. The
// literal segments are quoted, so metacharacters in user input never leak
// into the expression and MustCompile cannot fail.
func translate(pattern string) string {
	var b strings.Builder
	b.WriteString(`(?is)^`)
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			b.WriteString(regexp.QuoteMeta(lit.String()))
			lit.Reset()
		}
	}
	for _, r := range pattern {
		switch r {
		case '%':
			flush()
			b.WriteString(`.*`)
		case '_':
			flush()
			b.WriteString(`.`)
		default:
			lit.WriteRune(r)
		}
	}
	flush()
	b.WriteString(`$`)
	return b.String()
}

// Match reports whether value matches the compiled pattern.
func (m *Matcher) Match(value string) bool {
	return m.re.MatchString(value)
}

// String returns the source pattern.
func (m *Matcher) String() string { return m.pattern }

// Match reports whether value matches the LIKE pattern.
func Match(value, pattern string) bool {
	return Compile(pattern).Match(value)
}

// Contains wraps term as a substring pattern ("%term%").
func Contains(term string) string {
	return "%" + term + "%"
}

// MatchAny reports whether value matches at least one of the patterns.
// An empty pattern list matches everything.
func MatchAny(value string, matchers []*Matcher) bool {
	if len(matchers) == 0 {
		return true
	}
	for _, m := range matchers {
		if m.Match(value) {
			return true
		}
	}
	return false
}

// CompileAll compiles every pattern in order.
func CompileAll(patterns []string) []*Matcher {
	out := make([]*Matcher, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, Compile(p))
	}
	return out
}
