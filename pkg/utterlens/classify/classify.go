// Package classify assigns behavioral attributes to user utterances with
// keyword and length heuristics.
package classify

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/utterlens/pkg/utterlens/internalerr"
)

// Attribute is the behavioral label of an utterance.
type Attribute string

const (
	// Detailed marks a long question or a long expression of worry.
	Detailed Attribute = "detailed"
	// SelfSolving marks a long report of something the user already tried.
	SelfSolving Attribute = "self_solving"
	// None marks everything else.
	None Attribute = "none"
)

// Valid reports whether a is one of the three attributes.
func (a Attribute) Valid() bool {
	return a == Detailed || a == SelfSolving || a == None
}

// Filter selects utterances by attribute.
type Filter string

const (
	FilterAll         Filter = "all"
	FilterDetailed    Filter = "detailed"
	FilterSelfSolving Filter = "self_solving"
)

// ParseFilter validates a filter kind. The empty string means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterDetailed, FilterSelfSolving:
		return Filter(s), nil
	}
	return "", fmt.Errorf("%w: filter %q", internalerr.ErrInvalidInput, s)
}

// Keep reports whether an utterance with attribute a passes f.
func (f Filter) Keep(a Attribute) bool {
	switch f {
	case FilterDetailed:
		return a == Detailed
	case FilterSelfSolving:
		return a == SelfSolving
	}
	return true
}

// AICap is the largest batch sent to the model for classification.
const AICap = 30

const (
	detailedMinLength    = 80
	selfSolvingMinLength = 50
)

var (
	questionMarkers = []string{"？", "?", "ですか"}
	concernWords    = []string{"不安", "心配", "怖い", "辛い", "つらい", "困って", "ひどい", "悪化"}
	solutionWords   = []string{"飲んでいます", "試してみました", "実践", "使っています", "やってみた", "効果がありました", "改善", "対処"}
)

// Heuristic classifies content. Length is measured in characters. Long
// text with a question marker or a concern word is Detailed; otherwise
// long text with a solution word is SelfSolving; anything else is None.
func Heuristic(content string) Attribute {
	n := utf8.RuneCountInString(content)
	if n > detailedMinLength && (containsAny(content, questionMarkers) || containsAny(content, concernWords)) {
		return Detailed
	}
	if n > selfSolvingMinLength && containsAny(content, solutionWords) {
		return SelfSolving
	}
	return None
}

// HeuristicAll classifies every content in order.
func HeuristicAll(contents []string) []Attribute {
	out := make([]Attribute, len(contents))
	for i, c := range contents {
		out[i] = Heuristic(c)
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
