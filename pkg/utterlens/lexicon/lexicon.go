package lexicon

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon stores the health vocabulary used to widen searches and to
// count topics:
// - Related groups: a key term and terms analysts treat as the same topic
// - Co-occurrence candidates: terms counted alongside a searched keyword
// - Topics: terms counted for the trending view
// - Health keywords: terms counted for a single user's profile
//
// A Lexicon is read-only after construction and safe for concurrent use.
type Lexicon struct {
	groups       []Group
	coOccurrence []string
	topics       []string
	health       []string
}

// Group is one related-term cluster. Matching is bidirectional: a keyword
// hits the group when it contains, or is contained in, the key or any term.
type Group struct {
	Key   string   `yaml:"key"`
	Terms []string `yaml:"terms"`
}

// Default returns the built-in vocabulary.
func Default() *Lexicon {
	return &Lexicon{
		groups:       cloneGroups(defaultRelated),
		coOccurrence: append([]string(nil), defaultCoOccurrence...),
		topics:       append([]string(nil), defaultTopics...),
		health:       append([]string(nil), defaultHealth...),
	}
}

// New builds a lexicon from explicit parts.
func New(groups []Group, coOccurrence, topics, health []string) *Lexicon {
	return &Lexicon{
		groups:       cloneGroups(groups),
		coOccurrence: append([]string(nil), coOccurrence...),
		topics:       append([]string(nil), topics...),
		health:       append([]string(nil), health...),
	}
}

// LoadFromYAML loads a lexicon from a YAML file.
//
// Expected format:
//
//	related:
//	  - key: 生理痛
//	    terms: [月経困難症, 痛み, 鎮痛]
//	cooccurrence: [生理痛, PMS, 睡眠]
//	topics: [生理痛, PMS]
//	health: [生理痛, 睡眠]
//
// Sections left out of the file keep the built-in defaults.
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Related      []Group  `yaml:"related"`
		CoOccurrence []string `yaml:"cooccurrence"`
		Topics       []string `yaml:"topics"`
		Health       []string `yaml:"health"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse lexicon %s: %w", path, err)
	}

	lex := Default()
	if doc.Related != nil {
		lex.groups = cloneGroups(doc.Related)
	}
	if doc.CoOccurrence != nil {
		lex.coOccurrence = doc.CoOccurrence
	}
	if doc.Topics != nil {
		lex.topics = doc.Topics
	}
	if doc.Health != nil {
		lex.health = doc.Health
	}
	return lex, nil
}

// Expand returns keyword followed by every term related to it. Groups are
// pulled in transitively until no new group matches, so expanding the
// result again yields the same set. The output is deduplicated and keeps
// insertion order. An empty keyword expands to nothing.
func (l *Lexicon) Expand(keyword string) []string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil
	}
	return l.ExpandAll([]string{keyword})
}

// ExpandAll expands a set of terms. The inputs come first in the output.
func (l *Lexicon) ExpandAll(terms []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range terms {
		add(strings.TrimSpace(t))
	}

	used := make([]bool, len(l.groups))
	for frontier := 0; frontier < len(out); frontier++ {
		term := out[frontier]
		for i, g := range l.groups {
			if used[i] || !g.relates(term) {
				continue
			}
			used[i] = true
			add(g.Key)
			for _, v := range g.Terms {
				add(v)
			}
		}
	}
	return out
}

// Related returns the expansion of keyword without keyword itself.
func (l *Lexicon) Related(keyword string) []string {
	all := l.Expand(keyword)
	if len(all) == 0 {
		return nil
	}
	return all[1:]
}

// CoOccurrence returns the co-occurrence candidate vocabulary.
func (l *Lexicon) CoOccurrence() []string { return l.coOccurrence }

// Topics returns the trending-topic vocabulary.
func (l *Lexicon) Topics() []string { return l.topics }

// Health returns the per-user health keyword vocabulary.
func (l *Lexicon) Health() []string { return l.health }

// Groups returns a copy of the related-term groups.
func (l *Lexicon) Groups() []Group { return cloneGroups(l.groups) }

func (g Group) relates(term string) bool {
	if related(term, g.Key) {
		return true
	}
	for _, v := range g.Terms {
		if related(term, v) {
			return true
		}
	}
	return false
}

func related(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func cloneGroups(in []Group) []Group {
	out := make([]Group, len(in))
	for i, g := range in {
		out[i] = Group{Key: g.Key, Terms: append([]string(nil), g.Terms...)}
	}
	return out
}
