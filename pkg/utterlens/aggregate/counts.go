// Package aggregate turns interpreter rows into the statistics the
// dashboard renders. Every function is pure and safe for concurrent use.
package aggregate

import (
	"sort"

	"github.com/cognicore/utterlens/pkg/utterlens/pattern"
	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// KeyFunc extracts a grouping key from a row. Returning false skips it.
type KeyFunc func(store.UtteranceRow) (string, bool)

// ByAgeGroup keys rows on the owner's age group; orphans are skipped.
func ByAgeGroup(r store.UtteranceRow) (string, bool) {
	return string(r.AgeGroup), !r.Orphan
}

// ByMode keys rows on the owner's mode; orphans are skipped.
func ByMode(r store.UtteranceRow) (string, bool) {
	return string(r.Mode), !r.Orphan
}

// ByCyclePhase keys rows on the owner's cycle phase; orphans are skipped.
func ByCyclePhase(r store.UtteranceRow) (string, bool) {
	return string(r.CyclePhase), !r.Orphan
}

// GroupCounts counts rows per key over the keys actually observed. There
// is no zero fill. Output is ordered by count descending, then key.
func GroupCounts(rows []store.UtteranceRow, key KeyFunc) []store.KeyCount {
	counts := make(map[string]int)
	for _, r := range rows {
		if k, ok := key(r); ok {
			counts[k]++
		}
	}
	out := make([]store.KeyCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, store.KeyCount{Key: k, Count: c})
	}
	store.SortKeyCounts(out)
	return out
}

// KeywordCount is the number of utterances mentioning a vocabulary term.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// CoOccurrenceLimit caps co-occurrence and trending lists.
const CoOccurrenceLimit = 10

// CoOccurrence counts, for each vocabulary term other than exclude, how
// many contents mention it. Terms with no mentions are omitted. The result
// is ordered by count descending with ties kept in vocabulary order, and
// holds at most limit entries.
func CoOccurrence(contents, vocabulary []string, exclude string, limit int) []KeywordCount {
	seen := make(map[string]bool, len(vocabulary))
	var out []KeywordCount
	for _, term := range vocabulary {
		if term == "" || term == exclude || seen[term] {
			continue
		}
		seen[term] = true
		m := pattern.Compile(pattern.Contains(term))
		n := 0
		for _, c := range contents {
			if m.Match(c) {
				n++
			}
		}
		if n > 0 {
			out = append(out, KeywordCount{Keyword: term, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TopKeywords counts vocabulary mentions without exclusions.
func TopKeywords(contents, vocabulary []string, limit int) []KeywordCount {
	return CoOccurrence(contents, vocabulary, "", limit)
}

// Contents projects rows onto their text.
func Contents(rows []store.UtteranceRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Content
	}
	return out
}

// UserIDs returns the distinct owners of rows in first-seen order,
// skipping orphans.
func UserIDs(rows []store.UtteranceRow) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, r := range rows {
		if r.Orphan || seen[r.UserID] {
			continue
		}
		seen[r.UserID] = true
		ids = append(ids, r.UserID)
	}
	return ids
}
