package utterlens

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/utterlens/pkg/utterlens/classify"
	"github.com/cognicore/utterlens/pkg/utterlens/pattern"
	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// Listing limits.
const (
	DefaultPageLimit = 30
	ListWindow       = 200
)

const unknownSearcher = "unknown"

// SearchRequest defines a keyword search.
type SearchRequest struct {
	Keyword    string
	Page       int // 1-based
	Limit      int
	SearchedBy string // recorded in the search log; empty means "unknown"
}

// SearchResult is one page of hits.
type SearchResult struct {
	Utterances      []Utterance `json:"utterances"`
	Total           int         `json:"total"`
	Keyword         string      `json:"keyword"`
	RelatedKeywords []string    `json:"relatedKeywords"`
}

// Search finds user utterances mentioning keyword or any related term,
// newest first, and records the search.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	keyword, err := requireKeyword(req.Keyword)
	if err != nil {
		return SearchResult{}, err
	}
	if req.Page < 1 || req.Limit < 1 {
		return SearchResult{}, invalid("page %d limit %d", req.Page, req.Limit)
	}
	if err := e.prepare(ctx); err != nil {
		return SearchResult{}, err
	}

	terms := e.lex.Expand(keyword)
	patterns := containsPatterns(terms)
	total, err := store.Count(ctx, e.store, store.CountUtterances{Patterns: patterns})
	if err != nil {
		return SearchResult{}, fmt.Errorf("count matches: %w", err)
	}
	var rows []store.UtteranceRow
	if offset, _ := pageBounds(req.Page, req.Limit, total); offset < total {
		rows, err = store.Utterances(ctx, e.store, store.SearchUtterances{
			Patterns: patterns,
			Page:     &store.Page{Limit: req.Limit, Offset: offset},
		})
		if err != nil {
			return SearchResult{}, fmt.Errorf("search: %w", err)
		}
	}

	out := make([]Utterance, len(rows))
	for i, r := range rows {
		out[i] = newUtterance(r)
		out[i].MatchedQueries = MatchedQueries(r.Content, terms)
	}

	searchedBy := strings.TrimSpace(req.SearchedBy)
	if searchedBy == "" {
		searchedBy = unknownSearcher
	}
	if _, err := e.store.InsertSearchLog(ctx, store.SearchLog{
		Keyword:    keyword,
		SearchedBy: searchedBy,
		SearchedAt: e.now(),
	}); err != nil {
		return SearchResult{}, fmt.Errorf("log search: %w", err)
	}
	e.log.Debug("search", "keyword", keyword, "terms", len(terms), "total", total)

	return SearchResult{
		Utterances:      out,
		Total:           total,
		Keyword:         keyword,
		RelatedKeywords: orEmpty(terms[1:]),
	}, nil
}

// Classified is a filtered, attribute-labeled set of utterances.
type Classified struct {
	Utterances   []Utterance `json:"utterances"`
	AIClassified bool        `json:"aiClassified"`
}

// ClassifyAndFilter labels rows with behavioral attributes and keeps those
// passing filter, in input order.
func (e *Engine) ClassifyAndFilter(ctx context.Context, rows []store.UtteranceRow, filter classify.Filter) (Classified, error) {
	contents := make([]string, len(rows))
	for i, r := range rows {
		contents[i] = r.Content
	}
	res := e.gen.Classify(ctx, contents)

	out := make([]Utterance, 0, len(rows))
	for i, r := range rows {
		if !filter.Keep(res.Attributes[i]) {
			continue
		}
		u := newUtterance(r)
		u.Attribute = res.Attributes[i]
		out = append(out, u)
	}
	return Classified{Utterances: out, AIClassified: res.AIGenerated}, nil
}

// ListRequest selects attribute-filtered utterances. Zero Page and Limit
// select the first page of DefaultPageLimit rows.
type ListRequest struct {
	Keyword  string // empty lists every user utterance
	Filter   string // all, detailed or self_solving
	GroupIDs []int64
	Page     int
	Limit    int
}

// ListResult is one page of a filtered listing.
type ListResult struct {
	Utterances   []Utterance `json:"utterances"`
	Total        int         `json:"total"`
	Keyword      string      `json:"keyword"`
	AIClassified bool        `json:"aiClassified"`
}

// ListUtterances classifies the ListWindow most recent matching user
// utterances, optionally restricted to GroupIDs, filters them by attribute
// and returns the requested page. Total counts the filtered rows.
func (e *Engine) ListUtterances(ctx context.Context, req ListRequest) (ListResult, error) {
	filter, err := classify.ParseFilter(req.Filter)
	if err != nil {
		return ListResult{}, err
	}
	if req.Page < 0 || req.Limit < 0 {
		return ListResult{}, invalid("page %d limit %d", req.Page, req.Limit)
	}
	page, limit := req.Page, req.Limit
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if err := e.prepare(ctx); err != nil {
		return ListResult{}, err
	}

	keyword := strings.TrimSpace(req.Keyword)
	var patterns []string
	if keyword != "" {
		patterns = []string{pattern.Contains(keyword)}
	}
	rows, err := store.Utterances(ctx, e.store, store.SearchUtterances{
		Patterns: patterns,
		Page:     &store.Page{Limit: ListWindow},
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list utterances: %w", err)
	}
	if len(req.GroupIDs) > 0 {
		keep := make(map[int64]bool, len(req.GroupIDs))
		for _, id := range req.GroupIDs {
			keep[id] = true
		}
		filtered := rows[:0]
		for _, r := range rows {
			if keep[r.ID] {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	classified, err := e.ClassifyAndFilter(ctx, rows, filter)
	if err != nil {
		return ListResult{}, err
	}
	all := classified.Utterances
	e.log.Debug("list utterances", "keyword", keyword, "filter", string(filter), "window", len(rows), "kept", len(all))
	start, end := pageBounds(page, limit, len(all))
	return ListResult{
		Utterances:   all[start:end],
		Total:        len(all),
		Keyword:      keyword,
		AIClassified: classified.AIClassified,
	}, nil
}
