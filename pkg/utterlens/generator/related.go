package generator

import (
	"context"
	"strings"
)

// MaxRelatedQueries caps the phrases RelatedQueries returns.
const MaxRelatedQueries = 8

type relatedReply struct {
	Queries []string `json:"queries"`
}

// RelatedQueries asks the model for colloquial search phrases around
// keyword. Successful answers are cached per keyword; concurrent callers
// for the same keyword share one model call. Without a model, or on
// failure, the result is empty and nothing is cached.
func (g *Generator) RelatedQueries(ctx context.Context, keyword string) []string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []string{}
	}
	if cached, ok := g.cache.Get(keyword); ok {
		return append([]string(nil), cached...)
	}

	v, _, _ := g.flight.Do(keyword, func() (interface{}, error) {
		var reply relatedReply
		outcome := g.ask(ctx, "related_queries", relatedQueriesPrompt(keyword), &reply)
		if outcome != OutcomeSuccess {
			g.logFallback("related_queries", outcome, "keyword", keyword)
			return []string{}, nil
		}
		queries := cleanQueries(keyword, reply.Queries)
		g.cache.Add(keyword, queries)
		return queries, nil
	})
	return append([]string{}, v.([]string)...)
}

func cleanQueries(keyword string, in []string) []string {
	seen := map[string]bool{keyword: true}
	out := make([]string, 0, MaxRelatedQueries)
	for _, q := range in {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if len(out) == MaxRelatedQueries {
			break
		}
	}
	return out
}
