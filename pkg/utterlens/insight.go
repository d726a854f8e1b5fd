package utterlens

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/utterlens/pkg/utterlens/generator"
	"github.com/cognicore/utterlens/pkg/utterlens/internalerr"
	"github.com/cognicore/utterlens/pkg/utterlens/pattern"
	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// BuildGroups partitions items into labeled thematic groups.
func (e *Engine) BuildGroups(ctx context.Context, keyword string, items []generator.Item) generator.GroupResult {
	return e.gen.BuildGroups(ctx, strings.TrimSpace(keyword), items)
}

// GroupsForKeyword groups the most recent user utterances mentioning
// keyword. An empty keyword yields no groups.
func (e *Engine) GroupsForKeyword(ctx context.Context, keyword string) (generator.GroupResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return generator.GroupResult{Groups: []generator.Group{}, Outcome: generator.OutcomeSkipped}, nil
	}
	if err := e.prepare(ctx); err != nil {
		return generator.GroupResult{}, err
	}
	rows, err := store.Utterances(ctx, e.store, store.SearchUtterances{
		Patterns: []string{pattern.Contains(keyword)},
		Page:     &store.Page{Limit: e.groupCandidates},
	})
	if err != nil {
		return generator.GroupResult{}, fmt.Errorf("group candidates: %w", err)
	}
	items := make([]generator.Item, len(rows))
	for i, r := range rows {
		items[i] = generator.Item{ID: r.ID, Content: r.Content}
	}
	e.log.Debug("groups", "keyword", keyword, "candidates", len(items))
	return e.gen.BuildGroups(ctx, keyword, items), nil
}

// BuildInsight summarizes the utterances with the given ids. Unknown ids
// are ignored.
func (e *Engine) BuildInsight(ctx context.Context, utteranceIDs []int64) (generator.InsightResult, error) {
	if len(utteranceIDs) == 0 {
		return generator.InsightResult{}, invalid("no utterance ids")
	}
	if err := e.prepare(ctx); err != nil {
		return generator.InsightResult{}, err
	}
	rows, err := store.Utterances(ctx, e.store, store.UtterancesByID{IDs: utteranceIDs})
	if err != nil {
		return generator.InsightResult{}, fmt.Errorf("insight utterances: %w", err)
	}
	e.log.Debug("insight", "requested", len(utteranceIDs), "found", len(rows))
	return e.gen.BuildInsight(ctx, rows), nil
}

// BuildUserInsight summarizes one user's conversations, optionally limited
// to sessionIDs.
func (e *Engine) BuildUserInsight(ctx context.Context, anonymousID string, sessionIDs []string) (generator.InsightResult, error) {
	u, rows, err := e.userUtterances(ctx, anonymousID, sessionIDs)
	if err != nil {
		return generator.InsightResult{}, err
	}
	return e.gen.BuildUserInsight(ctx, u, rows), nil
}

// RelatedQueries suggests colloquial search phrases for keyword.
func (e *Engine) RelatedQueries(ctx context.Context, keyword string) []string {
	return e.gen.RelatedQueries(ctx, keyword)
}

func (e *Engine) userUtterances(ctx context.Context, anonymousID string, sessionIDs []string) (store.User, []store.UtteranceRow, error) {
	anonymousID = strings.TrimSpace(anonymousID)
	if anonymousID == "" {
		return store.User{}, nil, invalid("empty user id")
	}
	if err := e.prepare(ctx); err != nil {
		return store.User{}, nil, err
	}
	u, ok, err := store.UserByID(ctx, e.store, anonymousID)
	if err != nil {
		return store.User{}, nil, fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return store.User{}, nil, fmt.Errorf("user %s: %w", anonymousID, internalerr.ErrNotFound)
	}
	rows, err := store.Utterances(ctx, e.store, store.UserUtterances{UserID: u.ID, SessionIDs: sessionIDs})
	if err != nil {
		return store.User{}, nil, fmt.Errorf("user utterances: %w", err)
	}
	return u, rows, nil
}
