package utterlens

import (
	"context"
	"fmt"
	"time"

	"github.com/cognicore/utterlens/pkg/utterlens/aggregate"
	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// Trend list sizes.
const (
	TrendLimit     = 10
	TopHealthLimit = 8
)

// Trends lists what users talk about and what analysts search for.
type Trends struct {
	UserTrends   []aggregate.KeywordCount `json:"userTrends"`
	SearchTrends []aggregate.KeywordCount `json:"searchTrends"`
}

// Trends counts topic mentions over every user utterance and the most
// frequent search keywords.
func (e *Engine) Trends(ctx context.Context) (Trends, error) {
	if err := e.prepare(ctx); err != nil {
		return Trends{}, err
	}
	contents, err := store.Contents(ctx, e.store)
	if err != nil {
		return Trends{}, fmt.Errorf("trend contents: %w", err)
	}
	searches, err := store.Counts(ctx, e.store, store.SearchKeywordCounts{Limit: TrendLimit})
	if err != nil {
		return Trends{}, fmt.Errorf("search trends: %w", err)
	}
	out := Trends{
		UserTrends:   orEmpty(aggregate.TopKeywords(contents, e.lex.Topics(), TrendLimit)),
		SearchTrends: make([]aggregate.KeywordCount, 0, len(searches)),
	}
	for _, s := range searches {
		out.SearchTrends = append(out.SearchTrends, aggregate.KeywordCount{Keyword: s.Key, Count: s.Count})
	}
	return out, nil
}

// Session is one conversation, oldest message first.
type Session struct {
	SessionID string      `json:"session_id"`
	Messages  []Utterance `json:"messages"`
	CreatedAt string      `json:"created_at"`
}

// UserProfile is the stored view of a user.
type UserProfile struct {
	ID          int64            `json:"id"`
	AnonymousID string           `json:"anonymous_id"`
	AgeGroup    store.AgeGroup   `json:"age_group"`
	Mode        store.Mode       `json:"mode"`
	CyclePhase  store.CyclePhase `json:"cycle_phase"`
	CreatedAt   string           `json:"created_at"`
}

// History is a user and their conversations.
type History struct {
	User     UserProfile `json:"user"`
	Sessions []Session   `json:"sessions"`
}

// UserHistory returns every conversation of a user, grouped by session.
func (e *Engine) UserHistory(ctx context.Context, anonymousID string) (History, error) {
	u, rows, err := e.userUtterances(ctx, anonymousID, nil)
	if err != nil {
		return History{}, err
	}
	return History{User: profile(u), Sessions: sessions(rows)}, nil
}

// sessions groups rows, which arrive ordered by session and time.
func sessions(rows []store.UtteranceRow) []Session {
	out := []Session{}
	index := make(map[string]int)
	for _, r := range rows {
		i, ok := index[r.SessionID]
		if !ok {
			i = len(out)
			index[r.SessionID] = i
			out = append(out, Session{SessionID: r.SessionID, CreatedAt: store.FormatTime(r.CreatedAt)})
		}
		out[i].Messages = append(out[i].Messages, newUtterance(r))
	}
	return out
}

func profile(u store.User) UserProfile {
	return UserProfile{
		ID:          u.ID,
		AnonymousID: u.AnonymousID,
		AgeGroup:    u.AgeGroup,
		Mode:        u.Mode,
		CyclePhase:  u.CyclePhase,
		CreatedAt:   store.FormatTime(u.CreatedAt),
	}
}

// UserStats profiles one user's activity. TopHour and TopDay are nil when
// the user has no utterances of their own.
type UserStats struct {
	TotalSessions   int                      `json:"totalSessions"`
	TotalUtterances int                      `json:"totalUtterances"`
	TopHour         *int                     `json:"topHour"`
	TopDay          *string                  `json:"topDay"`
	TopKeywords     []aggregate.KeywordCount `json:"topKeywords"`
}

// UserStats counts sessions (any role) and user-role utterances, and finds
// the most active hour and weekday and the most mentioned health terms.
func (e *Engine) UserStats(ctx context.Context, anonymousID string) (UserStats, error) {
	_, rows, err := e.userUtterances(ctx, anonymousID, nil)
	if err != nil {
		return UserStats{}, err
	}
	sessionIDs := make(map[string]bool)
	var times []time.Time
	var contents []string
	for _, r := range rows {
		sessionIDs[r.SessionID] = true
		if r.Role != store.RoleUser {
			continue
		}
		times = append(times, r.CreatedAt)
		contents = append(contents, r.Content)
	}

	stats := UserStats{
		TotalSessions:   len(sessionIDs),
		TotalUtterances: len(contents),
		TopKeywords:     orEmpty(aggregate.TopKeywords(contents, e.lex.Health(), TopHealthLimit)),
	}
	e.log.Debug("user stats", "sessions", stats.TotalSessions, "utterances", stats.TotalUtterances)
	if h, ok := aggregate.PeakHour(times); ok {
		stats.TopHour = &h
	}
	if d, ok := aggregate.PeakWeekday(times); ok {
		stats.TopDay = &d
	}
	return stats, nil
}
