package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/utterlens/pkg/utterlens/internalerr"
	"github.com/cognicore/utterlens/pkg/utterlens/pattern"
	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// Store is an in-memory implementation of store.Store. Each collection is
// an append-only slice with its own id counter starting at 1. Timestamps
// are kept to whole seconds, the precision store.TimeLayout persists.
type Store struct {
	mu         sync.RWMutex
	users      []store.User
	utterances []store.Utterance
	searchLogs []store.SearchLog
	userIndex  map[int64]int  // user id -> position in users
	anonIndex  map[string]int // anonymous id -> position in users
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		userIndex: make(map[int64]int),
		anonIndex: make(map[string]int),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// InsertUser appends a user and returns its id.
func (s *Store) InsertUser(ctx context.Context, u store.User) (int64, error) {
	if err := store.ValidateUser(u); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.anonIndex[u.AnonymousID]; exists {
		return 0, fmt.Errorf("%w: anonymous id %q", internalerr.ErrDuplicate, u.AnonymousID)
	}
	u.ID = int64(len(s.users) + 1)
	u.CreatedAt = u.CreatedAt.UTC().Truncate(time.Second)
	s.userIndex[u.ID] = len(s.users)
	s.anonIndex[u.AnonymousID] = len(s.users)
	s.users = append(s.users, u)
	return u.ID, nil
}

// InsertUtterance appends an utterance owned by an existing user.
func (s *Store) InsertUtterance(ctx context.Context, u store.Utterance) (int64, error) {
	if err := store.ValidateUtterance(u); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.userIndex[u.UserID]; !ok {
		return 0, fmt.Errorf("%w: user %d", internalerr.ErrForeignKey, u.UserID)
	}
	u.ID = int64(len(s.utterances) + 1)
	u.CreatedAt = u.CreatedAt.UTC().Truncate(time.Second)
	s.utterances = append(s.utterances, u)
	return u.ID, nil
}

// InsertSearchLog appends a search log entry.
func (s *Store) InsertSearchLog(ctx context.Context, l store.SearchLog) (int64, error) {
	if l.Keyword == "" {
		return 0, fmt.Errorf("%w: empty keyword", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	l.ID = int64(len(s.searchLogs) + 1)
	l.SearchedAt = l.SearchedAt.UTC().Truncate(time.Second)
	s.searchLogs = append(s.searchLogs, l)
	return l.ID, nil
}

// Execute implements store.Store.
func (s *Store) Execute(ctx context.Context, q store.Query) (store.Rows, error) {
	if err := store.Validate(q); err != nil {
		return store.Rows{}, err
	}
	if err := ctx.Err(); err != nil {
		return store.Rows{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch v := q.(type) {
	case store.CountUsers:
		return store.Rows{Count: len(s.users)}, nil
	case store.UserByAnonymousID:
		var rows store.Rows
		if idx, ok := s.anonIndex[v.AnonymousID]; ok {
			rows.Users = []store.User{s.users[idx]}
		}
		return rows, nil
	case store.UserCounts:
		return store.Rows{Counts: s.userCounts(v)}, nil
	case store.UserIDsInPhase:
		return store.Rows{IDs: s.userIDsInPhase(v)}, nil
	case store.CountUtterances:
		rows := s.searchUtterances(store.SearchUtterances{Patterns: v.Patterns})
		return store.Rows{Count: len(rows)}, nil
	case store.SearchUtterances:
		return store.Rows{Utterances: s.searchUtterances(v)}, nil
	case store.UtterancesByID:
		return store.Rows{Utterances: s.utterancesByID(v.IDs)}, nil
	case store.UserUtterances:
		return store.Rows{Utterances: s.userUtterances(v)}, nil
	case store.UserContents:
		var contents []string
		for _, u := range s.utterances {
			if u.Role == store.RoleUser {
				contents = append(contents, u.Content)
			}
		}
		return store.Rows{Contents: contents}, nil
	case store.SearchKeywordCounts:
		return store.Rows{Counts: s.searchKeywordCounts(v.Limit)}, nil
	default:
		return store.Rows{}, store.UnknownShape(q)
	}
}

func (s *Store) userCounts(q store.UserCounts) []store.KeyCount {
	ids := idSet(q.UserIDs)
	counts := make(map[string]int)
	for _, u := range s.users {
		if ids != nil && !ids[u.ID] {
			continue
		}
		counts[q.Column.Value(u)]++
	}
	out := make([]store.KeyCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, store.KeyCount{Key: k, Count: c})
	}
	store.SortKeyCounts(out)
	return out
}

func (s *Store) userIDsInPhase(q store.UserIDsInPhase) []int64 {
	ids := idSet(q.UserIDs)
	var out []int64
	for _, u := range s.users {
		if ids != nil && !ids[u.ID] {
			continue
		}
		if u.CyclePhase == q.Phase {
			out = append(out, u.ID)
		}
	}
	return out
}

func (s *Store) searchUtterances(q store.SearchUtterances) []store.UtteranceRow {
	matchers := pattern.CompileAll(q.Patterns)
	ids := idSet(q.UserIDs)

	var rows []store.UtteranceRow
	for _, u := range s.utterances {
		if u.Role != store.RoleUser {
			continue
		}
		if ids != nil && !ids[u.UserID] {
			continue
		}
		if !pattern.MatchAny(u.Content, matchers) {
			continue
		}
		row := s.join(u)
		if row.Orphan && !q.IncludeOrphans {
			continue
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	if q.Page == nil {
		return rows
	}
	if q.Page.Offset >= len(rows) {
		return nil
	}
	end := len(rows)
	if q.Page.Limit < end-q.Page.Offset {
		end = q.Page.Offset + q.Page.Limit
	}
	return rows[q.Page.Offset:end]
}

func (s *Store) utterancesByID(ids []int64) []store.UtteranceRow {
	var rows []store.UtteranceRow
	for _, id := range uniqueIDs(ids) {
		if id < 1 || id > int64(len(s.utterances)) {
			continue
		}
		rows = append(rows, s.join(s.utterances[id-1]))
	}
	sortAscending(rows)
	return rows
}

func (s *Store) userUtterances(q store.UserUtterances) []store.UtteranceRow {
	var sessions map[string]bool
	if len(q.SessionIDs) > 0 {
		sessions = make(map[string]bool, len(q.SessionIDs))
		for _, id := range q.SessionIDs {
			sessions[id] = true
		}
	}
	var rows []store.UtteranceRow
	for _, u := range s.utterances {
		if u.UserID != q.UserID {
			continue
		}
		if sessions != nil && !sessions[u.SessionID] {
			continue
		}
		rows = append(rows, s.join(u))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.SessionID != b.SessionID {
			return a.SessionID < b.SessionID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return rows
}

func (s *Store) searchKeywordCounts(limit int) []store.KeyCount {
	counts := make(map[string]int)
	for _, l := range s.searchLogs {
		counts[l.Keyword]++
	}
	out := make([]store.KeyCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, store.KeyCount{Key: k, Count: c})
	}
	store.SortKeyCounts(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// join attaches the owner's attributes. Callers hold s.mu.
func (s *Store) join(u store.Utterance) store.UtteranceRow {
	row := store.UtteranceRow{Utterance: u}
	idx, ok := s.userIndex[u.UserID]
	if !ok {
		row.Orphan = true
		return row
	}
	owner := s.users[idx]
	row.AnonymousID = owner.AnonymousID
	row.AgeGroup = owner.AgeGroup
	row.Mode = owner.Mode
	row.CyclePhase = owner.CyclePhase
	return row
}

func sortAscending(rows []store.UtteranceRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// idSet returns nil for an empty list, meaning no restriction.
func idSet(ids []int64) map[int64]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
