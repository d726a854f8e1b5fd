package store

import (
	"context"
	"sort"
	"time"
)

// TimeLayout is the wall-clock layout timestamps are persisted with.
// Values carry no zone and are interpreted as UTC.
const TimeLayout = "2006-01-02 15:04:05"

// Store is the main interface for persisting and querying utterance data.
// Records are append-only: there are no update or delete operations.
type Store interface {
	Close() error

	InsertUser(ctx context.Context, u User) (int64, error)
	InsertUtterance(ctx context.Context, u Utterance) (int64, error)
	InsertSearchLog(ctx context.Context, l SearchLog) (int64, error)

	// Execute runs one query from the closed shape catalog. Unknown
	// shapes fail with internalerr.ErrUnknownQuery.
	Execute(ctx context.Context, q Query) (Rows, error)
}

// User is an anonymized chat participant.
type User struct {
	ID          int64
	AnonymousID string
	AgeGroup    AgeGroup
	Mode        Mode
	CyclePhase  CyclePhase
	CreatedAt   time.Time
}

// Utterance is one chat message.
type Utterance struct {
	ID        int64
	UserID    int64
	SessionID string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// SearchLog records one analyst search.
type SearchLog struct {
	ID         int64
	Keyword    string
	SearchedBy string
	SearchedAt time.Time
}

// UtteranceRow is an utterance joined with its owning user's attributes.
// Orphan is set when the owner does not resolve; the user fields are then
// empty.
type UtteranceRow struct {
	Utterance
	AnonymousID string
	AgeGroup    AgeGroup
	Mode        Mode
	CyclePhase  CyclePhase
	Orphan      bool
}

// KeyCount is one group-by bucket.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Page selects a window of an ordered result.
type Page struct {
	Limit  int
	Offset int
}

// Valid reports whether the page selects at least one row from a
// non-negative offset.
func (p Page) Valid() bool {
	return p.Limit > 0 && p.Offset >= 0
}

// FormatTime renders t in TimeLayout after converting to UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout value as UTC. RFC 3339 values are
// accepted as well.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(TimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// SortKeyCounts orders counts by count descending, then key ascending.
func SortKeyCounts(counts []KeyCount) {
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Key < counts[j].Key
	})
}
