package store

import (
	"context"
	"fmt"

	"github.com/cognicore/utterlens/pkg/utterlens/internalerr"
)

// Query is one parameterized shape from the closed catalog below. The set
// is sealed: backends switch over the concrete types and anything else is
// rejected with internalerr.ErrUnknownQuery.
type Query interface {
	shape() string
}

// CountUsers counts all users.
type CountUsers struct{}

// UserByAnonymousID looks up one user. Output: Rows.Users with zero or one
// entry.
type UserByAnonymousID struct {
	AnonymousID string
}

// UserCounts groups the users in UserIDs on Column. Output: Rows.Counts in
// count-descending, key-ascending order.
type UserCounts struct {
	UserIDs []int64
	Column  UserColumn
}

// UserIDsInPhase narrows UserIDs to the users currently in Phase. Output:
// Rows.IDs, ascending.
type UserIDsInPhase struct {
	UserIDs []int64
	Phase   CyclePhase
}

// CountUtterances counts user-role utterances whose content matches any of
// Patterns and whose owner resolves. Output: Rows.Count.
type CountUtterances struct {
	Patterns []string
}

// SearchUtterances lists user-role utterances matching any of Patterns,
// joined with their owner, newest first.
//
// An empty Patterns list matches every user-role utterance. An empty
// UserIDs list means no owner restriction. Orphans are dropped unless
// IncludeOrphans is set. Page nil returns every row. Output:
// Rows.Utterances.
type SearchUtterances struct {
	Patterns       []string
	UserIDs        []int64
	IncludeOrphans bool
	Page           *Page
}

// UtterancesByID fetches utterances of any role by id, left-joined with
// their owner, oldest first. Output: Rows.Utterances.
type UtterancesByID struct {
	IDs []int64
}

// UserUtterances returns every utterance of one user ordered by session and
// then time. An empty SessionIDs list selects all sessions. Output:
// Rows.Utterances.
type UserUtterances struct {
	UserID     int64
	SessionIDs []string
}

// UserContents returns the content of every user-role utterance. Output:
// Rows.Contents.
type UserContents struct{}

// SearchKeywordCounts groups the search log by keyword. Output: Rows.Counts
// in count-descending, keyword-ascending order, at most Limit entries.
type SearchKeywordCounts struct {
	Limit int
}

func (CountUsers) shape() string          { return "count_users" }
func (UserByAnonymousID) shape() string   { return "user_by_anonymous_id" }
func (UserCounts) shape() string          { return "user_counts" }
func (UserIDsInPhase) shape() string      { return "user_ids_in_phase" }
func (CountUtterances) shape() string     { return "count_utterances" }
func (SearchUtterances) shape() string    { return "search_utterances" }
func (UtterancesByID) shape() string      { return "utterances_by_id" }
func (UserUtterances) shape() string      { return "user_utterances" }
func (UserContents) shape() string        { return "user_contents" }
func (SearchKeywordCounts) shape() string { return "search_keyword_counts" }

// ShapeName returns the catalog name of q, or "unknown".
func ShapeName(q Query) string {
	if q == nil {
		return "unknown"
	}
	return q.shape()
}

// Rows is the result of Execute. Each shape fills exactly one field.
type Rows struct {
	Count      int
	IDs        []int64
	Users      []User
	Utterances []UtteranceRow
	Contents   []string
	Counts     []KeyCount
}

// Validate checks the parameters of the shapes that take them. Backends
// call it before running a query.
func Validate(q Query) error {
	switch v := q.(type) {
	case nil:
		return fmt.Errorf("%w: nil query", internalerr.ErrUnknownQuery)
	case UserCounts:
		if !v.Column.Valid() {
			return fmt.Errorf("%w: group column %q", internalerr.ErrInvalidInput, v.Column)
		}
	case SearchUtterances:
		if v.Page != nil && !v.Page.Valid() {
			return fmt.Errorf("%w: page limit %d offset %d", internalerr.ErrInvalidInput, v.Page.Limit, v.Page.Offset)
		}
	case SearchKeywordCounts:
		if v.Limit <= 0 {
			return fmt.Errorf("%w: limit %d", internalerr.ErrInvalidInput, v.Limit)
		}
	}
	return nil
}

// UnknownShape builds the error backends return for a query outside the
// catalog.
func UnknownShape(q Query) error {
	return fmt.Errorf("%w: %T", internalerr.ErrUnknownQuery, q)
}

// Count runs a counting shape.
func Count(ctx context.Context, s Store, q Query) (int, error) {
	rows, err := s.Execute(ctx, q)
	if err != nil {
		return 0, err
	}
	return rows.Count, nil
}

// Utterances runs a listing shape.
func Utterances(ctx context.Context, s Store, q Query) ([]UtteranceRow, error) {
	rows, err := s.Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	return rows.Utterances, nil
}

// Counts runs a group-by shape.
func Counts(ctx context.Context, s Store, q Query) ([]KeyCount, error) {
	rows, err := s.Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	return rows.Counts, nil
}

// IDs runs an id-set shape.
func IDs(ctx context.Context, s Store, q Query) ([]int64, error) {
	rows, err := s.Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	return rows.IDs, nil
}

// Contents runs UserContents.
func Contents(ctx context.Context, s Store) ([]string, error) {
	rows, err := s.Execute(ctx, UserContents{})
	if err != nil {
		return nil, err
	}
	return rows.Contents, nil
}

// UserByID resolves an anonymous id. The boolean is false when no user has
// that id.
func UserByID(ctx context.Context, s Store, anonymousID string) (User, bool, error) {
	rows, err := s.Execute(ctx, UserByAnonymousID{AnonymousID: anonymousID})
	if err != nil {
		return User{}, false, err
	}
	if len(rows.Users) == 0 {
		return User{}, false, nil
	}
	return rows.Users[0], true, nil
}

// ValidateUser checks the enumerated attributes of u.
func ValidateUser(u User) error {
	if u.AnonymousID == "" {
		return fmt.Errorf("%w: empty anonymous id", internalerr.ErrInvalidInput)
	}
	if !u.AgeGroup.Valid() {
		return fmt.Errorf("%w: age group %q", internalerr.ErrInvalidInput, u.AgeGroup)
	}
	if !u.Mode.Valid() {
		return fmt.Errorf("%w: mode %q", internalerr.ErrInvalidInput, u.Mode)
	}
	if !u.CyclePhase.Valid() {
		return fmt.Errorf("%w: cycle phase %q", internalerr.ErrInvalidInput, u.CyclePhase)
	}
	return nil
}

// ValidateUtterance checks the fields of u that do not need the store.
func ValidateUtterance(u Utterance) error {
	if !u.Role.Valid() {
		return fmt.Errorf("%w: role %q", internalerr.ErrInvalidInput, u.Role)
	}
	if u.SessionID == "" {
		return fmt.Errorf("%w: empty session id", internalerr.ErrInvalidInput)
	}
	return nil
}
