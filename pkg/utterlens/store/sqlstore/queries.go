package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

const joinedColumns = `u.id, u.user_id, u.session_id, u.role, u.content, u.created_at,
	COALESCE(us.id, 0), COALESCE(us.anonymous_id, ''), COALESCE(us.age_group, ''),
	COALESCE(us.mode, ''), COALESCE(us.cycle_phase, '')`

// matchClause ORs one LIKE per pattern. No patterns means no predicate.
func (s *sqlStore) matchClause(patterns []string) (string, []any) {
	if len(patterns) == 0 {
		return "", nil
	}
	parts := make([]string, len(patterns))
	args := make([]any, len(patterns))
	for i, p := range patterns {
		parts[i] = s.d.likeClause("u.content")
		args[i] = p
	}
	return " AND (" + strings.Join(parts, " OR ") + ")", args
}

func (s *sqlStore) buildCountUtterances(q store.CountUtterances) (string, []any) {
	where, args := s.matchClause(q.Patterns)
	query := `SELECT COUNT(*) FROM utterances u JOIN users us ON us.id = u.user_id
WHERE u.role = 'user'` + where
	return query, args
}

func (s *sqlStore) buildSearchUtterances(q store.SearchUtterances) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT ` + joinedColumns + ` FROM utterances u LEFT JOIN users us ON us.id = u.user_id
WHERE u.role = 'user'`)
	where, args := s.matchClause(q.Patterns)
	b.WriteString(where)
	if len(q.UserIDs) > 0 {
		b.WriteString(" AND u.user_id IN (" + placeholders(len(q.UserIDs)) + ")")
		args = append(args, int64Args(q.UserIDs)...)
	}
	if !q.IncludeOrphans {
		b.WriteString(" AND us.id IS NOT NULL")
	}
	b.WriteString("\nORDER BY u.created_at DESC, u.id DESC")
	if q.Page != nil {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, q.Page.Limit, q.Page.Offset)
	}
	return b.String(), args
}

func buildUserUtterances(q store.UserUtterances) (string, []any) {
	query := `SELECT ` + joinedColumns + ` FROM utterances u LEFT JOIN users us ON us.id = u.user_id
WHERE u.user_id = ?`
	args := []any{q.UserID}
	if len(q.SessionIDs) > 0 {
		query += " AND u.session_id IN (" + placeholders(len(q.SessionIDs)) + ")"
		for _, id := range q.SessionIDs {
			args = append(args, id)
		}
	}
	query += "\nORDER BY u.session_id ASC, u.created_at ASC, u.id ASC"
	return query, args
}

func (s *sqlStore) userCounts(ctx context.Context, q store.UserCounts) ([]store.KeyCount, error) {
	// Column is validated against the closed set before it reaches here.
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM users`, q.Column)
	var args []any
	if len(q.UserIDs) > 0 {
		query += " WHERE id IN (" + placeholders(len(q.UserIDs)) + ")"
		args = int64Args(q.UserIDs)
	}
	query += fmt.Sprintf(" GROUP BY %s", q.Column)
	return s.keyCounts(ctx, query, args...)
}

func (s *sqlStore) userIDsInPhase(ctx context.Context, q store.UserIDsInPhase) ([]int64, error) {
	query := `SELECT id FROM users WHERE cycle_phase = ?`
	args := []any{string(q.Phase)}
	if len(q.UserIDs) > 0 {
		query += " AND id IN (" + placeholders(len(q.UserIDs)) + ")"
		args = append(args, int64Args(q.UserIDs)...)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *sqlStore) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.d.rebind(query), args...).Scan(&n)
	return n, err
}

func (s *sqlStore) users(ctx context.Context, query string, args ...any) ([]store.User, error) {
	rows, err := s.db.QueryContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []store.User
	for rows.Next() {
		var (
			u                         store.User
			age, mode, phase, created string
		)
		if err := rows.Scan(&u.ID, &u.AnonymousID, &age, &mode, &phase, &created); err != nil {
			return nil, err
		}
		u.AgeGroup = store.AgeGroup(age)
		u.Mode = store.Mode(mode)
		u.CyclePhase = store.CyclePhase(phase)
		if u.CreatedAt, err = store.ParseTime(created); err != nil {
			return nil, fmt.Errorf("user %d created_at: %w", u.ID, err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *sqlStore) utterances(ctx context.Context, query string, args ...any) ([]store.UtteranceRow, error) {
	rows, err := s.db.QueryContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.UtteranceRow
	for rows.Next() {
		var (
			r                store.UtteranceRow
			role, created    string
			ownerID          int64
			age, mode, phase string
		)
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.SessionID, &role, &r.Content, &created,
			&ownerID, &r.AnonymousID, &age, &mode, &phase,
		); err != nil {
			return nil, err
		}
		r.Role = store.Role(role)
		r.AgeGroup = store.AgeGroup(age)
		r.Mode = store.Mode(mode)
		r.CyclePhase = store.CyclePhase(phase)
		r.Orphan = ownerID == 0
		if r.CreatedAt, err = store.ParseTime(created); err != nil {
			return nil, fmt.Errorf("utterance %d created_at: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqlStore) contents(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// keyCounts scans (key, count) pairs and orders them in Go so both
// dialects agree regardless of collation.
func (s *sqlStore) keyCounts(ctx context.Context, query string, args ...any) ([]store.KeyCount, error) {
	rows, err := s.db.QueryContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.KeyCount
	for rows.Next() {
		var kc store.KeyCount
		if err := rows.Scan(&kc.Key, &kc.Count); err != nil {
			return nil, err
		}
		out = append(out, kc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	store.SortKeyCounts(out)
	return out, nil
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
