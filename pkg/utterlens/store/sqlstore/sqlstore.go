// Package sqlstore implements store.Store on a relational engine through
// database/sql. SQLite (modernc.org/sqlite) and PostgreSQL (pgx) are
// supported; both produce the same rows as the in-memory store.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/cognicore/utterlens/pkg/utterlens/internalerr"
	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// sqlStore implements the Store interface over database/sql.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

// OpenSQLite opens a SQLite database with WAL mode and foreign keys
// enabled, creating the schema when missing.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	return open(ctx, sqliteDialect, path)
}

// OpenPostgres connects to PostgreSQL using a pgx connection string and
// creates the schema when missing.
func OpenPostgres(ctx context.Context, dsn string) (store.Store, error) {
	return open(ctx, postgresDialect, dsn)
}

func open(ctx context.Context, d dialect, dsn string) (store.Store, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	if d.maxConns > 0 {
		db.SetMaxOpenConns(d.maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrStoreUnavailable, d.name, err)
	}
	for _, stmt := range d.bootstrap {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	if err := initSchema(ctx, db, d); err != nil {
		db.Close()
		return nil, err
	}
	return &sqlStore{db: db, d: d}, nil
}

// initSchema creates tables and indexes if they don't exist
func initSchema(ctx context.Context, db *sql.DB, d dialect) error {
	for _, stmt := range append(append([]string{}, d.schema...), indexes...) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// InsertUser inserts a user, rejecting duplicate anonymous ids.
func (s *sqlStore) InsertUser(ctx context.Context, u store.User) (int64, error) {
	if err := store.ValidateUser(u); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, s.d.rebind(`SELECT COUNT(*) FROM users WHERE anonymous_id = ?`), u.AnonymousID).Scan(&n); err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, fmt.Errorf("%w: anonymous id %q", internalerr.ErrDuplicate, u.AnonymousID)
	}

	const stmt = `
INSERT INTO users (anonymous_id, age_group, mode, cycle_phase, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`
	var id int64
	err = tx.QueryRowContext(ctx, s.d.rebind(stmt),
		u.AnonymousID,
		string(u.AgeGroup),
		string(u.Mode),
		string(u.CyclePhase),
		store.FormatTime(u.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// InsertUtterance inserts an utterance owned by an existing user.
func (s *sqlStore) InsertUtterance(ctx context.Context, u store.Utterance) (int64, error) {
	if err := store.ValidateUtterance(u); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, s.d.rebind(`SELECT COUNT(*) FROM users WHERE id = ?`), u.UserID).Scan(&n); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: user %d", internalerr.ErrForeignKey, u.UserID)
	}

	const stmt = `
INSERT INTO utterances (user_id, session_id, role, content, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`
	var id int64
	err = tx.QueryRowContext(ctx, s.d.rebind(stmt),
		u.UserID,
		u.SessionID,
		string(u.Role),
		u.Content,
		store.FormatTime(u.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// InsertSearchLog appends a search log entry.
func (s *sqlStore) InsertSearchLog(ctx context.Context, l store.SearchLog) (int64, error) {
	if l.Keyword == "" {
		return 0, fmt.Errorf("%w: empty keyword", internalerr.ErrInvalidInput)
	}
	const stmt = `
INSERT INTO search_logs (keyword, searched_by, searched_at)
VALUES (?, ?, ?)
RETURNING id`
	var id int64
	err := s.db.QueryRowContext(ctx, s.d.rebind(stmt), l.Keyword, l.SearchedBy, store.FormatTime(l.SearchedAt)).Scan(&id)
	return id, err
}

// Execute implements store.Store.
func (s *sqlStore) Execute(ctx context.Context, q store.Query) (store.Rows, error) {
	if err := store.Validate(q); err != nil {
		return store.Rows{}, err
	}

	switch v := q.(type) {
	case store.CountUsers:
		n, err := s.count(ctx, `SELECT COUNT(*) FROM users`)
		return store.Rows{Count: n}, err
	case store.UserByAnonymousID:
		users, err := s.users(ctx, `SELECT id, anonymous_id, age_group, mode, cycle_phase, created_at FROM users WHERE anonymous_id = ?`, v.AnonymousID)
		return store.Rows{Users: users}, err
	case store.UserCounts:
		counts, err := s.userCounts(ctx, v)
		return store.Rows{Counts: counts}, err
	case store.UserIDsInPhase:
		ids, err := s.userIDsInPhase(ctx, v)
		return store.Rows{IDs: ids}, err
	case store.CountUtterances:
		query, args := s.buildCountUtterances(v)
		n, err := s.count(ctx, query, args...)
		return store.Rows{Count: n}, err
	case store.SearchUtterances:
		query, args := s.buildSearchUtterances(v)
		rows, err := s.utterances(ctx, query, args...)
		return store.Rows{Utterances: rows}, err
	case store.UtterancesByID:
		if len(v.IDs) == 0 {
			return store.Rows{}, nil
		}
		query := `SELECT ` + joinedColumns + ` FROM utterances u LEFT JOIN users us ON us.id = u.user_id
WHERE u.id IN (` + placeholders(len(v.IDs)) + `)
ORDER BY u.created_at ASC, u.id ASC`
		rows, err := s.utterances(ctx, query, int64Args(v.IDs)...)
		return store.Rows{Utterances: rows}, err
	case store.UserUtterances:
		query, args := buildUserUtterances(v)
		rows, err := s.utterances(ctx, query, args...)
		return store.Rows{Utterances: rows}, err
	case store.UserContents:
		contents, err := s.contents(ctx, `SELECT content FROM utterances WHERE role = 'user' ORDER BY id`)
		return store.Rows{Contents: contents}, err
	case store.SearchKeywordCounts:
		counts, err := s.keyCounts(ctx, `SELECT keyword, COUNT(*) FROM search_logs GROUP BY keyword`)
		if len(counts) > v.Limit {
			counts = counts[:v.Limit]
		}
		return store.Rows{Counts: counts}, err
	default:
		return store.Rows{}, store.UnknownShape(q)
	}
}
