package sqlstore

import (
	"strconv"
	"strings"
)

// dialect captures the few places SQLite and PostgreSQL disagree.
type dialect struct {
	name      string
	driver    string
	schema    []string
	like      string // case-insensitive LIKE with no escape character
	numbered  bool   // placeholders are $1, $2, ...
	maxConns  int
	bootstrap []string
}

var sqliteDialect = dialect{
	name:   "sqlite",
	driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	anonymous_id TEXT UNIQUE NOT NULL,
	age_group TEXT NOT NULL,
	mode TEXT NOT NULL,
	cycle_phase TEXT NOT NULL,
	created_at TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS utterances (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
	content TEXT NOT NULL,
	created_at TEXT NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id)
)`,
		`CREATE TABLE IF NOT EXISTS search_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	keyword TEXT NOT NULL,
	searched_by TEXT NOT NULL,
	searched_at TEXT NOT NULL
)`,
	},
	like: "LIKE",
	// database/sql hands out separate connections; one keeps :memory:
	// databases coherent and avoids SQLITE_BUSY on concurrent writes.
	maxConns: 1,
	bootstrap: []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	},
}

var postgresDialect = dialect{
	name:   "postgres",
	driver: "pgx",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	anonymous_id TEXT UNIQUE NOT NULL,
	age_group TEXT NOT NULL,
	mode TEXT NOT NULL,
	cycle_phase TEXT NOT NULL,
	created_at TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS utterances (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	session_id TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
	content TEXT NOT NULL,
	created_at TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS search_logs (
	id BIGSERIAL PRIMARY KEY,
	keyword TEXT NOT NULL,
	searched_by TEXT NOT NULL,
	searched_at TEXT NOT NULL
)`,
	},
	like:     "ILIKE %s ESCAPE ''",
	numbered: true,
}

// indexes are shared by both dialects.
var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_utterances_user_id ON utterances(user_id)",
	"CREATE INDEX IF NOT EXISTS idx_utterances_session_id ON utterances(session_id)",
	"CREATE INDEX IF NOT EXISTS idx_utterances_created_at ON utterances(created_at)",
	"CREATE INDEX IF NOT EXISTS idx_search_logs_keyword ON search_logs(keyword)",
}

// likeClause renders "column LIKE ?" for the dialect.
func (d dialect) likeClause(column string) string {
	if strings.Contains(d.like, "%s") {
		return column + " " + strings.Replace(d.like, "%s", "?", 1)
	}
	return column + " " + d.like + " ?"
}

// rebind rewrites ? placeholders into the dialect's form. Queries built by
// this package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// placeholders returns "?, ?, ?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
