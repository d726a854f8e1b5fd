package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/utterlens/pkg/utterlens/store"
	"github.com/cognicore/utterlens/pkg/utterlens/store/storetest"
)

func TestSQLiteConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		return st
	})
}

func TestPostgresConformance(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("integration tests skipped: TEST_DATABASE_URL is not set")
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		st, err := OpenPostgres(ctx, dsn)
		if err != nil {
			t.Fatalf("OpenPostgres: %v", err)
		}
		db := st.(*sqlStore).db
		if _, err := db.ExecContext(ctx, "TRUNCATE utterances, search_logs, users RESTART IDENTITY CASCADE"); err != nil {
			st.Close()
			t.Fatalf("truncate: %v", err)
		}
		return st
	})
}

func TestSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 2; i++ {
		st, err := OpenSQLite(ctx, path)
		if err != nil {
			t.Fatalf("OpenSQLite #%d: %v", i+1, err)
		}
		st.Close()
	}
}

func TestRebind(t *testing.T) {
	got := postgresDialect.rebind("SELECT 1 WHERE a = ? AND b IN (?, ?)")
	want := "SELECT 1 WHERE a = $1 AND b IN ($2, $3)"
	if got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}
	if got := sqliteDialect.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestLikeClause(t *testing.T) {
	if got := sqliteDialect.likeClause("u.content"); got != "u.content LIKE ?" {
		t.Errorf("sqlite like = %q", got)
	}
	if got := postgresDialect.likeClause("u.content"); got != "u.content ILIKE ? ESCAPE ''" {
		t.Errorf("postgres like = %q", got)
	}
}

func TestPlaceholders(t *testing.T) {
	if got := placeholders(3); got != "?, ?, ?" {
		t.Errorf("placeholders(3) = %q", got)
	}
	if got := placeholders(0); got != "" {
		t.Errorf("placeholders(0) = %q", got)
	}
}
