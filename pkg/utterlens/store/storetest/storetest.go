// Package storetest holds the behavioral suite every store.Store backend
// must pass. Running the same assertions against each backend keeps them
// interchangeable.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/utterlens/pkg/utterlens/internalerr"
	"github.com/cognicore/utterlens/pkg/utterlens/pattern"
	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"InsertAssignsSequentialIDs", testInsertIDs},
		{"InsertValidation", testInsertValidation},
		{"CountUsers", testCountUsers},
		{"UserByAnonymousID", testUserByAnonymousID},
		{"UserCounts", testUserCounts},
		{"UserIDsInPhase", testUserIDsInPhase},
		{"SearchUtterances", testSearchUtterances},
		{"SearchPaging", testSearchPaging},
		{"CountUtterances", testCountUtterances},
		{"UtterancesByID", testUtterancesByID},
		{"UserUtterances", testUserUtterances},
		{"UserContents", testUserContents},
		{"SearchKeywordCounts", testSearchKeywordCounts},
		{"TimestampsKeepWholeSeconds", testTimestampsKeepWholeSeconds},
		{"UnknownShape", testUnknownShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

var base = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC) // a Monday

type fixture struct {
	alice, bob, carol int64
	utterances        []int64
}

// seed inserts three users and a handful of utterances:
//
//	alice 20代 生理管理 月経期: 3 user turns mentioning 生理痛, 1 assistant turn
//	bob   30代 妊活     排卵期: 1 user turn mentioning 排卵, 1 mentioning 生理痛
//	carol 20代 妊活     月経期: no utterances
func seed(t *testing.T, s store.Store) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	f.alice = mustUser(t, s, store.User{AnonymousID: "U001", AgeGroup: store.AgeTwenties, Mode: store.ModeCycle, CyclePhase: store.PhaseMenstrual, CreatedAt: base})
	f.bob = mustUser(t, s, store.User{AnonymousID: "U002", AgeGroup: store.AgeThirties, Mode: store.ModeFertility, CyclePhase: store.PhaseOvulatory, CreatedAt: base})
	f.carol = mustUser(t, s, store.User{AnonymousID: "U003", AgeGroup: store.AgeTwenties, Mode: store.ModeFertility, CyclePhase: store.PhaseMenstrual, CreatedAt: base})

	add := func(user int64, session string, role store.Role, content string, at time.Time) {
		id, err := s.InsertUtterance(ctx, store.Utterance{UserID: user, SessionID: session, Role: role, Content: content, CreatedAt: at})
		if err != nil {
			t.Fatalf("InsertUtterance: %v", err)
		}
		f.utterances = append(f.utterances, id)
	}
	add(f.alice, "s-a1", store.RoleUser, "生理痛がひどいです", base)
	add(f.alice, "s-a1", store.RoleAssistant, "生理痛について説明します", base.Add(time.Minute))
	add(f.alice, "s-a2", store.RoleUser, "今月も生理痛が辛い", base.Add(24*time.Hour))
	add(f.alice, "s-a2", store.RoleUser, "生理痛に効く薬は？", base.Add(48*time.Hour))
	add(f.bob, "s-b1", store.RoleUser, "排卵日の計算方法", base.Add(72*time.Hour))
	add(f.bob, "s-b1", store.RoleUser, "生理痛とPMSの違い", base.Add(96*time.Hour))
	return f
}

func mustUser(t *testing.T, s store.Store, u store.User) int64 {
	t.Helper()
	id, err := s.InsertUser(context.Background(), u)
	if err != nil {
		t.Fatalf("InsertUser(%s): %v", u.AnonymousID, err)
	}
	return id
}

func execute(t *testing.T, s store.Store, q store.Query) store.Rows {
	t.Helper()
	rows, err := s.Execute(context.Background(), q)
	if err != nil {
		t.Fatalf("Execute(%s): %v", store.ShapeName(q), err)
	}
	return rows
}

func contentsOf(rows []store.UtteranceRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Content
	}
	return out
}

func testInsertIDs(t *testing.T, s store.Store) {
	f := seed(t, s)
	if f.alice != 1 || f.bob != 2 || f.carol != 3 {
		t.Errorf("user ids = %d,%d,%d, want 1,2,3", f.alice, f.bob, f.carol)
	}
	for i, id := range f.utterances {
		if id != int64(i+1) {
			t.Errorf("utterance %d id = %d", i, id)
		}
	}
	logID, err := s.InsertSearchLog(context.Background(), store.SearchLog{Keyword: "生理痛", SearchedBy: "analyst", SearchedAt: base})
	if err != nil {
		t.Fatalf("InsertSearchLog: %v", err)
	}
	if logID != 1 {
		t.Errorf("search log id = %d, want 1", logID)
	}
}

func testInsertValidation(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := seed(t, s)

	_, err := s.InsertUser(ctx, store.User{AnonymousID: "U001", AgeGroup: store.AgeTeens, Mode: store.ModeCycle, CyclePhase: store.PhaseLuteal})
	if !errors.Is(err, internalerr.ErrDuplicate) {
		t.Errorf("duplicate anonymous id: got %v, want ErrDuplicate", err)
	}
	_, err = s.InsertUser(ctx, store.User{AnonymousID: "U009", AgeGroup: "50代", Mode: store.ModeCycle, CyclePhase: store.PhaseLuteal})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("bad age group: got %v, want ErrInvalidInput", err)
	}
	_, err = s.InsertUtterance(ctx, store.Utterance{UserID: 99, SessionID: "s", Role: store.RoleUser, Content: "x", CreatedAt: base})
	if !errors.Is(err, internalerr.ErrForeignKey) {
		t.Errorf("unknown owner: got %v, want ErrForeignKey", err)
	}
	_, err = s.InsertUtterance(ctx, store.Utterance{UserID: f.alice, SessionID: "s", Role: "system", Content: "x", CreatedAt: base})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("bad role: got %v, want ErrInvalidInput", err)
	}
}

func testCountUsers(t *testing.T, s store.Store) {
	if got := execute(t, s, store.CountUsers{}).Count; got != 0 {
		t.Fatalf("empty store CountUsers = %d", got)
	}
	seed(t, s)
	if got := execute(t, s, store.CountUsers{}).Count; got != 3 {
		t.Errorf("CountUsers = %d, want 3", got)
	}
}

func testUserByAnonymousID(t *testing.T, s store.Store) {
	seed(t, s)
	rows := execute(t, s, store.UserByAnonymousID{AnonymousID: "U002"})
	if len(rows.Users) != 1 {
		t.Fatalf("got %d users, want 1", len(rows.Users))
	}
	u := rows.Users[0]
	if u.ID != 2 || u.AgeGroup != store.AgeThirties || u.Mode != store.ModeFertility || u.CyclePhase != store.PhaseOvulatory {
		t.Errorf("unexpected user %+v", u)
	}
	if !u.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", u.CreatedAt, base)
	}
	if rows := execute(t, s, store.UserByAnonymousID{AnonymousID: "nobody"}); len(rows.Users) != 0 {
		t.Errorf("unknown id returned %v", rows.Users)
	}
}

func testUserCounts(t *testing.T, s store.Store) {
	f := seed(t, s)
	got := execute(t, s, store.UserCounts{Column: store.ColumnAgeGroup}).Counts
	want := []store.KeyCount{{Key: "20代", Count: 2}, {Key: "30代", Count: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UserCounts age (-want +got):\n%s", diff)
	}
	got = execute(t, s, store.UserCounts{UserIDs: []int64{f.alice, f.bob}, Column: store.ColumnMode}).Counts
	want = []store.KeyCount{{Key: "妊活", Count: 1}, {Key: "生理管理", Count: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UserCounts mode (-want +got):\n%s", diff)
	}
	if _, err := s.Execute(context.Background(), store.UserCounts{Column: "content"}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("bad column: got %v, want ErrInvalidInput", err)
	}
}

func testUserIDsInPhase(t *testing.T, s store.Store) {
	f := seed(t, s)
	got := execute(t, s, store.UserIDsInPhase{Phase: store.PhaseMenstrual}).IDs
	if diff := cmp.Diff([]int64{f.alice, f.carol}, got); diff != "" {
		t.Errorf("all users (-want +got):\n%s", diff)
	}
	got = execute(t, s, store.UserIDsInPhase{UserIDs: []int64{f.alice, f.bob}, Phase: store.PhaseMenstrual}).IDs
	if diff := cmp.Diff([]int64{f.alice}, got); diff != "" {
		t.Errorf("restricted (-want +got):\n%s", diff)
	}
}

func testSearchUtterances(t *testing.T, s store.Store) {
	f := seed(t, s)
	rows := execute(t, s, store.SearchUtterances{Patterns: []string{pattern.Contains("生理痛")}}).Utterances
	want := []string{"生理痛とPMSの違い", "生理痛に効く薬は？", "今月も生理痛が辛い", "生理痛がひどいです"}
	if diff := cmp.Diff(want, contentsOf(rows)); diff != "" {
		t.Errorf("newest first, user role only (-want +got):\n%s", diff)
	}
	if rows[0].AnonymousID != "U002" || rows[0].AgeGroup != store.AgeThirties || rows[0].Orphan {
		t.Errorf("join not applied: %+v", rows[0])
	}

	rows = execute(t, s, store.SearchUtterances{Patterns: []string{pattern.Contains("pms"), pattern.Contains("排卵")}}).Utterances
	if diff := cmp.Diff([]string{"生理痛とPMSの違い", "排卵日の計算方法"}, contentsOf(rows)); diff != "" {
		t.Errorf("any-of, case-insensitive (-want +got):\n%s", diff)
	}

	rows = execute(t, s, store.SearchUtterances{Patterns: []string{pattern.Contains("生理痛")}, UserIDs: []int64{f.alice}}).Utterances
	if len(rows) != 3 {
		t.Errorf("owner restriction: got %d rows, want 3", len(rows))
	}

	rows = execute(t, s, store.SearchUtterances{}).Utterances
	if len(rows) != 5 {
		t.Errorf("no patterns: got %d rows, want all 5 user turns", len(rows))
	}
}

func testSearchPaging(t *testing.T, s store.Store) {
	seed(t, s)
	q := store.SearchUtterances{Patterns: []string{pattern.Contains("生理痛")}, Page: &store.Page{Limit: 2, Offset: 2}}
	rows := execute(t, s, q).Utterances
	if diff := cmp.Diff([]string{"今月も生理痛が辛い", "生理痛がひどいです"}, contentsOf(rows)); diff != "" {
		t.Errorf("second page (-want +got):\n%s", diff)
	}
	q.Page = &store.Page{Limit: 2, Offset: 10}
	if rows := execute(t, s, q).Utterances; len(rows) != 0 {
		t.Errorf("past the end: got %d rows", len(rows))
	}
	q.Page = &store.Page{Limit: 0}
	if _, err := s.Execute(context.Background(), q); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("zero limit: got %v, want ErrInvalidInput", err)
	}
}

func testCountUtterances(t *testing.T, s store.Store) {
	seed(t, s)
	if got := execute(t, s, store.CountUtterances{Patterns: []string{pattern.Contains("生理痛")}}).Count; got != 4 {
		t.Errorf("CountUtterances = %d, want 4", got)
	}
	if got := execute(t, s, store.CountUtterances{Patterns: []string{pattern.Contains("更年期")}}).Count; got != 0 {
		t.Errorf("no match = %d", got)
	}
}

func testUtterancesByID(t *testing.T, s store.Store) {
	f := seed(t, s)
	rows := execute(t, s, store.UtterancesByID{IDs: []int64{f.utterances[4], f.utterances[1], 999, f.utterances[1]}}).Utterances
	if diff := cmp.Diff([]string{"生理痛について説明します", "排卵日の計算方法"}, contentsOf(rows)); diff != "" {
		t.Errorf("oldest first, unknown skipped, deduplicated (-want +got):\n%s", diff)
	}
	if rows[0].Role != store.RoleAssistant {
		t.Errorf("role = %q, want assistant", rows[0].Role)
	}
	if rows := execute(t, s, store.UtterancesByID{}).Utterances; len(rows) != 0 {
		t.Errorf("empty id set returned %d rows", len(rows))
	}
}

func testUserUtterances(t *testing.T, s store.Store) {
	f := seed(t, s)
	rows := execute(t, s, store.UserUtterances{UserID: f.alice}).Utterances
	var sessions []string
	for _, r := range rows {
		sessions = append(sessions, r.SessionID)
	}
	if diff := cmp.Diff([]string{"s-a1", "s-a1", "s-a2", "s-a2"}, sessions); diff != "" {
		t.Errorf("session order (-want +got):\n%s", diff)
	}
	if rows[1].Role != store.RoleAssistant {
		t.Errorf("assistant turn missing from history")
	}
	rows = execute(t, s, store.UserUtterances{UserID: f.alice, SessionIDs: []string{"s-a2"}}).Utterances
	if len(rows) != 2 {
		t.Errorf("session filter: got %d rows, want 2", len(rows))
	}
}

func testUserContents(t *testing.T, s store.Store) {
	seed(t, s)
	got := execute(t, s, store.UserContents{}).Contents
	if len(got) != 5 {
		t.Errorf("UserContents returned %d, want 5", len(got))
	}
}

func testSearchKeywordCounts(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, kw := range []string{"生理痛", "PMS", "生理痛", "睡眠", "PMS", "生理痛"} {
		if _, err := s.InsertSearchLog(ctx, store.SearchLog{Keyword: kw, SearchedBy: "analyst", SearchedAt: base}); err != nil {
			t.Fatalf("InsertSearchLog: %v", err)
		}
	}
	got := execute(t, s, store.SearchKeywordCounts{Limit: 2}).Counts
	want := []store.KeyCount{{Key: "生理痛", Count: 3}, {Key: "PMS", Count: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SearchKeywordCounts (-want +got):\n%s", diff)
	}
}

func testTimestampsKeepWholeSeconds(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := mustUser(t, s, store.User{AnonymousID: "U009", AgeGroup: store.AgeTeens, Mode: store.ModeCycle, CyclePhase: store.PhaseLuteal, CreatedAt: base.Add(250 * time.Millisecond)})
	late, err := s.InsertUtterance(ctx, store.Utterance{UserID: user, SessionID: "s", Role: store.RoleUser, Content: "遅い", CreatedAt: base.Add(900 * time.Millisecond)})
	if err != nil {
		t.Fatalf("InsertUtterance: %v", err)
	}
	early, err := s.InsertUtterance(ctx, store.Utterance{UserID: user, SessionID: "s", Role: store.RoleUser, Content: "早い", CreatedAt: base.Add(100 * time.Millisecond)})
	if err != nil {
		t.Fatalf("InsertUtterance: %v", err)
	}

	rows := execute(t, s, store.SearchUtterances{}).Utterances
	if len(rows) != 2 || rows[0].ID != early || rows[1].ID != late {
		t.Fatalf("same-second rows not ordered by id: %+v", rows)
	}
	for _, r := range rows {
		if !r.CreatedAt.Equal(base) {
			t.Errorf("utterance %d created_at = %v, want %v", r.ID, r.CreatedAt, base)
		}
	}
	users := execute(t, s, store.UserByAnonymousID{AnonymousID: "U009"}).Users
	if len(users) != 1 || !users[0].CreatedAt.Equal(base) {
		t.Errorf("user created_at = %+v, want %v", users, base)
	}
}

func testUnknownShape(t *testing.T, s store.Store) {
	if _, err := s.Execute(context.Background(), nil); !errors.Is(err, internalerr.ErrUnknownQuery) {
		t.Errorf("nil query: got %v, want ErrUnknownQuery", err)
	}
}
