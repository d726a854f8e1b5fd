package seed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/utterlens/pkg/utterlens/store"
	"github.com/cognicore/utterlens/pkg/utterlens/store/memstore"
)

var until = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func TestGenerateIsDeterministic(t *testing.T) {
	p := Plan{Users: 5, SessionsPerUser: 2, Months: 6, RandomSeed: 7, Until: until}
	a, b := Generate(p), Generate(p)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same plan produced different datasets:\n%s", diff)
	}
	if len(a.Users) != 5 {
		t.Fatalf("got %d users", len(a.Users))
	}
	from := until.AddDate(0, -6, 0)
	for _, u := range a.Utterances {
		if !u.Role.Valid() || u.SessionID == "" || u.Content == "" {
			t.Fatalf("bad utterance %+v", u)
		}
		if u.CreatedAt.Before(from) || u.CreatedAt.After(until.Add(time.Hour)) {
			t.Fatalf("timestamp %v outside window", u.CreatedAt)
		}
	}
	for _, u := range a.Users {
		if err := store.ValidateUser(u); err != nil {
			t.Fatalf("invalid user: %v", err)
		}
	}
}

func TestLoadResolvesUsers(t *testing.T) {
	s := memstore.New()
	ds := Generate(Plan{Users: 3, SessionsPerUser: 1, RandomSeed: 1, Until: until})
	if err := Load(context.Background(), s, ds); err != nil {
		t.Fatalf("Load: %v", err)
	}
	rows, err := s.Execute(context.Background(), store.UserUtterances{UserID: 3})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows.Utterances) == 0 || rows.Utterances[0].AnonymousID != "U003" {
		t.Errorf("utterances of user 3 not linked: %+v", rows.Utterances)
	}
}

// countingStore counts user inserts.
type countingStore struct {
	store.Store
	users atomic.Int32
}

func (c *countingStore) InsertUser(ctx context.Context, u store.User) (int64, error) {
	c.users.Add(1)
	return c.Store.InsertUser(ctx, u)
}

func TestEnsureSeedsOnceUnderConcurrency(t *testing.T) {
	cs := &countingStore{Store: memstore.New()}
	sd := NewSeeder(cs, Plan{Users: 4, SessionsPerUser: 1, RandomSeed: 3, Until: until}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sd.Ensure(context.Background()); err != nil {
				t.Errorf("Ensure: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := cs.users.Load(); got != 4 {
		t.Errorf("inserted %d users, want 4", got)
	}
}

func TestEnsureSkipsPopulatedStore(t *testing.T) {
	s := memstore.New()
	if _, err := s.InsertUser(context.Background(), store.User{AnonymousID: "X", AgeGroup: store.AgeTeens, Mode: store.ModeCycle, CyclePhase: store.PhaseLuteal}); err != nil {
		t.Fatal(err)
	}
	if err := NewSeeder(s, DefaultPlan(), nil).Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	rows, _ := s.Execute(context.Background(), store.CountUsers{})
	if rows.Count != 1 {
		t.Errorf("populated store was seeded: %d users", rows.Count)
	}
}

// failingStore rejects the count query once.
type failingStore struct {
	store.Store
	fail atomic.Bool
}

func (f *failingStore) Execute(ctx context.Context, q store.Query) (store.Rows, error) {
	if f.fail.CompareAndSwap(true, false) {
		return store.Rows{}, errors.New("disk full")
	}
	return f.Store.Execute(ctx, q)
}

func TestEnsureRetriesAfterFailure(t *testing.T) {
	fs := &failingStore{Store: memstore.New()}
	fs.fail.Store(true)
	sd := NewSeeder(fs, Plan{Users: 2, SessionsPerUser: 1, Until: until}, nil)
	if err := sd.Ensure(context.Background()); err == nil {
		t.Fatal("expected first Ensure to fail")
	}
	if err := sd.Ensure(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	rows, _ := fs.Execute(context.Background(), store.CountUsers{})
	if rows.Count != 2 {
		t.Errorf("got %d users after retry", rows.Count)
	}
}

// brokenUtteranceStore fails one utterance insert after `after` successes.
type brokenUtteranceStore struct {
	store.Store
	after    int
	failed   bool
	inserted int
}

func (b *brokenUtteranceStore) InsertUtterance(ctx context.Context, u store.Utterance) (int64, error) {
	if !b.failed && b.inserted == b.after {
		b.failed = true
		return 0, errors.New("disk full")
	}
	id, err := b.Store.InsertUtterance(ctx, u)
	if err == nil {
		b.inserted++
	}
	return id, err
}

func TestEnsureResumesInterruptedLoad(t *testing.T) {
	plan := Plan{Users: 3, SessionsPerUser: 2, RandomSeed: 5, Until: until}
	want := Generate(plan)
	bs := &brokenUtteranceStore{Store: memstore.New(), after: 3}
	sd := NewSeeder(bs, plan, nil)

	if err := sd.Ensure(context.Background()); err == nil {
		t.Fatal("expected first Ensure to fail")
	}
	if bs.inserted != 3 {
		t.Fatalf("stored %d utterances before the failure, want 3", bs.inserted)
	}
	if err := sd.Ensure(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if bs.inserted != len(want.Utterances) {
		t.Errorf("stored %d utterances, want %d", bs.inserted, len(want.Utterances))
	}
	rows, _ := bs.Execute(context.Background(), store.CountUsers{})
	if rows.Count != len(want.Users) {
		t.Errorf("got %d users, want %d", rows.Count, len(want.Users))
	}
	for id := int64(1); id <= int64(len(want.Users)); id++ {
		got, err := bs.Execute(context.Background(), store.UserUtterances{UserID: id})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		var n int
		for _, u := range want.Utterances {
			if u.UserID == id-1 {
				n++
			}
		}
		if len(got.Utterances) != n {
			t.Errorf("user %d has %d utterances, want %d", id, len(got.Utterances), n)
		}
	}
}
