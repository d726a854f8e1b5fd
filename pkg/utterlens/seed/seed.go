// Package seed populates an empty store with a synthetic chat corpus.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/utterlens/internal/logger"
	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// Plan sizes a synthetic dataset. The same plan always yields the same
// dataset.
type Plan struct {
	Users           int
	SessionsPerUser int
	Months          int   // history spread before Until
	RandomSeed      int64 // drives every random choice
	Until           time.Time
}

// DefaultPlan returns the plan used when seeding is enabled without
// overrides. Until is left zero and resolves to the current time.
func DefaultPlan() Plan {
	return Plan{Users: 40, SessionsPerUser: 3, Months: 14, RandomSeed: 42}
}

// Dataset is a generated corpus. Utterance.UserID holds the 0-based index
// into Users until Load resolves it to a stored id.
type Dataset struct {
	Users      []store.User
	Utterances []store.Utterance
}

// Generate builds the dataset described by p.
func Generate(p Plan) Dataset {
	if p.Users <= 0 {
		p.Users = DefaultPlan().Users
	}
	if p.SessionsPerUser <= 0 {
		p.SessionsPerUser = DefaultPlan().SessionsPerUser
	}
	if p.Months <= 0 {
		p.Months = DefaultPlan().Months
	}
	until := p.Until
	if until.IsZero() {
		until = time.Now()
	}
	until = until.UTC().Truncate(time.Second)
	from := until.AddDate(0, -p.Months, 0)
	span := until.Sub(from)

	rng := rand.New(rand.NewSource(p.RandomSeed))
	entropy := ulid.Monotonic(rng, 0)
	ages := store.AllAgeGroups()
	modes := store.AllModes()
	phases := store.AllCyclePhases()

	var ds Dataset
	for i := 0; i < p.Users; i++ {
		mode := modes[rng.Intn(len(modes))]
		ds.Users = append(ds.Users, store.User{
			AnonymousID: fmt.Sprintf("U%03d", i+1),
			AgeGroup:    ages[rng.Intn(len(ages))],
			Mode:        mode,
			CyclePhase:  phases[rng.Intn(len(phases))],
			CreatedAt:   from,
		})

		starts := make([]time.Time, p.SessionsPerUser)
		for s := range starts {
			starts[s] = from.Add(time.Duration(rng.Int63n(int64(span/time.Second))) * time.Second)
		}
		sort.Slice(starts, func(a, b int) bool { return starts[a].Before(starts[b]) })
		for _, start := range starts {
			sessionID := ulid.MustNew(ulid.Timestamp(start), entropy).String()
			at := start
			turns := 2 + rng.Intn(3)
			for t := 0; t < turns; t++ {
				topic := pickTopic(rng, mode)
				ds.Utterances = append(ds.Utterances, store.Utterance{
					UserID:    int64(i),
					SessionID: sessionID,
					Role:      store.RoleUser,
					Content:   userLine(rng, topic),
					CreatedAt: at,
				})
				at = at.Add(time.Minute)
				ds.Utterances = append(ds.Utterances, store.Utterance{
					UserID:    int64(i),
					SessionID: sessionID,
					Role:      store.RoleAssistant,
					Content:   assistantLine(rng, topic),
					CreatedAt: at,
				})
				at = at.Add(time.Duration(2+rng.Intn(10)) * time.Minute)
			}
		}
	}
	return ds
}

// Load inserts ds into s, resolving user indices to stored ids.
func Load(ctx context.Context, s store.Store, ds Dataset) error {
	return newLoader(ds).run(ctx, s)
}

// loader tracks how much of a dataset has been stored, so a load that
// fails partway can continue where it stopped.
type loader struct {
	ds         Dataset
	ids        []int64 // stored ids of ds.Users[:len(ids)]
	utterances int     // ds.Utterances[:utterances] are stored
}

func newLoader(ds Dataset) *loader {
	return &loader{ds: ds, ids: make([]int64, 0, len(ds.Users))}
}

func (l *loader) run(ctx context.Context, s store.Store) error {
	for len(l.ids) < len(l.ds.Users) {
		u := l.ds.Users[len(l.ids)]
		id, err := s.InsertUser(ctx, u)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.AnonymousID, err)
		}
		l.ids = append(l.ids, id)
	}
	for l.utterances < len(l.ds.Utterances) {
		u := l.ds.Utterances[l.utterances]
		if u.UserID < 0 || int(u.UserID) >= len(l.ids) {
			return fmt.Errorf("seed utterance: user index %d out of range", u.UserID)
		}
		u.UserID = l.ids[u.UserID]
		if _, err := s.InsertUtterance(ctx, u); err != nil {
			return fmt.Errorf("seed utterance: %w", err)
		}
		l.utterances++
	}
	return nil
}

// Seeder seeds a store at most once. Ensure serializes the emptiness check
// and the load, so concurrent first callers cannot both seed.
type Seeder struct {
	store store.Store
	plan  Plan
	log   *logger.Logger

	mu      sync.Mutex
	done    bool
	pending *loader // set while a started load is incomplete
}

// NewSeeder creates a Seeder for s. A nil log discards output.
func NewSeeder(s store.Store, plan Plan, log *logger.Logger) *Seeder {
	if log == nil {
		log = logger.Nop()
	}
	return &Seeder{store: s, plan: plan, log: log}
}

// Ensure seeds the store if it has no users. After one successful call
// later calls return immediately. A failed call may be retried: a load
// interrupted partway resumes with the records it has not yet stored.
func (s *Seeder) Ensure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}

	if s.pending == nil {
		n, err := store.Count(ctx, s.store, store.CountUsers{})
		if err != nil {
			return fmt.Errorf("seed check: %w", err)
		}
		if n > 0 {
			s.done = true
			return nil
		}
		s.pending = newLoader(Generate(s.plan))
	}
	if err := s.pending.run(ctx, s.store); err != nil {
		s.log.Warn("seeding interrupted", "users", len(s.pending.ids), "utterances", s.pending.utterances, "error", err)
		return err
	}
	s.log.Info("seeded store", "users", len(s.pending.ds.Users), "utterances", len(s.pending.ds.Utterances))
	s.pending = nil
	s.done = true
	return nil
}
