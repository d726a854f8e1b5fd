// Package utterlens is the analytics engine over health-chat utterances:
// keyword search, demographic dashboards, attribute filtering, thematic
// grouping and qualitative insights.
package utterlens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cognicore/utterlens/internal/logger"
	"github.com/cognicore/utterlens/pkg/utterlens/classify"
	"github.com/cognicore/utterlens/pkg/utterlens/generator"
	"github.com/cognicore/utterlens/pkg/utterlens/internalerr"
	"github.com/cognicore/utterlens/pkg/utterlens/lexicon"
	"github.com/cognicore/utterlens/pkg/utterlens/pattern"
	"github.com/cognicore/utterlens/pkg/utterlens/seed"
	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// DefaultGroupCandidates is how many recent matches GroupsForKeyword
// offers for grouping.
const DefaultGroupCandidates = 50

// Engine is the main analytics facade.
type Engine struct {
	store           store.Store
	gen             *generator.Generator
	lex             *lexicon.Lexicon
	seeder          *seed.Seeder
	log             *logger.Logger
	now             func() time.Time
	groupCandidates int
}

// Options configures an Engine. Store is required; the rest default to a
// generator without a model, the built-in lexicon, no seeding, a no-op
// logger and the wall clock.
type Options struct {
	Store           store.Store
	Generator       *generator.Generator
	Lexicon         *lexicon.Lexicon
	Seeder          *seed.Seeder
	Logger          *logger.Logger
	Clock           func() time.Time
	GroupCandidates int
}

// New creates an Engine with the given dependencies.
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	gen := opts.Generator
	if gen == nil {
		gen = generator.New(nil, generator.Options{Logger: log})
	}
	lex := opts.Lexicon
	if lex == nil {
		lex = lexicon.Default()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	candidates := opts.GroupCandidates
	if candidates <= 0 {
		candidates = DefaultGroupCandidates
	}
	return &Engine{
		store:           loggedStore{Store: opts.Store, log: log},
		gen:             gen,
		lex:             lex,
		seeder:          opts.Seeder,
		log:             log,
		now:             now,
		groupCandidates: candidates,
	}
}

// Close releases the store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Utterance is one utterance as presented to callers.
type Utterance struct {
	ID             int64              `json:"id"`
	UserID         int64              `json:"user_id"`
	SessionID      string             `json:"session_id"`
	Role           store.Role         `json:"role"`
	Content        string             `json:"content"`
	CreatedAt      string             `json:"created_at"`
	AnonymousID    string             `json:"anonymous_id,omitempty"`
	AgeGroup       store.AgeGroup     `json:"age_group,omitempty"`
	Mode           store.Mode         `json:"mode,omitempty"`
	CyclePhase     store.CyclePhase   `json:"cycle_phase,omitempty"`
	Attribute      classify.Attribute `json:"attribute,omitempty"`
	MatchedQueries []string           `json:"matchedQueries,omitempty"`
}

func newUtterance(r store.UtteranceRow) Utterance {
	return Utterance{
		ID:          r.ID,
		UserID:      r.UserID,
		SessionID:   r.SessionID,
		Role:        r.Role,
		Content:     r.Content,
		CreatedAt:   store.FormatTime(r.CreatedAt),
		AnonymousID: r.AnonymousID,
		AgeGroup:    r.AgeGroup,
		Mode:        r.Mode,
		CyclePhase:  r.CyclePhase,
	}
}

// MatchedQueries returns the terms whose contains-pattern matches content,
// in the order given.
func MatchedQueries(content string, terms []string) []string {
	var out []string
	for _, t := range terms {
		if pattern.Match(content, pattern.Contains(t)) {
			out = append(out, t)
		}
	}
	return out
}

// prepare runs before every operation that reads the store.
func (e *Engine) prepare(ctx context.Context) error {
	if e.seeder == nil {
		return nil
	}
	return e.seeder.Ensure(ctx)
}

func containsPatterns(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, pattern.Contains(t))
	}
	return out
}

func requireKeyword(keyword string) (string, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return "", invalid("empty keyword")
	}
	return keyword, nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{internalerr.ErrInvalidInput}, args...)...)
}

// pageBounds returns the [start, end) slice of n items covering the
// 1-based page. Both bounds are clamped to n without computing
// (page-1)*limit when that product would exceed it.
func pageBounds(page, limit, n int) (start, end int) {
	if page < 1 || limit < 1 || page-1 > n/limit {
		return n, n
	}
	start = (page - 1) * limit
	if start > n {
		return n, n
	}
	end = n
	if limit < n-start {
		end = start + limit
	}
	return start, end
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// loggedStore reports interpreter and storage errors at error level before
// returning them. Rejected parameters and cancellations are left to the
// caller.
type loggedStore struct {
	store.Store
	log *logger.Logger
}

func (s loggedStore) Execute(ctx context.Context, q store.Query) (store.Rows, error) {
	rows, err := s.Store.Execute(ctx, q)
	switch {
	case err == nil, errors.Is(err, internalerr.ErrInvalidInput), errors.Is(err, context.Canceled):
	case errors.Is(err, internalerr.ErrUnknownQuery):
		s.log.Error("query rejected", "shape", store.ShapeName(q), "error", err)
	default:
		s.log.Error("query failed", "shape", store.ShapeName(q), "error", err)
	}
	return rows, err
}
