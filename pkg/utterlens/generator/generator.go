// Package generator layers language-model explanations over query
// results: thematic groupings, qualitative insights, batch attribute
// classification and related search phrases.
//
// Every model call resolves to an explicit Outcome. On anything other
// than OutcomeSuccess the generator returns a deterministic fallback, so
// callers always get a usable result and an aiGenerated flag.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/cognicore/utterlens/internal/logger"
	"github.com/cognicore/utterlens/pkg/utterlens/classify"
)

// ErrUnavailable is returned by an AI that has no backing model
// configured.
var ErrUnavailable = errors.New("ai unavailable")

// AI is the opaque text-generation collaborator.
type AI interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AIFunc adapts a function to the AI interface.
type AIFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements AI.
func (f AIFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Outcome is how one model attempt ended.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeParseFailure Outcome = "parse_failure"
	OutcomeUnavailable  Outcome = "ai_unavailable"
	OutcomeError        Outcome = "ai_error"
	// OutcomeSkipped means no attempt was made (empty input, or a batch
	// over the classification cap).
	OutcomeSkipped Outcome = "skipped"
)

// UnassignedPolicy decides where items the model left out of every group
// end up.
type UnassignedPolicy string

const (
	// UnassignedToFirst appends them to the first group.
	UnassignedToFirst UnassignedPolicy = "first"
	// UnassignedSeparate collects them in a trailing 未分類 group.
	UnassignedSeparate UnassignedPolicy = "separate"
)

// Default option values.
const (
	DefaultTimeout   = 20 * time.Second
	DefaultCacheSize = 256
)

// Options configures a Generator. Zero values select the defaults.
type Options struct {
	Timeout     time.Duration
	ClassifyCap int
	Unassigned  UnassignedPolicy
	CacheSize   int
	Logger      *logger.Logger
}

// Generator runs model calls with a bounded timeout and falls back to
// deterministic results. It is safe for concurrent use.
type Generator struct {
	ai     AI
	opts   Options
	log    *logger.Logger
	cache  *lru.Cache[string, []string]
	flight singleflight.Group
}

// New creates a Generator. A nil ai makes every attempt end in
// OutcomeUnavailable.
func New(ai AI, opts Options) *Generator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ClassifyCap <= 0 {
		opts.ClassifyCap = classify.AICap
	}
	if opts.Unassigned == "" {
		opts.Unassigned = UnassignedToFirst
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	cache, err := lru.New[string, []string](opts.CacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &Generator{
		ai:    ai,
		opts:  opts,
		log:   opts.Logger.With("component", "generator"),
		cache: cache,
	}
}

// Available reports whether a model is configured.
func (g *Generator) Available() bool { return g.ai != nil }

type reply struct {
	text string
	err  error
}

// ask sends prompt and decodes the first JSON object of the reply into v.
// The model gets at most the configured timeout; a panic inside the model
// call is reported as OutcomeError.
func (g *Generator) ask(ctx context.Context, op, prompt string, v any) Outcome {
	if g.ai == nil {
		return OutcomeUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("ai panic: %v", r)}
			}
		}()
		text, err := g.ai.Generate(ctx, prompt)
		done <- reply{text: text, err: err}
	}()

	var r reply
	select {
	case r = <-done:
	case <-ctx.Done():
		r = reply{err: ctx.Err()}
	}

	switch {
	case errors.Is(r.err, ErrUnavailable):
		return OutcomeUnavailable
	case r.err != nil:
		g.log.Warn("ai call failed", "op", op, "error", r.err)
		return OutcomeError
	}
	raw, ok := ExtractJSON(r.text)
	if !ok {
		g.log.Warn("ai reply has no json object", "op", op, "bytes", len(r.text))
		return OutcomeParseFailure
	}
	if err := json.Unmarshal(raw, v); err != nil {
		g.log.Warn("ai reply did not decode", "op", op, "error", err)
		return OutcomeParseFailure
	}
	return OutcomeSuccess
}

func (g *Generator) logFallback(op string, outcome Outcome, keysAndValues ...interface{}) {
	if outcome == OutcomeSuccess || outcome == OutcomeSkipped {
		return
	}
	g.log.Warn("using fallback", append([]interface{}{"op", op, "outcome", string(outcome)}, keysAndValues...)...)
}
