package generator

import (
	"context"

	"github.com/cognicore/utterlens/pkg/utterlens/classify"
)

// ClassifyResult holds one attribute per input, in input order.
type ClassifyResult struct {
	Attributes  []classify.Attribute
	AIGenerated bool
	Outcome     Outcome
}

type classifyReply struct {
	Classifications []struct {
		Index     int                `json:"index"`
		Attribute classify.Attribute `json:"attribute"`
	} `json:"classifications"`
}

// Classify labels contents. Batches of 1 to ClassifyCap items go to the
// model; labels it omits or gets wrong are filled in by the heuristic.
// Larger batches, any failed attempt, and replies without a single usable
// label use the heuristic throughout.
func (g *Generator) Classify(ctx context.Context, contents []string) ClassifyResult {
	n := len(contents)
	if n == 0 {
		return ClassifyResult{Attributes: []classify.Attribute{}, Outcome: OutcomeSkipped}
	}
	if n > g.opts.ClassifyCap {
		return ClassifyResult{Attributes: classify.HeuristicAll(contents), Outcome: OutcomeSkipped}
	}

	var reply classifyReply
	outcome := g.ask(ctx, "classify", classifyPrompt(contents), &reply)
	if outcome != OutcomeSuccess {
		g.logFallback("classify", outcome, "items", n)
		return ClassifyResult{Attributes: classify.HeuristicAll(contents), Outcome: outcome}
	}

	attrs := make([]classify.Attribute, n)
	placed := 0
	for _, c := range reply.Classifications {
		if c.Index < 1 || c.Index > n || !c.Attribute.Valid() || attrs[c.Index-1] != "" {
			continue
		}
		attrs[c.Index-1] = c.Attribute
		placed++
	}
	if placed == 0 {
		g.logFallback("classify", OutcomeParseFailure, "items", n)
		return ClassifyResult{Attributes: classify.HeuristicAll(contents), Outcome: OutcomeParseFailure}
	}
	for i := range attrs {
		if attrs[i] == "" {
			attrs[i] = classify.Heuristic(contents[i])
		}
	}
	return ClassifyResult{Attributes: attrs, AIGenerated: true, Outcome: outcome}
}
