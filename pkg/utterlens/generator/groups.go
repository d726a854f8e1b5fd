package generator

import (
	"context"
	"fmt"
	"strings"
)

// Item is one utterance offered for grouping.
type Item struct {
	ID      int64
	Content string
}

// Group is one thematic bucket. Count always equals len(UtteranceIDs).
type Group struct {
	ID           int     `json:"id"`
	Label        string  `json:"label"`
	Count        int     `json:"count"`
	UtteranceIDs []int64 `json:"utterance_ids"`
}

// GroupResult is the output of BuildGroups.
type GroupResult struct {
	Groups      []Group `json:"groups"`
	AIGenerated bool    `json:"aiGenerated"`
	Outcome     Outcome `json:"-"`
}

const unassignedLabel = "未分類"

type groupingReply struct {
	Groups []struct {
		Label   string `json:"label"`
		Indices []int  `json:"utterance_indices"`
	} `json:"groups"`
}

// BuildGroups partitions items into labeled groups. Every input id ends up
// in exactly one group, whichever path produced the result.
func (g *Generator) BuildGroups(ctx context.Context, keyword string, items []Item) GroupResult {
	items = uniqueItems(items)
	if len(items) == 0 {
		return GroupResult{Groups: []Group{}, Outcome: OutcomeSkipped}
	}

	var reply groupingReply
	outcome := g.ask(ctx, "groups", groupingPrompt(keyword, items), &reply)
	if outcome == OutcomeSuccess && len(reply.Groups) == 0 {
		outcome = OutcomeParseFailure
	}
	if outcome != OutcomeSuccess {
		g.logFallback("groups", outcome, "keyword", keyword, "items", len(items))
		return GroupResult{Groups: FallbackGroups(keyword, items), Outcome: outcome}
	}
	return GroupResult{Groups: g.assemble(reply, items), AIGenerated: true, Outcome: outcome}
}

// assemble maps the model's 1-based indices back to ids. Out-of-range
// indices are ignored and an id claimed by several groups stays in the
// first one. Ids no group claimed are placed per the unassigned policy.
func (g *Generator) assemble(reply groupingReply, items []Item) []Group {
	assigned := make([]bool, len(items))
	groups := make([]Group, 0, len(reply.Groups)+1)
	for i, rg := range reply.Groups {
		label := strings.TrimSpace(rg.Label)
		if label == "" {
			label = fmt.Sprintf("グループ%d", i+1)
		}
		grp := Group{Label: label, UtteranceIDs: []int64{}}
		for _, idx := range rg.Indices {
			if idx < 1 || idx > len(items) || assigned[idx-1] {
				continue
			}
			assigned[idx-1] = true
			grp.UtteranceIDs = append(grp.UtteranceIDs, items[idx-1].ID)
		}
		groups = append(groups, grp)
	}

	var rest []int64
	for i, it := range items {
		if !assigned[i] {
			rest = append(rest, it.ID)
		}
	}
	if len(rest) > 0 {
		switch g.opts.Unassigned {
		case UnassignedSeparate:
			groups = append(groups, Group{Label: unassignedLabel, UtteranceIDs: rest})
		default:
			groups[0].UtteranceIDs = append(groups[0].UtteranceIDs, rest...)
		}
	}
	return finalize(groups)
}

// FallbackGroups splits items in their given order into three buckets of
// 45%, 35% and 20%, with the first two boundaries rounded up. Empty
// buckets are dropped. The result depends only on the inputs.
func FallbackGroups(keyword string, items []Item) []Group {
	items = uniqueItems(items)
	n := len(items)
	if n == 0 {
		return []Group{}
	}
	// ceil(0.45n) and ceil(0.80n) in integer arithmetic.
	first := (45*n + 99) / 100
	second := (80*n + 99) / 100
	bounds := [][2]int{{0, first}, {first, second}, {second, n}}
	labels := []string{
		fmt.Sprintf("「%s」に関する不安・悩みの相談", keyword),
		fmt.Sprintf("「%s」についての情報収集・対処法の質問", keyword),
		fmt.Sprintf("「%s」に関連した受診・治療の検討", keyword),
	}
	groups := make([]Group, 0, 3)
	for i, b := range bounds {
		ids := make([]int64, 0, b[1]-b[0])
		for _, it := range items[b[0]:b[1]] {
			ids = append(ids, it.ID)
		}
		groups = append(groups, Group{Label: labels[i], UtteranceIDs: ids})
	}
	return finalize(groups)
}

// finalize drops empty groups, numbers the rest from 1 and sets counts.
func finalize(groups []Group) []Group {
	out := make([]Group, 0, len(groups))
	for _, grp := range groups {
		if len(grp.UtteranceIDs) == 0 {
			continue
		}
		grp.ID = len(out) + 1
		grp.Count = len(grp.UtteranceIDs)
		out = append(out, grp)
	}
	return out
}

func uniqueItems(items []Item) []Item {
	seen := make(map[int64]bool, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}
