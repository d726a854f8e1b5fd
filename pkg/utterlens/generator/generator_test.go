package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/cognicore/utterlens/pkg/utterlens/classify"
	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// fakeAI returns a fixed reply and counts calls.
type fakeAI struct {
	reply string
	err   error
	calls atomic.Int32
}

func (f *fakeAI) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	return f.reply, f.err
}

func items(n int) []Item {
	out := make([]Item, n)
	for i := range out {
		out[i] = Item{ID: int64(100 + i), Content: fmt.Sprintf("発話%d", i)}
	}
	return out
}

func allIDs(groups []Group) []int64 {
	var ids []int64
	for _, g := range groups {
		ids = append(ids, g.UtteranceIDs...)
	}
	return ids
}

func assertCoverage(t *testing.T, groups []Group, in []Item) {
	t.Helper()
	seen := make(map[int64]bool)
	for _, g := range groups {
		if g.Count != len(g.UtteranceIDs) {
			t.Errorf("group %d count %d != %d ids", g.ID, g.Count, len(g.UtteranceIDs))
		}
		if g.Count == 0 {
			t.Errorf("group %d is empty", g.ID)
		}
		for _, id := range g.UtteranceIDs {
			if seen[id] {
				t.Errorf("id %d appears twice", id)
			}
			seen[id] = true
		}
	}
	for _, it := range in {
		if !seen[it.ID] {
			t.Errorf("id %d not covered", it.ID)
		}
	}
	if len(seen) != len(in) {
		t.Errorf("covered %d ids, want %d", len(seen), len(in))
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, true},
		{"prose around", "はい、こちらです。\n{\"a\": 1}\n以上です。", `{"a": 1}`, true},
		{"code fence", "```json\n{\"a\": [1, 2]}\n```", `{"a": [1, 2]}`, true},
		{"brace in string", `{"label": "a}b"} trailing }`, `{"label": "a}b"}`, true},
		{"nested", `x {"a": {"b": {}}} y`, `{"a": {"b": {}}}`, true},
		{"first of two", `{"a":1} {"b":2}`, `{"a":1}`, true},
		{"malformed then valid", `{oops {"a":1}`, `{"a":1}`, true},
		{"none", "JSONはありません", "", false},
		{"unterminated", `{"a": 1`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.text)
			if ok != tt.ok || string(got) != tt.want {
				t.Errorf("ExtractJSON = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestFallbackGroupsProportions(t *testing.T) {
	tests := []struct {
		n     int
		sizes []int
	}{
		{1, []int{1}},
		{2, []int{1, 1}},
		{3, []int{2, 1}},
		{10, []int{5, 3, 2}},
		{20, []int{9, 7, 4}},
		{50, []int{23, 17, 10}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			in := items(tt.n)
			groups := FallbackGroups("生理痛", in)
			var sizes []int
			for _, g := range groups {
				sizes = append(sizes, g.Count)
			}
			if diff := cmp.Diff(tt.sizes, sizes); diff != "" {
				t.Errorf("sizes (-want +got):\n%s", diff)
			}
			assertCoverage(t, groups, in)
			if diff := cmp.Diff(groups, FallbackGroups("生理痛", in)); diff != "" {
				t.Errorf("fallback not deterministic:\n%s", diff)
			}
		})
	}
}

func TestFallbackGroupsLabels(t *testing.T) {
	groups := FallbackGroups("PMS", items(10))
	want := []string{
		"「PMS」に関する不安・悩みの相談",
		"「PMS」についての情報収集・対処法の質問",
		"「PMS」に関連した受診・治療の検討",
	}
	for i, g := range groups {
		if g.ID != i+1 || g.Label != want[i] {
			t.Errorf("group %d = %d %q", i, g.ID, g.Label)
		}
	}
	if got := FallbackGroups("PMS", nil); len(got) != 0 {
		t.Errorf("empty input produced %v", got)
	}
}

func TestBuildGroupsWithoutAI(t *testing.T) {
	g := New(nil, Options{})
	in := items(7)
	res := g.BuildGroups(context.Background(), "睡眠", in)
	if res.AIGenerated || res.Outcome != OutcomeUnavailable {
		t.Errorf("AIGenerated=%v outcome=%s", res.AIGenerated, res.Outcome)
	}
	assertCoverage(t, res.Groups, in)
}

func TestBuildGroupsEmptyInputSkipsAI(t *testing.T) {
	ai := &fakeAI{reply: `{"groups": []}`}
	res := New(ai, Options{}).BuildGroups(context.Background(), "睡眠", nil)
	if len(res.Groups) != 0 || res.AIGenerated || ai.calls.Load() != 0 {
		t.Errorf("groups=%v ai=%v calls=%d", res.Groups, res.AIGenerated, ai.calls.Load())
	}
}

func TestBuildGroupsAssemblesAIReply(t *testing.T) {
	reply := "分類しました。\n" + `{"groups": [
		{"id": 7, "label": " 痛みの相談 ", "utterance_indices": [1, 2]},
		{"id": 8, "label": "", "utterance_indices": [2, 3]},
		{"id": 9, "label": "範囲外", "utterance_indices": [9, 0]}
	]}`
	in := items(4)

	res := New(&fakeAI{reply: reply}, Options{}).BuildGroups(context.Background(), "生理痛", in)
	if !res.AIGenerated || res.Outcome != OutcomeSuccess {
		t.Fatalf("AIGenerated=%v outcome=%s", res.AIGenerated, res.Outcome)
	}
	want := []Group{
		{ID: 1, Label: "痛みの相談", Count: 3, UtteranceIDs: []int64{100, 101, 103}},
		{ID: 2, Label: "グループ2", Count: 1, UtteranceIDs: []int64{102}},
	}
	if diff := cmp.Diff(want, res.Groups); diff != "" {
		t.Errorf("groups (-want +got):\n%s", diff)
	}
	assertCoverage(t, res.Groups, in)

	res = New(&fakeAI{reply: reply}, Options{Unassigned: UnassignedSeparate}).BuildGroups(context.Background(), "生理痛", in)
	if n := len(res.Groups); n != 3 || res.Groups[2].Label != "未分類" || res.Groups[2].UtteranceIDs[0] != 103 {
		t.Errorf("separate policy: %+v", res.Groups)
	}
	assertCoverage(t, res.Groups, in)
}

func TestBuildGroupsDeduplicatesInput(t *testing.T) {
	in := append(items(3), Item{ID: 100, Content: "重複"})
	res := New(nil, Options{}).BuildGroups(context.Background(), "x", in)
	assertCoverage(t, res.Groups, items(3))
}

func TestBuildGroupsFailureModes(t *testing.T) {
	tests := []struct {
		name string
		ai   AI
		want Outcome
	}{
		{"no json", &fakeAI{reply: "すみません、分類できませんでした"}, OutcomeParseFailure},
		{"wrong shape", &fakeAI{reply: `{"groups": "many"}`}, OutcomeParseFailure},
		{"no groups", &fakeAI{reply: `{"groups": []}`}, OutcomeParseFailure},
		{"error", &fakeAI{err: errors.New("503")}, OutcomeError},
		{"unavailable", &fakeAI{err: ErrUnavailable}, OutcomeUnavailable},
		{"panic", AIFunc(func(context.Context, string) (string, error) { panic("boom") }), OutcomeError},
	}
	in := items(5)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(tt.ai, Options{}).BuildGroups(context.Background(), "排卵", in)
			if res.Outcome != tt.want || res.AIGenerated {
				t.Errorf("outcome=%s ai=%v, want %s", res.Outcome, res.AIGenerated, tt.want)
			}
			if diff := cmp.Diff(FallbackGroups("排卵", in), res.Groups); diff != "" {
				t.Errorf("fallback mismatch:\n%s", diff)
			}
		})
	}
}

func TestAskTimesOutWithoutLeaking(t *testing.T) {
	defer goleak.VerifyNone(t)

	slow := AIFunc(func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	start := time.Now()
	res := New(slow, Options{Timeout: 20 * time.Millisecond}).BuildInsight(context.Background(), nil)
	if res.Outcome != OutcomeError || res.AIGenerated {
		t.Errorf("outcome=%s ai=%v", res.Outcome, res.AIGenerated)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("timeout not enforced")
	}
}

func TestBuildInsight(t *testing.T) {
	rows := []store.UtteranceRow{{Utterance: store.Utterance{ID: 1, Content: "生理痛がひどい"}, AnonymousID: "U001"}}

	res := New(nil, Options{}).BuildInsight(context.Background(), rows)
	if res.AIGenerated || res.Outcome != OutcomeUnavailable {
		t.Errorf("without AI: ai=%v outcome=%s", res.AIGenerated, res.Outcome)
	}
	if diff := cmp.Diff(FallbackInsight(SubjectSelection), res.Insight); diff != "" {
		t.Errorf("fallback mismatch:\n%s", diff)
	}

	ai := &fakeAI{reply: `{"summary": "痛み止めの使い方に関心が高い", "emotionTrend": "不安", "unresolvedIssues": ["受診の目安", " "], "productHints": ["服薬記録"]}`}
	res = New(ai, Options{}).BuildInsight(context.Background(), rows)
	want := Insight{Summary: "痛み止めの使い方に関心が高い", EmotionTrend: "不安", UnresolvedIssues: []string{"受診の目安"}, ProductHints: []string{"服薬記録"}}
	if !res.AIGenerated {
		t.Fatalf("expected AI insight, outcome=%s", res.Outcome)
	}
	if diff := cmp.Diff(want, res.Insight); diff != "" {
		t.Errorf("insight (-want +got):\n%s", diff)
	}

	res = New(&fakeAI{reply: `{"summary": ""}`}, Options{}).BuildInsight(context.Background(), rows)
	if res.AIGenerated || res.Outcome != OutcomeParseFailure {
		t.Errorf("empty summary: ai=%v outcome=%s", res.AIGenerated, res.Outcome)
	}
}

func TestBuildUserInsightFallback(t *testing.T) {
	u := store.User{AnonymousID: "U010", AgeGroup: store.AgeTwenties, Mode: store.ModeCycle, CyclePhase: store.PhaseLuteal}
	res := New(&fakeAI{err: errors.New("rate limited")}, Options{}).BuildUserInsight(context.Background(), u, nil)
	if res.AIGenerated {
		t.Fatal("expected fallback")
	}
	if !strings.HasPrefix(res.Insight.Summary, "このユーザーは") {
		t.Errorf("user fallback summary = %q", res.Insight.Summary)
	}
	if len(res.Insight.UnresolvedIssues) != 3 || len(res.Insight.ProductHints) != 4 {
		t.Errorf("fallback lists: %d issues, %d hints", len(res.Insight.UnresolvedIssues), len(res.Insight.ProductHints))
	}
}

func TestFallbackInsightReturnsFreshSlices(t *testing.T) {
	a := FallbackInsight(SubjectSelection)
	a.ProductHints[0] = "changed"
	if b := FallbackInsight(SubjectSelection); b.ProductHints[0] == "changed" {
		t.Error("fallback insight shares backing arrays")
	}
}

func TestClassify(t *testing.T) {
	long := strings.Repeat("あ", 85) + "不安"
	contents := []string{"短い", long, "三つ目"}

	ai := &fakeAI{reply: `{"classifications": [{"index": 1, "attribute": "self_solving"}, {"index": 3, "attribute": "angry"}, {"index": 7, "attribute": "none"}]}`}
	res := New(ai, Options{}).Classify(context.Background(), contents)
	want := []classify.Attribute{classify.SelfSolving, classify.Detailed, classify.None}
	if !res.AIGenerated {
		t.Fatalf("outcome=%s", res.Outcome)
	}
	if diff := cmp.Diff(want, res.Attributes); diff != "" {
		t.Errorf("attributes (-want +got):\n%s", diff)
	}

	res = New(&fakeAI{reply: "nope"}, Options{}).Classify(context.Background(), contents)
	if res.AIGenerated || res.Outcome != OutcomeParseFailure {
		t.Errorf("parse failure: ai=%v outcome=%s", res.AIGenerated, res.Outcome)
	}
	if diff := cmp.Diff(classify.HeuristicAll(contents), res.Attributes); diff != "" {
		t.Errorf("heuristic fallback:\n%s", diff)
	}
}

func TestClassifyWithoutUsableLabels(t *testing.T) {
	contents := []string{"短い", "二つ目"}
	for _, reply := range []string{
		`{}`,
		`{"classifications": []}`,
		`{"classifications": [{"index": 0, "attribute": "detailed"}, {"index": 2, "attribute": "angry"}]}`,
	} {
		res := New(&fakeAI{reply: reply}, Options{}).Classify(context.Background(), contents)
		if res.AIGenerated || res.Outcome != OutcomeParseFailure {
			t.Errorf("%s: ai=%v outcome=%s", reply, res.AIGenerated, res.Outcome)
		}
		if diff := cmp.Diff(classify.HeuristicAll(contents), res.Attributes); diff != "" {
			t.Errorf("%s: heuristic fallback:\n%s", reply, diff)
		}
	}
}

func TestClassifyCap(t *testing.T) {
	ai := &fakeAI{reply: `{"classifications": []}`}
	g := New(ai, Options{})
	contents := make([]string, classify.AICap+1)
	res := g.Classify(context.Background(), contents)
	if ai.calls.Load() != 0 || res.AIGenerated || res.Outcome != OutcomeSkipped {
		t.Errorf("over cap: calls=%d ai=%v outcome=%s", ai.calls.Load(), res.AIGenerated, res.Outcome)
	}
	if len(res.Attributes) != len(contents) {
		t.Errorf("got %d attributes", len(res.Attributes))
	}

	g.Classify(context.Background(), contents[:classify.AICap])
	if ai.calls.Load() != 1 {
		t.Errorf("at cap: calls=%d, want 1", ai.calls.Load())
	}
	if res := g.Classify(context.Background(), nil); len(res.Attributes) != 0 || ai.calls.Load() != 1 {
		t.Errorf("empty batch called the model")
	}
}

func TestRelatedQueriesCaches(t *testing.T) {
	ai := &fakeAI{reply: `{"queries": ["イライラする", "PMS", "イライラする", " むくみ ", "", "頭痛", "眠い", "だるい", "胸が張る", "落ち込む", "情緒不安定", "肌荒れ"]}`}
	g := New(ai, Options{})

	got := g.RelatedQueries(context.Background(), "PMS")
	want := []string{"イライラする", "むくみ", "頭痛", "眠い", "だるい", "胸が張る", "落ち込む", "情緒不安定"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("queries (-want +got):\n%s", diff)
	}
	got[0] = "mutated"
	if again := g.RelatedQueries(context.Background(), "PMS"); again[0] != "イライラする" {
		t.Errorf("cache entry was mutated: %v", again)
	}
	if ai.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", ai.calls.Load())
	}
}

func TestRelatedQueriesFailureNotCached(t *testing.T) {
	ai := &fakeAI{err: errors.New("down")}
	g := New(ai, Options{})
	for i := 0; i < 2; i++ {
		if got := g.RelatedQueries(context.Background(), "睡眠"); len(got) != 0 {
			t.Fatalf("got %v on failure", got)
		}
	}
	if ai.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", ai.calls.Load())
	}
	if got := New(nil, Options{}).RelatedQueries(context.Background(), "睡眠"); got == nil || len(got) != 0 {
		t.Errorf("no AI: %v", got)
	}
	if got := g.RelatedQueries(context.Background(), "  "); len(got) != 0 || ai.calls.Load() != 2 {
		t.Errorf("blank keyword called the model")
	}
}
