package generator

import (
	"context"
	"strings"

	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// Insight is a qualitative summary of a set of utterances.
type Insight struct {
	Summary          string   `json:"summary"`
	EmotionTrend     string   `json:"emotionTrend"`
	UnresolvedIssues []string `json:"unresolvedIssues"`
	ProductHints     []string `json:"productHints"`
}

// InsightResult is the output of BuildInsight and BuildUserInsight.
type InsightResult struct {
	Insight     Insight `json:"insights"`
	AIGenerated bool    `json:"aiGenerated"`
	Outcome     Outcome `json:"-"`
}

// Subject selects which canned insight a fallback uses.
type Subject int

const (
	// SubjectSelection is an analyst-picked set of utterances.
	SubjectSelection Subject = iota
	// SubjectUser is one user's conversation history.
	SubjectUser
)

var fallbackIssues = []string{
	"生理痛の根本的な原因の特定",
	"婦人科受診へのためらい",
	"日常生活での継続的なセルフケア方法",
}

var fallbackHints = []string{
	"生理周期フェーズに合わせたパーソナライズされたアドバイス機能",
	"受診タイミングを判断するためのチェックリスト機能",
	"同じ悩みを持つユーザーとのコミュニティ機能",
	"生理痛緩和グッズや市販薬のレコメンド機能",
}

// FallbackInsight returns the canned insight for subject. Each call returns
// fresh slices.
func FallbackInsight(subject Subject) Insight {
	in := Insight{
		UnresolvedIssues: append([]string(nil), fallbackIssues...),
		ProductHints:     append([]string(nil), fallbackHints...),
	}
	switch subject {
	case SubjectUser:
		in.Summary = "このユーザーは生理周期や体調管理について積極的に情報収集しています。特に生理痛やPMSに関する悩みが中心で、セルフケアの方法を求めています。"
		in.EmotionTrend = "会話全体を通じて、最初は不安や困惑が見られますが、情報提供後は前向きな反応を示しています。特に具体的なアドバイスを受けた後は安心感が感じられます。"
	default:
		in.Summary = "選択された発話から、ユーザーは生理周期や体調管理について積極的に情報収集しています。特に生理痛やPMSに関する悩みが中心で、セルフケアの方法を求めています。"
		in.EmotionTrend = "発話全体を通じて、最初は不安や困惑が見られますが、情報提供後は前向きな反応を示しています。特に具体的なアドバイスを受けた後は安心感が感じられます。"
	}
	return in
}

// BuildInsight summarizes an analyst's selection of utterances.
func (g *Generator) BuildInsight(ctx context.Context, rows []store.UtteranceRow) InsightResult {
	return g.insight(ctx, "insight", SubjectSelection, selectionInsightPrompt(rows))
}

// BuildUserInsight summarizes one user's conversation history.
func (g *Generator) BuildUserInsight(ctx context.Context, u store.User, rows []store.UtteranceRow) InsightResult {
	return g.insight(ctx, "user_insight", SubjectUser, userInsightPrompt(u, rows))
}

func (g *Generator) insight(ctx context.Context, op string, subject Subject, prompt string) InsightResult {
	var in Insight
	outcome := g.ask(ctx, op, prompt, &in)
	if outcome == OutcomeSuccess && strings.TrimSpace(in.Summary) == "" {
		outcome = OutcomeParseFailure
	}
	if outcome != OutcomeSuccess {
		g.logFallback(op, outcome)
		return InsightResult{Insight: FallbackInsight(subject), Outcome: outcome}
	}
	in.Summary = strings.TrimSpace(in.Summary)
	in.EmotionTrend = strings.TrimSpace(in.EmotionTrend)
	in.UnresolvedIssues = nonEmpty(in.UnresolvedIssues)
	in.ProductHints = nonEmpty(in.ProductHints)
	return InsightResult{Insight: in, AIGenerated: true, Outcome: outcome}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
