package generator

import (
	"fmt"
	"strings"

	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

const insightSchema = `{
  "summary": "主な悩み・関心事のサマリー（200文字程度）",
  "emotionTrend": "感情や傾向の説明（150文字程度）",
  "unresolvedIssues": ["未解決の課題・潜在ニーズ", "..."],
  "productHints": ["商品開発・サービス改善へのヒント", "..."]
}`

func groupingPrompt(keyword string, items []Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "次の発話は「%s」を含むユーザー発話です。テーマごとに3〜5グループへ分け、各グループの特徴を30文字以内のラベルで表してください。\n\n発話:\n", keyword)
	for i, it := range items {
		fmt.Fprintf(&b, "[%d] (ID:%d) %s\n", i+1, it.ID, it.Content)
	}
	b.WriteString(`
JSONのみで回答してください。utterance_indices には上の [番号] を使います。
{"groups": [{"id": 1, "label": "ラベル", "utterance_indices": [1, 3, 5]}]}`)
	return b.String()
}

func selectionInsightPrompt(rows []store.UtteranceRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "次の%d件のユーザー発話を分析し、商品開発やサービス改善に役立つインサイトをまとめてください。\n\n【発話一覧】\n", len(rows))
	for _, r := range rows {
		fmt.Fprintf(&b, "[%s / %s / %s] %s\n", r.AnonymousID, r.AgeGroup, r.CyclePhase, r.Content)
	}
	b.WriteString("\nJSONのみで回答してください:\n")
	b.WriteString(insightSchema)
	return b.String()
}

func userInsightPrompt(u store.User, rows []store.UtteranceRow) string {
	var b strings.Builder
	b.WriteString("次のユーザープロフィールとチャット履歴を分析し、商品開発やサービス改善に役立つインサイトをまとめてください。感情の推移にも触れてください。\n\n【ユーザープロフィール】\n")
	fmt.Fprintf(&b, "ユーザーID: %s\n年代: %s\nモード: %s\n現在の生理周期フェーズ: %s\n\n【会話履歴】\n", u.AnonymousID, u.AgeGroup, u.Mode, u.CyclePhase)
	for _, r := range rows {
		speaker := "ユーザー"
		if r.Role == store.RoleAssistant {
			speaker = "アシスタント"
		}
		fmt.Fprintf(&b, "[%s] %s\n", speaker, r.Content)
	}
	b.WriteString("\nJSONのみで回答してください:\n")
	b.WriteString(insightSchema)
	return b.String()
}

func classifyPrompt(contents []string) string {
	var b strings.Builder
	b.WriteString("次のユーザー発話それぞれに属性を付けてください。\n\n発話:\n")
	for i, c := range contents {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, c)
	}
	b.WriteString(`
属性:
- detailed: 状況を詳しく説明した相談や質問
- self_solving: すでに試した対処や工夫の報告
- none: それ以外

JSONのみで回答してください:
{"classifications": [{"index": 1, "attribute": "detailed"}]}`)
	return b.String()
}

func relatedQueriesPrompt(keyword string) string {
	return fmt.Sprintf(`生理・妊活管理アプリのチャット発話を検索します。「%s」に関連してユーザーが実際に書きそうな検索フレーズを6〜8個挙げてください。

条件:
- 症状や気持ちを表す口語表現、言い換え
- 元のキーワードそのものは含めない
- 2〜8文字程度の短いフレーズ

JSONのみで回答してください: {"queries": ["フレーズ1", "フレーズ2"]}`, keyword)
}
