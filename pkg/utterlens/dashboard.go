package utterlens

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/utterlens/pkg/utterlens/aggregate"
	"github.com/cognicore/utterlens/pkg/utterlens/pattern"
	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// Dashboard holds the aggregates for one keyword. Demographic counts are
// utterance counts by owner attribute; UserBreakdown counts distinct users.
type Dashboard struct {
	AgeGroups     []store.KeyCount         `json:"ageGroups"`
	Modes         []store.KeyCount         `json:"modes"`
	CyclePhases   []store.KeyCount         `json:"cyclePhases"`
	UserBreakdown UserBreakdown            `json:"userBreakdown"`
	Heatmap       []aggregate.HeatmapCell  `json:"heatmap"`
	HourlyHeatmap []aggregate.HourlyCell   `json:"hourlyHeatmap"`
	MonthlyTrend  []aggregate.TrendPoint   `json:"monthlyTrend"`
	CoOccurrence  []aggregate.KeywordCount `json:"coOccurrence"`
	CrossTabs     CrossTabs                `json:"crossTabs"`
	Keyword       string                   `json:"keyword"`
	TotalCount    int                      `json:"totalCount"`
}

// UserBreakdown counts the distinct users behind the matches.
type UserBreakdown struct {
	AgeGroups   []store.KeyCount `json:"ageGroups"`
	Modes       []store.KeyCount `json:"modes"`
	CyclePhases []store.KeyCount `json:"cyclePhases"`
}

// CrossTabs relates matching users' demographics pairwise, one matrix per
// pair of dimensions.
type CrossTabs struct {
	AgePhase  aggregate.Matrix `json:"agePhase"`
	ModePhase aggregate.Matrix `json:"modePhase"`
	AgeMode   aggregate.Matrix `json:"ageMode"`
}

// DashboardStats aggregates every user utterance mentioning keyword.
// Orphaned utterances count toward the total, the monthly trend, the
// hourly heatmap and co-occurrence, but not toward anything keyed on the
// owner.
func (e *Engine) DashboardStats(ctx context.Context, keyword string) (Dashboard, error) {
	keyword, err := requireKeyword(keyword)
	if err != nil {
		return Dashboard{}, err
	}
	if err := e.prepare(ctx); err != nil {
		return Dashboard{}, err
	}

	patterns := []string{pattern.Contains(keyword)}
	all, err := store.Utterances(ctx, e.store, store.SearchUtterances{Patterns: patterns, IncludeOrphans: true})
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard matches: %w", err)
	}
	userIDs := aggregate.UserIDs(all)

	d := Dashboard{
		Keyword:       keyword,
		TotalCount:    len(all),
		AgeGroups:     aggregate.GroupCounts(all, aggregate.ByAgeGroup),
		Modes:         aggregate.GroupCounts(all, aggregate.ByMode),
		CyclePhases:   aggregate.GroupCounts(all, aggregate.ByCyclePhase),
		HourlyHeatmap: aggregate.HourWeekdayHeatmap(all),
		MonthlyTrend:  orEmpty(aggregate.MonthlyTrend(all, aggregate.MonthlyTrendLimit)),
		CoOccurrence:  orEmpty(aggregate.CoOccurrence(aggregate.Contents(all), e.lex.CoOccurrence(), keyword, aggregate.CoOccurrenceLimit)),
		CrossTabs: CrossTabs{
			AgePhase:  aggregate.CrossTab(all, aggregate.AgeAxis(), aggregate.PhaseAxis()),
			ModePhase: aggregate.CrossTab(all, aggregate.ModeAxis(), aggregate.PhaseAxis()),
			AgeMode:   aggregate.CrossTab(all, aggregate.AgeAxis(), aggregate.ModeAxis()),
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	columns := []store.UserColumn{store.ColumnAgeGroup, store.ColumnMode, store.ColumnCyclePhase}
	breakdown := make([][]store.KeyCount, len(columns))
	for i, col := range columns {
		i, col := i, col
		g.Go(func() error {
			if len(userIDs) == 0 {
				breakdown[i] = []store.KeyCount{}
				return nil
			}
			counts, err := store.Counts(gctx, e.store, store.UserCounts{UserIDs: userIDs, Column: col})
			if err != nil {
				return fmt.Errorf("user breakdown by %s: %w", col, err)
			}
			breakdown[i] = orEmpty(counts)
			return nil
		})
	}

	phases := store.AllCyclePhases()
	phaseRows := make([][]store.UtteranceRow, len(phases))
	for i, phase := range phases {
		i, phase := i, phase
		g.Go(func() error {
			rows, err := e.phaseMatches(gctx, patterns, userIDs, phase)
			if err != nil {
				return fmt.Errorf("heatmap %s: %w", phase, err)
			}
			phaseRows[i] = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d.UserBreakdown = UserBreakdown{AgeGroups: breakdown[0], Modes: breakdown[1], CyclePhases: breakdown[2]}
	byPhase := make(map[store.CyclePhase][]store.UtteranceRow, len(phases))
	for i, phase := range phases {
		byPhase[phase] = phaseRows[i]
	}
	d.Heatmap = aggregate.PhaseWeekdayHeatmap(byPhase)
	e.log.Debug("dashboard", "keyword", keyword, "total", d.TotalCount, "users", len(userIDs))
	return d, nil
}

// phaseMatches returns the matching utterances of those userIDs currently
// in phase. An empty id list in a query means no restriction, so empty
// sets short-circuit here.
func (e *Engine) phaseMatches(ctx context.Context, patterns []string, userIDs []int64, phase store.CyclePhase) ([]store.UtteranceRow, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	inPhase, err := store.IDs(ctx, e.store, store.UserIDsInPhase{UserIDs: userIDs, Phase: phase})
	if err != nil || len(inPhase) == 0 {
		return nil, err
	}
	return store.Utterances(ctx, e.store, store.SearchUtterances{Patterns: patterns, UserIDs: inPhase})
}
