package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cognicore/utterlens/internal/logger"
	"github.com/cognicore/utterlens/pkg/utterlens"
	"github.com/cognicore/utterlens/pkg/utterlens/seed"
	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

func newSeedCmd(g *globalFlags) *cobra.Command {
	var users int
	var randomSeed int64
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate an empty store with a synthetic corpus",
		Long: `Seed fills the configured store with synthetic users and conversations when
it has no users yet. A store that already holds users is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			st, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			plan := seed.DefaultPlan()
			plan.Users = cfg.Seed.Users
			plan.RandomSeed = cfg.Seed.RandomSeed
			if cmd.Flags().Changed("users") {
				plan.Users = users
			}
			if cmd.Flags().Changed("random-seed") {
				plan.RandomSeed = randomSeed
			}
			if err := seed.NewSeeder(st, plan, log).Ensure(ctx); err != nil {
				return err
			}
			n, err := store.Count(ctx, st, store.CountUsers{})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"driver": cfg.Store.Driver, "users": n})
		},
	}
	cmd.Flags().IntVar(&users, "users", 40, "Number of synthetic users")
	cmd.Flags().Int64Var(&randomSeed, "random-seed", 42, "Seed for the generator")
	return cmd
}

func newSearchCmd(g *globalFlags) *cobra.Command {
	var page, limit int
	var by string
	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search utterances by keyword and related terms",
		Example: `  utterlens search 生理痛
  utterlens search PMS --page 2 --limit 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(ctx context.Context, e *utterlens.Engine) (any, error) {
				return e.Search(ctx, utterlens.SearchRequest{Keyword: args[0], Page: page, Limit: limit, SearchedBy: by})
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "1-based page number")
	cmd.Flags().IntVar(&limit, "limit", utterlens.DefaultPageLimit, "Rows per page")
	cmd.Flags().StringVar(&by, "by", "cli", "Searcher recorded in the search log")
	return cmd
}

func newDashboardCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard <keyword>",
		Short: "Aggregate statistics for a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(ctx context.Context, e *utterlens.Engine) (any, error) {
				return e.DashboardStats(ctx, args[0])
			})
		},
	}
}

func newUtterancesCmd(g *globalFlags) *cobra.Command {
	var req utterlens.ListRequest
	cmd := &cobra.Command{
		Use:   "utterances [keyword]",
		Short: "List recent utterances filtered by behavioral attribute",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Keyword = args[0]
			}
			return withEngine(cmd, g, func(ctx context.Context, e *utterlens.Engine) (any, error) {
				return e.ListUtterances(ctx, req)
			})
		},
	}
	cmd.Flags().StringVar(&req.Filter, "filter", "all", "Attribute filter: all, detailed or self_solving")
	cmd.Flags().Int64SliceVar(&req.GroupIDs, "ids", nil, "Restrict to these utterance ids")
	cmd.Flags().IntVar(&req.Page, "page", 1, "1-based page number")
	cmd.Flags().IntVar(&req.Limit, "limit", utterlens.DefaultPageLimit, "Rows per page")
	return cmd
}

func newGroupsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "groups <keyword>",
		Short: "Group recent matches into themes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(ctx context.Context, e *utterlens.Engine) (any, error) {
				return e.GroupsForKeyword(ctx, args[0])
			})
		},
	}
}

func newInsightCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "insight <utterance-id>...",
		Short: "Summarize a selection of utterances",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withEngine(cmd, g, func(ctx context.Context, e *utterlens.Engine) (any, error) {
				return e.BuildInsight(ctx, ids)
			})
		},
	}
}

func newUserCmd(g *globalFlags) *cobra.Command {
	var insight bool
	var sessions []string
	cmd := &cobra.Command{
		Use:   "user <anonymous-id>",
		Short: "Show a user's conversations, or summarize them with --insight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(ctx context.Context, e *utterlens.Engine) (any, error) {
				if insight {
					return e.BuildUserInsight(ctx, args[0], sessions)
				}
				return e.UserHistory(ctx, args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&insight, "insight", false, "Summarize instead of listing")
	cmd.Flags().StringSliceVar(&sessions, "session", nil, "Limit the insight to these session ids")
	return cmd
}

func newUserStatsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "user-stats <anonymous-id>",
		Short: "Activity profile of one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(ctx context.Context, e *utterlens.Engine) (any, error) {
				return e.UserStats(ctx, args[0])
			})
		},
	}
}

func newTrendsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "trends",
		Short: "Trending topics and searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(ctx context.Context, e *utterlens.Engine) (any, error) {
				return e.Trends(ctx)
			})
		},
	}
}

func newRelatedCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "related <keyword>",
		Short: "Suggest colloquial search phrases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(ctx context.Context, e *utterlens.Engine) (any, error) {
				return map[string]any{"keyword": args[0], "queries": e.RelatedQueries(ctx, args[0])}, nil
			})
		},
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("utterance id %q: %w", a, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
