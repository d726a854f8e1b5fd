package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cognicore/utterlens/internal/llm"
	"github.com/cognicore/utterlens/internal/logger"
	"github.com/cognicore/utterlens/pkg/utterlens"
	"github.com/cognicore/utterlens/pkg/utterlens/config"
	"github.com/cognicore/utterlens/pkg/utterlens/generator"
	"github.com/cognicore/utterlens/pkg/utterlens/lexicon"
	"github.com/cognicore/utterlens/pkg/utterlens/seed"
	"github.com/cognicore/utterlens/pkg/utterlens/store"
	"github.com/cognicore/utterlens/pkg/utterlens/store/memstore"
	"github.com/cognicore/utterlens/pkg/utterlens/store/sqlstore"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	driver     string
	dsn        string
}

func newRootCmd() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:   "utterlens",
		Short: "Search and aggregate health-chat utterances",
		Long: `utterlens searches user utterances from a health-tracking chat product and
computes demographic breakdowns, heatmaps, trends, groupings and insights.

Settings come from --config (YAML), a .env file and the environment
(UTTERLENS_STORE_DRIVER, UTTERLENS_STORE_DSN, OPENAI_BASE_URL, OPENAI_API_KEY,
OPENAI_MODEL, AI_TIMEOUT_SECONDS, LOG_MODE). Without a model configured every
AI-backed result falls back to a deterministic one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&g.driver, "driver", "", "Store driver: memory, sqlite or postgres")
	root.PersistentFlags().StringVar(&g.dsn, "dsn", "", "Store DSN (sqlite path or postgres URL)")

	root.AddCommand(
		newSeedCmd(&g),
		newSearchCmd(&g),
		newDashboardCmd(&g),
		newUtterancesCmd(&g),
		newGroupsCmd(&g),
		newInsightCmd(&g),
		newUserCmd(&g),
		newUserStatsCmd(&g),
		newTrendsCmd(&g),
		newRelatedCmd(&g),
	)
	return root
}

// loadConfig applies the persistent flags over the loaded configuration.
func (g *globalFlags) loadConfig() (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if g.driver != "" {
		cfg.Store.Driver = g.driver
	}
	if g.dsn != "" {
		cfg.Store.DSN = g.dsn
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// buildEngine wires the store, generator, lexicon and seeder described by
// cfg. cleanup closes the store and flushes the logger.
func buildEngine(ctx context.Context, cfg config.Config) (*utterlens.Engine, func(), error) {
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Sync()
		return nil, nil, err
	}

	lex := lexicon.Default()
	if cfg.LexiconPath != "" {
		lex, err = lexicon.LoadFromYAML(cfg.LexiconPath)
		if err != nil {
			st.Close()
			log.Sync()
			return nil, nil, fmt.Errorf("load lexicon: %w", err)
		}
	}

	var ai generator.AI
	if cfg.AI.BaseURL != "" && cfg.AI.Model != "" {
		ai = &llm.Client{
			BaseURL: cfg.AI.BaseURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout(),
		}
	}
	gen := generator.New(ai, generator.Options{
		Timeout:     cfg.AI.Timeout(),
		ClassifyCap: cfg.AI.ClassifyCap,
		Unassigned:  generator.UnassignedPolicy(cfg.AI.Unassigned),
		Logger:      log,
	})

	var seeder *seed.Seeder
	if cfg.Seed.Enabled {
		plan := seed.DefaultPlan()
		plan.Users = cfg.Seed.Users
		plan.RandomSeed = cfg.Seed.RandomSeed
		seeder = seed.NewSeeder(st, plan, log)
	}

	engine := utterlens.New(utterlens.Options{
		Store:           st,
		Generator:       gen,
		Lexicon:         lex,
		Seeder:          seeder,
		Logger:          log,
		GroupCandidates: cfg.AI.GroupCandidates,
	})
	log.Debug("engine ready", "driver", cfg.Store.Driver, "ai", gen.Available(), "seed", cfg.Seed.Enabled)

	cleanup := func() {
		if err := engine.Close(); err != nil {
			log.Warn("close store", "error", err)
		}
		log.Sync()
	}
	return engine, cleanup, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlstore.OpenSQLite(ctx, cfg.DSN)
	case config.DriverPostgres:
		return sqlstore.OpenPostgres(ctx, cfg.DSN)
	default:
		return memstore.New(), nil
	}
}

// withEngine loads configuration, builds the engine and runs fn with it.
func withEngine(cmd *cobra.Command, g *globalFlags, fn func(ctx context.Context, e *utterlens.Engine) (any, error)) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	engine, cleanup, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := fn(ctx, engine)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
