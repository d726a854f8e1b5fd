// Package config loads engine settings from an optional YAML file, a .env
// file and the environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/utterlens/pkg/utterlens/classify"
	"github.com/cognicore/utterlens/pkg/utterlens/generator"
	"github.com/cognicore/utterlens/pkg/utterlens/internalerr"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultGroupCandidates is how many recent matches feed a grouping.
const DefaultGroupCandidates = 50

// Config is the full runtime configuration.
type Config struct {
	Store       StoreConfig `yaml:"store"`
	AI          AIConfig    `yaml:"ai"`
	Log         LogConfig   `yaml:"log"`
	LexiconPath string      `yaml:"lexicon_path"`
	Seed        SeedConfig  `yaml:"seed"`
}

// StoreConfig selects the storage backend. DSN is ignored by the memory
// driver.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// AIConfig points at an OpenAI-compatible chat endpoint. Without BaseURL
// and Model every generator call falls back to its heuristic. Unassigned is
// a generator.UnassignedPolicy.
type AIConfig struct {
	BaseURL         string `yaml:"base_url"`
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	ClassifyCap     int    `yaml:"classify_cap"`
	GroupCandidates int    `yaml:"group_candidates"`
	Unassigned      string `yaml:"unassigned"`
}

// LogConfig picks the logger mode passed to logger.New.
type LogConfig struct {
	Mode string `yaml:"mode"`
}

// SeedConfig controls synthetic seeding of an empty store.
type SeedConfig struct {
	Enabled    bool  `yaml:"enabled"`
	Users      int   `yaml:"users"`
	RandomSeed int64 `yaml:"random_seed"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Store: StoreConfig{Driver: DriverMemory},
		AI: AIConfig{
			TimeoutSeconds:  int(generator.DefaultTimeout / time.Second),
			ClassifyCap:     classify.AICap,
			GroupCandidates: DefaultGroupCandidates,
			Unassigned:      string(generator.UnassignedToFirst),
		},
		Log:  LogConfig{Mode: "dev"},
		Seed: SeedConfig{Enabled: true, Users: 40, RandomSeed: 42},
	}
}

// Load builds a Config. path may be empty; a missing .env is ignored.
func Load(path string) (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Store.Driver = getEnv("UTTERLENS_STORE_DRIVER", c.Store.Driver)
	c.Store.DSN = getEnv("UTTERLENS_STORE_DSN", c.Store.DSN)
	c.AI.BaseURL = getEnv("OPENAI_BASE_URL", c.AI.BaseURL)
	c.AI.APIKey = getEnv("OPENAI_API_KEY", c.AI.APIKey)
	c.AI.Model = getEnv("OPENAI_MODEL", c.AI.Model)
	c.AI.TimeoutSeconds = getEnvInt("AI_TIMEOUT_SECONDS", c.AI.TimeoutSeconds)
	c.Log.Mode = getEnv("LOG_MODE", c.Log.Mode)
}

// Validate reports the first invalid setting as ErrInvalidConfig.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("%w: store.dsn is required for %s", internalerr.ErrInvalidConfig, c.Store.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", internalerr.ErrInvalidConfig, c.Store.Driver)
	}
	if c.AI.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: ai.timeout_seconds must be positive", internalerr.ErrInvalidConfig)
	}
	if c.AI.ClassifyCap <= 0 {
		return fmt.Errorf("%w: ai.classify_cap must be positive", internalerr.ErrInvalidConfig)
	}
	if c.AI.GroupCandidates <= 0 {
		return fmt.Errorf("%w: ai.group_candidates must be positive", internalerr.ErrInvalidConfig)
	}
	switch generator.UnassignedPolicy(c.AI.Unassigned) {
	case generator.UnassignedToFirst, generator.UnassignedSeparate:
	default:
		return fmt.Errorf("%w: unknown ai.unassigned %q", internalerr.ErrInvalidConfig, c.AI.Unassigned)
	}
	if c.Seed.Enabled && c.Seed.Users <= 0 {
		return fmt.Errorf("%w: seed.users must be positive", internalerr.ErrInvalidConfig)
	}
	return nil
}

// Timeout is the model call timeout.
func (a AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
