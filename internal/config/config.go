package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

type Config struct {
	Brand       Brand       `yaml:"brand"`
	Storage     Storage     `yaml:"storage"`
	Seed        Seed        `yaml:"seed"`
	Scoring     Scoring     `yaml:"scoring"`
	Leaderboard Leaderboard `yaml:"leaderboard"`
	Ingest      Ingest      `yaml:"ingest"`
	Server      Server      `yaml:"server"`
	Logging     Logging     `yaml:"logging"`
}

type Brand struct {
	Name    string `yaml:"name"`
	Primary string `yaml:"primary"`
}

type Storage struct {
	Backend  string        `yaml:"backend"`
	DataDir  string        `yaml:"data_dir"`
	Postgres Postgres      `yaml:"postgres"`
	Timeout  time.Duration `yaml:"timeout"`
	Retries  int           `yaml:"retries"`
}

type Postgres struct {
	DSNEnv string `yaml:"dsn_env"`
}

type Seed struct {
	Count    int    `yaml:"count"`
	DaysBack int    `yaml:"days_back"`
	Value    uint32 `yaml:"value"`
}

type Scoring struct {
	Profile  string   `yaml:"profile"`
	Tiers    []int    `yaml:"tiers"`
	Weighted Weighted `yaml:"weighted"`
}

type Weighted struct {
	RatingWeight  float64 `yaml:"rating_weight"`
	Positive      float64 `yaml:"positive"`
	Neutral       float64 `yaml:"neutral"`
	Negative      float64 `yaml:"negative"`
	KeywordWeight float64 `yaml:"keyword_weight"`
	KeywordCap    float64 `yaml:"keyword_cap"`
	ThemeBonus    float64 `yaml:"theme_bonus"`
}

type Leaderboard struct {
	WeeklyTop      int    `yaml:"weekly_top"`
	MonthlyTop     int    `yaml:"monthly_top"`
	Highlights     int    `yaml:"highlights"`
	HighlightOrder string `yaml:"highlight_order"`
	AgentFallback  bool   `yaml:"agent_fallback"`
}

type Ingest struct {
	DropSeedItems bool `yaml:"drop_seed_items"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for reviewdash.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "reviewdash")
}

// DataDir returns the XDG data directory for reviewdash.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "reviewdash")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/reviewdash/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'reviewdash init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Brand: Brand{Name: "Axxess", Primary: "#0099cc"},
		Storage: Storage{
			Backend:  BackendSQLite,
			Postgres: Postgres{DSNEnv: "REVIEWDASH_POSTGRES_DSN"},
			Timeout:  10 * time.Second,
			Retries:  1,
		},
		Seed: Seed{Count: 140, DaysBack: 60, Value: 19420427},
		Scoring: Scoring{
			Profile: "tiered",
			Tiers:   []int{0, 0, 1, 3, 7, 10},
			Weighted: Weighted{
				RatingWeight:  8,
				Positive:      35,
				Neutral:       12,
				Negative:      -30,
				KeywordWeight: 5,
				KeywordCap:    25,
				ThemeBonus:    8,
			},
		},
		Leaderboard: Leaderboard{
			WeeklyTop:      5,
			MonthlyTop:     5,
			Highlights:     20,
			HighlightOrder: "recent",
			AgentFallback:  true,
		},
		Ingest:  Ingest{DropSeedItems: true},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := defaults()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated values and limits.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendPostgres, BackendBadger:
	default:
		return fmt.Errorf("invalid config: unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Scoring.Profile {
	case "tiered", "weighted":
	default:
		return fmt.Errorf("invalid config: unknown scoring profile %q", c.Scoring.Profile)
	}
	if len(c.Scoring.Tiers) != 6 {
		return fmt.Errorf("invalid config: scoring.tiers needs 6 values (0 to 5 stars), got %d", len(c.Scoring.Tiers))
	}
	switch c.Leaderboard.HighlightOrder {
	case "recent", "score":
	default:
		return fmt.Errorf("invalid config: unknown highlight order %q", c.Leaderboard.HighlightOrder)
	}
	if c.Leaderboard.WeeklyTop < 0 || c.Leaderboard.MonthlyTop < 0 || c.Leaderboard.Highlights < 0 {
		return fmt.Errorf("invalid config: leaderboard caps must not be negative")
	}
	if c.Seed.Count < 0 || c.Seed.DaysBack < 0 {
		return fmt.Errorf("invalid config: seed count and days_back must not be negative")
	}
	if c.Storage.Retries < 0 {
		return fmt.Errorf("invalid config: storage.retries must not be negative")
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	return DataDir()
}

// PostgresDSN reads the Postgres connection string from the configured
// environment variable.
func (c *Config) PostgresDSN() (string, error) {
	dsn := os.Getenv(c.Storage.Postgres.DSNEnv)
	if dsn == "" {
		return "", fmt.Errorf("postgres backend selected but %s is not set", c.Storage.Postgres.DSNEnv)
	}
	return dsn, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
