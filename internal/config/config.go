// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	Plex       PlexConfig       `toml:"plex"`
	Libraries  LibrariesConfig  `toml:"libraries"`
	Processing ProcessingConfig `toml:"processing"`
	Ledger     LedgerConfig     `toml:"ledger"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type PlexConfig struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// LibrariesConfig names the Plex sections each webhook source targets.
type LibrariesConfig struct {
	Series string `toml:"series"`
	Movies string `toml:"movies"`
}

type ProcessingConfig struct {
	MaxCollectionSize int      `toml:"max_collection_size"`
	CollectionName    string   `toml:"collection_name"`
	RecentDays        int      `toml:"recent_days"`
	FuzzyCutoff       int      `toml:"fuzzy_cutoff"`
	ShowRetries       int      `toml:"show_retries"`
	MovieRetries      int      `toml:"movie_retries"`
	RetryDelay        duration `toml:"retry_delay"`
	EpisodeMatch      string   `toml:"episode_match"`
	Repromote         bool     `toml:"repromote"`
	Async             bool     `toml:"async"`
}

type LedgerConfig struct {
	Backend  string `toml:"backend"`
	Path     string `toml:"path"`
	Capacity int    `toml:"capacity"`
}

// duration wraps time.Duration so TOML values like "10s" decode directly.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Delay returns the configured delay between catalog lookup attempts.
func (p ProcessingConfig) Delay() time.Duration {
	return p.RetryDelay.Duration
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Substitute environment variables
	content := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8686
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/dubwatch.db"
	}
	if cfg.Processing.MaxCollectionSize == 0 {
		cfg.Processing.MaxCollectionSize = 100
	}
	if cfg.Processing.CollectionName == "" {
		cfg.Processing.CollectionName = "Latest Dubs"
	}
	if cfg.Processing.RecentDays == 0 {
		cfg.Processing.RecentDays = 4
	}
	if cfg.Processing.FuzzyCutoff == 0 {
		cfg.Processing.FuzzyCutoff = 75
	}
	if cfg.Processing.ShowRetries == 0 {
		cfg.Processing.ShowRetries = 3
	}
	if cfg.Processing.MovieRetries == 0 {
		cfg.Processing.MovieRetries = 1
	}
	if cfg.Processing.RetryDelay.Duration == 0 {
		cfg.Processing.RetryDelay.Duration = 10 * time.Second
	}
	if cfg.Processing.EpisodeMatch == "" {
		cfg.Processing.EpisodeMatch = "number"
	}
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = "memory"
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = "./data/deleted_media_ids.txt"
	}
	if cfg.Ledger.Capacity == 0 {
		cfg.Ledger.Capacity = 100
	}
}

func validate(cfg *Config) error {
	if cfg.Plex.URL == "" {
		return fmt.Errorf("plex.url is required")
	}
	if cfg.Plex.Token == "" {
		return fmt.Errorf("plex.token is required")
	}
	if cfg.Libraries.Series == "" && cfg.Libraries.Movies == "" {
		return fmt.Errorf("at least one of libraries.series or libraries.movies is required")
	}
	switch cfg.Processing.EpisodeMatch {
	case "number", "title":
	default:
		return fmt.Errorf("processing.episode_match must be %q or %q, got %q", "number", "title", cfg.Processing.EpisodeMatch)
	}
	switch cfg.Ledger.Backend {
	case "memory", "file":
	default:
		return fmt.Errorf("ledger.backend must be %q or %q, got %q", "memory", "file", cfg.Ledger.Backend)
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1] // Strip ${ and }
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return match // Leave unchanged if not found
	})
}
