// Package config loads the finstat configuration: defaults, then the YAML file,
// then environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

// DefaultPath is read when no explicit config file is given. It may be absent.
const DefaultPath = "config/finstat.yaml"

// Config is the effective configuration shared by the server and the CLI.
type Config struct {
	DataDir     string `yaml:"data_dir" json:"data_dir" validate:"required"`
	UploadDir   string `yaml:"upload_dir" json:"upload_dir" validate:"required"`
	RunsDir     string `yaml:"runs_dir" json:"runs_dir"`
	ListenAddr  string `yaml:"listen_addr" json:"listen_addr" validate:"required"`
	DatabaseURL string `yaml:"database_url" json:"database_url"`
	AliasesFile string `yaml:"aliases_file" json:"aliases_file"`

	Log     LogConfig     `yaml:"log" json:"log"`
	Market  MarketConfig  `yaml:"market" json:"market"`
	Refresh RefreshConfig `yaml:"refresh" json:"refresh"`
}

type LogConfig struct {
	Level   string `yaml:"level" json:"level" validate:"oneof=trace debug info warn error"`
	Console bool   `yaml:"console" json:"console"`
}

// MarketConfig tunes the Yahoo client. Empty URLs keep the client defaults.
type MarketConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url" validate:"omitempty,url"`
	PageURL   string        `yaml:"page_url" json:"page_url" validate:"omitempty,url"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
	RateLimit int           `yaml:"rate_limit" json:"rate_limit" validate:"gt=0"`
}

// RefreshConfig drives the scheduled watchlist refresher.
type RefreshConfig struct {
	Enabled      bool     `yaml:"enabled" json:"enabled"`
	Schedule     string   `yaml:"schedule" json:"schedule" validate:"required_if=Enabled true"`
	Tickers      []string `yaml:"tickers" json:"tickers" validate:"required_if=Enabled true"`
	LookbackDays int      `yaml:"lookback_days" json:"lookback_days" validate:"gte=0"`
}

// Lookback is the refresher's history window.
func (r RefreshConfig) Lookback() time.Duration {
	return time.Duration(r.LookbackDays) * 24 * time.Hour
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		DataDir:    "data",
		UploadDir:  "uploads",
		ListenAddr: ":8080",
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
		Market: MarketConfig{
			Timeout:   20 * time.Second,
			RateLimit: 2,
		},
		Refresh: RefreshConfig{
			Schedule:     "0 30 22 * * 1-5",
			LookbackDays: 365,
		},
	}
}

var validate = validator.New()

// Load builds the configuration from defaults, the YAML file at path and the
// environment. An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := ioutil.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func applyEnvOverrides(c *Config) error {
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		c.UploadDir = v
	}
	if v := os.Getenv("RUNS_DIR"); v != "" {
		c.RunsDir = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("ALIASES_FILE"); v != "" {
		c.AliasesFile = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("MARKET_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MARKET_RATE_LIMIT: %w", err)
		}
		c.Market.RateLimit = n
	}
	if v := os.Getenv("REFRESH_TICKERS"); v != "" {
		c.Refresh.Tickers = nil
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				c.Refresh.Tickers = append(c.Refresh.Tickers, t)
			}
		}
	}
	return nil
}

// Redacted returns a copy safe to expose: credentials in the database URL are masked.
func (c *Config) Redacted() Config {
	out := *c
	out.Refresh.Tickers = append([]string(nil), c.Refresh.Tickers...)
	if out.DatabaseURL != "" {
		out.DatabaseURL = redactURL(out.DatabaseURL)
	}
	return out
}

func redactURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return "***"
	}
	creds := raw[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		return raw[:scheme+3] + creds[:i] + ":***" + raw[at:]
	}
	return raw
}
