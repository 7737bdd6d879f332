// Package config loads the report configuration from the environment and an optional YAML file
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/abelzeko/stream-report/internal/quality"
	"github.com/abelzeko/stream-report/internal/render"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "AAS"

// CutoffLayout is the format of the report cutoff date
const CutoffLayout = "2006-01-02"

// Config represents the complete application configuration.
// Leaf fields use split_words rather than envconfig tags so that unprefixed
// variables such as PATH are never picked up.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Site     SiteConfig     `yaml:"site"`
	Report   ReportConfig   `yaml:"report"`
	Storage  StorageConfig  `yaml:"storage"`
	Telegram TelegramConfig `yaml:"telegram"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SourceConfig describes the input export
type SourceConfig struct {
	Path             string `yaml:"path" split_words:"true" default:"Hillside Commons Stream Data.csv" validate:"required"`
	SkipRows         int    `yaml:"skip_rows" split_words:"true" default:"8" validate:"min=0"`
	Sheet            string `yaml:"sheet" split_words:"true"`
	IntermediatePath string `yaml:"intermediate_path" split_words:"true" default:"Sorted AAS CSV.csv"`
}

// SiteConfig holds the labels printed on the report
type SiteConfig struct {
	Name      string `yaml:"name" split_words:"true"`
	City      string `yaml:"city" split_words:"true" default:"Grayson"`
	County    string `yaml:"county" split_words:"true" default:"Gwinnett"`
	Watershed string `yaml:"watershed" split_words:"true" default:"Upper Ocmulgee River Watershed"`
}

// ReportConfig scopes and places the generated report
type ReportConfig struct {
	Cutoff      string `yaml:"cutoff" split_words:"true" default:"2023-01-01" validate:"required,datetime=2006-01-02"`
	Aggregation string `yaml:"aggregation" split_words:"true" default:"first" validate:"oneof=first latest mean"`
	OutputDir   string `yaml:"output_dir" split_words:"true" default:"reports" validate:"required"`
}

// StorageConfig enables the SQLite snapshot when DatabasePath is set
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" split_words:"true"`
}

// TelegramConfig enables impairment alerts when both fields are set
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" split_words:"true"`
	ChatID   int64  `yaml:"chat_id" split_words:"true" validate:"required_with=BotToken"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" split_words:"true" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" split_words:"true" default:"text" validate:"oneof=text json"`
	File       string `yaml:"file" split_words:"true"`
	MaxSizeMB  int    `yaml:"max_size_mb" split_words:"true" default:"10" validate:"min=1"`
	MaxBackups int    `yaml:"max_backups" split_words:"true" default:"3" validate:"min=0"`
	MaxAgeDays int    `yaml:"max_age_days" split_words:"true" default:"28" validate:"min=0"`
}

// Load builds the configuration: defaults, then AAS_* variables (a .env file in the
// working directory is honored), then the keys set in the YAML file at path, if any.
// The result is validated.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFromFile overlays the keys present in the YAML file onto cfg
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks field constraints
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// CutoffDate returns the first day included in the report
func (c *Config) CutoffDate() (time.Time, error) {
	t, err := time.Parse(CutoffLayout, c.Report.Cutoff)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cutoff %q: %w", c.Report.Cutoff, err)
	}
	return t, nil
}

// Policy returns the monthly aggregation policy
func (c *Config) Policy() (quality.Policy, error) {
	return quality.ParsePolicy(c.Report.Aggregation)
}

// Labels returns the report labels. siteName is used when no site name is configured.
func (c *Config) Labels(siteName string) render.Labels {
	if c.Site.Name != "" {
		siteName = c.Site.Name
	}
	year := 0
	if cutoff, err := c.CutoffDate(); err == nil {
		year = cutoff.Year()
	}
	return render.Labels{
		SiteName:   siteName,
		City:       c.Site.City,
		County:     c.Site.County,
		Watershed:  c.Site.Watershed,
		ReportYear: year,
	}
}

// IntermediatePath returns where the rewritten CSV goes: relative paths are placed
// in the output directory, and "" disables it
func (c *Config) IntermediatePath() string {
	p := c.Source.IntermediatePath
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Report.OutputDir, p)
}

// StorageEnabled reports whether report snapshots are persisted
func (c *Config) StorageEnabled() bool {
	return c.Storage.DatabasePath != ""
}

// TelegramEnabled reports whether impairment alerts are sent
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != 0
}
