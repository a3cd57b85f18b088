package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/churnpipe/internal/pipeline"
)

// Config is the YAML configuration for a pipeline run. Flags override the
// file; the file overrides defaults.
type Config struct {
	// Inputs
	EventsCSV string `yaml:"events_csv"`
	UsersCSV  string `yaml:"users_csv"` // optional demographic join
	Taxonomy  string `yaml:"taxonomy"`

	// Outputs
	FeaturesCSV string `yaml:"features_csv"` // optional CSV export
	Database    string `yaml:"database"`     // optional SQLite export

	// Cohort reference months, 1-12
	PrevMonth int `yaml:"prev_month"`
	CurrMonth int `yaml:"curr_month"`

	// IncludeNew keeps sessions of devices first seen in the current month.
	IncludeNew bool `yaml:"include_new"`

	// TrailingExit overrides the dead-end triple removed from session tails.
	TrailingExit *TrailingExitConfig `yaml:"trailing_exit"`
}

// TrailingExitConfig mirrors pipeline.TrailingExit in YAML.
type TrailingExitConfig struct {
	Screen     string `yaml:"screen"`
	Functional string `yaml:"functional"`
	Action     string `yaml:"action"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		PrevMonth: int(time.September),
		CurrMonth: int(time.October),
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config for structural problems.
func (c Config) Validate() error {
	if c.EventsCSV == "" {
		return fmt.Errorf("config: events_csv is required")
	}
	if c.Taxonomy == "" {
		return fmt.Errorf("config: taxonomy is required")
	}
	if c.PrevMonth < 1 || c.PrevMonth > 12 {
		return fmt.Errorf("config: prev_month must be 1-12, got %d", c.PrevMonth)
	}
	if c.CurrMonth < 1 || c.CurrMonth > 12 {
		return fmt.Errorf("config: curr_month must be 1-12, got %d", c.CurrMonth)
	}
	if c.PrevMonth == c.CurrMonth {
		return fmt.Errorf("config: prev_month and curr_month must differ")
	}
	return nil
}

// PipelineOptions converts the config into pipeline options.
func (c Config) PipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.PrevMonth = time.Month(c.PrevMonth)
	opts.CurrMonth = time.Month(c.CurrMonth)
	opts.IncludeNew = c.IncludeNew
	if c.TrailingExit != nil {
		opts.TrailingExit = pipeline.TrailingExit{
			Screen:     c.TrailingExit.Screen,
			Functional: c.TrailingExit.Functional,
			Action:     c.TrailingExit.Action,
		}
	}
	return opts
}
