// Package config assembles the engine configuration from defaults, an
// optional YAML file and DEEPREADING_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/deepteaching86-gif/deepreading/internal/feedback"
	"github.com/deepteaching86-gif/deepreading/internal/irt"
	"github.com/deepteaching86-gif/deepreading/internal/llm"
	"github.com/deepteaching86-gif/deepreading/internal/logging"
	"github.com/deepteaching86-gif/deepreading/internal/mst"
	"github.com/deepteaching86-gif/deepreading/internal/scoring"
	"github.com/deepteaching86-gif/deepreading/internal/selection"
	"github.com/deepteaching86-gif/deepreading/internal/session"
)

// Config is the full engine configuration.
type Config struct {
	// Database is a SQLite path or a postgres:// DSN. Empty selects the
	// default data directory.
	Database string `yaml:"database"`
	// MetricsFile, when set, receives a Prometheus textfile after each command.
	MetricsFile string `yaml:"metrics_file"`
	// Seed seeds item selection. 0 seeds from the clock.
	Seed uint64 `yaml:"seed"`

	Estimator irt.Config       `yaml:"estimator"`
	Selection selection.Config `yaml:"selection"`
	MST       mst.Config       `yaml:"mst"`
	Scale     scoring.Scale    `yaml:"scale"`
	Session   session.Config   `yaml:"session"`
	Feedback  feedback.Config  `yaml:"feedback"`
	LLM       llm.Config       `yaml:"llm"`
	Logging   logging.Config   `yaml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Estimator: irt.DefaultConfig(),
		Selection: selection.DefaultConfig(),
		MST:       mst.DefaultConfig(),
		Scale:     scoring.DefaultScale(),
		Session:   session.DefaultConfig(),
		Feedback:  feedback.DefaultConfig(),
		LLM:       llm.DefaultConfig(),
		Logging:   logging.DefaultConfig(),
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file; a missing file is
// an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DEEPREADING_DB"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("DEEPREADING_METRICS_FILE"); v != "" {
		cfg.MetricsFile = v
	}
	if v := os.Getenv("DEEPREADING_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Seed = n
		}
	}
	if v := os.Getenv("DEEPREADING_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	cfg.LLM = llm.ApplyEnv(cfg.LLM)
}

// Validate checks every section. LLM settings are checked only when
// feedback is requested, so they are not validated here.
func (c Config) Validate() error {
	var errs []error
	if err := c.Estimator.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Selection.TopK < 0 {
		errs = append(errs, fmt.Errorf("selection: top_k must not be negative, got %d", c.Selection.TopK))
	}
	if err := c.MST.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Scale.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Session.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
