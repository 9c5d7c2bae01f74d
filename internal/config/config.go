// Package config loads viva's configuration from defaults, a YAML file,
// a .env file and VIVA_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/abhisek/viva/internal/api"
	"github.com/abhisek/viva/internal/coverage"
	"github.com/abhisek/viva/internal/engine"
	"github.com/abhisek/viva/internal/llm"
	"github.com/abhisek/viva/internal/questionbank"
	"github.com/abhisek/viva/internal/scoring"
	"github.com/abhisek/viva/internal/speech"
	"github.com/abhisek/viva/internal/store"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "viva.yaml"

const envPrefix = "VIVA_"

// Config is the full application configuration.
type Config struct {
	LLM          llm.Config          `koanf:"llm"`
	Speech       speech.Config       `koanf:"speech"`
	Store        store.Config        `koanf:"store"`
	Events       EventsConfig        `koanf:"events"`
	Engine       engine.Config       `koanf:"engine"`
	QuestionBank questionbank.Config `koanf:"questionbank"`
	Scoring      scoring.Config      `koanf:"scoring"`
	Coverage     coverage.Thresholds `koanf:"coverage"`
	Server       api.Config          `koanf:"server"`
	Taxonomy     TaxonomyConfig      `koanf:"taxonomy"`
	Log          LogConfig           `koanf:"log"`
}

// EventsConfig configures session event publishing. An empty AMQPURL
// publishes to the log and event table only.
type EventsConfig struct {
	AMQPURL  string `koanf:"amqp_url"`
	Exchange string `koanf:"exchange"`
}

// TaxonomyConfig points at the module taxonomy. An empty File uses the
// built-in seed.
type TaxonomyConfig struct {
	File string `koanf:"file"`
}

type LogConfig struct {
	// Mode is "dev", "prod" or "nop".
	Mode string `koanf:"mode"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		LLM:          llm.DefaultConfig(),
		Speech:       speech.DefaultConfig(),
		Store:        store.DefaultConfig(),
		Events:       EventsConfig{Exchange: "viva.sessions"},
		Engine:       engine.DefaultConfig(),
		QuestionBank: questionbank.DefaultConfig(),
		Scoring:      scoring.DefaultConfig(),
		Coverage:     coverage.DefaultThresholds(),
		Server:       api.DefaultConfig(),
		Log:          LogConfig{Mode: "prod"},
	}
}

// Load reads configuration from path, then a .env file in the working
// directory, then environment overrides. Nested keys use a double
// underscore: VIVA_ENGINE__MAX_QUESTIONS sets engine.max_questions. A
// missing file at path is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

var validLogModes = map[string]bool{"dev": true, "prod": true, "nop": true}

// Validate checks the parts of the configuration the server needs. The
// LLM section is checked separately because the CLI can run without a
// backend.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Store.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Speech.Validate(); err != nil {
		errs = append(errs, err)
	}
	if !validLogModes[c.Log.Mode] {
		errs = append(errs, fmt.Errorf("invalid log mode %q: must be one of dev, prod, nop", c.Log.Mode))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Engine.MaxQuestions < 1 {
		errs = append(errs, fmt.Errorf("engine.max_questions must be at least 1"))
	}
	if c.Engine.PassingScore < 0 || c.Engine.PassingScore > 100 {
		errs = append(errs, fmt.Errorf("engine.passing_score must be within 0-100"))
	}
	if c.Coverage.Brief <= 0 || c.Coverage.Brief >= c.Coverage.Thorough || c.Coverage.Thorough > 100 {
		errs = append(errs, fmt.Errorf("coverage thresholds must satisfy 0 < brief < thorough <= 100"))
	}
	if len(c.Scoring.Thresholds.Required) == 0 {
		errs = append(errs, fmt.Errorf("scoring.thresholds.required must not be empty"))
	}
	if c.Events.AMQPURL != "" && c.Events.Exchange == "" {
		errs = append(errs, fmt.Errorf("events.exchange is required when events.amqp_url is set"))
	}
	return errors.Join(errs...)
}
