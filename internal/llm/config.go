package llm

import (
	"fmt"
	"os"
	"time"
)

// Config selects and configures the generation backend.
type Config struct {
	// Provider is one of "anthropic", "openai", "gemini", "openrouter", "mock".
	Provider string `koanf:"provider"`

	Anthropic  AnthropicConfig  `koanf:"anthropic"`
	OpenAI     OpenAIConfig     `koanf:"openai"`
	Gemini     GeminiConfig     `koanf:"gemini"`
	OpenRouter OpenRouterConfig `koanf:"openrouter"`
	Retry      RetryConfig      `koanf:"retry"`
	Timeouts   TimeoutConfig    `koanf:"timeouts"`
}

type AnthropicConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

type GeminiConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

type OpenRouterConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

// RetryConfig controls exponential backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	InitialWait time.Duration `koanf:"initial_wait"`
	MaxWait     time.Duration `koanf:"max_wait"`
	Multiplier  float64       `koanf:"multiplier"`
}

// TimeoutConfig holds the per-purpose deadlines. Default applies to any
// purpose without its own entry.
type TimeoutConfig struct {
	QuestionBatch  time.Duration `koanf:"question_batch"`
	ResponseScore  time.Duration `koanf:"response_score"`
	CoverageRefine time.Duration `koanf:"coverage_refine"`
	ScenarioGen    time.Duration `koanf:"scenario_gen"`
	Assessment     time.Duration `koanf:"assessment"`
	Default        time.Duration `koanf:"default"`
}

// For returns the deadline for a purpose label.
func (t TimeoutConfig) For(purpose string) time.Duration {
	var d time.Duration
	switch purpose {
	case PurposeQuestionBatch:
		d = t.QuestionBatch
	case PurposeResponseScore:
		d = t.ResponseScore
	case PurposeCoverageRefine:
		d = t.CoverageRefine
	case PurposeScenarioGen:
		d = t.ScenarioGen
	case PurposeAssessment:
		d = t.Assessment
	}
	if d <= 0 {
		d = t.Default
	}
	return d
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Provider:   "anthropic",
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-001"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2.0,
		},
		Timeouts: TimeoutConfig{
			QuestionBatch:  45 * time.Second,
			ResponseScore:  15 * time.Second,
			CoverageRefine: 10 * time.Second,
			ScenarioGen:    45 * time.Second,
			Assessment:     15 * time.Second,
			Default:        30 * time.Second,
		},
	}
}

// ConfigFromEnv overlays VIVA_* environment variables on the defaults.
// The CLI inspection commands use it without loading a config file.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Provider, "VIVA_LLM_PROVIDER")
	set(&cfg.Anthropic.APIKey, "VIVA_ANTHROPIC_API_KEY")
	set(&cfg.Anthropic.Model, "VIVA_ANTHROPIC_MODEL")
	set(&cfg.OpenAI.APIKey, "VIVA_OPENAI_API_KEY")
	set(&cfg.OpenAI.Model, "VIVA_OPENAI_MODEL")
	set(&cfg.OpenAI.BaseURL, "VIVA_OPENAI_BASE_URL")
	set(&cfg.Gemini.APIKey, "VIVA_GEMINI_API_KEY")
	set(&cfg.Gemini.Model, "VIVA_GEMINI_MODEL")
	set(&cfg.OpenRouter.APIKey, "VIVA_OPENROUTER_API_KEY")
	set(&cfg.OpenRouter.Model, "VIVA_OPENROUTER_MODEL")

	return cfg
}

// DiscoverConfig probes the vendors' standard key variables and returns a
// config for the first one found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	switch {
	case os.Getenv("ANTHROPIC_API_KEY") != "":
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case os.Getenv("OPENAI_API_KEY") != "":
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	case os.Getenv("GEMINI_API_KEY") != "":
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	case os.Getenv("OPENROUTER_API_KEY") != "":
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = os.Getenv("OPENROUTER_API_KEY")
	default:
		return Config{}, false
	}
	return cfg, true
}

// Validate checks that the selected provider has a key.
func (c Config) Validate() error {
	var key string
	switch c.Provider {
	case "anthropic":
		key = c.Anthropic.APIKey
	case "openai":
		key = c.OpenAI.APIKey
	case "gemini":
		key = c.Gemini.APIKey
	case "openrouter":
		key = c.OpenRouter.APIKey
	case "mock":
		return nil
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("an API key is required for the %s provider", c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("llm retry max_attempts must be at least 1")
	}
	return nil
}
