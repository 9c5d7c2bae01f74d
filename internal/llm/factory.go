package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/viva/internal/logger"
	"github.com/abhisek/viva/internal/store"
)

// NewProvider builds the configured provider and wraps it as
// caller → timeout → retry → logging → base, so each attempt is logged and
// the purpose deadline bounds the whole retry loop.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, log *logger.Logger) (Provider, error) {
	var (
		base Provider
		err  error
	)

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		// An empty mock fails every call, which drives every component onto
		// its deterministic fallback.
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return Wrap(base, cfg, eventRepo, log), nil
}

// Wrap applies the standard decorator stack to an existing provider.
func Wrap(base Provider, cfg Config, eventRepo store.EventRepo, log *logger.Logger) Provider {
	logged := WithLogging(base, cfg.Provider, eventRepo, log)
	retried := WithRetry(logged, cfg.Retry, log)
	return WithTimeout(retried, cfg.Timeouts)
}
