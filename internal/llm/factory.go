package llm

import (
	"context"
	"fmt"

	"github.com/linguaforge/linguaforge/internal/logger"
	"github.com/linguaforge/linguaforge/internal/store"
)

// NewProvider creates a Provider from configuration, wrapped as
// caller → retry → rate limit → logging → base. Every attempt is logged and
// paced individually.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error

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
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return Wrap(base, cfg, eventRepo, log), nil
}

// Wrap applies the standard middleware chain to an existing provider.
func Wrap(base Provider, cfg Config, eventRepo store.EventRepo, log *logger.Logger) Provider {
	logged := WithLogging(base, cfg.Provider, eventRepo, log)
	limited := WithRateLimit(logged, PerMinute(cfg.RatePerMinute))
	return WithRetry(limited, cfg.Retry)
}
