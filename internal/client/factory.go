package client

import (
	"context"
	"fmt"

	"streamchat/internal/config"
	"streamchat/internal/logging"
	"streamchat/internal/ratelimit"
	"streamchat/internal/robustness"
)

// NewProvider creates the bare provider client selected by cfg.API.Provider.
func NewProvider(ctx context.Context, cfg *config.Config) (Client, error) {
	provider := cfg.API.GetActiveProvider()
	logging.Debug("creating client", "provider", provider, "model", cfg.Model.Name)

	switch provider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg)
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg)
	case config.ProviderOllama:
		return newOllamaClient(cfg)
	case config.ProviderEcho:
		return NewEchoClient("", 0), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, provider)
	}
}

// NewClient creates the configured provider wrapped with the configured
// rate limiter and circuit breaker.
func NewClient(ctx context.Context, cfg *config.Config) (Client, error) {
	inner, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewLimiter(ratelimit.Config{
			Enabled:           true,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			TokensPerMinute:   cfg.RateLimit.TokensPerMinute,
			BurstSize:         cfg.RateLimit.BurstSize,
		})
	}

	var breaker *robustness.CircuitBreaker
	if cfg.CircuitBreaker.Enabled {
		breaker = robustness.NewCircuitBreaker(cfg.CircuitBreaker.Threshold, cfg.CircuitBreaker.ResetTimeout)
	}

	if limiter == nil && breaker == nil {
		return inner, nil
	}
	return NewGuardedClient(inner, limiter, breaker), nil
}
