package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/apresai/researchcast/internal/config"
)

// Default model per provider, used when the config leaves the model unset.
var defaultModels = map[string]string{
	"anthropic": "claude-sonnet-4-5-20250929",
	"openai":    "gpt-4o",
	"bedrock":   "us.amazon.nova-2-lite-v1:0",
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string {
	if provider == "" {
		provider = "anthropic"
	}
	return defaultModels[provider]
}

// NewProvider builds the provider named in cfg.Provider.
func NewProvider(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "anthropic", "":
		return NewAnthropicProvider(cfg.AnthropicAPIKey)
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	case "bedrock":
		awsCfg, err := config.LoadAWS(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return NewBedrockProvider(awsCfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q: choose anthropic, openai, or bedrock", cfg.Provider)
	}
}

// NewFromConfig builds a Client around the configured provider. A missing
// API key does not fail construction: the client is built around a provider
// that returns the credential error on every call, and Unavailable reports it.
func NewFromConfig(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	p, err := NewProvider(ctx, cfg)
	if errors.Is(err, ErrMissingCredential) {
		if logger != nil {
			logger.Warn("Generation provider has no credential", "provider", cfg.Provider, "error", err)
		}
		p = unavailable{name: cfg.Provider, err: err}
	} else if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel(cfg.Provider)
	}
	return NewClient(p, ClientOptions{
		Model:          model,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
		MaxAttempts:    cfg.MaxAttempts,
		BaseDelay:      cfg.BaseDelay,
		AttemptTimeout: cfg.AttemptTimeout,
	}, logger), nil
}

type unavailable struct {
	name string
	err  error
}

func (u unavailable) Name() string { return u.name }

func (u unavailable) Generate(context.Context, Request) (string, error) { return "", u.err }

// Unavailable returns the construction error when c was built without a
// usable provider, and nil otherwise.
func (c *Client) Unavailable() error {
	if u, ok := c.provider.(unavailable); ok {
		return u.err
	}
	return nil
}
