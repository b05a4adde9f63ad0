// Package llm abstracts chat-completion providers behind one capability
// interface so the consensus merger never depends on a concrete vendor API.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/gartstein/scout/internal/scout/config"
	e "github.com/gartstein/scout/internal/scout/errors"
	"go.uber.org/zap"
)

// Provider is a single chat-completion backend. Complete returns the raw
// assistant text; callers are responsible for extracting JSON from it.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Build constructs every provider whose credential is present. Providers
// without a credential are skipped silently; consensus degrades gracefully
// to whatever is configured.
func Build(cfg *config.LLMConfig, logger *zap.Logger) []Provider {
	var providers []Provider
	if cfg.AnthropicKey != "" {
		providers = append(providers, NewAnthropicProvider(cfg.AnthropicKey, cfg.AnthropicModel, logger))
	}
	if cfg.OpenAIKey != "" {
		providers = append(providers, NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, logger))
	}
	if cfg.GeminiKey != "" {
		providers = append(providers, NewGeminiProvider(cfg.GeminiKey, cfg.GeminiModel, logger))
	}
	if cfg.GrokKey != "" {
		providers = append(providers, NewGrokProvider(cfg.GrokKey, cfg.GrokModel, logger))
	}
	return providers
}

// Pick returns the named provider. A requested provider with no credential
// is operator misconfiguration, not a degradable condition.
func Pick(providers []Provider, name string) (Provider, error) {
	for _, p := range providers {
		if strings.EqualFold(p.Name(), name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: provider %q not configured (missing credential?)", e.ErrConfiguration, name)
}
