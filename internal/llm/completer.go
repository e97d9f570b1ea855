// Package llm talks to a text completion service and turns its answers into
// article summaries, categories, interest scores and selector suggestions.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reddot-watch/curator/internal/config"
)

// ErrNotConfigured is returned by every call when no API key is set.
var ErrNotConfigured = errors.New("llm backend not configured")

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Request is a single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completer returns the model's text answer for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// NewCompleter builds the backend selected by cfg.Provider. Without an API key
// it returns a Completer that always fails with ErrNotConfigured, so scraping
// still works and enrichment falls back to its defaults.
func NewCompleter(cfg config.LLMConfig) (Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return unconfigured{}, nil
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

type unconfigured struct{}

func (unconfigured) Complete(context.Context, Request) (string, error) {
	return "", ErrNotConfigured
}
