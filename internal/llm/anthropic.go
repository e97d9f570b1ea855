package llm

import (
	"context"
	"fmt"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"

	"reddot-watch/curator/internal/config"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicClient implements Completer with the Anthropic Messages API via llmkit.
type AnthropicClient struct {
	model  string
	apiKey string
	prompt func(system, user string, settings types.RequestSettings) (string, error)
}

var _ Completer = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from configuration.
func NewAnthropicClient(cfg config.LLMConfig) *AnthropicClient {
	apiKey := cfg.APIKey
	return &AnthropicClient{
		model:  cfg.Model,
		apiKey: apiKey,
		prompt: func(system, user string, settings types.RequestSettings) (string, error) {
			response, err := anthropic.PromptWithSettings(system, user, "", apiKey, settings)
			if err != nil {
				return "", err
			}
			if len(response.Content) == 0 {
				return "", fmt.Errorf("no content in response")
			}
			return response.Content[0].Text, nil
		},
	}
}

// Complete sends the request. llmkit calls are not context aware, so the call
// runs in its own goroutine and an expired ctx abandons its result.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	settings := types.RequestSettings{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := c.prompt(req.System, req.Prompt, settings)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("anthropic completion: %w", r.err)
		}
		return r.text, nil
	}
}
