package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	llmkit "github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// Config captures the request settings sent with every prompt.
type Config struct {
	APIKey      string
	Model       string
	System      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

const defaultTimeout = 300 * time.Second

// promptFunc performs one Messages call and returns the first text block.
type promptFunc func(system, user, apiKey string, settings types.RequestSettings) (string, error)

func llmkitPrompt(system, user, apiKey string, settings types.RequestSettings) (string, error) {
	response, err := llmkit.PromptWithSettings(system, user, "", apiKey, settings)
	if err != nil {
		return "", err
	}
	if len(response.Content) == 0 {
		return "", errors.New("no content in response")
	}
	return response.Content[0].Text, nil
}

// Client sends prompts through llmkit.
type Client struct {
	cfg    Config
	prompt promptFunc
}

// NewClient constructs a client for cfg.
func NewClient(cfg Config) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg, prompt: llmkitPrompt}
}

// Complete sends prompt as the user turn and returns the answer text. Each
// call is bounded by Config.Timeout.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("anthropic complete: prompt required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("anthropic complete: api key required")
	}
	settings := types.RequestSettings{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := c.prompt(c.cfg.System, prompt, c.cfg.APIKey, settings)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("anthropic complete: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("anthropic complete: %w", res.err)
		}
		text := strings.TrimSpace(res.text)
		if text == "" {
			return "", errors.New("anthropic complete: empty response")
		}
		return text, nil
	}
}
