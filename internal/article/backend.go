package article

import (
	"errors"
	"time"

	"podpress/internal/config"
	"podpress/internal/services/anthropic"
	"podpress/internal/services/llm"
)

// NewBackend returns the backend selected by [generation].provider.
func NewBackend(cfg *config.Config) (Backend, error) {
	if cfg == nil {
		return nil, errors.New("article backend: config is nil")
	}
	gen := cfg.Generation
	switch gen.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewClient(anthropic.Config{
			APIKey:      gen.APIKey,
			Model:       gen.Model,
			Temperature: gen.Temperature,
			MaxTokens:   gen.MaxTokens,
			Timeout:     time.Duration(gen.TimeoutSeconds) * time.Second,
		}), nil
	case config.ProviderOpenAI:
		return llm.NewClient(llm.Config{
			APIKey:         gen.APIKey,
			BaseURL:        gen.BaseURL,
			Model:          gen.Model,
			Referer:        gen.Referer,
			Title:          gen.Title,
			TimeoutSeconds: gen.TimeoutSeconds,
			Temperature:    gen.Temperature,
			MaxTokens:      gen.MaxTokens,
			Stream:         gen.Stream,
		}), nil
	default:
		return nil, errors.New("article backend: unsupported provider " + gen.Provider)
	}
}
