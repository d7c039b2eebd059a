package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
	_ "time/tzdata"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateArticle(); err != nil {
		return err
	}
	if err := c.validateWordPress(); err != nil {
		return err
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGeneration() error {
	switch c.Generation.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("generation.provider: unsupported value %q (want anthropic or openai)", c.Generation.Provider)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 1 {
		return errors.New("generation.temperature must be between 0 and 1")
	}
	if c.Generation.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.Generation.BaseURL); err != nil {
			return fmt.Errorf("generation.base_url: %w", err)
		}
	}
	return nil
}

func (c *Config) validateArticle() error {
	if c.Article.MinCharacters < 0 {
		return errors.New("article.min_characters must be zero or positive")
	}
	return nil
}

func (c *Config) validateWordPress() error {
	switch c.WordPress.Status {
	case StatusDraft, StatusPublish:
	default:
		return fmt.Errorf("wordpress.status: unsupported value %q (want draft or publish)", c.WordPress.Status)
	}
	return nil
}

func (c *Config) validateLimits() error {
	if c.Limits.DailyLimit < 1 {
		return errors.New("limits.daily_limit must be at least 1")
	}
	if _, err := time.LoadLocation(c.Limits.Timezone); err != nil {
		return fmt.Errorf("limits.timezone: %w", err)
	}
	switch c.Limits.Store {
	case StoreSQLite, StoreJSON:
	default:
		return fmt.Errorf("limits.store: unsupported value %q (want sqlite or json)", c.Limits.Store)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
