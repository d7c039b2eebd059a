package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeGeneration()
	c.normalizeArticle()
	c.normalizeWordPress()
	c.normalizeLimits()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("PODPRESS_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperModel
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultVADMethod
	}
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeGeneration() {
	c.Generation.Provider = strings.ToLower(strings.TrimSpace(c.Generation.Provider))
	if c.Generation.Provider == "" || c.Generation.Provider == "claude" {
		c.Generation.Provider = ProviderAnthropic
	}
	if c.Generation.APIKey == "" {
		envKeys := []string{"ANTHROPIC_API_KEY"}
		if c.Generation.Provider == ProviderOpenAI {
			envKeys = []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY"}
		}
		for _, key := range envKeys {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.Generation.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.Generation.BaseURL = strings.TrimSpace(c.Generation.BaseURL)
	if c.Generation.BaseURL == "" && c.Generation.Provider == ProviderOpenAI {
		c.Generation.BaseURL = defaultOpenAIBaseURL
	}
	c.Generation.Model = strings.TrimSpace(c.Generation.Model)
	if c.Generation.Model == "" {
		c.Generation.Model = defaultAnthropicModel
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = defaultMaxTokens
	}
	if c.Generation.TimeoutSeconds <= 0 {
		c.Generation.TimeoutSeconds = defaultGenerationTimeout
	}
	if c.Generation.MaxAttempts <= 0 {
		c.Generation.MaxAttempts = defaultGenerationAttempts
	}
}

func (c *Config) normalizeArticle() {
	c.Article.ReferenceURL = strings.TrimSpace(c.Article.ReferenceURL)
	c.Article.CustomStyle = strings.TrimSpace(c.Article.CustomStyle)
	c.Article.EmbedBaseURL = strings.TrimSpace(c.Article.EmbedBaseURL)
	if c.Article.EmbedBaseURL == "" {
		c.Article.EmbedBaseURL = defaultEmbedBaseURL
	}
	if !strings.HasSuffix(c.Article.EmbedBaseURL, "/") {
		c.Article.EmbedBaseURL += "/"
	}
}

func (c *Config) normalizeWordPress() {
	if c.WordPress.URL == "" {
		if value, ok := os.LookupEnv("WORDPRESS_URL"); ok {
			c.WordPress.URL = value
		}
	}
	if c.WordPress.Username == "" {
		if value, ok := os.LookupEnv("WORDPRESS_USERNAME"); ok {
			c.WordPress.Username = value
		}
	}
	if c.WordPress.Password == "" {
		if value, ok := os.LookupEnv("WORDPRESS_PASSWORD"); ok {
			c.WordPress.Password = value
		}
	}
	c.WordPress.URL = strings.TrimSpace(c.WordPress.URL)
	c.WordPress.Username = strings.TrimSpace(c.WordPress.Username)
	c.WordPress.Status = strings.ToLower(strings.TrimSpace(c.WordPress.Status))
	if c.WordPress.Status == "" {
		c.WordPress.Status = defaultWordPressStatus
	}
	if c.WordPress.Timeout <= 0 {
		c.WordPress.Timeout = defaultWordPressTimeout
	}
	if strings.TrimSpace(c.WordPress.UserAgent) == "" {
		c.WordPress.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeLimits() {
	c.Limits.Timezone = strings.TrimSpace(c.Limits.Timezone)
	if c.Limits.Timezone == "" {
		c.Limits.Timezone = defaultTimezone
	}
	if c.Limits.RetentionDays <= 0 {
		c.Limits.RetentionDays = defaultRetentionDays
	}
	c.Limits.Store = strings.ToLower(strings.TrimSpace(c.Limits.Store))
	if c.Limits.Store == "" {
		c.Limits.Store = defaultQuotaStore
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.QueueSize <= 0 {
		c.Workflow.QueueSize = defaultQueueSize
	}
	if c.Workflow.TaskRetentionHours <= 0 {
		c.Workflow.TaskRetentionHours = defaultTaskRetentionHours
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = 10
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
