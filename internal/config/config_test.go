package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"podpress/internal/config"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANTHROPIC_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY",
		"WORDPRESS_URL", "WORDPRESS_USERNAME", "WORDPRESS_PASSWORD",
		"HF_TOKEN", "PODPRESS_API_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "podpress")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.APIBind != "127.0.0.1:5000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Generation.APIKey != "test-key" {
		t.Fatalf("expected generation key from env, got %q", cfg.Generation.APIKey)
	}
	if cfg.Generation.Provider != config.ProviderAnthropic {
		t.Fatalf("unexpected provider %q", cfg.Generation.Provider)
	}
	if cfg.Limits.DailyLimit != 5 || cfg.Limits.Timezone != "Asia/Tokyo" || cfg.Limits.RetentionDays != 7 {
		t.Fatalf("unexpected limits: %+v", cfg.Limits)
	}
	if cfg.Article.MinCharacters != 4000 {
		t.Fatalf("unexpected min characters %d", cfg.Article.MinCharacters)
	}
	if cfg.WordPress.Status != config.StatusDraft {
		t.Fatalf("expected draft status by default, got %q", cfg.WordPress.Status)
	}
	if cfg.WordPressConfigured() {
		t.Fatal("expected WordPress to be unconfigured by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.WorkDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearCredentialEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "podpress.toml")

	type payload struct {
		Generation struct {
			Provider string `toml:"provider"`
			APIKey   string `toml:"api_key"`
		} `toml:"generation"`
		Limits struct {
			DailyLimit int    `toml:"daily_limit"`
			Store      string `toml:"store"`
		} `toml:"limits"`
		WordPress struct {
			URL      string `toml:"url"`
			Username string `toml:"username"`
			Password string `toml:"password"`
		} `toml:"wordpress"`
	}
	custom := payload{}
	custom.Generation.Provider = "openai"
	custom.Generation.APIKey = "abc123"
	custom.Limits.DailyLimit = 10
	custom.Limits.Store = "json"
	custom.WordPress.URL = " https://blog.example.com/wp-admin "
	custom.WordPress.Username = "editor"
	custom.WordPress.Password = "secret"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Generation.BaseURL == "" {
		t.Fatal("expected openai provider to receive a default base url")
	}
	if cfg.Limits.DailyLimit != 10 || cfg.Limits.Store != config.StoreJSON {
		t.Fatalf("unexpected limits: %+v", cfg.Limits)
	}
	if cfg.WordPress.URL != "https://blog.example.com/wp-admin" {
		t.Fatalf("expected trimmed url, got %q", cfg.WordPress.URL)
	}
	if !cfg.WordPressConfigured() {
		t.Fatal("expected WordPress to be configured")
	}
}

func TestEnvFallbacksFillMissingCredentials(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("WORDPRESS_URL", "https://env.example.com")
	t.Setenv("WORDPRESS_USERNAME", "env-user")
	t.Setenv("WORDPRESS_PASSWORD", "env-pass")
	t.Setenv("HF_TOKEN", "env-hf")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.WordPress.URL != "https://env.example.com" || cfg.WordPress.Username != "env-user" || cfg.WordPress.Password != "env-pass" {
		t.Fatalf("unexpected wordpress settings: %+v", cfg.WordPress)
	}
	if cfg.Transcription.HFToken != "env-hf" {
		t.Fatalf("expected HF token from env, got %q", cfg.Transcription.HFToken)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[wordpress]") {
		t.Fatalf("sample config missing wordpress section: %s", contents)
	}

	cfg := config.Default()
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Limits.DailyLimit != 5 {
		t.Fatalf("unexpected sample daily limit %d", cfg.Limits.DailyLimit)
	}
	if !strings.Contains(cfg.Paths.StateDir, "podpress") {
		t.Fatalf("expected state dir to contain podpress, got %q", cfg.Paths.StateDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"daily limit":  func(c *config.Config) { c.Limits.DailyLimit = 0 },
		"timezone":     func(c *config.Config) { c.Limits.Timezone = "Mars/Olympus" },
		"store":        func(c *config.Config) { c.Limits.Store = "redis" },
		"temperature":  func(c *config.Config) { c.Generation.Temperature = 1.5 },
		"provider":     func(c *config.Config) { c.Generation.Provider = "local" },
		"status":       func(c *config.Config) { c.WordPress.Status = "private" },
		"min chars":    func(c *config.Config) { c.Article.MinCharacters = -1 },
		"log format":   func(c *config.Config) { c.Logging.Format = "xml" },
		"bad base url": func(c *config.Config) { c.Generation.BaseURL = "::not a url" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", name)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestWithOverridesMergesLeafKeys(t *testing.T) {
	clearCredentialEnv(t)
	base, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	base.WordPress.URL = "https://base.example.com"
	base.WordPress.Username = "base-user"

	merged, err := base.WithOverrides(map[string]any{
		"article":   map[string]any{"min_characters": float64(1200), "custom_style": "casual"},
		"wordpress": map[string]any{"status": "publish"},
		"claude":    map[string]any{"temperature": 0.2},
	})
	if err != nil {
		t.Fatalf("WithOverrides returned error: %v", err)
	}
	if merged.Article.MinCharacters != 1200 || merged.Article.CustomStyle != "casual" {
		t.Fatalf("unexpected article settings: %+v", merged.Article)
	}
	if merged.WordPress.Status != config.StatusPublish {
		t.Fatalf("expected publish status, got %q", merged.WordPress.Status)
	}
	if merged.WordPress.URL != "https://base.example.com" || merged.WordPress.Username != "base-user" {
		t.Fatalf("expected untouched wordpress keys to survive, got %+v", merged.WordPress)
	}
	if merged.Generation.Temperature != 0.2 {
		t.Fatalf("expected aliased generation override, got %v", merged.Generation.Temperature)
	}
	if base.Article.MinCharacters != 4000 || base.WordPress.Status != config.StatusDraft {
		t.Fatal("base configuration must not change")
	}
}

func TestWithOverridesRejectsInvalidResult(t *testing.T) {
	cfg := config.Default()
	if _, err := cfg.WithOverrides(map[string]any{"limits": map[string]any{"daily_limit": 0}}); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := cfg.WithOverrides(map[string]any{"article": "oops"}); err == nil {
		t.Fatal("expected error for non-table section")
	}
}

func TestWithOverridesRejectsOperatorKeys(t *testing.T) {
	clearCredentialEnv(t)
	base := config.Default()
	base.Generation.APIKey = "sk-server-secret"
	base.WordPress.URL = "https://blog.example.com"
	base.WordPress.Username = "editor"
	base.WordPress.Password = "server-password"

	cases := map[string]map[string]any{
		"provider":      {"generation": map[string]any{"provider": "openai"}},
		"base url":      {"generation": map[string]any{"base_url": "http://elsewhere.invalid/v1"}},
		"api key":       {"llm": map[string]any{"api_key": "other"}},
		"upper case":    {"generation": map[string]any{"BASE_URL": "http://elsewhere.invalid/v1"}},
		"work dir":      {"paths": map[string]any{"work_dir": "/etc/podpress"}},
		"daily limit":   {"limits": map[string]any{"daily_limit": 100}},
		"hf token":      {"whisper": map[string]any{"hf_token": "x"}},
		"notifications": {"notifications": map[string]any{"ntfy_topic": "https://ntfy.invalid/t"}},
		"site only":     {"wordpress": map[string]any{"url": "http://elsewhere.invalid"}},
		"site and user": {"wordpress": map[string]any{"url": "http://elsewhere.invalid", "username": "u"}},
		"empty creds":   {"wordpress": map[string]any{"url": "http://elsewhere.invalid", "username": "", "password": " "}},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := base.WithOverrides(overrides); err == nil {
				t.Fatalf("expected %s override to be rejected", name)
			}
		})
	}

	merged, err := base.WithOverrides(map[string]any{
		"wordpress": map[string]any{"url": "https://other.example.com", "username": "guest", "password": "guest-pass"},
	})
	if err != nil {
		t.Fatalf("site with its own credentials should be accepted: %v", err)
	}
	if merged.WordPress.URL != "https://other.example.com" || merged.WordPress.Password != "guest-pass" {
		t.Fatalf("unexpected wordpress settings: %+v", merged.WordPress)
	}
	if merged.Generation.APIKey != "sk-server-secret" || merged.Generation.Provider != config.ProviderAnthropic {
		t.Fatalf("generation endpoint must not change: %+v", merged.Generation)
	}
}
