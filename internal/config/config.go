package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	WorkDir  string `toml:"work_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Transcription contains speech-to-text settings for the WhisperX runner.
type Transcription struct {
	Model       string `toml:"model"`
	Language    string `toml:"language"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
	HFToken     string `toml:"hf_token"`
}

// Generation contains the text generation backend settings.
type Generation struct {
	Provider       string  `toml:"provider"`
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	Stream         bool    `toml:"stream"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxAttempts    int     `toml:"max_attempts"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
}

// Article contains the shape requirements for generated articles.
type Article struct {
	MinCharacters int    `toml:"min_characters"`
	CustomStyle   string `toml:"custom_style"`
	ReferenceURL  string `toml:"reference_url"`
	Disclaimer    string `toml:"disclaimer"`
	EmbedBaseURL  string `toml:"embed_base_url"`
}

// WordPress contains the publishing target and credentials.
type WordPress struct {
	URL       string `toml:"url"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Category  string `toml:"category"`
	Status    string `toml:"status"`
	Timeout   int    `toml:"timeout"`
	UserAgent string `toml:"user_agent"`
}

// Limits contains the daily quota settings.
type Limits struct {
	DailyLimit    int    `toml:"daily_limit"`
	Timezone      string `toml:"timezone"`
	RetentionDays int    `toml:"retention_days"`
	Store         string `toml:"store"`
}

// Workflow contains worker pool and task retention settings.
type Workflow struct {
	Workers            int `toml:"workers"`
	QueueSize          int `toml:"queue_size"`
	TaskRetentionHours int `toml:"task_retention_hours"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completion     bool   `toml:"completion"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for podpress.
//
// Configuration sections by subsystem:
//   - Paths: state, log and scratch directories plus the API bind address
//   - Transcription: WhisperX model, language hint and device
//   - Generation: text generation backend connection and sampling
//   - Article: minimum length and style hints
//   - WordPress: publishing target and credentials
//   - Limits: daily quota and its timezone
//   - Workflow: worker pool sizing and task retention
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Generation    Generation    `toml:"generation"`
	Article       Article       `toml:"article"`
	WordPress     WordPress     `toml:"wordpress"`
	Limits        Limits        `toml:"limits"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("podpress.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, log and scratch directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.WorkDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QuotaDBPath returns the SQLite quota ledger location.
func (c *Config) QuotaDBPath() string {
	return filepath.Join(c.Paths.StateDir, "quota.db")
}

// QuotaFilePath returns the JSON quota ledger location.
func (c *Config) QuotaFilePath() string {
	return filepath.Join(c.Paths.StateDir, "usage_data.json")
}

// LockPath returns the single-instance server lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "podpress.lock")
}

// WordPressConfigured reports whether enough credentials exist to attempt publishing.
func (c *Config) WordPressConfigured() bool {
	return strings.TrimSpace(c.WordPress.URL) != "" &&
		strings.TrimSpace(c.WordPress.Username) != "" &&
		c.WordPress.Password != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML with secrets masked.
func (c *Config) Encode() (string, error) {
	masked := *c
	masked.Generation.APIKey = mask(masked.Generation.APIKey)
	masked.WordPress.Password = mask(masked.WordPress.Password)
	masked.Transcription.HFToken = mask(masked.Transcription.HFToken)
	masked.Paths.APIToken = mask(masked.Paths.APIToken)
	data, err := toml.Marshal(masked)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
