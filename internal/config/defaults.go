package config

const (
	defaultConfigPath         = "~/.config/podpress/config.toml"
	defaultStateDir           = "~/.local/share/podpress"
	defaultLogDir             = "~/.local/share/podpress/logs"
	defaultWorkDir            = "~/.cache/podpress/work"
	defaultAPIBind            = "127.0.0.1:5000"
	defaultWhisperModel       = "large-v3"
	defaultWhisperLanguage    = "ja"
	defaultVADMethod          = "silero"
	defaultProvider           = ProviderAnthropic
	defaultAnthropicModel     = "claude-sonnet-4-20250514"
	defaultOpenAIBaseURL      = "https://openrouter.ai/api/v1/chat/completions"
	defaultTemperature        = 0.5
	defaultMaxTokens          = 8000
	defaultGenerationTimeout  = 300
	defaultGenerationAttempts = 3
	defaultMinCharacters      = 4000
	defaultDisclaimer         = "※この記事はポッドキャスト音声データを元にAIが書き起こし、編集したものです。"
	defaultEmbedBaseURL       = "https://open.spotify.com/embed/episode/"
	defaultWordPressCategory  = "ポッドキャスト"
	defaultWordPressStatus    = StatusDraft
	defaultWordPressTimeout   = 30
	defaultUserAgent          = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultDailyLimit         = 5
	defaultTimezone           = "Asia/Tokyo"
	defaultRetentionDays      = 7
	defaultQuotaStore         = StoreSQLite
	defaultWorkers            = 4
	defaultQueueSize          = 32
	defaultTaskRetentionHours = 24
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Provider names accepted in [generation].
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Publication states accepted in [wordpress].
const (
	StatusDraft   = "draft"
	StatusPublish = "publish"
)

// Quota stores accepted in [limits].
const (
	StoreSQLite = "sqlite"
	StoreJSON   = "json"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			WorkDir:  defaultWorkDir,
			APIBind:  defaultAPIBind,
		},
		Transcription: Transcription{
			Model:     defaultWhisperModel,
			Language:  defaultWhisperLanguage,
			VADMethod: defaultVADMethod,
		},
		Generation: Generation{
			Provider:       defaultProvider,
			Model:          defaultAnthropicModel,
			Temperature:    defaultTemperature,
			MaxTokens:      defaultMaxTokens,
			Stream:         true,
			TimeoutSeconds: defaultGenerationTimeout,
			MaxAttempts:    defaultGenerationAttempts,
			Title:          "podpress",
		},
		Article: Article{
			MinCharacters: defaultMinCharacters,
			Disclaimer:    defaultDisclaimer,
			EmbedBaseURL:  defaultEmbedBaseURL,
		},
		WordPress: WordPress{
			Category:  defaultWordPressCategory,
			Status:    defaultWordPressStatus,
			Timeout:   defaultWordPressTimeout,
			UserAgent: defaultUserAgent,
		},
		Limits: Limits{
			DailyLimit:    defaultDailyLimit,
			Timezone:      defaultTimezone,
			RetentionDays: defaultRetentionDays,
			Store:         defaultQuotaStore,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueueSize:          defaultQueueSize,
			TaskRetentionHours: defaultTaskRetentionHours,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Completion:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
