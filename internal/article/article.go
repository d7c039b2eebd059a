package article

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"podpress/internal/config"
	"podpress/internal/logging"
)

// Article is the structured result of the generation stage.
type Article struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// Clone returns a copy that shares no slices with a.
func (a Article) Clone() Article {
	out := a
	if a.Tags != nil {
		out.Tags = append([]string(nil), a.Tags...)
	}
	return out
}

// Backend produces raw text for a prompt.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Settings are the per-job article requirements.
type Settings struct {
	MinCharacters int
	CustomStyle   string
	ReferenceURL  string
	Disclaimer    string
	EmbedBaseURL  string
	MaxAttempts   int
}

// SettingsFromConfig extracts article settings from a merged configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	if cfg == nil {
		return Settings{}
	}
	return Settings{
		MinCharacters: cfg.Article.MinCharacters,
		CustomStyle:   cfg.Article.CustomStyle,
		ReferenceURL:  cfg.Article.ReferenceURL,
		Disclaimer:    cfg.Article.Disclaimer,
		EmbedBaseURL:  cfg.Article.EmbedBaseURL,
		MaxAttempts:   cfg.Generation.MaxAttempts,
	}
}

const defaultMaxAttempts = 3

// Generator converts transcripts into articles.
type Generator struct {
	backend  Backend
	settings Settings
	logger   *slog.Logger

	httpClient *http.Client
	sleep      func(context.Context, time.Duration) error
	jitter     func() float64
}

// Option customizes a Generator.
type Option func(*Generator)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithHTTPClient overrides the client used to fetch the reference style page.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Generator) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// WithSleeper replaces the backoff wait.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(g *Generator) {
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// WithJitter replaces the source of the [0,1) backoff jitter.
func WithJitter(jitter func() float64) Option {
	return func(g *Generator) {
		if jitter != nil {
			g.jitter = jitter
		}
	}
}

// New constructs a Generator.
func New(backend Backend, settings Settings, opts ...Option) *Generator {
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = defaultMaxAttempts
	}
	g := &Generator{
		backend:    backend,
		settings:   settings,
		logger:     logging.NewNop(),
		httpClient: &http.Client{Timeout: referenceTimeout},
		sleep:      sleepContext,
		jitter:     rand.Float64,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.NewComponentLogger(g.logger, "generator")
	return g
}

// Generate produces an article from transcript. episodeURL is optional; when
// present the article is asked to end with an embedded player for it.
func (g *Generator) Generate(ctx context.Context, transcript, episodeURL string) (Article, error) {
	if strings.TrimSpace(transcript) == "" {
		return Article{}, &GenerationError{Op: "generate", Err: errEmptyTranscript}
	}
	if g.backend == nil {
		return Article{}, &GenerationError{Op: "generate", Err: errNoBackend}
	}
	logger := logging.WithContext(ctx, g.logger)
	logger.Info("article generation started",
		logging.Int("transcript_chars", len([]rune(transcript))),
		logging.Bool("episode_embed", strings.TrimSpace(episodeURL) != ""),
	)

	style := g.referenceStyle(ctx)
	prompt := buildPrompt(promptInput{
		Transcript:     transcript,
		ReferenceStyle: style,
		CustomStyle:    g.settings.CustomStyle,
		MinCharacters:  g.settings.MinCharacters,
		Disclaimer:     g.settings.Disclaimer,
		Embed:          embedSnippet(g.settings.EmbedBaseURL, episodeURL),
	})

	result, err := g.generateOnce(ctx, prompt)
	if err != nil {
		return Article{}, err
	}
	result = g.ensureMinimumLength(ctx, result, episodeURL)
	logger.Info("article generation completed",
		logging.String("title", result.Title),
		logging.Int("characters", TextLength(result.Content)),
	)
	return result, nil
}

func (g *Generator) generateOnce(ctx context.Context, prompt string) (Article, error) {
	raw, err := g.completeWithRetry(ctx, prompt)
	if err != nil {
		return Article{}, &GenerationError{Op: "backend", Err: err}
	}
	return parseArticle(raw)
}

func (g *Generator) ensureMinimumLength(ctx context.Context, original Article, episodeURL string) Article {
	logger := logging.WithContext(ctx, g.logger)
	minimum := g.settings.MinCharacters
	count := TextLength(original.Content)
	logger.Info("first draft generated", logging.Int("characters", count), logging.Int("minimum", minimum))
	if count >= minimum {
		return original
	}

	logger.Info("draft below minimum length, expanding", logging.Int("missing", minimum-count))
	prompt := buildExpansionPrompt(original, expansionInput{
		MinCharacters: minimum,
		Disclaimer:    g.settings.Disclaimer,
		Embed:         embedSnippet(g.settings.EmbedBaseURL, episodeURL),
	})
	expanded, err := g.generateOnce(ctx, prompt)
	if err != nil {
		logging.WarnWithContext(logger, "expansion failed, keeping first draft", "article_expansion_failed",
			logging.String(logging.FieldErrorHint, "the under-length draft is returned unchanged"),
			logging.Error(err),
		)
		return original
	}
	logger.Info("expanded draft generated", logging.Int("characters", TextLength(expanded.Content)))
	return expanded
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
