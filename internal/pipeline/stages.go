package pipeline

import (
	"context"
	"log/slog"
	"time"

	"podpress/internal/article"
	"podpress/internal/audio"
	"podpress/internal/config"
	"podpress/internal/publish"
	"podpress/internal/services/whisperx"
)

// Acquirer downloads the episode audio.
type Acquirer interface {
	Fetch(ctx context.Context, url string) (audio.Download, error)
}

// Transcriber converts audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, path, language string) (string, error)
}

// Generator writes an article from a transcript.
type Generator interface {
	Generate(ctx context.Context, transcript, episodeURL string) (article.Article, error)
}

// Publisher posts an article to WordPress.
type Publisher interface {
	Submit(ctx context.Context, a article.Article, settings publish.Settings) (publish.Result, error)
}

// Stages holds the collaborators for one job.
type Stages struct {
	Acquirer    Acquirer
	Transcriber Transcriber
	Generator   Generator
	Publisher   Publisher
}

// StageFactory builds the collaborators from a job's effective configuration.
type StageFactory func(cfg *config.Config) (Stages, error)

// DefaultStages wires the production collaborators.
func DefaultStages(logger *slog.Logger) StageFactory {
	return func(cfg *config.Config) (Stages, error) {
		backend, err := article.NewBackend(cfg)
		if err != nil {
			return Stages{}, err
		}
		return Stages{
			Acquirer:    audio.NewFetcher(cfg.Paths.WorkDir, audio.WithLogger(logger)),
			Transcriber: whisperx.NewService(whisperx.ConfigFromConfig(cfg), "", cfg.Paths.WorkDir),
			Generator:   article.New(backend, article.SettingsFromConfig(cfg), article.WithLogger(logger)),
			Publisher: publish.NewClient(
				publish.WithLogger(logger),
				publish.WithPause(time.Second),
			),
		}, nil
	}
}
