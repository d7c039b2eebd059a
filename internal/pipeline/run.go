package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"podpress/internal/config"
	"podpress/internal/logging"
	"podpress/internal/notifications"
	"podpress/internal/publish"
	"podpress/internal/quota"
	"podpress/internal/services"
	"podpress/internal/tasks"
)

type job struct {
	id     string
	req    Request
	cfg    *config.Config
	stages Stages
	usage  quota.Usage
}

func (m *Manager) run(j job) {
	ctx := services.WithTaskID(m.ctx, j.id)
	ctx = services.WithClient(ctx, j.req.Client)
	logger := logging.WithContext(ctx, m.logger)

	defer func() {
		if r := recover(); r != nil {
			m.fail(ctx, logger, j, 0, "", &StageError{Stage: "pipeline", Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	if j.usage.Remaining == 0 {
		m.notify(ctx, logger, notifications.EventQuotaExhausted, notifications.Payload{
			"limit": strconv.Itoa(j.usage.Limit),
			"reset": j.usage.NextReset,
		})
	}

	m.progress(j.id, 1, LabelAcquisition, "downloading audio")
	download, err := j.stages.Acquirer.Fetch(services.WithStage(ctx, LabelAcquisition), j.req.AudioURL)
	if err != nil {
		m.fail(ctx, logger, j, 1, LabelAcquisition, &StageError{Kind: KindAcquisition, Stage: LabelAcquisition, Err: err})
		return
	}
	m.progress(j.id, 1, LabelAcquisition, "audio downloaded")

	m.progress(j.id, 2, LabelTranscription, "transcribing audio")
	transcript, err := j.stages.Transcriber.Transcribe(services.WithStage(ctx, LabelTranscription), download.Path, j.cfg.Transcription.Language)
	if rmErr := download.Remove(); rmErr != nil {
		logging.WarnWithContext(logger, "failed to remove downloaded audio", "audio_cleanup_failed",
			logging.String("path", download.Path),
			logging.Error(rmErr),
		)
	}
	if err != nil {
		m.fail(ctx, logger, j, 2, LabelTranscription, &StageError{Kind: KindTranscription, Stage: LabelTranscription, Err: err})
		return
	}
	m.progress(j.id, 2, LabelTranscription, fmt.Sprintf("transcript ready (%d characters)", utf8.RuneCountInString(transcript)))

	m.progress(j.id, 3, LabelGeneration, "generating article")
	result, err := j.stages.Generator.Generate(services.WithStage(ctx, LabelGeneration), transcript, j.req.EpisodeURL)
	if err != nil {
		m.fail(ctx, logger, j, 3, LabelGeneration, &StageError{Kind: KindGeneration, Stage: LabelGeneration, Err: err})
		return
	}
	if err := m.registry.SetResult(j.id, result); err != nil {
		logger.Error("failed to store article", logging.Error(err))
	}
	m.progress(j.id, 3, LabelGeneration, "article generated: "+result.Title)

	settings := publish.SettingsFromConfig(j.cfg)
	if !settings.Complete() {
		logger.Info("wordpress not configured, publishing skipped",
			logging.String(logging.FieldEventType, "publish_skipped"),
		)
		m.complete(ctx, logger, j, result.Title, "", "article generated; publishing skipped because WordPress is not configured")
		return
	}

	m.progress(j.id, 4, LabelPublishing, "publishing to WordPress")
	published, err := j.stages.Publisher.Submit(services.WithStage(ctx, LabelPublishing), result, settings)
	if err != nil {
		kind := KindPublish
		if publish.IsAuthFailure(err) {
			kind = KindAuth
		}
		m.fail(ctx, logger, j, 4, LabelPublishing, &StageError{Kind: kind, Stage: LabelPublishing, Err: err})
		return
	}
	message := "article generated and saved as a WordPress draft"
	if settings.Publishes() {
		message = "article generated and published to WordPress"
	}
	m.complete(ctx, logger, j, result.Title, published.FinalURL, message)
}

func (m *Manager) progress(id string, step int, label, message string) {
	if err := m.registry.Update(id, step, TotalSteps, label, message, ""); err != nil {
		m.logger.Warn("task update failed",
			logging.String(logging.FieldTaskID, id),
			logging.Error(err),
		)
	}
}

func (m *Manager) complete(ctx context.Context, logger *slog.Logger, j job, title, link, message string) {
	m.progress(j.id, TotalSteps, tasks.StepComplete, message)
	logger.Info("job complete",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("title", title),
		logging.String("url", link),
	)
	m.notify(ctx, logger, notifications.EventTaskCompleted, notifications.Payload{
		"title":   title,
		"task_id": j.id,
		"url":     link,
	})
}

func (m *Manager) fail(ctx context.Context, logger *slog.Logger, j job, step int, label string, stageErr *StageError) {
	if step == 0 {
		if task, ok := m.registry.Get(j.id); ok {
			step, label = task.Step, task.StepName
		}
	}
	if err := m.registry.Update(j.id, step, TotalSteps, label, "failed", stageErr.Error()); err != nil {
		logger.Warn("task update failed", logging.Error(err))
	}

	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.String(logging.FieldStage, stageErr.Stage),
		logging.String("error_kind", string(stageErr.Kind)),
		logging.String(logging.FieldErrorHint, services.FailureHint(stageErr.Err)),
		logging.Error(stageErr.Err),
	)

	event := notifications.EventTaskFailed
	payload := notifications.Payload{
		"task_id": j.id,
		"stage":   stageErr.Stage,
		"error":   stageErr.Err,
	}
	if stageErr.Kind == KindPublish || stageErr.Kind == KindAuth {
		event = notifications.EventPublishFailed
		if task, ok := m.registry.Get(j.id); ok && task.Result != nil {
			payload["title"] = task.Result.Title
		}
	}
	m.notify(ctx, logger, event, payload)
}

func (m *Manager) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}
