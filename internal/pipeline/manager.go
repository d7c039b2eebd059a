package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"podpress/internal/config"
	"podpress/internal/logging"
	"podpress/internal/notifications"
	"podpress/internal/quota"
	"podpress/internal/services"
	"podpress/internal/tasks"
)

// TotalSteps is the number of stages in a job.
const TotalSteps = 4

// Step labels recorded on tasks.
const (
	LabelStarting      = "starting"
	LabelAcquisition   = "acquisition"
	LabelTranscription = "transcription"
	LabelGeneration    = "generation"
	LabelPublishing    = "publishing"
)

// Request describes one submission.
type Request struct {
	AudioURL   string
	EpisodeURL string
	// Overrides is a nested settings tree merged over the base configuration
	// for this job only.
	Overrides map[string]any
	// Client identifies the caller for quota accounting.
	Client string
}

// Manager accepts jobs and runs them on a worker pool.
type Manager struct {
	cfg      *config.Config
	registry *tasks.Registry
	ledger   *quota.Ledger
	stages   StageFactory
	notifier notifications.Service
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time

	pool    *pool
	ctx     context.Context
	cancel  context.CancelFunc
	stopped atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier replaces the notifier built from configuration.
func WithNotifier(n notifications.Service) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithIDGenerator replaces the task id source.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// WithClock replaces the clock used for task pruning.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a manager and starts its workers.
func NewManager(cfg *config.Config, registry *tasks.Registry, ledger *quota.Ledger, stages StageFactory, opts ...Option) (*Manager, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("pipeline: config is required")
	case registry == nil:
		return nil, errors.New("pipeline: task registry is required")
	case ledger == nil:
		return nil, errors.New("pipeline: quota ledger is required")
	case stages == nil:
		return nil, errors.New("pipeline: stage factory is required")
	}
	m := &Manager{
		cfg:      cfg,
		registry: registry,
		ledger:   ledger,
		stages:   stages,
		notifier: notifications.NewService(cfg),
		logger:   logging.NewNop(),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "pipeline")
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.pool = newPool(cfg.Workflow.Workers, cfg.Workflow.QueueSize)
	return m, nil
}

// Submit validates req, reserves a queue position, charges the quota and
// queues the job. It returns the task id before any stage runs and never
// blocks on a full queue. A refused quota yields *QuotaExceeded and no task
// is created; a full queue yields ErrBusy without charging.
func (m *Manager) Submit(ctx context.Context, req Request) (string, error) {
	if m.stopped.Load() {
		return "", ErrStopped
	}
	req.AudioURL = strings.TrimSpace(req.AudioURL)
	req.EpisodeURL = strings.TrimSpace(req.EpisodeURL)
	if err := validateAudioURL(req.AudioURL); err != nil {
		return "", err
	}

	effective, err := m.cfg.WithOverrides(req.Overrides)
	if err != nil {
		return "", fmt.Errorf("%w: settings: %v", ErrInvalidRequest, err)
	}
	stages, err := m.stages(effective)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "pipeline", "build stages", "", err)
	}

	slot, err := m.pool.reserve()
	switch {
	case errors.Is(err, errPoolClosed):
		return "", ErrStopped
	case err != nil:
		return "", ErrBusy
	}

	usage, err := m.ledger.Consume(ctx, req.Client)
	if err != nil {
		slot.release()
		if errors.Is(err, quota.ErrLimitReached) {
			return "", &QuotaExceeded{Limit: usage.Limit, Used: usage.Used, Reset: usage.NextReset}
		}
		return "", err
	}

	id := m.newID()
	m.registry.Create(id, TotalSteps)
	m.progress(id, 1, LabelStarting, "processing started")

	m.logger.Info("job accepted",
		logging.String(logging.FieldEventType, "job_accepted"),
		logging.String(logging.FieldTaskID, id),
		logging.String(logging.FieldClient, req.Client),
		logging.String("audio_url", req.AudioURL),
		logging.Int("quota_used", usage.Used),
		logging.Int("quota_limit", usage.Limit),
	)

	j := job{id: id, req: req, cfg: effective, stages: stages, usage: usage}
	slot.run(func() { m.run(j) })
	return id, nil
}

func validateAudioURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: audio url is required", ErrInvalidRequest)
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: audio url must be an http or https address", ErrInvalidRequest)
	}
	return nil
}

// Task returns a snapshot of the task.
func (m *Manager) Task(id string) (tasks.Task, bool) {
	return m.registry.Get(id)
}

// Tasks lists known tasks, most recent first.
func (m *Manager) Tasks() []tasks.Summary {
	return m.registry.List()
}

// Usage reports today's quota for client.
func (m *Manager) Usage(ctx context.Context, client string) (quota.Usage, error) {
	return m.ledger.UsageInfo(ctx, client)
}

// PruneTasks drops finished tasks older than workflow.task_retention_hours.
func (m *Manager) PruneTasks() int {
	hours := m.cfg.Workflow.TaskRetentionHours
	if hours <= 0 {
		return 0
	}
	removed := m.registry.Prune(m.now().Add(-time.Duration(hours) * time.Hour))
	if removed > 0 {
		m.logger.Debug("pruned finished tasks",
			logging.String(logging.FieldEventType, "tasks_pruned"),
			logging.Int("removed", removed),
		)
	}
	return removed
}

// Stop rejects new jobs and waits for queued and running jobs to finish.
func (m *Manager) Stop() {
	if !m.stopped.CompareAndSwap(false, true) {
		return
	}
	m.pool.stop()
	m.cancel()
}
