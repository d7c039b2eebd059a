package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podpress/internal/config"
)

const userAgent = "podpress/0.1"

// Event identifies a notification kind.
type Event string

const (
	EventTaskCompleted  Event = "task_completed"
	EventTaskFailed     Event = "task_failed"
	EventPublishFailed  Event = "publish_failed"
	EventQuotaExhausted Event = "quota_exhausted"
	EventTest           Event = "test"
)

// Payload carries event fields. Known keys: title, task_id, url, error,
// stage, limit, reset.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy notifier when a topic is configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		completion: cfg.Notifications.Completion,
		errors:     cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	completion bool
	errors     bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventTaskCompleted:
		return n.completion
	case EventTaskFailed, EventPublishFailed, EventQuotaExhausted:
		return n.errors
	default:
		return true
	}
}

func format(event Event, payload Payload) (message, bool) {
	title := payload.text("title")
	taskID := payload.text("task_id")
	switch event {
	case EventTaskCompleted:
		body := fmt.Sprintf("✅ Article ready: %s", fallback(title, taskID))
		if url := payload.text("url"); url != "" {
			body += "\n" + url
		}
		return message{
			title:    "podpress - Complete",
			body:     body,
			tags:     []string{"podpress", "article", "completed"},
			priority: "high",
		}, true
	case EventTaskFailed:
		body := "❌ Task " + fallback(taskID, "unknown")
		if stage := payload.text("stage"); stage != "" {
			body += " failed during " + stage
		} else {
			body += " failed"
		}
		body += ": " + fallback(payload.text("error"), "unknown error")
		return message{
			title:    "podpress - Error",
			body:     body,
			tags:     []string{"podpress", "error", "alert"},
			priority: "high",
		}, true
	case EventPublishFailed:
		return message{
			title: "podpress - Publish Failed",
			body: fmt.Sprintf("⚠️ Could not publish %s; the article is kept on task %s",
				fallback(title, "article"), fallback(taskID, "unknown")),
			tags: []string{"podpress", "wordpress", "failed"},
		}, true
	case EventQuotaExhausted:
		return message{
			title: "podpress - Daily Limit Reached",
			body:  fmt.Sprintf("Daily limit of %s reached; resets at %s", payload.text("limit"), payload.text("reset")),
			tags:  []string{"podpress", "quota"},
		}, true
	case EventTest:
		return message{
			title:    "podpress - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"podpress", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case time.Time:
		return v.Format("2006-01-02 15:04:05 MST")
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func fallback(value, alt string) string {
	if value == "" {
		return alt
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
