package api

import (
	"fmt"
	"time"

	"podpress/internal/deps"
	"podpress/internal/quota"
	"podpress/internal/tasks"
)

// dateTimeFormat is used for timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ProcessRequest is the body of POST /api/process.
type ProcessRequest struct {
	FileURL    string         `json:"file_url"`
	EpisodeURL string         `json:"episode_url"`
	Settings   map[string]any `json:"settings"`
}

// ProcessResponse acknowledges an accepted job.
type ProcessResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// ErrorResponse carries a caller-facing error.
type ErrorResponse struct {
	Error      string `json:"error"`
	DailyLimit int    `json:"daily_limit,omitempty"`
	NextReset  string `json:"next_reset,omitempty"`
}

// UsageInfo reports today's quota.
type UsageInfo struct {
	Day        string `json:"day"`
	TotalUsed  int    `json:"total_used"`
	ClientUsed int    `json:"ip_used"`
	DailyLimit int    `json:"daily_limit"`
	Remaining  int    `json:"remaining"`
	CanUse     bool   `json:"can_use"`
	NextReset  string `json:"next_reset"`
}

// FromUsage converts a ledger snapshot.
func FromUsage(u quota.Usage) UsageInfo {
	return UsageInfo{
		Day:        u.Day,
		TotalUsed:  u.Used,
		ClientUsed: u.ClientUsed,
		DailyLimit: u.Limit,
		Remaining:  u.Remaining,
		CanUse:     u.CanUse,
		NextReset:  u.NextResetLabel(),
	}
}

// TaskSummary is one row of the debug listing.
type TaskSummary struct {
	TaskID    string `json:"task_id"`
	Step      string `json:"step"`
	StepName  string `json:"step_name"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	HasResult bool   `json:"has_result"`
	Timestamp string `json:"timestamp"`
}

// TaskList wraps the debug listing.
type TaskList struct {
	Tasks []TaskSummary `json:"tasks"`
}

// FromSummaries converts registry summaries.
func FromSummaries(in []tasks.Summary, total int) TaskList {
	out := TaskList{Tasks: make([]TaskSummary, 0, len(in))}
	for _, s := range in {
		out.Tasks = append(out.Tasks, TaskSummary{
			TaskID:    s.ID,
			Step:      fmt.Sprintf("%d/%d", s.Step, total),
			StepName:  s.StepName,
			Status:    s.Status,
			Error:     s.Error,
			HasResult: s.HasResult,
			Timestamp: formatTime(s.UpdatedAt),
		})
	}
	return out
}

// WordPressSettings is the redacted view of [wordpress] echoed by the test
// endpoint.
type WordPressSettings struct {
	SiteURL  string `json:"site_url"`
	Username string `json:"username"`
	Status   string `json:"status"`
	Timeout  int    `json:"timeout"`
}

// WordPressTestResult reports a login and test post attempt.
type WordPressTestResult struct {
	Success      bool              `json:"success"`
	LoginSuccess bool              `json:"login_success"`
	Error        string            `json:"error,omitempty"`
	PostID       string            `json:"post_id,omitempty"`
	Settings     WordPressSettings `json:"settings"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Health summarises service readiness.
type Health struct {
	Status       string             `json:"status"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// FromDependencies converts dependency checks; status is "degraded" when a
// required binary is missing.
func FromDependencies(statuses []deps.Status) Health {
	health := Health{Status: "ok", Dependencies: make([]DependencyStatus, 0, len(statuses))}
	for _, s := range statuses {
		health.Dependencies = append(health.Dependencies, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Detail:      s.Detail,
		})
	}
	if len(deps.MissingRequired(statuses)) > 0 {
		health.Status = "degraded"
	}
	return health
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTimeFormat)
}
