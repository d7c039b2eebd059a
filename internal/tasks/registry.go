package tasks

import (
	"errors"
	"sort"
	"sync"
	"time"

	"podpress/internal/article"
)

// Log severities.
const (
	LevelInfo  = "INFO"
	LevelError = "ERROR"
)

// ErrNotFound is returned when a task id is unknown.
var ErrNotFound = errors.New("task not found")

// LogEntry is one line of a task's progress log.
type LogEntry struct {
	Time    time.Time `json:"timestamp"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Task is a snapshot of one pipeline run.
type Task struct {
	ID         string           `json:"task_id"`
	Step       int              `json:"step"`
	TotalSteps int              `json:"total_steps"`
	StepName   string           `json:"step_name"`
	Status     string           `json:"status"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Logs       []LogEntry       `json:"logs"`
	Result     *article.Article `json:"result,omitempty"`
}

// Failed reports whether an error has been recorded.
func (t Task) Failed() bool { return t.Error != "" }

// Done reports whether the task reached a terminal state.
func (t Task) Done() bool {
	return t.Failed() || (t.TotalSteps > 0 && t.Step >= t.TotalSteps && t.StepName == StepComplete)
}

// StepComplete is the label of a successfully finished task.
const StepComplete = "complete"

// Summary is the compact listing form of a task.
type Summary struct {
	ID        string    `json:"task_id"`
	Step      int       `json:"step"`
	StepName  string    `json:"step_name"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	HasResult bool      `json:"has_result"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Task) clone() Task {
	out := *t
	out.Logs = append([]LogEntry(nil), t.Logs...)
	if t.Result != nil {
		result := t.Result.Clone()
		out.Result = &result
	}
	return out
}

// Registry is a concurrency-safe map of tasks.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	now   func() time.Time
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task), now: time.Now}
}

// SetClock overrides the timestamp source.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if now != nil {
		r.now = now
	}
}

// Create registers a task at step 0 of total with an empty log. An existing
// task with the same id is replaced.
func (r *Registry) Create(id string, total int) Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	task := &Task{
		ID:         id,
		TotalSteps: total,
		CreatedAt:  now,
		UpdatedAt:  now,
		Logs:       []LogEntry{},
	}
	r.tasks[id] = task
	return task.clone()
}

// Update overwrites the progress fields and appends one log entry. The entry
// is ERROR with errMsg as its text when errMsg is non-empty, otherwise INFO
// with message.
func (r *Registry) Update(id string, step, total int, label, message, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return ErrNotFound
	}
	now := r.now()
	task.Step = step
	task.TotalSteps = total
	task.StepName = label
	task.Status = message
	task.Error = errMsg
	task.UpdatedAt = now

	entry := LogEntry{Time: now, Level: LevelInfo, Message: message}
	if errMsg != "" {
		entry.Level = LevelError
		entry.Message = errMsg
	}
	task.Logs = append(task.Logs, entry)
	return nil
}

// SetResult attaches the generated article.
func (r *Registry) SetResult(id string, result article.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return ErrNotFound
	}
	stored := result.Clone()
	task.Result = &stored
	task.UpdatedAt = r.now()
	return nil
}

// Get returns a snapshot of the task.
func (r *Registry) Get(id string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return task.clone(), true
}

// List returns summaries ordered by most recent update first.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	out := make([]Summary, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, Summary{
			ID:        task.ID,
			Step:      task.Step,
			StepName:  task.StepName,
			Status:    task.Status,
			Error:     task.Error,
			HasResult: task.Result != nil,
			UpdatedAt: task.UpdatedAt,
		})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Prune removes terminal tasks last updated before cutoff and returns how many
// were dropped. Running tasks are kept regardless of age.
func (r *Registry) Prune(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, task := range r.tasks {
		if task.Done() && task.UpdatedAt.Before(cutoff) {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
