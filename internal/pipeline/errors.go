package pipeline

import (
	"errors"
	"fmt"
	"time"

	"podpress/internal/quota"
	"podpress/internal/services"
)

// Kind classifies a stage failure.
type Kind string

const (
	KindAcquisition   Kind = "acquisition_failure"
	KindTranscription Kind = "transcription_failure"
	KindGeneration    Kind = "generation_failure"
	KindAuth          Kind = "auth_failure"
	KindPublish       Kind = "publish_failure"
)

// StageError is a failure raised by one pipeline stage.
type StageError struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed", e.Stage)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// KindOf returns the failure kind carried by err, or "" when err is not a
// stage failure.
func KindOf(err error) Kind {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	return ""
}

// QuotaExceeded is returned by Submit when the daily limit is used up.
type QuotaExceeded struct {
	Limit int
	Used  int
	Reset time.Time
}

func (e *QuotaExceeded) Error() string {
	return fmt.Sprintf("daily limit of %d reached; resets at %s", e.Limit, e.Reset.Format("2006-01-02 15:04:05 MST"))
}

func (e *QuotaExceeded) Unwrap() error { return quota.ErrLimitReached }

var (
	// ErrInvalidRequest marks submissions rejected before quota is charged.
	ErrInvalidRequest = fmt.Errorf("%w: invalid request", services.ErrValidation)
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("pipeline stopped")
	// ErrBusy is returned by Submit when every queue position is taken.
	ErrBusy = errors.New("pipeline queue full")
)
