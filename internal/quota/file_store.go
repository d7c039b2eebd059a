package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// FileStore persists the ledger as a single JSON document keyed by day:
//
//	{"2024-05-01": {"total": 3, "ips": {"203.0.113.7": 2, "198.51.100.4": 1}}}
//
// Every operation holds an exclusive lock on "<path>.lock" so several
// processes sharing the file observe atomic read-modify-write cycles.
type FileStore struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// OpenFileStore prepares a JSON file store at path. The file is created lazily.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("quota: file store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("quota: ensure directory: %w", err)
	}
	return &FileStore{path: path, lock: flock.New(path + ".lock")}, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context, day string) (Day, error) {
	var out Day
	err := s.withLock(ctx, func(days map[string]Day) (bool, error) {
		out = days[day].clone()
		return false, nil
	})
	return out, err
}

func (s *FileStore) Increment(ctx context.Context, day, client string, limit int) (Day, bool, error) {
	var (
		out Day
		ok  bool
	)
	err := s.withLock(ctx, func(days map[string]Day) (bool, error) {
		var err error
		out, ok, err = incrementDays(days, day, client, limit)
		return ok, err
	})
	return out, ok, err
}

func (s *FileStore) Prune(ctx context.Context, before string) error {
	return s.withLock(ctx, func(days map[string]Day) (bool, error) {
		n := len(days)
		pruneDays(days, before)
		return len(days) != n, nil
	})
}

func (s *FileStore) Days(ctx context.Context) (map[string]Day, error) {
	var out map[string]Day
	err := s.withLock(ctx, func(days map[string]Day) (bool, error) {
		out = cloneDays(days)
		return false, nil
	})
	return out, err
}

func (s *FileStore) Close() error {
	return nil
}

// withLock loads the document under the file lock, runs fn, and writes the
// document back when fn reports a change.
func (s *FileStore) withLock(ctx context.Context, fn func(map[string]Day) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("quota: lock %s: %w", s.lock.Path(), err)
	}
	defer func() { _ = s.lock.Unlock() }()

	days, err := s.read()
	if err != nil {
		return err
	}
	changed, err := fn(days)
	if err != nil || !changed {
		return err
	}
	return s.write(days)
}

func (s *FileStore) read() (map[string]Day, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]Day), nil
	}
	if err != nil {
		return nil, fmt.Errorf("quota: read %s: %w", s.path, err)
	}
	days := make(map[string]Day)
	if len(data) == 0 {
		return days, nil
	}
	if err := json.Unmarshal(data, &days); err != nil {
		return nil, fmt.Errorf("quota: decode %s: %w", s.path, err)
	}
	return days, nil
}

func (s *FileStore) write(days map[string]Day) error {
	data, err := json.MarshalIndent(days, "", "  ")
	if err != nil {
		return fmt.Errorf("quota: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".usage-*.json")
	if err != nil {
		return fmt.Errorf("quota: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("quota: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("quota: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("quota: replace %s: %w", s.path, err)
	}
	return nil
}
