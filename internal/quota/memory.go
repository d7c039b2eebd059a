package quota

import (
	"context"
	"sync"
)

// MemoryStore keeps the ledger in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	days map[string]Day
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{days: make(map[string]Day)}
}

func (s *MemoryStore) Load(_ context.Context, day string) (Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.days[day].clone(), nil
}

func (s *MemoryStore) Increment(_ context.Context, day, client string, limit int) (Day, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return incrementDays(s.days, day, client, limit)
}

func (s *MemoryStore) Prune(_ context.Context, before string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pruneDays(s.days, before)
	return nil
}

func (s *MemoryStore) Days(_ context.Context) (map[string]Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneDays(s.days), nil
}

func (s *MemoryStore) Close() error { return nil }

func incrementDays(days map[string]Day, day, client string, limit int) (Day, bool, error) {
	record := days[day].clone()
	if record.Total >= limit {
		return record, false, nil
	}
	record.Total++
	record.Clients[client]++
	days[day] = record
	return record.clone(), true, nil
}

// pruneDays removes keys that sort before the cutoff; day keys are
// zero-padded dates so lexical order matches chronological order.
func pruneDays(days map[string]Day, before string) {
	for key := range days {
		if key < before {
			delete(days, key)
		}
	}
}

func cloneDays(days map[string]Day) map[string]Day {
	out := make(map[string]Day, len(days))
	for k, v := range days {
		out[k] = v.clone()
	}
	return out
}
