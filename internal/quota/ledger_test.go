package quota_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"podpress/internal/quota"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

type storeFactory func(t *testing.T) quota.Store

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) quota.Store { return quota.NewMemoryStore() },
		"json": func(t *testing.T) quota.Store {
			store, err := quota.OpenFileStore(filepath.Join(t.TempDir(), "usage_data.json"))
			if err != nil {
				t.Fatalf("OpenFileStore: %v", err)
			}
			return store
		},
		"sqlite": func(t *testing.T) quota.Store {
			store, err := quota.OpenSQLiteStore(filepath.Join(t.TempDir(), "quota.db"))
			if err != nil {
				t.Fatalf("OpenSQLiteStore: %v", err)
			}
			return store
		},
	}
}

func newLedger(t *testing.T, store quota.Store, clock *fakeClock, limit int) *quota.Ledger {
	t.Helper()
	ledger, err := quota.NewLedger(store, quota.Options{
		Limit:         limit,
		Timezone:      "Asia/Tokyo",
		RetentionDays: 7,
		Clock:         clock.Now,
	})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestConsumeUntilLimitThenRefuse(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, tokyo(t))}
			ledger := newLedger(t, factory(t), clock, 5)
			ctx := context.Background()

			for i := 1; i <= 5; i++ {
				usage, err := ledger.Consume(ctx, "203.0.113.7")
				if err != nil {
					t.Fatalf("consume %d: %v", i, err)
				}
				if usage.Used != i || usage.Remaining != 5-i {
					t.Fatalf("consume %d: unexpected usage %+v", i, usage)
				}
			}

			usage, err := ledger.UsageInfo(ctx, "203.0.113.7")
			if err != nil {
				t.Fatalf("UsageInfo: %v", err)
			}
			if usage.Remaining != 0 || usage.CanUse {
				t.Fatalf("expected exhausted quota, got %+v", usage)
			}
			if usage.ClientUsed != 5 {
				t.Fatalf("expected per-client count 5, got %d", usage.ClientUsed)
			}

			refused, err := ledger.Consume(ctx, "198.51.100.4")
			if !errors.Is(err, quota.ErrLimitReached) {
				t.Fatalf("expected ErrLimitReached, got %v", err)
			}
			if refused.Used != 5 {
				t.Fatalf("refusal must not mutate state, got %+v", refused)
			}
			after, _ := ledger.UsageInfo(ctx, "198.51.100.4")
			if after.Used != 5 || after.ClientUsed != 0 {
				t.Fatalf("refusal mutated the ledger: %+v", after)
			}

			clock.Set(time.Date(2024, 5, 2, 0, 0, 1, 0, tokyo(t)))
			next, err := ledger.UsageInfo(ctx, "203.0.113.7")
			if err != nil {
				t.Fatalf("UsageInfo next day: %v", err)
			}
			if next.Remaining != 5 || !next.CanUse || next.Day != "2024-05-02" {
				t.Fatalf("expected fresh quota on next day, got %+v", next)
			}
		})
	}
}

func TestNextResetIsMidnightInLedgerTimezone(t *testing.T) {
	loc := tokyo(t)
	// 23:30 UTC on April 30 is already May 1 in Tokyo.
	clock := &fakeClock{now: time.Date(2024, 4, 30, 23, 30, 0, 0, time.UTC)}
	ledger := newLedger(t, quota.NewMemoryStore(), clock, 5)

	usage, err := ledger.UsageInfo(context.Background(), "c")
	if err != nil {
		t.Fatalf("UsageInfo: %v", err)
	}
	if usage.Day != "2024-05-01" {
		t.Fatalf("expected Tokyo day key, got %q", usage.Day)
	}
	want := time.Date(2024, 5, 2, 0, 0, 0, 0, loc)
	if !usage.NextReset.Equal(want) {
		t.Fatalf("next reset = %v, want %v", usage.NextReset, want)
	}
	if label := usage.NextResetLabel(); label != "2024-05-02 00:00:00 JST" {
		t.Fatalf("unexpected reset label %q", label)
	}
}

func TestConsumePrunesOldDays(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			loc := tokyo(t)
			clock := &fakeClock{}
			ledger := newLedger(t, factory(t), clock, 5)
			ctx := context.Background()

			for _, day := range []int{1, 2, 3} {
				clock.Set(time.Date(2024, 5, day, 12, 0, 0, 0, loc))
				if _, err := ledger.Consume(ctx, "c"); err != nil {
					t.Fatalf("consume on day %d: %v", day, err)
				}
			}

			// 2024-05-10 minus 7 days is 2024-05-03; earlier keys must go.
			clock.Set(time.Date(2024, 5, 10, 12, 0, 0, 0, loc))
			if _, err := ledger.Consume(ctx, "c"); err != nil {
				t.Fatalf("consume: %v", err)
			}

			history, err := ledger.History(ctx)
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			for _, gone := range []string{"2024-05-01", "2024-05-02"} {
				if _, ok := history[gone]; ok {
					t.Fatalf("expected %s to be pruned, history=%v", gone, history)
				}
			}
			for _, kept := range []string{"2024-05-03", "2024-05-10"} {
				if _, ok := history[kept]; !ok {
					t.Fatalf("expected %s to be retained, history=%v", kept, history)
				}
			}
		})
	}
}

func TestConcurrentConsumeNeverOvershoots(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, tokyo(t))}
			ledger := newLedger(t, factory(t), clock, 5)
			ctx := context.Background()

			var (
				wg      sync.WaitGroup
				granted atomic.Int32
				refused atomic.Int32
			)
			for i := 0; i < 40; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := ledger.Consume(ctx, "burst")
					switch {
					case err == nil:
						granted.Add(1)
					case errors.Is(err, quota.ErrLimitReached):
						refused.Add(1)
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			if granted.Load() != 5 || refused.Load() != 35 {
				t.Fatalf("granted=%d refused=%d, want 5/35", granted.Load(), refused.Load())
			}
			usage, _ := ledger.UsageInfo(ctx, "burst")
			if usage.Used != 5 {
				t.Fatalf("total overshot the limit: %+v", usage)
			}
		})
	}
}

func TestStoresShareStateAcrossLedgers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage_data.json")
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, tokyo(t))}

	var ledgers []*quota.Ledger
	for i := 0; i < 2; i++ {
		store, err := quota.OpenFileStore(path)
		if err != nil {
			t.Fatalf("OpenFileStore: %v", err)
		}
		ledgers = append(ledgers, newLedger(t, store, clock, 3))
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	var granted atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(l *quota.Ledger) {
			defer wg.Done()
			if _, err := l.Consume(ctx, "c"); err == nil {
				granted.Add(1)
			}
		}(ledgers[i%2])
	}
	wg.Wait()
	if granted.Load() != 3 {
		t.Fatalf("expected exactly 3 grants across processes sharing the file, got %d", granted.Load())
	}
}

func TestNewLedgerValidatesOptions(t *testing.T) {
	if _, err := quota.NewLedger(nil, quota.Options{Limit: 1}); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := quota.NewLedger(quota.NewMemoryStore(), quota.Options{Limit: 0}); err == nil {
		t.Fatal("expected error for zero limit")
	}
	if _, err := quota.NewLedger(quota.NewMemoryStore(), quota.Options{Limit: 1, Timezone: "Nowhere/Land"}); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
