package testsupport

import (
	"context"
	"testing"
	"time"

	"podpress/internal/config"
	"podpress/internal/quota"
)

// MustOpenLedger opens the quota ledger configured by cfg and registers
// cleanup. A nil clock uses time.Now.
func MustOpenLedger(t testing.TB, cfg *config.Config, clock func() time.Time) *quota.Ledger {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store, err := quota.OpenStore(cfg)
	if err != nil {
		t.Fatalf("quota.OpenStore: %v", err)
	}
	ledger, err := quota.NewLedger(store, quota.Options{
		Limit:         cfg.Limits.DailyLimit,
		Timezone:      cfg.Limits.Timezone,
		RetentionDays: cfg.Limits.RetentionDays,
		Clock:         clock,
	})
	if err != nil {
		store.Close()
		t.Fatalf("quota.NewLedger: %v", err)
	}
	t.Cleanup(func() {
		ledger.Close()
	})
	return ledger
}

// Consume charges n runs for client.
func Consume(t testing.TB, ledger *quota.Ledger, client string, n int) quota.Usage {
	t.Helper()

	var usage quota.Usage
	for i := 0; i < n; i++ {
		var err error
		usage, err = ledger.Consume(context.Background(), client)
		if err != nil {
			t.Fatalf("Consume #%d: %v", i+1, err)
		}
	}
	return usage
}
