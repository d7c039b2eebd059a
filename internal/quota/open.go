package quota

import (
	"fmt"
	"log/slog"

	"podpress/internal/config"
)

// OpenStore opens the store selected by limits.store.
func OpenStore(cfg *config.Config) (Store, error) {
	switch cfg.Limits.Store {
	case config.StoreJSON:
		return OpenFileStore(cfg.QuotaFilePath())
	case config.StoreSQLite, "":
		return OpenSQLiteStore(cfg.QuotaDBPath())
	default:
		return nil, fmt.Errorf("quota: unsupported store %q", cfg.Limits.Store)
	}
}

// Open builds a ledger from configuration.
func Open(cfg *config.Config, logger *slog.Logger) (*Ledger, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	ledger, err := NewLedger(store, Options{
		Limit:         cfg.Limits.DailyLimit,
		Timezone:      cfg.Limits.Timezone,
		RetentionDays: cfg.Limits.RetentionDays,
		Logger:        logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return ledger, nil
}
