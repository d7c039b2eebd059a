package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"podpress/internal/logging"
)

// DayLayout is the format of ledger day keys.
const DayLayout = "2006-01-02"

// ErrLimitReached is returned by Consume when today's total already equals the limit.
var ErrLimitReached = errors.New("daily limit reached")

// Day is one ledger record.
type Day struct {
	Total   int            `json:"total"`
	Clients map[string]int `json:"ips"`
}

func (d Day) clone() Day {
	out := Day{Total: d.Total, Clients: make(map[string]int, len(d.Clients))}
	for k, v := range d.Clients {
		out.Clients[k] = v
	}
	return out
}

// Store persists day records. Increment must only increase the day total
// when it is below limit, and report whether it did.
type Store interface {
	Load(ctx context.Context, day string) (Day, error)
	Increment(ctx context.Context, day, client string, limit int) (Day, bool, error)
	Prune(ctx context.Context, before string) error
	Days(ctx context.Context) (map[string]Day, error)
	Close() error
}

// Usage describes today's consumption from a client's point of view.
type Usage struct {
	Day        string    `json:"day"`
	Used       int       `json:"used"`
	ClientUsed int       `json:"client_used"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	CanUse     bool      `json:"can_use"`
	NextReset  time.Time `json:"next_reset"`
}

// NextResetLabel renders the reset instant in the ledger timezone.
func (u Usage) NextResetLabel() string {
	return u.NextReset.Format("2006-01-02 15:04:05 MST")
}

// Options configures a Ledger.
type Options struct {
	Limit         int
	Timezone      string
	RetentionDays int
	Clock         func() time.Time
	Logger        *slog.Logger
}

// Ledger enforces the daily limit over a Store.
type Ledger struct {
	mu        sync.Mutex
	store     Store
	limit     int
	loc       *time.Location
	retention int
	now       func() time.Time
	logger    *slog.Logger
}

// NewLedger constructs a ledger over store.
func NewLedger(store Store, opts Options) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("quota: store is required")
	}
	if opts.Limit < 1 {
		return nil, fmt.Errorf("quota: limit must be positive, got %d", opts.Limit)
	}
	tz := strings.TrimSpace(opts.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("quota: load timezone %q: %w", tz, err)
	}
	retention := opts.RetentionDays
	if retention <= 0 {
		retention = 7
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Ledger{
		store:     store,
		limit:     opts.Limit,
		loc:       loc,
		retention: retention,
		now:       clock,
		logger:    logging.NewComponentLogger(opts.Logger, "quota"),
	}, nil
}

// Limit returns the configured daily limit.
func (l *Ledger) Limit() int { return l.limit }

// Location returns the ledger timezone.
func (l *Ledger) Location() *time.Location { return l.loc }

// DayKey returns the ledger key for t.
func (l *Ledger) DayKey(t time.Time) string {
	return t.In(l.loc).Format(DayLayout)
}

// NextReset returns the start of the day following t in the ledger timezone.
func (l *Ledger) NextReset(t time.Time) time.Time {
	local := t.In(l.loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, l.loc)
}

// UsageInfo reports today's usage for client without mutating the ledger.
func (l *Ledger) UsageInfo(ctx context.Context, client string) (Usage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := l.DayKey(now)
	day, err := l.store.Load(ctx, key)
	if err != nil {
		return Usage{}, fmt.Errorf("quota: load %s: %w", key, err)
	}
	return l.usage(now, key, day, client), nil
}

// Consume records one run for client. When today's total already equals the
// limit it returns ErrLimitReached and leaves the ledger untouched. The
// returned Usage reflects the state after the call either way.
func (l *Ledger) Consume(ctx context.Context, client string) (Usage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := l.DayKey(now)
	day, ok, err := l.store.Increment(ctx, key, client, l.limit)
	if err != nil {
		return Usage{}, fmt.Errorf("quota: increment %s: %w", key, err)
	}
	usage := l.usage(now, key, day, client)
	if !ok {
		l.logger.Info("daily limit reached",
			logging.String(logging.FieldEventType, "quota_refused"),
			logging.String(logging.FieldClient, client),
			logging.Int("limit", l.limit),
			logging.String("next_reset", usage.NextResetLabel()),
		)
		return usage, ErrLimitReached
	}

	cutoff := l.DayKey(now.In(l.loc).AddDate(0, 0, -l.retention))
	if err := l.store.Prune(ctx, cutoff); err != nil {
		logging.WarnWithContext(l.logger, "quota retention cleanup failed", "quota_prune_failed",
			logging.String("cutoff", cutoff),
			logging.Error(err),
		)
	}

	l.logger.Debug("quota consumed",
		logging.String(logging.FieldEventType, "quota_consumed"),
		logging.String(logging.FieldClient, client),
		logging.Int("used", usage.Used),
		logging.Int("limit", l.limit),
	)
	return usage, nil
}

// History returns the retained day records.
func (l *Ledger) History(ctx context.Context) (map[string]Day, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Days(ctx)
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	if l == nil || l.store == nil {
		return nil
	}
	return l.store.Close()
}

func (l *Ledger) usage(now time.Time, key string, day Day, client string) Usage {
	remaining := l.limit - day.Total
	if remaining < 0 {
		remaining = 0
	}
	return Usage{
		Day:        key,
		Used:       day.Total,
		ClientUsed: day.Clients[client],
		Limit:      l.limit,
		Remaining:  remaining,
		CanUse:     day.Total < l.limit,
		NextReset:  l.NextReset(now),
	}
}
