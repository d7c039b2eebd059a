package quota

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current ledger schema version.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore persists the ledger in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens or creates the ledger database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("quota: ensure directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Load(ctx context.Context, day string) (Day, error) {
	out := Day{Clients: map[string]int{}}
	err := retryOnBusy(ctx, func() error {
		out = Day{Clients: map[string]int{}}
		return loadDay(ctx, s.db, day, &out)
	})
	return out, err
}

// Increment performs the limit check and both counter updates in one
// transaction; the guarded UPDATE affects no row once the total reaches limit.
func (s *SQLiteStore) Increment(ctx context.Context, day, client string, limit int) (Day, bool, error) {
	var (
		out Day
		ok  bool
	)
	err := retryOnBusy(ctx, func() error {
		out = Day{Clients: map[string]int{}}
		ok = false

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		now := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO usage_days (day, total, updated_at) VALUES (?, 0, ?) ON CONFLICT(day) DO NOTHING",
			day, now,
		); err != nil {
			return fmt.Errorf("ensure day: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE usage_days SET total = total + 1, updated_at = ? WHERE day = ? AND total < ?",
			now, day, limit,
		)
		if err != nil {
			return fmt.Errorf("increment total: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 1 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO usage_clients (day, client, count) VALUES (?, ?, 1)
				 ON CONFLICT(day, client) DO UPDATE SET count = count + 1`,
				day, client,
			); err != nil {
				return fmt.Errorf("increment client: %w", err)
			}
			ok = true
		}
		if err := loadDay(ctx, tx, day, &out); err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
	if err != nil {
		return Day{}, false, err
	}
	return out, ok, nil
}

func (s *SQLiteStore) Prune(ctx context.Context, before string) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, "DELETE FROM usage_clients WHERE day < ?", before); err != nil {
			return fmt.Errorf("prune clients: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM usage_days WHERE day < ?", before); err != nil {
			return fmt.Errorf("prune days: %w", err)
		}
		return tx.Commit()
	})
}

func (s *SQLiteStore) Days(ctx context.Context) (map[string]Day, error) {
	out := make(map[string]Day)
	err := retryOnBusy(ctx, func() error {
		out = make(map[string]Day)
		rows, err := s.db.QueryContext(ctx, "SELECT day, total FROM usage_days ORDER BY day")
		if err != nil {
			return fmt.Errorf("query days: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				key   string
				total int
			)
			if err := rows.Scan(&key, &total); err != nil {
				return fmt.Errorf("scan day: %w", err)
			}
			out[key] = Day{Total: total, Clients: map[string]int{}}
		}
		if err := rows.Err(); err != nil {
			return err
		}

		clients, err := s.db.QueryContext(ctx, "SELECT day, client, count FROM usage_clients")
		if err != nil {
			return fmt.Errorf("query clients: %w", err)
		}
		defer clients.Close()
		for clients.Next() {
			var (
				key, client string
				count       int
			)
			if err := clients.Scan(&key, &client, &count); err != nil {
				return fmt.Errorf("scan client: %w", err)
			}
			if record, ok := out[key]; ok {
				record.Clients[client] = count
			}
		}
		return clients.Err()
	})
	return out, err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadDay(ctx context.Context, q querier, day string, out *Day) error {
	err := q.QueryRowContext(ctx, "SELECT total FROM usage_days WHERE day = ?", day).Scan(&out.Total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load day %s: %w", day, err)
	}
	rows, err := q.QueryContext(ctx, "SELECT client, count FROM usage_clients WHERE day = ?", day)
	if err != nil {
		return fmt.Errorf("load clients %s: %w", day, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			client string
			count  int
		)
		if err := rows.Scan(&client, &count); err != nil {
			return fmt.Errorf("scan client: %w", err)
		}
		out.Clients[client] = count
	}
	return rows.Err()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset the ledger)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
