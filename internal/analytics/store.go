// Package analytics is the default delivery pipeline behind the SDK's
// analytics side channel. Events are appended to a local SQLite store and
// flushed in rate-limited batches to the gateway's analytics URL, so a dead
// network never loses events and never blocks a business call.
package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/aussiebroadwan/tabpay/internal/analytics/migrations"
)

// Record is one persisted analytics event, flattened for storage. Timestamps
// are unix milliseconds.
type Record struct {
	ID           string
	Name         string
	Timestamp    int64
	SessionID    string
	Integration  string
	ContextID    string
	LinkType     string
	VaultRequest bool
	StartTime    int64
	EndTime      int64
	Endpoint     string
	MerchantID   string
	AnalyticsURL string
}

// Store is the SQLite-backed event queue.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at path. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single writer, short busy waits instead of immediate lock errors
	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// ApplyMigrations applies any pending schema migrations using the embedded
// migration files compiled into the binary.
func (s *Store) ApplyMigrations() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", source, "", driver)
	if err != nil {
		return err
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Enqueue appends one event record.
func (s *Store) Enqueue(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analytics_events (
			id, name, timestamp, session_id, integration, context_id,
			link_type, vault_request, start_time, end_time, endpoint,
			merchant_id, analytics_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Timestamp, rec.SessionID, rec.Integration,
		rec.ContextID, rec.LinkType, boolToInt(rec.VaultRequest),
		rec.StartTime, rec.EndTime, rec.Endpoint, rec.MerchantID,
		rec.AnalyticsURL,
	)
	return err
}

// NextBatch returns up to limit of the oldest queued records. Event IDs are
// ULIDs, so lexical order is insertion order.
func (s *Store) NextBatch(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, timestamp, session_id, integration, context_id,
		       link_type, vault_request, start_time, end_time, endpoint,
		       merchant_id, analytics_url
		FROM analytics_events
		ORDER BY id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var vault int
		if err := rows.Scan(
			&rec.ID, &rec.Name, &rec.Timestamp, &rec.SessionID,
			&rec.Integration, &rec.ContextID, &rec.LinkType, &vault,
			&rec.StartTime, &rec.EndTime, &rec.Endpoint, &rec.MerchantID,
			&rec.AnalyticsURL,
		); err != nil {
			return nil, err
		}
		rec.VaultRequest = vault != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Remove deletes delivered records by ID.
func (s *Store) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`DELETE FROM analytics_events WHERE id IN (%s)`, placeholders)
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// Count reports how many records are queued.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analytics_events`).Scan(&count)
	return count, err
}

// TrimOldest drops the oldest records until at most max remain, protecting
// the store from unbounded growth when the analytics backend is unreachable.
func (s *Store) TrimOldest(ctx context.Context, max int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM analytics_events
		WHERE id NOT IN (
			SELECT id FROM analytics_events ORDER BY id DESC LIMIT ?
		)`, max)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// unixMillis converts a time to the stored millisecond representation,
// keeping zero times at zero.
func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
