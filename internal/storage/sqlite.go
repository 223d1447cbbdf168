package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotOpen is returned by conditional writes when the giveaway is missing or already finished
var ErrNotOpen = errors.New("giveaway is not open")

// Store wraps the SQLite database holding giveaway state
type Store struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Open initializes the SQLite database connection with WAL mode and runs migrations
func Open(dbPath string) (*Store, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		absPath, err := filepath.Abs(dbPath)
		if err != nil {
			return nil, err
		}
		dsn = absPath
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// One connection serializes writers and keeps :memory: databases alive across queries
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// runMigrations creates the necessary tables
func (s *Store) runMigrations() error {
	giveawaysTable := `
		CREATE TABLE IF NOT EXISTS giveaways (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT UNIQUE NOT NULL,
			organizer_link TEXT NOT NULL,
			prize_count INTEGER NOT NULL,
			prize_label TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'finished')),
			created_at INTEGER NOT NULL,
			start_at INTEGER,
			end_at INTEGER,
			results_at INTEGER,
			CHECK ((status = 'finished') = (results_at IS NOT NULL))
		)
	`

	participantsTable := `
		CREATE TABLE IF NOT EXISTS participants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tg_id INTEGER NOT NULL,
			giveaway_code TEXT NOT NULL,
			joined_at INTEGER NOT NULL,
			UNIQUE (tg_id, giveaway_code),
			FOREIGN KEY (giveaway_code) REFERENCES giveaways(code)
		)
	`

	winnersTable := `
		CREATE TABLE IF NOT EXISTS winners (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			giveaway_code TEXT NOT NULL,
			tg_id INTEGER NOT NULL,
			place INTEGER NOT NULL,
			UNIQUE (giveaway_code, place),
			UNIQUE (giveaway_code, tg_id),
			FOREIGN KEY (giveaway_code) REFERENCES giveaways(code)
		)
	`

	deliveriesTable := `
		CREATE TABLE IF NOT EXISTS deliveries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id TEXT NOT NULL,
			giveaway_code TEXT NOT NULL,
			kind TEXT NOT NULL,
			tg_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)
	`

	// Create indexes for better query performance
	createIndexes := `
		CREATE INDEX IF NOT EXISTS idx_participants_code_joined ON participants(giveaway_code, joined_at);
		CREATE INDEX IF NOT EXISTS idx_deliveries_batch ON deliveries(batch_id);
		CREATE INDEX IF NOT EXISTS idx_deliveries_code_created ON deliveries(giveaway_code, created_at);
	`

	for _, stmt := range []string{giveawaysTable, participantsTable, winnersTable, deliveriesTable, createIndexes} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}

// toMillis converts a time to the stored representation (unix milliseconds, UTC)
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// fromMillis converts the stored representation back to a UTC time
func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}
