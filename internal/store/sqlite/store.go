// Package sqlite provides the durable candle store and the signal outcome
// journal. A single-writer connection with WAL mode and transaction batching
// keeps inserts off the hot path.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"signal-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 50
	defaultFlushDelay = 500 * time.Millisecond
)

// Config configures the SQLite store.
type Config struct {
	Path string // database file path, e.g. "data/candles.db"
}

// Store persists 1-minute candles and signal lifecycle events.
type Store struct {
	db *sql.DB

	// OnBatchCommit is called with the duration of each successful batch
	// commit (optional, metrics hook).
	OnBatchCommit func(d time.Duration)
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database, enables WAL mode and creates the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.Path)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles_1m (
			pair   TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			ticks  INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (pair, ts)
		);

		CREATE TABLE IF NOT EXISTS signal_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			trace_id   TEXT    NOT NULL,
			pair       TEXT    NOT NULL,
			event      TEXT    NOT NULL,
			direction  TEXT,
			gale       INTEGER,
			price      REAL,
			rsi        REAL,
			note       TEXT,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_signal_events_trace ON signal_events(trace_id);
	`)
	return err
}

// Append inserts a single candle (used by the tiered reader path; the
// collector uses the batched Run loop instead).
func (s *Store) Append(ctx context.Context, c model.Candle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO candles_1m (pair, ts, open, high, low, close, ticks)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.Pair, c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Ticks)
	if err != nil {
		return fmt.Errorf("sqlite insert candle: %w", err)
	}
	return nil
}

// RecentN returns up to n candles for pair, newest first.
func (s *Store) RecentN(ctx context.Context, pair string, n int) ([]model.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pair, ts, open, high, low, close, ticks
		FROM candles_1m
		WHERE pair = ?
		ORDER BY ts DESC
		LIMIT ?
	`, pair, n)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var tsUnix int64
		if err := rows.Scan(&c.Pair, &tsUnix, &c.Open, &c.High, &c.Low, &c.Close, &c.Ticks); err != nil {
			return nil, fmt.Errorf("sqlite scan candle: %w", err)
		}
		c.TS = time.Unix(tsUnix, 0).UTC()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// Run reads candles from candleCh and inserts them in batched transactions.
// Flushes every defaultBatchSize candles or every defaultFlushDelay,
// whichever comes first. Blocks until ctx is cancelled or candleCh closes.
func (s *Store) Run(ctx context.Context, candleCh <-chan model.Candle) {
	batch := make([]model.Candle, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := s.insertBatch(batch); err != nil {
			log.Printf("[sqlite] batch insert error: %v", err)
		} else {
			log.Printf("[sqlite] committed %d candles in %v", len(batch), time.Since(start))
			if s.OnBatchCommit != nil {
				s.OnBatchCommit(time.Since(start))
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case c, ok := <-candleCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, c)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

func (s *Store) insertBatch(candles []model.Candle) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles_1m (pair, ts, open, high, low, close, ticks)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(c.Pair, c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Ticks); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// RecordSignalEvent appends one lifecycle transition to the journal.
func (s *Store) RecordSignalEvent(ctx context.Context, ev model.SignalEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signal_events (trace_id, pair, event, direction, gale, price, rsi, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.TraceID, ev.Pair, ev.Event, string(ev.Direction), ev.Gale, ev.Price, ev.RSI, ev.Note, ev.At.Unix())
	if err != nil {
		return fmt.Errorf("sqlite insert signal event: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
