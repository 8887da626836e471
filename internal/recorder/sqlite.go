package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists cycle history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database at dbPath and runs
// migrations. The parent directory is created if needed.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cycles (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id      TEXT NOT NULL UNIQUE,
			started_at    INTEGER NOT NULL,
			finished_at   INTEGER NOT NULL,
			entries       INTEGER NOT NULL,
			failed_pages  TEXT NOT NULL DEFAULT '',
			persist_error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_started ON cycles(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordCycle inserts one row per cycle. Timestamps are stored as unix
// milliseconds; failed pages as a comma-separated list.
func (r *SQLiteRecorder) RecordCycle(ctx context.Context, rec *CycleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO cycles
		(cycle_id, started_at, finished_at, entries, failed_pages, persist_error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.CycleID,
		rec.StartedAt.UnixMilli(),
		rec.FinishedAt.UnixMilli(),
		rec.Entries,
		joinPages(rec.FailedPages),
		rec.PersistError,
	)
	if err != nil {
		return fmt.Errorf("insert cycle %s: %w", rec.CycleID, err)
	}
	return nil
}

// Recent returns up to limit cycles, newest first
func (r *SQLiteRecorder) Recent(ctx context.Context, limit int) ([]CycleRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT cycle_id, started_at, finished_at, entries, failed_pages, persist_error
		FROM cycles ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var out []CycleRecord
	for rows.Next() {
		var (
			rec               CycleRecord
			started, finished int64
			pages             string
		)
		if err := rows.Scan(&rec.CycleID, &started, &finished, &rec.Entries, &pages, &rec.PersistError); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		rec.StartedAt = time.UnixMilli(started)
		rec.FinishedAt = time.UnixMilli(finished)
		rec.FailedPages, err = splitPages(pages)
		if err != nil {
			return nil, fmt.Errorf("cycle %s: %w", rec.CycleID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

func joinPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

func splitPages(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(s, ",") {
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad failed_pages value %q", s)
		}
		pages = append(pages, p)
	}
	return pages, nil
}
