// Package storage persists analysis run history to SQLite, giving CI a
// queryable record of graph sizes and cache effectiveness over time.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Run is one recorded analysis of one project.
type Run struct {
	ID          string    `json:"id"`
	Project     string    `json:"project"`
	Config      string    `json:"config"`
	Platform    string    `json:"platform"`
	StartedAt   time.Time `json:"startedAt"`
	DurationMs  int64     `json:"durationMs"`
	Units       int       `json:"units"`
	Edges       int       `json:"edges"`
	CacheHits   int64     `json:"cacheHits"`
	CacheMisses int64     `json:"cacheMisses"`
}

// HitRate returns the cache hit rate for this run.
func (r *Run) HitRate() float64 {
	total := r.CacheHits + r.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(r.CacheHits) / float64(total)
}

// HistoryStore is a SQLite-backed run log.
type HistoryStore struct {
	conn   *sql.DB
	logger *slog.Logger
	path   string
}

// OpenHistory opens or creates the run-history database at path.
func OpenHistory(path string, logger *slog.Logger) (*HistoryStore, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &HistoryStore{conn: conn, logger: logger, path: path}
	if err := s.initSchema(); err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

func (s *HistoryStore) initSchema() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			project      TEXT NOT NULL,
			config       TEXT NOT NULL,
			platform     TEXT NOT NULL,
			started_at   TEXT NOT NULL,
			duration_ms  INTEGER NOT NULL,
			units        INTEGER NOT NULL,
			edges        INTEGER NOT NULL,
			cache_hits   INTEGER NOT NULL,
			cache_misses INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project, started_at);
	`)
	if err != nil {
		return fmt.Errorf("initialize history schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *HistoryStore) Close() error {
	return s.conn.Close()
}

// RecordRun inserts a run, assigning an ID when the caller left it empty.
func (s *HistoryStore) RecordRun(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	_, err := s.conn.Exec(`
		INSERT INTO runs (id, project, config, platform, started_at,
			duration_ms, units, edges, cache_hits, cache_misses)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Project, r.Config, r.Platform, r.StartedAt.Format(time.RFC3339Nano),
		r.DurationMs, r.Units, r.Edges, r.CacheHits, r.CacheMisses)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	s.logger.Debug("run recorded", "id", r.ID, "project", r.Project)
	return nil
}

// RecentRuns returns the newest runs, optionally filtered by project path.
func (s *HistoryStore) RecentRuns(limit int, project string) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, project, config, platform, started_at,
			duration_ms, units, edges, cache_hits, cache_misses
		FROM runs`
	args := []any{}
	if project != "" {
		query += " WHERE project = ?"
		args = append(args, project)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt string
		if err := rows.Scan(&r.ID, &r.Project, &r.Config, &r.Platform, &startedAt,
			&r.DurationMs, &r.Units, &r.Edges, &r.CacheHits, &r.CacheMisses); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
