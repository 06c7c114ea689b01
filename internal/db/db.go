// Package db persists per-session statistics in SQLite. The schema is owned
// by embedded golang-migrate migrations applied on open.
package db

import (
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/Memati8383/AI-Triggerbot/internal/monitoring"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "triggerbot.db"

// ErrSessionNotFound is returned when a session id has no stored record.
var ErrSessionNotFound = errors.New("session not found")

type DB struct {
	*sql.DB
	path string
}

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
}

func dsn(path string) string {
	s := "file:" + path + "?"
	for i, p := range pragmas {
		if i > 0 {
			s += "&"
		}
		s += "_pragma=" + p
	}
	return s
}

// OpenDB opens the database without touching the schema.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return &DB{DB: sqlDB, path: path}, nil
}

// NewDB opens the database and applies all pending migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string { return db.path }

// SessionRecord is the persisted summary of one control-loop session.
type SessionRecord struct {
	ID         string    `json:"session_id"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	Detections int64     `json:"detections"`
	Shots      int64     `json:"shots"`
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Accuracy   float64   `json:"accuracy"`
	AvgFPS     float64   `json:"avg_fps"`
	Profile    string    `json:"profile"`
	Priority   string    `json:"priority"`
	Source     string    `json:"source"`
}

// Duration returns how long the session ran.
func (r SessionRecord) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// RecordSession inserts r, replacing any earlier record with the same id.
// An empty Source is stored as "live".
func (db *DB) RecordSession(ctx context.Context, r SessionRecord) error {
	if r.ID == "" {
		return errors.New("record session: empty id")
	}
	source := r.Source
	if source == "" {
		source = "live"
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (
			session_id, started_at, ended_at, detections, shots, hits, misses,
			accuracy, avg_fps, profile, priority, source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			ended_at = excluded.ended_at,
			detections = excluded.detections,
			shots = excluded.shots,
			hits = excluded.hits,
			misses = excluded.misses,
			accuracy = excluded.accuracy,
			avg_fps = excluded.avg_fps,
			profile = excluded.profile,
			priority = excluded.priority,
			source = excluded.source`,
		r.ID, r.StartedAt.UnixNano(), r.EndedAt.UnixNano(), r.Detections, r.Shots, r.Hits, r.Misses,
		r.Accuracy, r.AvgFPS, r.Profile, r.Priority, source,
	)
	if err != nil {
		return fmt.Errorf("record session %s: %w", r.ID, err)
	}
	return nil
}

const sessionColumns = `session_id, started_at, ended_at, detections, shots, hits, misses,
	accuracy, avg_fps, profile, priority, source`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(s scanner) (SessionRecord, error) {
	var (
		r              SessionRecord
		started, ended int64
	)
	err := s.Scan(&r.ID, &started, &ended, &r.Detections, &r.Shots, &r.Hits, &r.Misses,
		&r.Accuracy, &r.AvgFPS, &r.Profile, &r.Priority, &r.Source)
	if err != nil {
		return SessionRecord{}, err
	}
	r.StartedAt = time.Unix(0, started).UTC()
	r.EndedAt = time.Unix(0, ended).UTC()
	return r, nil
}

// Session returns the record with the given id.
func (db *DB) Session(ctx context.Context, id string) (SessionRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, id)
	r, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return r, nil
}

// ListSessions returns up to limit sessions, most recently started first.
// A limit of 0 or less returns at most 100.
func (db *DB) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC, session_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		r, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Totals aggregates every stored session.
type Totals struct {
	Sessions   int64   `json:"sessions"`
	Detections int64   `json:"detections"`
	Shots      int64   `json:"shots"`
	Hits       int64   `json:"hits"`
	Accuracy   float64 `json:"accuracy"` // hits / shots * 100
}

// SessionTotals sums counters across all sessions.
func (db *DB) SessionTotals(ctx context.Context) (Totals, error) {
	var t Totals
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(detections), 0), COALESCE(SUM(shots), 0), COALESCE(SUM(hits), 0)
		FROM sessions`).Scan(&t.Sessions, &t.Detections, &t.Shots, &t.Hits)
	if err != nil {
		return Totals{}, fmt.Errorf("session totals: %w", err)
	}
	if t.Shots > 0 {
		t.Accuracy = float64(t.Hits) / float64(t.Shots) * 100
	}
	return t, nil
}

// TableStats is the row count of one table.
type TableStats struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// DatabaseStats summarises the database file.
type DatabaseStats struct {
	TotalSizeMB float64      `json:"total_size_mb"`
	Tables      []TableStats `json:"tables"`
}

// Stats reports the file size and per-table row counts.
func (db *DB) Stats(ctx context.Context) (DatabaseStats, error) {
	var pageCount, pageSize int64
	if err := db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return DatabaseStats{}, err
	}
	if err := db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return DatabaseStats{}, err
	}
	stats := DatabaseStats{TotalSizeMB: float64(pageCount*pageSize) / (1024 * 1024)}

	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return DatabaseStats{}, err
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return DatabaseStats{}, err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return DatabaseStats{}, err
	}

	for _, name := range names {
		var n int64
		// name comes from sqlite_master, not from user input.
		if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %q", name)).Scan(&n); err != nil {
			return DatabaseStats{}, err
		}
		stats.Tables = append(stats.Tables, TableStats{Name: name, Rows: n})
	}
	return stats, nil
}

// AttachAdminRoutes mounts the debug pages on mux: live SQL via tailsql, a
// stats summary and an on-demand gzipped backup.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "Session stats DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("db-stats", "Database size and row counts", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := db.Stats(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to read stats: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			monitoring.Logf("db-stats: encode: %v", err)
		}
	}))

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dir, err := os.MkdirTemp("", "triggerbot-backup-")
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup dir: %v", err), http.StatusInternalServerError)
			return
		}
		defer os.RemoveAll(dir)

		name := fmt.Sprintf("backup-%d.db", time.Now().Unix())
		backupPath := filepath.Join(dir, name)
		if _, err := db.ExecContext(r.Context(), "VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer backupFile.Close()

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
		w.Header().Set("Content-Type", "application/gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		if _, err := io.Copy(gz, backupFile); err != nil {
			monitoring.Logf("backup: write: %v", err)
		}
	}))
	return nil
}
