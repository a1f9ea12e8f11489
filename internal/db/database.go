// Package db implements SQLite-backed storage for the scheduling engine.
package db

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the booking platform.
type DB struct {
	*sql.DB
	path string
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	dsn := path
	if !strings.Contains(dsn, ":memory:") {
		// Busy timeout covers short write contention on the commit path.
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(conn); err != nil {
		return nil, err
	}
	return &DB{DB: conn, path: path}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS businesses (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT UNIQUE NOT NULL,
			requires_membership BOOLEAN NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS services (
			id TEXT PRIMARY KEY,
			business_id TEXT NOT NULL,
			name TEXT NOT NULL,
			duration_minutes INTEGER NOT NULL,
			price INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (business_id) REFERENCES businesses(id)
		)`,

		// At most one active hour rule per (business, day-of-week).
		`CREATE TABLE IF NOT EXISTS business_hours (
			id TEXT PRIMARY KEY,
			business_id TEXT NOT NULL,
			day_of_week INTEGER NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			UNIQUE (business_id, day_of_week),
			FOREIGN KEY (business_id) REFERENCES businesses(id)
		)`,

		`CREATE TABLE IF NOT EXISTS business_breaks (
			id TEXT PRIMARY KEY,
			business_id TEXT NOT NULL,
			day_of_week INTEGER NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			FOREIGN KEY (business_id) REFERENCES businesses(id)
		)`,

		// Inclusive date range, stored as YYYY-MM-DD.
		`CREATE TABLE IF NOT EXISTS business_closures (
			id TEXT PRIMARY KEY,
			business_id TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (business_id) REFERENCES businesses(id)
		)`,

		`CREATE TABLE IF NOT EXISTS memberships (
			id TEXT PRIMARY KEY,
			business_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (business_id, client_id),
			FOREIGN KEY (business_id) REFERENCES businesses(id)
		)`,

		`CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			business_id TEXT NOT NULL,
			service_id TEXT NOT NULL,
			client_id TEXT,
			guest_name TEXT,
			guest_phone TEXT,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			client_notes TEXT NOT NULL DEFAULT '',
			staff_notes TEXT NOT NULL DEFAULT '',
			media_refs TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (business_id) REFERENCES businesses(id),
			FOREIGN KEY (service_id) REFERENCES services(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_services_business ON services(business_id, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_hours_business ON business_hours(business_id, day_of_week)`,
		`CREATE INDEX IF NOT EXISTS idx_breaks_business ON business_breaks(business_id, day_of_week)`,
		`CREATE INDEX IF NOT EXISTS idx_closures_business ON business_closures(business_id, start_date, end_date)`,
		`CREATE INDEX IF NOT EXISTS idx_memberships_lookup ON memberships(business_id, client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_times ON appointments(business_id, start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_client ON appointments(client_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// Backup copies the database file to dest.
func (db *DB) Backup(dest string) error {
	if db.path == "" || strings.Contains(db.path, ":memory:") {
		return fmt.Errorf("backup not supported for in-memory database")
	}

	// Flush WAL pages into the main file before copying.
	if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	src, err := os.Open(db.path)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}

// CleanupBackups removes backups in dir older than retention.
func (db *DB) CleanupBackups(dir string, retention time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-retention)
	deleted := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}
