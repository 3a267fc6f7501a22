package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/logging"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

// AuditStore is the persistent audit/history sink backed by SQLite. It is
// an opaque key-value surface plus an append-only event log; nothing in
// resolution ever reads from it.
type AuditStore struct {
	db     *sql.DB
	dbPath string
}

// AuditRecord is one logged store mutation.
type AuditRecord struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Template  string    `json:"template"`
	Level     int       `json:"level"`
	Category  string    `json:"category,omitempty"`
	Parents   []string  `json:"parents,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAuditStore opens (or creates) the audit database at path.
// ":memory:" is accepted for tests.
func NewAuditStore(path string) (*AuditStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Get(logging.CategoryAudit).Debug("failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.Get(logging.CategoryAudit).Debug("failed to set journal_mode=WAL: %v", err)
	}

	a := &AuditStore{db: db, dbPath: path}
	if err := a.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Audit("audit store ready at %s", path)
	return a, nil
}

// initialize creates the required tables.
func (a *AuditStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		template TEXT NOT NULL,
		level INTEGER NOT NULL,
		category TEXT,
		parents TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_template ON audit_events(template);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_events(created_at);

	CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return nil
}

// RecordEvent appends one mutation event.
func (a *AuditStore) RecordEvent(op, template string, prio rtbtypes.PriorityInfo) error {
	parents, err := json.Marshal(prio.InheritsFrom)
	if err != nil {
		return fmt.Errorf("failed to encode parents: %w", err)
	}
	_, err = a.db.Exec(
		`INSERT INTO audit_events (id, operation, template, level, category, parents) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), op, template, prio.Level, prio.Category, string(parents),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// History returns the logged events for one template, newest first.
func (a *AuditStore) History(template string, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := a.db.Query(
		`SELECT id, operation, template, level, COALESCE(category,''), COALESCE(parents,'[]'), created_at
		 FROM audit_events WHERE template = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		template, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit history: %w", err)
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		var r AuditRecord
		var parents string
		if err := rows.Scan(&r.ID, &r.Operation, &r.Template, &r.Level, &r.Category, &parents, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		if err := json.Unmarshal([]byte(parents), &r.Parents); err != nil {
			r.Parents = nil
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Put stores an opaque value under key, overwriting any prior value.
func (a *AuditStore) Put(key, value string) error {
	_, err := a.db.Exec(
		`INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to put %q: %w", key, err)
	}
	return nil
}

// Get retrieves the value stored under key. Missing keys return ok=false,
// not an error.
func (a *AuditStore) Get(key string) (string, bool, error) {
	var value string
	err := a.db.QueryRow(`SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return value, true, nil
}

// Close releases the database handle.
func (a *AuditStore) Close() error {
	return a.db.Close()
}
