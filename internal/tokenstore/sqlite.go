package tokenstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a file-backed Store. Tokens survive process restarts; expiring
// entries (the code verifier) are filtered out on read.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the store at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS auth_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at TEXT
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create auth_state table: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Get returns the value for key. Expired entries count as absent.
func (s *SQLite) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`
		SELECT value FROM auth_state
		WHERE key = ? AND (expires_at IS NULL OR expires_at > datetime('now'))`,
		key).Scan(&value)

	if err == sql.ErrNoRows {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores a value with no expiry, replacing any previous value.
func (s *SQLite) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO auth_state (key, value, expires_at) VALUES (?, ?, NULL)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = NULL`,
		key, value)
	return err
}

// SetExpiring stores a value that becomes absent after ttl.
func (s *SQLite) SetExpiring(key, value string, ttl time.Duration) error {
	expiresAt := time.Now().UTC().Add(ttl).Format("2006-01-02 15:04:05")
	_, err := s.db.Exec(`
		INSERT INTO auth_state (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	return err
}

// Delete removes a key.
func (s *SQLite) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM auth_state WHERE key = ?", key)
	return err
}

// CleanupExpired removes all expired entries.
func (s *SQLite) CleanupExpired() error {
	_, err := s.db.Exec("DELETE FROM auth_state WHERE expires_at IS NOT NULL AND expires_at <= datetime('now')")
	return err
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
