// Package sqlite provides the default local convstore.Store backed by a
// single-file SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// register sqlite driver
	_ "modernc.org/sqlite"

	"github.com/streamlinechat/streamline/internal/chat"
	"github.com/streamlinechat/streamline/internal/convstore"
)

// Store implements convstore.Store on a key/value table with one row.
type Store struct {
	db *sql.DB
}

var _ convstore.Store = (*Store)(nil)

// New opens (or creates) a SQLite store at the given path.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS kv_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases underlying database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the conversation array under the storage key. A missing row or
// unparsable value yields an empty set.
func (s *Store) Load(ctx context.Context) ([]chat.Conversation, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_state WHERE key = ?`, convstore.StorageKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}
	return convstore.Decode([]byte(raw)), nil
}

// Save overwrites the stored conversation array.
func (s *Store) Save(ctx context.Context, conversations []chat.Conversation) error {
	raw, err := convstore.Encode(conversations)
	if err != nil {
		return fmt.Errorf("encode conversations: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO kv_state(key, value, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		convstore.StorageKey, string(raw))
	if err != nil {
		return fmt.Errorf("save conversations: %w", err)
	}
	return nil
}
