// Package postgres provides a convstore.Store backed by PostgreSQL for
// deployments that already run one.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/streamlinechat/streamline/internal/chat"
	"github.com/streamlinechat/streamline/internal/convstore"
)

// Store implements convstore.Store on a key/value table with one row.
type Store struct {
	db *sql.DB
}

var _ convstore.Store = (*Store)(nil)

// New opens a PostgreSQL-backed store using the provided DSN.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
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
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
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

// Load reads the conversation array under the storage key.
func (s *Store) Load(ctx context.Context) ([]chat.Conversation, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_state WHERE key = $1`, convstore.StorageKey).Scan(&raw)
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
INSERT INTO kv_state(key, value, updated_at) VALUES($1, $2, NOW())
ON CONFLICT(key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		convstore.StorageKey, string(raw))
	if err != nil {
		return fmt.Errorf("save conversations: %w", err)
	}
	return nil
}
