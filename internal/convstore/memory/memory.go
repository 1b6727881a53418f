// Package memory provides an in-memory convstore.Store for tests and
// ephemeral runs.
package memory

import (
	"context"
	"sync"

	"github.com/streamlinechat/streamline/internal/chat"
	"github.com/streamlinechat/streamline/internal/convstore"
)

// Store keeps the serialized conversation array in process memory. Storing
// the encoded form keeps copy semantics identical to the durable backends.
type Store struct {
	mu  sync.Mutex
	raw []byte
}

var _ convstore.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Load returns the saved conversations, empty when nothing was saved.
func (s *Store) Load(ctx context.Context) ([]chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return convstore.Decode(s.raw), nil
}

// Save overwrites the stored set.
func (s *Store) Save(ctx context.Context, conversations []chat.Conversation) error {
	raw, err := convstore.Encode(conversations)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the memory store.
func (s *Store) Close() error {
	return nil
}
