// Package redis provides a convstore.Store holding the conversation array in
// a single Redis key.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/streamlinechat/streamline/internal/chat"
	"github.com/streamlinechat/streamline/internal/convstore"
)

const pingTimeout = 5 * time.Second

// Store implements convstore.Store on a Redis string key.
type Store struct {
	client *redis.Client
}

var _ convstore.Store = (*Store)(nil)

// New connects to Redis using a URL such as redis://localhost:6379/0.
func New(redisURL string) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client}, nil
}

// Close releases the client connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Load reads the conversation array from the storage key.
func (s *Store) Load(ctx context.Context) ([]chat.Conversation, error) {
	raw, err := s.client.Get(ctx, convstore.StorageKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}
	return convstore.Decode(raw), nil
}

// Save overwrites the storage key with the full conversation array.
func (s *Store) Save(ctx context.Context, conversations []chat.Conversation) error {
	raw, err := convstore.Encode(conversations)
	if err != nil {
		return fmt.Errorf("encode conversations: %w", err)
	}
	if err := s.client.Set(ctx, convstore.StorageKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("save conversations: %w", err)
	}
	return nil
}
