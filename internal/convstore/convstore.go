// Package convstore persists the full set of conversations under a single
// storage key as one JSON array. Saves are idempotent full overwrites; loads
// tolerate garbage and return an empty set instead of failing.
package convstore

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/streamlinechat/streamline/internal/chat"
)

// StorageKey is the single key all backends store the conversation array
// under.
const StorageKey = "chat_conversations"

// Store is the persistence contract. Ordering for display is computed by the
// caller; the store itself is order-agnostic.
type Store interface {
	Load(ctx context.Context) ([]chat.Conversation, error)
	Save(ctx context.Context, conversations []chat.Conversation) error
	Close() error
}

// Encode renders the conversation set in the stored layout. A nil set encodes
// as an empty array, never as JSON null.
func Encode(conversations []chat.Conversation) ([]byte, error) {
	if conversations == nil {
		conversations = []chat.Conversation{}
	}
	return json.Marshal(conversations)
}

// Decode parses stored bytes back into conversations. Unparsable or
// non-array data yields an empty set; previously saved state is never a
// reason to fail startup.
func Decode(raw []byte) []chat.Conversation {
	if len(raw) == 0 {
		return nil
	}
	var conversations []chat.Conversation
	if err := json.Unmarshal(raw, &conversations); err != nil {
		return nil
	}
	return conversations
}

// SortForDisplay orders conversations most recently active first. Stable so
// equal timestamps keep their stored order.
func SortForDisplay(conversations []chat.Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
}
