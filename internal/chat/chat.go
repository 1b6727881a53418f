package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Roles used throughout the wire protocol and persisted state.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message statuses. Status is optional metadata for the UI; the core only
// writes it on the placeholder lifecycle.
const (
	StatusSending   = "sending"
	StatusDelivered = "delivered"
	StatusError     = "error"
)

// Greeting is the seed model message every new conversation starts with.
const Greeting = "안녕하세요! 무엇을 도와드릴까요?"

// DefaultTitle is shown for conversations without any user message yet.
const DefaultTitle = "새 대화"

// MsgEmptyMessage rejects a send whose content is blank. Shared between the
// server-side request validation and the client-side orchestrator so the user
// sees the same text in either case.
const MsgEmptyMessage = "전달된 메시지가 비어 있습니다."

// titleRuneLimit bounds derived conversation titles.
const titleRuneLimit = 30

// Message is a single entry in a conversation transcript.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Status    string    `json:"status,omitempty"`
}

// Conversation is a persisted chat thread. UpdatedAt is the sort key for
// listings (most recently active first) and never decreases.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Turn is the wire form of a transcript entry replayed to the upstream model.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with a fresh unique id.
func NewMessage(role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewConversation creates an empty conversation seeded with the greeting.
func NewConversation() Conversation {
	return Conversation{
		ID:        uuid.New().String(),
		Title:     DefaultTitle,
		Messages:  []Message{NewMessage(RoleModel, Greeting)},
		UpdatedAt: time.Now().UTC(),
	}
}

// Touch advances UpdatedAt, keeping it monotonically non-decreasing even when
// the clock reads earlier than the stored value.
func (c *Conversation) Touch(now time.Time) {
	if now.After(c.UpdatedAt) {
		c.UpdatedAt = now
	}
}

// History returns the transcript as turns for replay to the upstream model.
// The greeting and any unfinalized placeholder carry through here; the
// normalizer strips them before the request goes out.
func (c *Conversation) History() []Turn {
	turns := make([]Turn, 0, len(c.Messages))
	for _, m := range c.Messages {
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

// firstUserContent returns the first non-empty user message content.
func (c *Conversation) firstUserContent() string {
	for _, m := range c.Messages {
		if m.Role == RoleUser && strings.TrimSpace(m.Content) != "" {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}

// DeriveTitle computes the display title from the first non-empty user
// message, truncated to a bounded rune length. Runs only when persisting; an
// existing non-default title is never rewritten.
func (c *Conversation) DeriveTitle() {
	if c.Title != "" && c.Title != DefaultTitle {
		return
	}
	content := c.firstUserContent()
	if content == "" {
		c.Title = DefaultTitle
		return
	}
	c.Title = TruncateTitle(content)
}

// TruncateTitle bounds a candidate title to the display limit, appending an
// ellipsis when content was cut. Rune-based so Hangul and other multi-byte
// text truncates cleanly.
func TruncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= titleRuneLimit {
		return s
	}
	return string(runes[:titleRuneLimit]) + "…"
}
