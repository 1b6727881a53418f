package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streamlinechat/streamline/internal/chat"
	"github.com/streamlinechat/streamline/internal/convstore"
)

// ErrRequestInFlight rejects a second send for a conversation while one is
// pending. Nothing is queued and no state is mutated.
var ErrRequestInFlight = errors.New("session: request already in flight for conversation")

// ErrUnknownConversation reports an id the reconciler has never seen.
var ErrUnknownConversation = errors.New("session: unknown conversation")

// pendingTurn tracks the one unfinalized model message a conversation may
// hold while a request is in flight.
type pendingTurn struct {
	placeholderID string
}

// Reconciler owns the in-memory conversation collection and applies every
// state transition of an in-flight model message: placeholder creation,
// streaming content updates, and terminal settling with persistence. All
// methods are safe for concurrent use.
type Reconciler struct {
	store  convstore.Store
	logger *log.Logger
	now    func() time.Time

	mu       sync.Mutex
	convs    []*chat.Conversation
	inflight map[string]pendingTurn
}

// ReconcilerConfig carries the reconciler's dependencies.
type ReconcilerConfig struct {
	Store  convstore.Store
	Logger *log.Logger
	Now    func() time.Time
}

// NewReconciler validates the config and loads prior state from the store.
func NewReconciler(ctx context.Context, cfg ReconcilerConfig) (*Reconciler, error) {
	if cfg.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	loaded, err := cfg.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: load conversations: %w", err)
	}
	r := &Reconciler{
		store:    cfg.Store,
		logger:   cfg.Logger,
		now:      cfg.Now,
		inflight: make(map[string]pendingTurn),
	}
	for i := range loaded {
		c := loaded[i]
		r.convs = append(r.convs, &c)
	}
	return r, nil
}

// Create starts a new conversation seeded with the greeting and adds it to
// the collection. It is not persisted until its first turn settles or an
// explicit save-path mutation (delete, rename) runs.
func (r *Reconciler) Create() chat.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := chat.NewConversation()
	r.convs = append(r.convs, &c)
	return snapshot(&c)
}

// Conversations returns a display-ordered copy of the collection.
func (r *Reconciler) Conversations() []chat.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]chat.Conversation, 0, len(r.convs))
	for _, c := range r.convs {
		out = append(out, snapshot(c))
	}
	convstore.SortForDisplay(out)
	return out
}

// Get returns a copy of one conversation.
func (r *Reconciler) Get(id string) (chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.find(id)
	if c == nil {
		return chat.Conversation{}, ErrUnknownConversation
	}
	return snapshot(c), nil
}

// Delete removes a conversation and persists the collection. Deleting a
// conversation with a request in flight is rejected.
func (r *Reconciler) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[id]; busy {
		return ErrRequestInFlight
	}
	kept := r.convs[:0]
	found := false
	for _, c := range r.convs {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return ErrUnknownConversation
	}
	r.convs = kept
	return r.persistLocked(ctx)
}

// Rename sets an explicit title and persists. An explicit title sticks: the
// derive step never rewrites a non-default title.
func (r *Reconciler) Rename(ctx context.Context, id, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.find(id)
	if c == nil {
		return ErrUnknownConversation
	}
	c.Title = chat.TruncateTitle(title)
	c.Touch(r.now())
	return r.persistLocked(ctx)
}

// Begin appends the user message and its paired empty placeholder, marking
// the conversation as having a request in flight. Returns ErrRequestInFlight
// without mutating anything when one already is.
func (r *Reconciler) Begin(conversationID, userText string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.find(conversationID)
	if c == nil {
		return ErrUnknownConversation
	}
	if _, busy := r.inflight[conversationID]; busy {
		return ErrRequestInFlight
	}
	user := chat.NewMessage(chat.RoleUser, userText)
	user.Status = chat.StatusDelivered
	placeholder := chat.NewMessage(chat.RoleModel, "")
	placeholder.Status = chat.StatusSending
	c.Messages = append(c.Messages, user, placeholder)
	r.inflight[conversationID] = pendingTurn{placeholderID: placeholder.ID}
	return nil
}

// Apply replaces the placeholder's content with the new cumulative text.
// Chunks arrive in order, so content only grows while streaming.
func (r *Reconciler) Apply(conversationID, cumulative string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.inflight[conversationID]
	if !ok {
		return
	}
	c := r.find(conversationID)
	if c == nil {
		return
	}
	if m := findMessage(c, p.placeholderID); m != nil {
		m.Content = cumulative
	}
}

// Settle resolves the placeholder according to the outcome and persists the
// conversation. Non-empty text is always kept, whether the stream finished,
// was cancelled, or failed partway; a zero-content cancel or failure removes
// the placeholder entirely, leaving the user's message in place.
func (r *Reconciler) Settle(ctx context.Context, conversationID string, out Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.inflight[conversationID]
	if !ok {
		return fmt.Errorf("session: settle without pending request for %s", conversationID)
	}
	delete(r.inflight, conversationID)
	c := r.find(conversationID)
	if c == nil {
		return ErrUnknownConversation
	}

	if out.Text == "" {
		removeMessage(c, p.placeholderID)
	} else if m := findMessage(c, p.placeholderID); m != nil {
		m.Content = out.Text
		if out.Kind == OutcomeFailed {
			m.Status = chat.StatusError
		} else {
			m.Status = chat.StatusDelivered
		}
	}

	c.DeriveTitle()
	c.Touch(r.now())
	return r.persistLocked(ctx)
}

// persistLocked writes the whole collection as one overwrite. Callers hold mu.
func (r *Reconciler) persistLocked(ctx context.Context) error {
	out := make([]chat.Conversation, 0, len(r.convs))
	for _, c := range r.convs {
		out = append(out, snapshot(c))
	}
	if err := r.store.Save(ctx, out); err != nil {
		r.logger.Printf("session: persist conversations: %v", err)
		return fmt.Errorf("session: persist conversations: %w", err)
	}
	return nil
}

func (r *Reconciler) find(id string) *chat.Conversation {
	for _, c := range r.convs {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func findMessage(c *chat.Conversation, id string) *chat.Message {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return &c.Messages[i]
		}
	}
	return nil
}

func removeMessage(c *chat.Conversation, id string) {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			c.Messages = append(c.Messages[:i], c.Messages[i+1:]...)
			return
		}
	}
}

// snapshot deep-copies a conversation so callers cannot alias internal state.
func snapshot(c *chat.Conversation) chat.Conversation {
	out := *c
	out.Messages = make([]chat.Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}
