// Package echo is a deterministic upstream provider that answers with the
// user's own message. It exists so the whole pipeline can run without any
// credentials, and as a test double.
package echo

import (
	"context"
	"io"
	"strings"

	"github.com/streamlinechat/streamline/internal/chat"
	"github.com/streamlinechat/streamline/internal/upstream"
)

// deltaRunes is the number of runes emitted per delta, small enough that even
// short replies exercise the incremental path.
const deltaRunes = 4

var _ upstream.Provider = (*Provider)(nil)

// Provider fabricates replies locally.
type Provider struct{}

// New creates an echo provider.
func New() *Provider {
	return &Provider{}
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}

// CreateSession ignores the system prompt and history; echo replies depend
// only on the current turn.
func (p *Provider) CreateSession(systemPrompt string, history []chat.Turn) upstream.Session {
	return &session{}
}

type session struct{}

// SendStream fabricates the reply and slices it into rune-aligned deltas.
func (s *session) SendStream(ctx context.Context, text string) (upstream.TokenStream, error) {
	reply := "[echo] " + strings.TrimSpace(text)

	var deltas []string
	var current strings.Builder
	count := 0
	for _, r := range reply {
		current.WriteRune(r)
		count++
		if count == deltaRunes {
			deltas = append(deltas, current.String())
			current.Reset()
			count = 0
		}
	}
	if current.Len() > 0 {
		deltas = append(deltas, current.String())
	}
	return &tokenStream{ctx: ctx, deltas: deltas}, nil
}

type tokenStream struct {
	ctx    context.Context
	deltas []string
	pos    int
}

// Recv yields the next canned delta, honoring context cancellation like a
// real network stream would.
func (t *tokenStream) Recv() (string, error) {
	if err := t.ctx.Err(); err != nil {
		return "", err
	}
	if t.pos >= len(t.deltas) {
		return "", io.EOF
	}
	delta := t.deltas[t.pos]
	t.pos++
	return delta, nil
}

// Close is a no-op.
func (t *tokenStream) Close() {}
