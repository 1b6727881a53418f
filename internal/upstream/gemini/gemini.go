// Package gemini implements the upstream provider on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/streamlinechat/streamline/internal/chat"
	"github.com/streamlinechat/streamline/internal/upstream"
)

const defaultModel = "gemini-2.0-flash"

var _ upstream.Provider = (*Provider)(nil)

// Provider holds the shared Gemini client.
type Provider struct {
	client      *genai.Client
	model       string
	temperature *float32
}

// Config holds configuration for the Gemini provider.
type Config struct {
	APIKey      string
	Model       string // optional, defaults to gemini-2.0-flash
	Temperature *float32
}

// New creates a Gemini provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	return &Provider{client: client, model: model, temperature: cfg.Temperature}, nil
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// CreateSession binds the system prompt and prior history into a Gemini chat
// session. History roles map 1:1 (user/model on both sides).
func (p *Provider) CreateSession(systemPrompt string, history []chat.Turn) upstream.Session {
	model := p.client.GenerativeModel(p.model)
	if p.temperature != nil {
		model.SetTemperature(*p.temperature)
	}
	if strings.TrimSpace(systemPrompt) != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	cs := model.StartChat()
	for _, turn := range history {
		cs.History = append(cs.History, &genai.Content{
			Role:  turn.Role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}
	return &session{chat: cs}
}

type session struct {
	chat *genai.ChatSession
}

// SendStream submits one user turn and returns its delta stream.
func (s *session) SendStream(ctx context.Context, text string) (upstream.TokenStream, error) {
	iter := s.chat.SendMessageStream(ctx, genai.Text(text))
	return &tokenStream{iter: iter}, nil
}

type tokenStream struct {
	iter *genai.GenerateContentResponseIterator
}

// Recv pulls the next delta, translating SDK errors into the shared taxonomy.
func (t *tokenStream) Recv() (string, error) {
	for {
		resp, err := t.iter.Next()
		if errors.Is(err, iterator.Done) {
			return "", io.EOF
		}
		if err != nil {
			return "", classify(err)
		}
		text := extractText(resp)
		if text == "" {
			continue
		}
		return text, nil
	}
}

// Close is a no-op; the iterator is tied to the request context.
func (t *tokenStream) Close() {}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// classify maps the well-known invalid key failure onto the shared sentinel so
// a fixed user-facing message can be shown for it.
func classify(err error) error {
	if strings.Contains(err.Error(), "API key not valid") {
		return fmt.Errorf("%w: %v", upstream.ErrInvalidCredentials, err)
	}
	return err
}
