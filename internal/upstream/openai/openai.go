// Package openai implements the upstream provider on the OpenAI chat
// completions API (or any compatible endpoint).
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/streamlinechat/streamline/internal/chat"
	"github.com/streamlinechat/streamline/internal/upstream"
)

const defaultModel = "gpt-4o-mini"

var _ upstream.Provider = (*Provider)(nil)

// Provider holds the shared OpenAI client.
type Provider struct {
	client      *openai.Client
	model       string
	temperature *float32
}

// Config holds configuration for the OpenAI provider.
type Config struct {
	APIKey      string
	BaseURL     string // optional, for OpenAI-compatible endpoints
	Model       string // optional, defaults to gpt-4o-mini
	Temperature *float32
}

// New creates an OpenAI provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

// Close is a no-op; the client holds no long-lived resources.
func (p *Provider) Close() error {
	return nil
}

// CreateSession binds the system prompt and prior history. The model role of
// our transcript maps to OpenAI's assistant role.
func (p *Provider) CreateSession(systemPrompt string, history []chat.Turn) upstream.Session {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == chat.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	return &session{provider: p, messages: messages}
}

type session struct {
	provider *Provider
	messages []openai.ChatCompletionMessage
}

// SendStream submits one user turn and returns its delta stream.
func (s *session) SendStream(ctx context.Context, text string) (upstream.TokenStream, error) {
	req := openai.ChatCompletionRequest{
		Model: s.provider.model,
		Messages: append(s.messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: text,
		}),
	}
	if s.provider.temperature != nil {
		req.Temperature = *s.provider.temperature
	}

	stream, err := s.provider.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	return &tokenStream{stream: stream}, nil
}

type tokenStream struct {
	stream *openai.ChatCompletionStream
}

// Recv pulls the next delta. Empty deltas (role-only chunks) are skipped.
func (t *tokenStream) Recv() (string, error) {
	for {
		resp, err := t.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", classify(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		return delta, nil
	}
}

// Close releases the underlying response body.
func (t *tokenStream) Close() {
	_ = t.stream.Close()
}

// classify maps authentication failures onto the shared sentinel.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 401 {
		return fmt.Errorf("%w: %v", upstream.ErrInvalidCredentials, err)
	}
	return err
}
