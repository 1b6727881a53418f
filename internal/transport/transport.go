// Package transport opens the chat request stream against the server. It
// owns the HTTP shape of a request; framing is the protocol package's job.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/streamlinechat/streamline/internal/chat"
)

// chatPath is the streaming endpoint.
const chatPath = "/api/chat"

// HTTPClient abstracts the Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request is the wire body of a chat request.
type Request struct {
	Message string      `json:"message"`
	History []chat.Turn `json:"history"`
}

// StatusError reports a non-success response produced before any stream
// began, carrying the server's error message when one was parsable.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("transport: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("transport: status %d", e.Status)
}

// Client issues chat requests against one server.
type Client struct {
	baseURL    *url.URL
	httpClient HTTPClient
}

// NewClient constructs a client for the given base URL. A nil httpClient
// falls back to a default without a timeout: streams are long-lived and are
// ended by cancellation, not by a deadline.
func NewClient(baseURL string, httpClient HTTPClient) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid base URL: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// OpenStream posts the message and prior history and returns the raw event
// stream body. The caller owns closing it; cancelling ctx aborts an
// in-flight read.
func (c *Client) OpenStream(ctx context.Context, message string, history []chat.Turn) (io.ReadCloser, error) {
	if history == nil {
		history = []chat.Turn{}
	}
	body, err := json.Marshal(Request{Message: message, History: history})
	if err != nil {
		return nil, fmt.Errorf("transport: marshal request: %w", err)
	}

	rel, err := url.Parse(chatPath)
	if err != nil {
		return nil, err
	}
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transport: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		statusErr := &StatusError{Status: resp.StatusCode}
		var errPayload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(data, &errPayload); err == nil && strings.TrimSpace(errPayload.Error) != "" {
			statusErr.Message = errPayload.Error
		}
		return nil, statusErr
	}
	return resp.Body, nil
}
