package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/streamlinechat/streamline/internal/chat"
	"github.com/streamlinechat/streamline/internal/protocol"
	"github.com/streamlinechat/streamline/internal/testutil"
)

func TestOpenStreamPostsMessageAndHistory(t *testing.T) {
	var got Request
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s, want /api/chat", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		frame, _ := protocol.EncodeFrame(protocol.Chunk("ok"))
		_, _ = w.Write(frame)
		_, _ = w.Write(protocol.SentinelFrame())
	})
	srv := testutil.NewIPv4Server(t, handler)
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	history := []chat.Turn{{Role: chat.RoleUser, Content: "earlier"}}
	body, err := client.OpenStream(context.Background(), "hello", history)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer body.Close()

	dec := protocol.NewDecoder(body)
	text, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if text != "ok" {
		t.Errorf("chunk = %q, want %q", text, "ok")
	}
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("terminal err = %v, want io.EOF", err)
	}

	if got.Message != "hello" {
		t.Errorf("posted message = %q", got.Message)
	}
	if len(got.History) != 1 || got.History[0].Content != "earlier" {
		t.Errorf("posted history = %+v", got.History)
	}
}

func TestOpenStreamNilHistoryEncodesEmptyArray(t *testing.T) {
	var raw map[string]json.RawMessage
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write(protocol.SentinelFrame())
	})
	srv := testutil.NewIPv4Server(t, handler)
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	body, err := client.OpenStream(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	body.Close()

	if string(raw["history"]) != "[]" {
		t.Errorf("history field = %s, want []", raw["history"])
	}
}

func TestOpenStreamReassemblesFlushedSegments(t *testing.T) {
	// Frames split mid-payload across separate flushes must still decode.
	srv := testutil.NewIPv4Server(t, testutil.StreamHandler(
		"data: {\"type\":\"chunk\",",
		"\"text\":\"안녕\"}\n",
		"\ndata: [DONE]\n\n",
	))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	body, err := client.OpenStream(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer body.Close()

	dec := protocol.NewDecoder(body)
	text, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if text != "안녕" {
		t.Errorf("chunk = %q", text)
	}
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("terminal err = %v, want io.EOF", err)
	}
}

func TestOpenStreamNonSuccessStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "전달된 메시지가 비어 있습니다."})
	})
	srv := testutil.NewIPv4Server(t, handler)
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.OpenStream(context.Background(), "", nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if statusErr.Status != http.StatusBadRequest {
		t.Errorf("status = %d", statusErr.Status)
	}
	if statusErr.Message != "전달된 메시지가 비어 있습니다." {
		t.Errorf("message = %q", statusErr.Message)
	}
}

func TestOpenStreamStatusErrorWithoutBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := testutil.NewIPv4Server(t, handler)
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.OpenStream(context.Background(), "hi", nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if statusErr.Message != "" {
		t.Errorf("message = %q, want empty", statusErr.Message)
	}
}
