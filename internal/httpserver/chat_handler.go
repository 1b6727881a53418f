package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/streamlinechat/streamline/internal/chat"
	"github.com/streamlinechat/streamline/internal/protocol"
	"github.com/streamlinechat/streamline/internal/upstream"
)

// msgBadBody rejects a request body that does not parse as a chat request.
const msgBadBody = "요청 본문을 해석할 수 없습니다."

// chatRequest is the wire body of POST /api/chat.
type chatRequest struct {
	Message string      `json:"message"`
	History []chat.Turn `json:"history"`
}

// handleChat validates the request, replays the normalized history to the
// upstream provider and relays its deltas as an event stream. Validation
// failures are plain JSON errors; once streaming has begun every outcome,
// including upstream failure, is delivered in-band as frames followed by the
// sentinel.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, msgBadBody)
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.respondError(w, http.StatusBadRequest, chat.MsgEmptyMessage)
		return
	}

	history := chat.NormalizeHistory(req.History)
	session := s.provider.CreateSession(s.systemPrompt, history)

	stream, err := session.SendStream(r.Context(), message)
	if err != nil {
		// Headers not sent yet: still a plain JSON error, mapped to the
		// user-facing message.
		s.debugf("httpserver: open upstream stream: %v", err)
		s.respondError(w, http.StatusBadGateway, upstream.UserMessage(err))
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	relay := func(ev protocol.Event) bool {
		frame, err := protocol.EncodeFrame(ev)
		if err != nil {
			s.logger.Printf("httpserver: encode frame: %v", err)
			return false
		}
		if _, err := w.Write(frame); err != nil {
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return true
	}

	for {
		delta, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				relay(protocol.Complete())
			} else if errors.Is(err, context.Canceled) || r.Context().Err() != nil {
				// Client went away; nothing left to write to.
				s.debugf("httpserver: chat stream aborted by client")
				return
			} else {
				s.debugf("httpserver: upstream stream: %v", err)
				relay(protocol.ErrorEvent(upstream.UserMessage(err)))
			}
			break
		}
		if delta == "" {
			continue
		}
		if !relay(protocol.Chunk(delta)) {
			return
		}
	}

	if _, err := w.Write(protocol.SentinelFrame()); err == nil && flusher != nil {
		flusher.Flush()
	}
}
