// Package protocol implements the streaming wire format: data-prefixed JSON
// frames terminated by a blank line, with a reserved [DONE] sentinel marking
// end of stream.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Event types carried in a frame payload.
const (
	EventChunk    = "chunk"
	EventComplete = "complete"
	EventError    = "error"
)

// sentinel is the reserved end-of-stream frame payload. It is a literal
// token, not JSON.
const sentinel = "[DONE]"

// Event is one decoded stream event. Exactly one of Complete or Error
// terminates a stream; any Chunks precede it.
type Event struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// Chunk builds an incremental text delta event.
func Chunk(text string) Event {
	return Event{Type: EventChunk, Text: text}
}

// Complete builds the success terminator event.
func Complete() Event {
	return Event{Type: EventComplete}
}

// ErrorEvent builds the failure terminator event.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

// errMalformedFrame marks a frame whose payload is not valid JSON. Decoding
// skips such frames rather than aborting a long-running stream.
var errMalformedFrame = errors.New("protocol: malformed frame payload")

// errSentinelFrame marks the reserved end-of-stream frame.
var errSentinelFrame = errors.New("protocol: sentinel frame")

// EncodeFrame renders an event as a self-delimiting wire frame.
func EncodeFrame(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode frame: %w", err)
	}
	return []byte("data: " + string(payload) + "\n\n"), nil
}

// SentinelFrame returns the reserved end-of-stream frame.
func SentinelFrame() []byte {
	return []byte("data: " + sentinel + "\n\n")
}

// decodeFrame parses one complete frame (delimiter already stripped) back
// into an event. Multi-line payloads are rejoined by their data: prefix.
// Returns errSentinelFrame for the [DONE] marker and errMalformedFrame for
// payloads that do not parse; both are signals, not stream failures.
func decodeFrame(frame string) (Event, error) {
	var parts []string
	for _, line := range strings.Split(frame, "\n") {
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		part := strings.TrimPrefix(line, "data:")
		part = strings.TrimPrefix(part, " ")
		parts = append(parts, part)
	}
	payload := strings.Join(parts, "\n")
	if strings.TrimSpace(payload) == sentinel {
		return Event{}, errSentinelFrame
	}

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, errMalformedFrame
	}
	switch ev.Type {
	case EventChunk, EventComplete, EventError:
		return ev, nil
	default:
		return Event{}, errMalformedFrame
	}
}
