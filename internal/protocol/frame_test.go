package protocol

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeFrameShape(t *testing.T) {
	frame, err := EncodeFrame(Chunk("안녕"))
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	s := string(frame)
	if !strings.HasPrefix(s, "data: ") {
		t.Errorf("frame %q missing data: prefix", s)
	}
	if !strings.HasSuffix(s, "\n\n") {
		t.Errorf("frame %q missing blank-line delimiter", s)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	events := []Event{
		Chunk("Hel"),
		Chunk("lo!"),
		Complete(),
		ErrorEvent("boom"),
	}
	for _, want := range events {
		frame, err := EncodeFrame(want)
		if err != nil {
			t.Fatalf("EncodeFrame(%+v) error = %v", want, err)
		}
		got, err := decodeFrame(strings.TrimSuffix(string(frame), "\n\n"))
		if err != nil {
			t.Fatalf("decodeFrame(%+v) error = %v", want, err)
		}
		if got != want {
			t.Errorf("round trip = %+v, want %+v", got, want)
		}
	}
}

func TestDecodeFrameSentinel(t *testing.T) {
	_, err := decodeFrame("data: [DONE]")
	if !errors.Is(err, errSentinelFrame) {
		t.Errorf("error = %v, want sentinel signal", err)
	}
}

func TestDecodeFrameMultiLinePayload(t *testing.T) {
	// A JSON payload split across data: lines is rejoined before parsing.
	frame := "data: {\"type\":\"chunk\",\ndata: \"text\":\"hi\"}"
	ev, err := decodeFrame(frame)
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	if ev.Type != EventChunk || ev.Text != "hi" {
		t.Errorf("event = %+v, want chunk %q", ev, "hi")
	}
}

func TestDecodeFrameMalformed(t *testing.T) {
	for _, frame := range []string{
		"data: {not json",
		"data: {\"type\":\"mystery\"}",
		": comment only",
		"",
	} {
		_, err := decodeFrame(frame)
		if !errors.Is(err, errMalformedFrame) {
			t.Errorf("decodeFrame(%q) error = %v, want malformed signal", frame, err)
		}
	}
}
