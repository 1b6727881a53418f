package protocol

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// chunkedReader replays a byte stream in fixed-size reads to exercise frame
// boundaries that never align with read boundaries.
type chunkedReader struct {
	data []byte
	size int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.size
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func stream(events ...Event) []byte {
	var out []byte
	for _, ev := range events {
		frame, _ := EncodeFrame(ev)
		out = append(out, frame...)
	}
	return append(out, SentinelFrame()...)
}

func collect(t *testing.T, d *Decoder) ([]string, error) {
	t.Helper()
	var chunks []string
	for {
		text, err := d.Next()
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, text)
	}
}

func TestDecoderRoundTripAtEverySplit(t *testing.T) {
	data := stream(Chunk("He"), Chunk("llo, "), Chunk("스트림"), Complete())
	for size := 1; size <= len(data); size++ {
		d := NewDecoder(&chunkedReader{data: data, size: size})
		chunks, err := collect(t, d)
		if err != io.EOF {
			t.Fatalf("size %d: error = %v, want io.EOF", size, err)
		}
		if got := strings.Join(chunks, ""); got != "Hello, 스트림" {
			t.Errorf("size %d: concatenated = %q", size, got)
		}
	}
}

func TestDecoderSentinelEndsSequence(t *testing.T) {
	data := stream(Chunk("a"))
	// Garbage after the sentinel must never surface as events.
	trailing, _ := EncodeFrame(Chunk("ghost"))
	data = append(data, trailing...)

	d := NewDecoder(&chunkedReader{data: data, size: 7})
	chunks, err := collect(t, d)
	if err != io.EOF {
		t.Fatalf("error = %v, want io.EOF", err)
	}
	if len(chunks) != 1 || chunks[0] != "a" {
		t.Errorf("chunks = %v, want [a]", chunks)
	}

	// Non-restartable: the terminal condition is sticky.
	if _, err := d.Next(); err != io.EOF {
		t.Errorf("Next() after end = %v, want io.EOF", err)
	}
}

func TestDecoderErrorFrameIsTerminal(t *testing.T) {
	var data []byte
	f1, _ := EncodeFrame(Chunk("part"))
	f2, _ := EncodeFrame(ErrorEvent("quota exceeded"))
	f3, _ := EncodeFrame(Chunk("never"))
	data = append(data, f1...)
	data = append(data, f2...)
	data = append(data, f3...)
	data = append(data, SentinelFrame()...)

	d := NewDecoder(&chunkedReader{data: data, size: 3})
	chunks, err := collect(t, d)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v, want *UpstreamError", err)
	}
	if upstream.Message != "quota exceeded" {
		t.Errorf("message = %q, want %q", upstream.Message, "quota exceeded")
	}
	if len(chunks) != 1 || chunks[0] != "part" {
		t.Errorf("chunks = %v, want [part]", chunks)
	}
}

func TestDecoderMalformedFrameSkipped(t *testing.T) {
	var data []byte
	f1, _ := EncodeFrame(Chunk("keep"))
	data = append(data, f1...)
	data = append(data, []byte("data: {broken\n\n")...)
	f2, _ := EncodeFrame(Chunk("going"))
	data = append(data, f2...)
	data = append(data, SentinelFrame()...)

	d := NewDecoder(&chunkedReader{data: data, size: 11})
	chunks, err := collect(t, d)
	if err != io.EOF {
		t.Fatalf("error = %v, want io.EOF", err)
	}
	if strings.Join(chunks, "") != "keepgoing" {
		t.Errorf("chunks = %v, want keep+going", chunks)
	}
}

func TestDecoderTruncatedStream(t *testing.T) {
	frame, _ := EncodeFrame(Chunk("half"))
	d := NewDecoder(&chunkedReader{data: frame, size: 5})
	chunks, err := collect(t, d)
	if !errors.Is(err, ErrUnexpectedEnd) {
		t.Fatalf("error = %v, want ErrUnexpectedEnd", err)
	}
	if len(chunks) != 1 || chunks[0] != "half" {
		t.Errorf("chunks = %v, want [half]", chunks)
	}
}

func TestDecoderCRLFNormalization(t *testing.T) {
	frame, _ := EncodeFrame(Chunk("hi"))
	data := []byte(strings.ReplaceAll(string(frame), "\n", "\r\n"))
	data = append(data, []byte(strings.ReplaceAll(string(SentinelFrame()), "\n", "\r\n"))...)

	// Size 1 forces every CRLF pair to straddle a read boundary.
	d := NewDecoder(&chunkedReader{data: data, size: 1})
	chunks, err := collect(t, d)
	if err != io.EOF {
		t.Fatalf("error = %v, want io.EOF", err)
	}
	if len(chunks) != 1 || chunks[0] != "hi" {
		t.Errorf("chunks = %v, want [hi]", chunks)
	}
}

func TestDecoderMultiByteRuneSplitAcrossReads(t *testing.T) {
	// "안녕하세요" is 15 bytes of UTF-8; single-byte reads split every rune.
	data := stream(Chunk("안녕하세요"), Complete())
	d := NewDecoder(&chunkedReader{data: data, size: 1})
	chunks, err := collect(t, d)
	if err != io.EOF {
		t.Fatalf("error = %v, want io.EOF", err)
	}
	if strings.Join(chunks, "") != "안녕하세요" {
		t.Errorf("chunks = %v, want 안녕하세요", chunks)
	}
}
