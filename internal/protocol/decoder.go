package protocol

import (
	"bytes"
	"errors"
	"io"
)

// ErrUnexpectedEnd reports a transport that closed without ever producing a
// terminal frame. Callers treat it as a transport failure.
var ErrUnexpectedEnd = errors.New("protocol: stream ended unexpectedly")

// UpstreamError is the terminal failure carried by an error frame.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return "protocol: upstream error: " + e.Message
}

// frameDelimiter separates frames after line-ending normalization.
var frameDelimiter = []byte("\n\n")

// Decoder turns an unbounded byte stream, arriving in arbitrarily sized and
// arbitrarily split reads, into a lazy finite sequence of chunk texts. It is
// single-consumer and non-restartable: once Next returns a terminal error it
// returns the same error forever.
type Decoder struct {
	r         io.Reader
	buf       []byte
	readBuf   []byte
	carriedCR bool
	readErr   error
	terminal  error
}

// NewDecoder wraps a transport body. The decoder does not close r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, readBuf: make([]byte, 4096)}
}

// Next returns the next chunk text. It returns io.EOF on the end-of-stream
// sentinel, an *UpstreamError when the producer sent an error frame, and
// ErrUnexpectedEnd when the transport closed without a terminal frame.
func (d *Decoder) Next() (string, error) {
	if d.terminal != nil {
		return "", d.terminal
	}
	for {
		// Drain every complete frame already buffered before reading again.
		for {
			idx := bytes.Index(d.buf, frameDelimiter)
			if idx < 0 {
				break
			}
			frame := string(d.buf[:idx])
			d.buf = d.buf[idx+len(frameDelimiter):]

			ev, err := decodeFrame(frame)
			switch {
			case errors.Is(err, errSentinelFrame):
				// Anything buffered past the sentinel is protocol garbage.
				d.buf = nil
				d.terminal = io.EOF
				return "", d.terminal
			case errors.Is(err, errMalformedFrame):
				continue
			}

			switch ev.Type {
			case EventChunk:
				if ev.Text == "" {
					continue
				}
				return ev.Text, nil
			case EventComplete:
				// The sentinel, not the complete frame, ends the sequence.
				continue
			case EventError:
				d.buf = nil
				d.terminal = &UpstreamError{Message: ev.Message}
				return "", d.terminal
			}
		}

		// A read may deliver final bytes together with its error; frames in
		// those bytes were drained above before the error becomes terminal.
		if d.readErr != nil {
			if d.readErr == io.EOF {
				d.terminal = ErrUnexpectedEnd
			} else {
				d.terminal = d.readErr
			}
			return "", d.terminal
		}

		n, err := d.r.Read(d.readBuf)
		if n > 0 {
			d.append(d.readBuf[:n])
		}
		if err != nil {
			d.readErr = err
		}
	}
}

// append adds raw transport bytes to the frame buffer, normalizing CR, LF and
// CRLF line endings to LF. A trailing CR is held back until the next read so
// a CRLF split across reads does not become two newlines.
func (d *Decoder) append(p []byte) {
	if d.carriedCR {
		p = append([]byte{'\r'}, p...)
		d.carriedCR = false
	}
	if len(p) > 0 && p[len(p)-1] == '\r' {
		d.carriedCR = true
		p = p[:len(p)-1]
	}
	p = bytes.ReplaceAll(p, []byte("\r\n"), []byte("\n"))
	p = bytes.ReplaceAll(p, []byte("\r"), []byte("\n"))
	d.buf = append(d.buf, p...)
}
