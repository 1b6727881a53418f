package echo

import (
	"context"
	"io"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEchoStreamsFullReply(t *testing.T) {
	p := New()
	sess := p.CreateSession("", nil)
	stream, err := sess.SendStream(context.Background(), "안녕하세요, 스트림라인!")
	if err != nil {
		t.Fatalf("SendStream() error = %v", err)
	}
	defer stream.Close()

	var b strings.Builder
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		if !utf8.ValidString(delta) {
			t.Errorf("delta %q is not valid UTF-8", delta)
		}
		b.WriteString(delta)
	}
	if got := b.String(); got != "[echo] 안녕하세요, 스트림라인!" {
		t.Errorf("reply = %q", got)
	}
}

func TestEchoHonorsCancellation(t *testing.T) {
	p := New()
	sess := p.CreateSession("", nil)
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := sess.SendStream(ctx, "hello there")
	if err != nil {
		t.Fatalf("SendStream() error = %v", err)
	}
	if _, err := stream.Recv(); err != nil {
		t.Fatalf("first Recv() error = %v", err)
	}
	cancel()
	if _, err := stream.Recv(); err != context.Canceled {
		t.Errorf("Recv() after cancel = %v, want context.Canceled", err)
	}
}
