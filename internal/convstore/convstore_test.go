package convstore

import (
	"testing"
	"time"

	"github.com/streamlinechat/streamline/internal/chat"
)

func TestDecodeToleratesGarbage(t *testing.T) {
	for _, raw := range []string{
		"",
		"not json at all",
		`{"id":"x"}`, // object, not array
		`42`,
		`null`,
	} {
		if got := Decode([]byte(raw)); len(got) != 0 {
			t.Errorf("Decode(%q) = %v, want empty", raw, got)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	in := []chat.Conversation{
		{
			ID:        "c1",
			Title:     "hello",
			UpdatedAt: now,
			Messages: []chat.Message{
				{ID: "m1", Role: chat.RoleUser, Content: "hello"},
				{ID: "m2", Role: chat.RoleModel, Content: "Hello!"},
			},
		},
		{ID: "c2", Title: chat.DefaultTitle, UpdatedAt: now.Add(-time.Hour)},
	}

	raw, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out := Decode(raw)
	if len(out) != 2 {
		t.Fatalf("Decode() returned %d conversations, want 2", len(out))
	}
	if out[0].ID != "c1" || out[0].Title != "hello" || len(out[0].Messages) != 2 {
		t.Errorf("first conversation = %+v", out[0])
	}
	if out[0].Messages[1].Content != "Hello!" {
		t.Errorf("model message content = %q, want %q", out[0].Messages[1].Content, "Hello!")
	}
}

func TestEncodeNilIsEmptyArray(t *testing.T) {
	raw, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode(nil) error = %v", err)
	}
	if string(raw) != "[]" {
		t.Errorf("Encode(nil) = %s, want []", raw)
	}
}

func TestSortForDisplay(t *testing.T) {
	base := time.Now().UTC()
	conversations := []chat.Conversation{
		{ID: "old", UpdatedAt: base.Add(-2 * time.Hour)},
		{ID: "newest", UpdatedAt: base},
		{ID: "middle", UpdatedAt: base.Add(-time.Hour)},
	}
	SortForDisplay(conversations)
	want := []string{"newest", "middle", "old"}
	for i, id := range want {
		if conversations[i].ID != id {
			t.Errorf("position %d = %q, want %q", i, conversations[i].ID, id)
		}
	}
}
