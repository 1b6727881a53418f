package chat

import (
	"strings"
	"testing"
	"time"
)

func TestNewConversationSeedsGreeting(t *testing.T) {
	conv := NewConversation()
	if conv.ID == "" {
		t.Fatal("expected conversation id")
	}
	if conv.Title != DefaultTitle {
		t.Errorf("title = %q, want %q", conv.Title, DefaultTitle)
	}
	if len(conv.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(conv.Messages))
	}
	if conv.Messages[0].Role != RoleModel || conv.Messages[0].Content != Greeting {
		t.Errorf("seed message = %+v, want model greeting", conv.Messages[0])
	}
}

func TestNewMessageUniqueIDs(t *testing.T) {
	a := NewMessage(RoleUser, "hi")
	b := NewMessage(RoleUser, "hi")
	if a.ID == b.ID {
		t.Errorf("expected distinct ids, both %q", a.ID)
	}
}

func TestTouchMonotonic(t *testing.T) {
	now := time.Now().UTC()
	conv := Conversation{UpdatedAt: now}

	conv.Touch(now.Add(-time.Hour))
	if !conv.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt moved backwards to %v", conv.UpdatedAt)
	}

	later := now.Add(time.Second)
	conv.Touch(later)
	if !conv.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", conv.UpdatedAt, later)
	}
}

func TestDeriveTitleTruncates(t *testing.T) {
	long := "What is the capital of France and why does it matter historically?"
	conv := Conversation{
		Title:    DefaultTitle,
		Messages: []Message{{Role: RoleUser, Content: long}},
	}
	conv.DeriveTitle()

	runes := []rune(conv.Title)
	if len(runes) != 31 || runes[len(runes)-1] != '…' {
		t.Errorf("title = %q (%d runes), want 30 runes plus ellipsis", conv.Title, len(runes))
	}
	if !strings.HasPrefix(long, string(runes[:30])) {
		t.Errorf("title %q is not a prefix of the user message", conv.Title)
	}
}

func TestDeriveTitleShortMessage(t *testing.T) {
	conv := Conversation{
		Title:    DefaultTitle,
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}
	conv.DeriveTitle()
	if conv.Title != "hello" {
		t.Errorf("title = %q, want %q", conv.Title, "hello")
	}
}

func TestDeriveTitleNoUserMessage(t *testing.T) {
	conv := NewConversation()
	conv.Title = ""
	conv.DeriveTitle()
	if conv.Title != DefaultTitle {
		t.Errorf("title = %q, want placeholder %q", conv.Title, DefaultTitle)
	}
}

func TestDeriveTitleKeepsExistingTitle(t *testing.T) {
	conv := Conversation{
		Title:    "내가 고른 제목",
		Messages: []Message{{Role: RoleUser, Content: "something else entirely"}},
	}
	conv.DeriveTitle()
	if conv.Title != "내가 고른 제목" {
		t.Errorf("title = %q, want the existing title preserved", conv.Title)
	}
}

func TestNormalizeHistory(t *testing.T) {
	raw := []Turn{
		{Role: RoleModel, Content: "hi"},
		{Role: RoleUser, Content: ""},
		{Role: RoleUser, Content: "ok"},
		{Role: RoleModel, Content: "sure"},
	}
	got := NormalizeHistory(raw)
	want := []Turn{
		{Role: RoleUser, Content: "ok"},
		{Role: RoleModel, Content: "sure"},
	}
	if len(got) != len(want) {
		t.Fatalf("normalized = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestNormalizeHistoryRejectsUnknownRoles(t *testing.T) {
	raw := []Turn{
		{Role: "system", Content: "you are helpful"},
		{Role: RoleUser, Content: "  question  "},
		{Role: "assistant", Content: "answer"},
	}
	got := NormalizeHistory(raw)
	if len(got) != 1 || got[0].Role != RoleUser || got[0].Content != "question" {
		t.Errorf("normalized = %+v, want single trimmed user turn", got)
	}
}

func TestNormalizeHistoryEmpty(t *testing.T) {
	if got := NormalizeHistory(nil); len(got) != 0 {
		t.Errorf("normalized = %+v, want empty", got)
	}
	// A history of only model turns has no valid prefix at all.
	if got := NormalizeHistory([]Turn{{Role: RoleModel, Content: Greeting}}); len(got) != 0 {
		t.Errorf("normalized = %+v, want empty", got)
	}
}
