// Package upstream abstracts the model inference providers the chat streams
// from. The core only consumes a session's delta sequence and its terminal
// success or error signal.
package upstream

import (
	"context"
	"errors"

	"github.com/streamlinechat/streamline/internal/chat"
)

// DefaultSystemPrompt is the assistant persona used when a profile does not
// override it.
const DefaultSystemPrompt = "당신은 친절하고 도움이 되는 어시스턴트입니다. 정보에 입각하여 간결하게 답변해주세요. 필요한 경우, 마크다운을 사용하여 텍스트 서식을 지정할 수 있습니다 (예: **굵게**, *기울임꼴*, `코드`)."

// User-facing failure messages. The credentials case is deliberately fixed so
// provider detail never leaks to the user.
const (
	MsgInvalidCredentials = "잘못된 API 키입니다. 설정을 확인해주세요."
	MsgGenericFailure     = "봇으로부터 응답을 받지 못했습니다. 다시 시도해주세요."
)

// ErrInvalidCredentials classifies authentication failures from any provider.
var ErrInvalidCredentials = errors.New("upstream: invalid credentials")

// Provider creates chat sessions against one inference backend.
type Provider interface {
	// CreateSession binds a system prompt and a normalized prior history into
	// a session the caller can stream one turn at a time from.
	CreateSession(systemPrompt string, history []chat.Turn) Session
	Close() error
}

// Session is one multi-turn chat binding against the provider.
type Session interface {
	// SendStream submits the user text and returns a pull-based delta source.
	SendStream(ctx context.Context, text string) (TokenStream, error)
}

// TokenStream yields incremental text deltas. Recv returns io.EOF on clean
// completion; any other error is terminal.
type TokenStream interface {
	Recv() (string, error)
	Close()
}

// UserMessage maps a provider failure to the message shown to the user.
func UserMessage(err error) string {
	if errors.Is(err, ErrInvalidCredentials) {
		return MsgInvalidCredentials
	}
	return MsgGenericFailure
}
