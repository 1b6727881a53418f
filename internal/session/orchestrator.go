package session

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/streamlinechat/streamline/internal/chat"
	"github.com/streamlinechat/streamline/internal/protocol"
	"github.com/streamlinechat/streamline/internal/transport"
	"github.com/streamlinechat/streamline/internal/upstream"
)

// StreamOpener opens the raw event stream for one send. transport.Client
// satisfies it; tests substitute scripted streams.
type StreamOpener interface {
	OpenStream(ctx context.Context, message string, history []chat.Turn) (io.ReadCloser, error)
}

// Orchestrator runs a send end to end: concurrency guard, history
// normalization, stream consumption, and settling through the reconciler.
type Orchestrator struct {
	rec     *Reconciler
	opener  StreamOpener
	logger  *log.Logger
	onChunk func(delta string)
}

// OrchestratorConfig carries the orchestrator's dependencies.
type OrchestratorConfig struct {
	Reconciler *Reconciler
	Opener     StreamOpener
	Logger     *log.Logger
	// OnChunk, when set, observes each delta as it is applied. Called in
	// arrival order from the sending goroutine.
	OnChunk func(delta string)
}

// NewOrchestrator validates the config.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Reconciler == nil {
		return nil, errors.New("session: reconciler is required")
	}
	if cfg.Opener == nil {
		return nil, errors.New("session: stream opener is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Orchestrator{rec: cfg.Reconciler, opener: cfg.Opener, logger: cfg.Logger, onChunk: cfg.OnChunk}, nil
}

// Send runs one user turn against the conversation and blocks until it
// settles. Cancelling ctx aborts the transport at the next read boundary and
// resolves through the Cancelled path; cancellation is never reported as a
// failure. priorHistory is the transcript before this turn, as raw as the
// caller holds it; it is normalized before leaving the process.
func (o *Orchestrator) Send(ctx context.Context, conversationID, userText string, priorHistory []chat.Turn) Outcome {
	text := strings.TrimSpace(userText)
	if text == "" {
		return Failed(FailureValidation, chat.MsgEmptyMessage, "")
	}

	if err := o.rec.Begin(conversationID, text); err != nil {
		if errors.Is(err, ErrRequestInFlight) {
			return Failed(FailureConcurrency, err.Error(), "")
		}
		return Failed(FailureValidation, err.Error(), "")
	}

	history := chat.NormalizeHistory(priorHistory)

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	body, err := o.opener.OpenStream(reqCtx, text, history)
	if err != nil {
		if ctx.Err() != nil {
			return o.settle(ctx, conversationID, Cancelled(""))
		}
		return o.settle(ctx, conversationID, classifyOpenError(err))
	}
	defer body.Close()

	dec := protocol.NewDecoder(body)
	var acc strings.Builder
	for {
		// Read-boundary cancellation check: buffered frames do not hide a
		// cancel request.
		if ctx.Err() != nil {
			return o.settle(ctx, conversationID, Cancelled(acc.String()))
		}
		chunk, err := dec.Next()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return o.settle(ctx, conversationID, Finalized(acc.String()))
			case ctx.Err() != nil:
				return o.settle(ctx, conversationID, Cancelled(acc.String()))
			default:
				return o.settle(ctx, conversationID, classifyStreamError(err, acc.String()))
			}
		}
		acc.WriteString(chunk)
		o.rec.Apply(conversationID, acc.String())
		if o.onChunk != nil {
			o.onChunk(chunk)
		}
	}
}

// settle resolves the pending turn and persists. The outcome stands even if
// persistence fails; the store error is logged, not surfaced as a new
// failure kind.
func (o *Orchestrator) settle(ctx context.Context, conversationID string, out Outcome) Outcome {
	if err := o.rec.Settle(context.WithoutCancel(ctx), conversationID, out); err != nil {
		o.logger.Printf("session: settle %s: %v", conversationID, err)
	}
	return out
}

// classifyOpenError maps a stream-open failure onto the outcome taxonomy.
// Everything before the first frame is a transport concern.
func classifyOpenError(err error) Outcome {
	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return Failed(FailureTransport, statusErr.Message, "")
	}
	return Failed(FailureTransport, upstream.MsgGenericFailure, "")
}

// classifyStreamError maps a mid-stream failure onto the outcome taxonomy,
// keeping whatever text had accumulated.
func classifyStreamError(err error, partial string) Outcome {
	var upErr *protocol.UpstreamError
	if errors.As(err, &upErr) {
		msg := upErr.Message
		if msg == "" {
			msg = upstream.MsgGenericFailure
		}
		return Failed(FailureUpstream, msg, partial)
	}
	return Failed(FailureTransport, upstream.MsgGenericFailure, partial)
}
