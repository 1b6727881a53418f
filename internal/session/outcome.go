// Package session drives a chat request from send to settle: it owns the
// in-flight request per conversation, feeds incremental text into the
// conversation state, and persists the result on every terminal outcome.
package session

// FailureKind classifies a Failed outcome for the caller. Everything below
// the orchestrator is normalized into one of these before it reaches the
// reconciler.
type FailureKind string

const (
	FailureValidation  FailureKind = "validation"
	FailureTransport   FailureKind = "transport"
	FailureUpstream    FailureKind = "upstream"
	FailureConcurrency FailureKind = "concurrency"
)

// OutcomeKind is the terminal disposition of a send.
type OutcomeKind string

const (
	OutcomeFinalized OutcomeKind = "finalized"
	OutcomeCancelled OutcomeKind = "cancelled"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome is the result of one send. Text carries the full answer for
// Finalized and whatever had accumulated for Cancelled. Failure and Message
// are set only for Failed.
type Outcome struct {
	Kind    OutcomeKind
	Text    string
	Failure FailureKind
	Message string
}

// Finalized reports a stream that completed normally.
func Finalized(text string) Outcome {
	return Outcome{Kind: OutcomeFinalized, Text: text}
}

// Cancelled reports a user-initiated abort. Partial text is carried along;
// cancellation is never an error.
func Cancelled(partial string) Outcome {
	return Outcome{Kind: OutcomeCancelled, Text: partial}
}

// Failed reports a classified failure with a user-facing message. Partial
// text, if any had accumulated before the failure, is kept.
func Failed(kind FailureKind, message, partial string) Outcome {
	return Outcome{Kind: OutcomeFailed, Text: partial, Failure: kind, Message: message}
}
