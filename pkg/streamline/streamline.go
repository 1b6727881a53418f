// Package streamline is the public embedding API: it re-exports the client
// core so integrations can drive chats without importing internal packages.
package streamline

import (
	"context"
	"log"

	"github.com/streamlinechat/streamline/internal/bootstrap"
	"github.com/streamlinechat/streamline/internal/chat"
	internalcfg "github.com/streamlinechat/streamline/internal/config"
	"github.com/streamlinechat/streamline/internal/convstore"
	"github.com/streamlinechat/streamline/internal/session"
	"github.com/streamlinechat/streamline/internal/transport"
)

type (
	Conversation = chat.Conversation
	Message      = chat.Message
	Turn         = chat.Turn

	Outcome     = session.Outcome
	OutcomeKind = session.OutcomeKind
	FailureKind = session.FailureKind

	Reconciler   = session.Reconciler
	Orchestrator = session.Orchestrator
	Store        = convstore.Store

	Config = internalcfg.Config
)

const (
	OutcomeFinalized = session.OutcomeFinalized
	OutcomeCancelled = session.OutcomeCancelled
	OutcomeFailed    = session.OutcomeFailed
)

// LoadConfig delegates to the internal loader while keeping the consumer API
// inside the public namespace.
func LoadConfig(root string) (Config, error) {
	return internalcfg.Load(root)
}

// Client bundles the pieces an embedder needs to run chats against a
// streamline server.
type Client struct {
	Reconciler   *Reconciler
	Orchestrator *Orchestrator
	store        Store
}

// ClientOptions configures New. Zero values fall back to the config's store
// backend and server URL.
type ClientOptions struct {
	Config  Config
	Store   Store // optional, overrides the configured backend
	Logger  *log.Logger
	OnChunk func(delta string)
}

// New wires a store, reconciler, transport and orchestrator into one client.
func New(ctx context.Context, opts ClientOptions) (*Client, error) {
	store := opts.Store
	if store == nil {
		var err error
		store, err = bootstrap.OpenStore(opts.Config)
		if err != nil {
			return nil, err
		}
	}

	rec, err := session.NewReconciler(ctx, session.ReconcilerConfig{Store: store, Logger: opts.Logger})
	if err != nil {
		return nil, err
	}

	httpClient, err := transport.NewClient(opts.Config.ServerURL, nil)
	if err != nil {
		return nil, err
	}

	orch, err := session.NewOrchestrator(session.OrchestratorConfig{
		Reconciler: rec,
		Opener:     httpClient,
		Logger:     opts.Logger,
		OnChunk:    opts.OnChunk,
	})
	if err != nil {
		return nil, err
	}

	return &Client{Reconciler: rec, Orchestrator: orch, store: store}, nil
}

// Send runs one user turn against a conversation and blocks until it settles.
func (c *Client) Send(ctx context.Context, conversationID, text string, priorHistory []Turn) Outcome {
	return c.Orchestrator.Send(ctx, conversationID, text, priorHistory)
}

// Close releases the underlying store.
func (c *Client) Close() error {
	return c.store.Close()
}
