// Package httpserver exposes the chat streaming endpoint and conversation
// management REST surface.
package httpserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/streamlinechat/streamline/internal/convstore"
	"github.com/streamlinechat/streamline/internal/upstream"
	"github.com/streamlinechat/streamline/internal/version"
)

// Server hosts the streaming chat endpoint backed by one upstream provider
// and the conversation endpoints backed by the persistence store.
type Server struct {
	provider     upstream.Provider
	systemPrompt string
	store        convstore.Store
	logger       *log.Logger
	debug        bool
}

// Config carries the server's dependencies.
type Config struct {
	Provider     upstream.Provider
	SystemPrompt string
	Store        convstore.Store
	Logger       *log.Logger
	Debug        bool
}

// New validates the config and builds a server.
func New(cfg Config) (*Server, error) {
	if cfg.Provider == nil {
		return nil, errors.New("httpserver: provider is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("httpserver: store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = upstream.DefaultSystemPrompt
	}
	return &Server{
		provider:     cfg.Provider,
		systemPrompt: cfg.SystemPrompt,
		store:        cfg.Store,
		logger:       cfg.Logger,
		debug:        cfg.Debug,
	}, nil
}

// Router assembles the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Post("/chat", s.handleChat)
		api.Options("/chat", s.handleChatOptions)
		api.Get("/conversations", s.handleListConversations)
		api.Delete("/conversations/{id}", s.handleDeleteConversation)
		api.Patch("/conversations/{id}", s.handleRenameConversation)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": version.Info()})
}

func (s *Server) handleChatOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "POST, OPTIONS")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]any{"error": message})
}

func (s *Server) debugf(format string, args ...any) {
	if s.debug {
		s.logger.Printf(format, args...)
	}
}
