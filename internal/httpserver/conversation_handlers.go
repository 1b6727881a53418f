package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/streamlinechat/streamline/internal/chat"
	"github.com/streamlinechat/streamline/internal/convstore"
)

// handleListConversations returns the stored collection in display order.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.store.Load(r.Context())
	if err != nil {
		s.logger.Printf("httpserver: load conversations: %v", err)
		s.respondError(w, http.StatusInternalServerError, "대화 목록을 불러오지 못했습니다.")
		return
	}
	convstore.SortForDisplay(convs)
	if convs == nil {
		convs = []chat.Conversation{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

// handleDeleteConversation removes one conversation and saves the rest back.
func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	convs, err := s.store.Load(r.Context())
	if err != nil {
		s.logger.Printf("httpserver: load conversations: %v", err)
		s.respondError(w, http.StatusInternalServerError, "대화 목록을 불러오지 못했습니다.")
		return
	}
	kept := convs[:0]
	found := false
	for _, c := range convs {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		s.respondError(w, http.StatusNotFound, "대화를 찾을 수 없습니다.")
		return
	}
	if err := s.store.Save(r.Context(), kept); err != nil {
		s.logger.Printf("httpserver: save conversations: %v", err)
		s.respondError(w, http.StatusInternalServerError, "대화를 저장하지 못했습니다.")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// handleRenameConversation sets an explicit title on one conversation.
func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, msgBadBody)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		s.respondError(w, http.StatusBadRequest, "제목이 비어 있습니다.")
		return
	}

	convs, err := s.store.Load(r.Context())
	if err != nil {
		s.logger.Printf("httpserver: load conversations: %v", err)
		s.respondError(w, http.StatusInternalServerError, "대화 목록을 불러오지 못했습니다.")
		return
	}
	var updated *chat.Conversation
	for i := range convs {
		if convs[i].ID == id {
			convs[i].Title = chat.TruncateTitle(title)
			updated = &convs[i]
			break
		}
	}
	if updated == nil {
		s.respondError(w, http.StatusNotFound, "대화를 찾을 수 없습니다.")
		return
	}
	if err := s.store.Save(r.Context(), convs); err != nil {
		s.logger.Printf("httpserver: save conversations: %v", err)
		s.respondError(w, http.StatusInternalServerError, "대화를 저장하지 못했습니다.")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}
