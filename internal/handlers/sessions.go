package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/detreview/internal/models"
)

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions := h.sessionStore.GetAll()
		sessionList := make([]models.Summary, 0, len(sessions))
		for _, session := range sessions {
			sessionList = append(sessionList, session.Summary())
		}
		sort.Slice(sessionList, func(i, j int) bool {
			return sessionList[i].CreatedAt.Before(sessionList[j].CreatedAt)
		})
		h.writeJSON(w, http.StatusOK, sessionList)
	case http.MethodPost:
		h.handleCreateSession(w, r)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/api/sessions/")

	session, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, http.StatusOK, session)
	case http.MethodDelete:
		h.sessionStore.Delete(sessionID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
