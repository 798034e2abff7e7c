package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"ledgerchat/internal/dispatch"
	applog "ledgerchat/internal/log"
)

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Entries []dispatch.Entry `json:"entries"`
}

// handleMessage runs one chat turn: the user's text goes through the
// dispatcher and the full exchange comes back as transcript entries.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	entries := s.dispatcher.Handle(r.Context(), text)
	writeJSON(w, http.StatusOK, messageResponse{Entries: entries})
}

// handleDashboard returns the current live view as JSON, the same payload
// websocket clients receive on each change.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.coordinator.View())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", applog.FieldError, err)
	}
}
