package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/justinas/nosurf"

	"fanplatform.dk/internal/events"
)

type SystemHandlers struct {
	Hub *events.Hub
}

func (h *SystemHandlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CSRFToken returns the token to echo in X-CSRF-Token on mutating requests.
// The token is empty when CSRF protection is disabled.
func (h *SystemHandlers) CSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": nosurf.Token(r)})
}

// Events upgrades GET /api/ws?club_id=N to a websocket of status events.
func (h *SystemHandlers) Events(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "realtime events are disabled")
		return
	}
	clubID, err := strconv.ParseInt(r.URL.Query().Get("club_id"), 10, 64)
	if err != nil || clubID <= 0 {
		writeError(w, http.StatusBadRequest, "club_id is required")
		return
	}
	if err := h.Hub.Serve(w, r, clubID); err != nil {
		slog.Warn("Failed to upgrade websocket", "error", err)
	}
}
