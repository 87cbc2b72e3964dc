package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/interfaces"
)

// SessionHandler serves POST /refresh-session and GET /session-status.
type SessionHandler struct {
	sessions interfaces.SessionProvider
	logger   arbor.ILogger
}

func NewSessionHandler(sessions interfaces.SessionProvider, logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// RefreshSessionHandler kicks off a background session refresh. The call
// returns immediately; progress is observable via /session-status and
// the logs.
func (h *SessionHandler) RefreshSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.sessions.RefreshAsync(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to start session refresh")
		WriteError(w, http.StatusInternalServerError, "Failed to start session refresh")
		return
	}

	WriteAccepted(w, "Session refresh started")
}

// SessionStatusHandler reports whether a persisted session exists and
// whether it currently passes live validation.
func (h *SessionHandler) SessionStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	status := h.sessions.Status(r.Context())
	WriteJSON(w, http.StatusOK, status)
}
