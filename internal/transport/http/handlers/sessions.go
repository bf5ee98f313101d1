package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/transport/http/middleware"
	"github.com/santhoshmp/learningplanner/internal/usecase"
)

// SessionHandler exposes session listing and revocation endpoints. Guardians
// may scope any read to one of their children with the child_id query.
type SessionHandler struct {
	sessions   *usecase.SessionService
	principals port.PrincipalRepository
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions *usecase.SessionService, principals port.PrincipalRepository) *SessionHandler {
	return &SessionHandler{sessions: sessions, principals: principals}
}

// ListActive returns the sessions active right now for the caller or, with
// oversight, for one of the caller's children.
func (h *SessionHandler) ListActive(c *gin.Context) {
	principalID, ok := resolveChildScope(c, h.principals, c.Query("child_id"))
	if !ok {
		return
	}

	sessions, err := h.sessions.ListActive(c.Request.Context(), principalID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	resp := SessionListResponse{Sessions: make([]SessionSummary, 0, len(sessions))}
	for _, session := range sessions {
		resp.Sessions = append(resp.Sessions, newSessionSummary(session))
	}
	resp.Count = len(resp.Sessions)

	c.JSON(http.StatusOK, resp)
}

// History returns recent sessions inside the window, terminated ones included,
// so guardians can review how and why sessions ended. The window query accepts
// a duration such as 72h; when absent the configured history window applies.
func (h *SessionHandler) History(c *gin.Context) {
	principalID, ok := resolveChildScope(c, h.principals, c.Query("child_id"))
	if !ok {
		return
	}

	var window time.Duration
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "window must be a positive duration"))
			return
		}
		window = parsed
	}

	sessions, err := h.sessions.History(c.Request.Context(), principalID, window)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list session history"))
		return
	}

	resp := SessionListResponse{Sessions: make([]SessionSummary, 0, len(sessions))}
	for _, session := range sessions {
		resp.Sessions = append(resp.Sessions, newSessionSummary(session))
	}
	resp.Count = len(resp.Sessions)

	c.JSON(http.StatusOK, resp)
}

// RevokeAll terminates every active session of the scoped principal. Guardians
// use this to pull a child offline immediately.
func (h *SessionHandler) RevokeAll(c *gin.Context) {
	principalID, ok := resolveChildScope(c, h.principals, c.Query("child_id"))
	if !ok {
		return
	}

	reason := "user_request"
	if principalID != middleware.GetPrincipalID(c) {
		reason = "guardian_request"
	}

	count, err := h.sessions.RevokeAll(c.Request.Context(), principalID, middleware.GetPrincipalID(c), reason)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to revoke sessions"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"revoked": count})
}
