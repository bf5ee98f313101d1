package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/transport/http/middleware"
	"github.com/santhoshmp/learningplanner/internal/usecase"
)

// ActivityHandler records learning activity events for the authenticated
// session.
type ActivityHandler struct {
	activities *usecase.ActivityService
}

// NewActivityHandler constructs ActivityHandler.
func NewActivityHandler(activities *usecase.ActivityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// Record validates and appends one activity event. The principal and session
// come from the access token, never from the payload.
func (h *ActivityHandler) Record(c *gin.Context) {
	var req ActivityEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid activity payload"))
		return
	}

	event := domain.ActivityEvent{
		PrincipalID: middleware.GetPrincipalID(c),
		SessionID:   middleware.GetSessionID(c),
		Kind:        domain.ActivityKind(req.Kind),
		Subject:     req.Subject,
		Content:     req.toContent(),
	}

	recorded, err := h.activities.Record(c.Request.Context(), event)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidActivityContent) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid activity content"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to record activity"))
		return
	}

	c.JSON(http.StatusCreated, ActivityEventResponse{
		ID:         recorded.ID,
		OccurredAt: recorded.OccurredAt,
	})
}
