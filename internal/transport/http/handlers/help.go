package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/transport/http/middleware"
	"github.com/santhoshmp/learningplanner/internal/usecase"
)

// HelpHandler exposes the help-request lifecycle endpoints.
type HelpHandler struct {
	analytics *usecase.HelpAnalyticsService
}

// NewHelpHandler constructs HelpHandler.
func NewHelpHandler(analytics *usecase.HelpAnalyticsService) *HelpHandler {
	return &HelpHandler{analytics: analytics}
}

// Create opens a help request for the authenticated child. Crossing the daily
// volume limit notifies the guardian but never blocks the question.
func (h *HelpHandler) Create(c *gin.Context) {
	if middleware.GetRole(c) != domain.RoleChild {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "only children create help requests"))
		return
	}

	var req HelpRequestCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid help request payload"))
		return
	}

	request, err := h.analytics.CreateHelpRequest(c.Request.Context(), usecase.HelpRequestInput{
		ChildID:    middleware.GetPrincipalID(c),
		Question:   req.Question,
		Subject:    req.Subject,
		Difficulty: req.Difficulty,
		Context:    req.Context,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to create help request"))
		return
	}

	c.JSON(http.StatusCreated, newHelpRequestView(*request))
}

// Respond attaches an answer to a pending help request.
func (h *HelpHandler) Respond(c *gin.Context) {
	var req HelpRequestRespond
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "response is required"))
		return
	}

	request, err := h.analytics.Respond(c.Request.Context(), c.Param("id"), req.Response)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrHelpRequestNotFound, Status: http.StatusNotFound, Message: "help request not found"},
		}, http.StatusInternalServerError, "failed to respond to help request")
		return
	}

	c.JSON(http.StatusOK, newHelpRequestView(*request))
}

// Resolve marks a help request resolved and records whether the answer helped.
// Resolving twice only updates the helpfulness flag.
func (h *HelpHandler) Resolve(c *gin.Context) {
	var req HelpRequestResolve
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid resolve payload"))
		return
	}

	request, err := h.analytics.Resolve(c.Request.Context(), c.Param("id"), req.WasHelpful)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrHelpRequestNotFound, Status: http.StatusNotFound, Message: "help request not found"},
		}, http.StatusInternalServerError, "failed to resolve help request")
		return
	}

	c.JSON(http.StatusOK, newHelpRequestView(*request))
}
