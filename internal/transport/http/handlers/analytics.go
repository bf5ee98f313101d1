package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/usecase"
)

// AnalyticsHandler exposes the derived help-seeking and progress views.
type AnalyticsHandler struct {
	help       *usecase.HelpAnalyticsService
	progress   *usecase.ProgressService
	principals port.PrincipalRepository
}

// NewAnalyticsHandler constructs AnalyticsHandler.
func NewAnalyticsHandler(
	help *usecase.HelpAnalyticsService,
	progress *usecase.ProgressService,
	principals port.PrincipalRepository,
) *AnalyticsHandler {
	return &AnalyticsHandler{help: help, progress: progress, principals: principals}
}

// HelpSummary aggregates the child's help-request history into behavioral
// metrics.
func (h *AnalyticsHandler) HelpSummary(c *gin.Context) {
	childID, ok := resolveChildScope(c, h.principals, c.Param("childId"))
	if !ok {
		return
	}

	summary, err := h.help.Summary(c.Request.Context(), childID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAnalyticsUnavailable, Status: http.StatusServiceUnavailable, Message: "analytics unavailable"},
		}, http.StatusInternalServerError, "failed to compute help summary")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// HelpPatterns projects each help request inside the requested window into its
// analytical dimensions. The window defaults to a week.
func (h *AnalyticsHandler) HelpPatterns(c *gin.Context) {
	childID, ok := resolveChildScope(c, h.principals, c.Param("childId"))
	if !ok {
		return
	}

	window := domain.PatternWindow(c.DefaultQuery("window", string(domain.PatternWindowWeek)))
	if !window.Valid() {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "window must be one of day, week, month"))
		return
	}

	records, err := h.help.Patterns(c.Request.Context(), childID, window)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAnalyticsUnavailable, Status: http.StatusServiceUnavailable, Message: "analytics unavailable"},
		}, http.StatusInternalServerError, "failed to compute help patterns")
		return
	}

	c.JSON(http.StatusOK, gin.H{"child_id": childID, "window": window, "patterns": records, "count": len(records)})
}

// Suggestions derives up to three study hints for the requested subject from
// the child's pattern projection.
func (h *AnalyticsHandler) Suggestions(c *gin.Context) {
	childID, ok := resolveChildScope(c, h.principals, c.Param("childId"))
	if !ok {
		return
	}

	suggestions, err := h.help.Suggestions(c.Request.Context(), childID, c.Query("subject"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAnalyticsUnavailable, Status: http.StatusServiceUnavailable, Message: "analytics unavailable"},
		}, http.StatusInternalServerError, "failed to derive suggestions")
		return
	}

	if suggestions == nil {
		suggestions = []string{}
	}

	c.JSON(http.StatusOK, SuggestionsResponse{ChildID: childID, Suggestions: suggestions})
}

// Progress serves the child's progress summary through the cache-aside
// projection. A down cache degrades to direct computation, never to an error.
func (h *AnalyticsHandler) Progress(c *gin.Context) {
	childID, ok := resolveChildScope(c, h.principals, c.Param("childId"))
	if !ok {
		return
	}

	summary, err := h.progress.Summary(c.Request.Context(), childID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAnalyticsUnavailable, Status: http.StatusServiceUnavailable, Message: "analytics unavailable"},
		}, http.StatusInternalServerError, "failed to compute progress summary")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// WarmUp precomputes and caches summaries for the listed children.
func (h *AnalyticsHandler) WarmUp(c *gin.Context) {
	var req WarmUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "child_ids is required"))
		return
	}

	for _, childID := range req.ChildIDs {
		if _, ok := resolveChildScope(c, h.principals, childID); !ok {
			return
		}
	}

	if err := h.progress.WarmUp(c.Request.Context(), req.ChildIDs); err != nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "failed to warm progress cache"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "progress cache warmed"})
}

// CacheStats reports operational progress-cache metrics.
func (h *AnalyticsHandler) CacheStats(c *gin.Context) {
	stats, err := h.progress.CacheStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "cache unavailable"))
		return
	}

	c.JSON(http.StatusOK, CacheStatsResponse{
		Keys:        stats.Keys,
		MemoryBytes: stats.MemoryBytes,
	})
}
