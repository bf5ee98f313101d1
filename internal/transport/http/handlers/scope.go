package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/repository"
	"github.com/santhoshmp/learningplanner/internal/transport/http/middleware"
)

// resolveChildScope authorizes access to a child's data. The child itself
// always passes; an adult passes only with guardian oversight of that child.
// On failure the response is already written and ok is false.
func resolveChildScope(c *gin.Context, principals port.PrincipalRepository, childID string) (string, bool) {
	callerID := middleware.GetPrincipalID(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return "", false
	}

	if childID == "" || childID == callerID {
		return callerID, true
	}

	if middleware.GetRole(c) != domain.RoleAdult {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "not authorized for this child"))
		return "", false
	}

	child, err := principals.GetByID(c.Request.Context(), childID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "child not found"))
			return "", false
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to resolve child"))
		return "", false
	}

	if !child.OverseenBy(callerID) {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "not authorized for this child"))
		return "", false
	}

	return childID, true
}
