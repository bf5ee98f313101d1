package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/infra/security"
	"github.com/santhoshmp/learningplanner/internal/usecase"
)

const bearerPrefix = "Bearer "

// RequireAuth verifies the bearer token and then checks the referenced session
// against the store. The signature alone is never enough: a well-signed token
// whose session was revoked or timed out is rejected here.
func RequireAuth(signer *security.TokenSigner, sessions *usecase.SessionService, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			unauthorized(c, "missing bearer token")
			return
		}

		claims, err := signer.Parse(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			if errors.Is(err, security.ErrTokenExpired) {
				unauthorized(c, "token expired")
				return
			}
			unauthorized(c, "token invalid")
			return
		}

		session, err := sessions.Validate(c.Request.Context(), claims.SessionID, ClientIPPtr(c))
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrSessionNotFound),
				errors.Is(err, usecase.ErrSessionRevoked),
				errors.Is(err, usecase.ErrSessionExpired):
				unauthorized(c, "session no longer active")
			default:
				log.Error("session validation failed",
					zap.String("trace_id", GetTraceID(c)),
					zap.Error(err),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":    "internal error",
					"trace_id": GetTraceID(c),
				})
			}
			return
		}

		c.Set(PrincipalIDKey, session.PrincipalID)
		c.Set(SessionIDKey, session.ID)
		c.Set(RoleKey, session.Role)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.PrincipalID = session.PrincipalID
		}

		c.Next()
	}
}

// RequireRole allows only the listed roles past this point. It must run after
// RequireAuth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		if !allowed[GetRole(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":    "forbidden",
				"trace_id": GetTraceID(c),
			})
			return
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", `Bearer realm="learningplanner"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":    message,
		"trace_id": GetTraceID(c),
	})
}
