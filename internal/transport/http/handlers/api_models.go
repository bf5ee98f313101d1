package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// FingerprintPayload is the device descriptor supplied at login.
type FingerprintPayload struct {
	AgentClass  string `json:"agent_class"`
	Platform    string `json:"platform"`
	Mobile      bool   `json:"mobile"`
	ScreenClass string `json:"screen_class"`
	Locale      string `json:"locale"`
	Timezone    string `json:"timezone"`
}

func (p FingerprintPayload) toDomain() domain.Fingerprint {
	return domain.Fingerprint{
		AgentClass:  p.AgentClass,
		Platform:    p.Platform,
		Mobile:      p.Mobile,
		ScreenClass: p.ScreenClass,
		Locale:      p.Locale,
		Timezone:    p.Timezone,
	}
}

// LoginRequest defines the payload for the login endpoint. Children send
// username and PIN, adults username or email and password; both arrive here as
// identifier and secret.
type LoginRequest struct {
	Identifier  string             `json:"identifier" binding:"required"`
	Secret      string             `json:"secret" binding:"required"`
	Fingerprint FingerprintPayload `json:"fingerprint"`
}

// PrincipalSummary describes a minimal view of a principal returned by the API.
type PrincipalSummary struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"display_name"`
	Role        domain.Role `json:"role"`
	Email       *string     `json:"email,omitempty"`
}

func newPrincipalSummary(p domain.Principal) PrincipalSummary {
	return PrincipalSummary{
		ID:          p.ID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Role:        p.Role,
		Email:       p.Email,
	}
}

// SessionSummary provides a compact view of session context in API responses.
type SessionSummary struct {
	ID             string     `json:"id"`
	PrincipalID    string     `json:"principal_id"`
	Role           domain.Role `json:"role"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	IdleTimeoutSec int64      `json:"idle_timeout_seconds"`
	MaxDurationSec int64      `json:"max_duration_seconds"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	RevokeReason   *string    `json:"revoke_reason,omitempty"`
}

func newSessionSummary(s domain.Session) SessionSummary {
	return SessionSummary{
		ID:             s.ID,
		PrincipalID:    s.PrincipalID,
		Role:           s.Role,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		IdleTimeoutSec: int64(s.IdleTimeout.Seconds()),
		MaxDurationSec: int64(s.MaxDuration.Seconds()),
		RevokedAt:      s.RevokedAt,
		RevokeReason:   s.RevokeReason,
	}
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	TokenType    string           `json:"token_type"`
	ExpiresIn    int              `json:"expires_in"`
	Principal    PrincipalSummary `json:"principal"`
	Session      SessionSummary   `json:"session"`
	Fingerprint  string           `json:"fingerprint_comparison"`
}

// TokenRefreshRequest represents the payload to refresh an access token.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenRefreshResponse contains tokens issued by the refresh endpoint.
type TokenRefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// SessionListResponse wraps a list of session summaries.
type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
	Count    int              `json:"count"`
}

// HelpRequestCreate defines the payload for opening a help request.
type HelpRequestCreate struct {
	Question   string         `json:"question" binding:"required"`
	Subject    string         `json:"subject"`
	Difficulty string         `json:"difficulty"`
	Context    map[string]any `json:"context"`
}

// HelpRequestRespond carries the answer to a pending help request.
type HelpRequestRespond struct {
	Response string `json:"response" binding:"required"`
}

// HelpRequestResolve records the resolution outcome of a help request.
type HelpRequestResolve struct {
	WasHelpful bool `json:"was_helpful"`
}

// HelpRequestView is the API projection of a help request.
type HelpRequestView struct {
	ID          string         `json:"id"`
	ChildID     string         `json:"child_id"`
	Question    string         `json:"question"`
	Response    *string        `json:"response,omitempty"`
	Subject     string         `json:"subject,omitempty"`
	Difficulty  string         `json:"difficulty,omitempty"`
	Resolved    bool           `json:"resolved"`
	WasHelpful  *bool          `json:"was_helpful,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	RespondedAt *time.Time     `json:"responded_at,omitempty"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
}

func newHelpRequestView(r domain.HelpRequest) HelpRequestView {
	return HelpRequestView{
		ID:          r.ID,
		ChildID:     r.ChildID,
		Question:    r.Question,
		Response:    r.Response,
		Subject:     r.Subject,
		Difficulty:  r.Difficulty,
		Resolved:    r.Resolved,
		WasHelpful:  r.WasHelpful,
		Context:     r.Context,
		CreatedAt:   r.CreatedAt,
		RespondedAt: r.RespondedAt,
		ResolvedAt:  r.ResolvedAt,
	}
}

// QuizContentPayload is the scored-quiz activity variant.
type QuizContentPayload struct {
	QuizID       string `json:"quiz_id"`
	Score        int    `json:"score"`
	MaxScore     int    `json:"max_score"`
	PerfectScore bool   `json:"perfect_score"`
}

// InteractiveContentPayload is the interactive-exercise activity variant.
type InteractiveContentPayload struct {
	ExerciseID string `json:"exercise_id"`
	StepsDone  int    `json:"steps_done"`
	Completed  bool   `json:"completed"`
}

// TextContentPayload is the reading-material activity variant.
type TextContentPayload struct {
	ResourceID  string `json:"resource_id"`
	ReadSeconds int    `json:"read_seconds"`
}

// ActivityEventRequest defines the payload for recording an activity event.
// Content is a tagged union; exactly one variant matching kind must be present.
type ActivityEventRequest struct {
	Kind        string                     `json:"kind" binding:"required"`
	Subject     string                     `json:"subject"`
	ContentKind string                     `json:"content_kind" binding:"required"`
	Quiz        *QuizContentPayload        `json:"quiz,omitempty"`
	Interactive *InteractiveContentPayload `json:"interactive,omitempty"`
	Text        *TextContentPayload        `json:"text,omitempty"`
}

func (r ActivityEventRequest) toContent() domain.ActivityContent {
	content := domain.ActivityContent{Kind: domain.ContentKind(r.ContentKind)}
	if r.Quiz != nil {
		content.Quiz = &domain.QuizContent{
			QuizID:       r.Quiz.QuizID,
			Score:        r.Quiz.Score,
			MaxScore:     r.Quiz.MaxScore,
			PerfectScore: r.Quiz.PerfectScore,
		}
	}
	if r.Interactive != nil {
		content.Interactive = &domain.InteractiveContent{
			ExerciseID: r.Interactive.ExerciseID,
			StepsDone:  r.Interactive.StepsDone,
			Completed:  r.Interactive.Completed,
		}
	}
	if r.Text != nil {
		content.Text = &domain.TextContent{
			ResourceID:  r.Text.ResourceID,
			ReadSeconds: r.Text.ReadSeconds,
		}
	}
	return content
}

// ActivityEventResponse confirms a recorded activity event.
type ActivityEventResponse struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SuggestionsResponse wraps derived study suggestions.
type SuggestionsResponse struct {
	ChildID     string   `json:"child_id"`
	Suggestions []string `json:"suggestions"`
}

// WarmUpRequest lists children whose progress summaries should be precomputed.
type WarmUpRequest struct {
	ChildIDs []string `json:"child_ids" binding:"required"`
}

// CacheStatsResponse reports operational progress-cache metrics.
type CacheStatsResponse struct {
	Keys        int64 `json:"keys"`
	MemoryBytes int64 `json:"memory_bytes"`
}

// HealthResponse reports service liveness and dependency reachability.
type HealthResponse struct {
	Status    string            `json:"status"`
	StartedAt time.Time         `json:"started_at"`
	Checks    map[string]string `json:"checks,omitempty"`
}
