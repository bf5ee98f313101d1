package domain

import "time"

// HelpRequest is a child's question together with its eventual resolution.
// Requests form a historical record and are never deleted.
type HelpRequest struct {
	ID          string
	ChildID     string
	Question    string
	Response    *string
	Subject     string
	Difficulty  string
	Resolved    bool
	WasHelpful  *bool
	Context     map[string]any
	CreatedAt   time.Time
	RespondedAt *time.Time
	ResolvedAt  *time.Time
}

// MarkResolved records the resolution outcome. Resolution metadata is merged into
// the existing context; prior context entries are preserved. Resolving an already
// resolved request only updates the helpfulness flag.
func (h *HelpRequest) MarkResolved(at time.Time, wasHelpful bool) {
	helpful := wasHelpful
	h.WasHelpful = &helpful

	if h.Resolved {
		return
	}

	h.Resolved = true
	atCopy := at
	h.ResolvedAt = &atCopy

	if h.Context == nil {
		h.Context = make(map[string]any)
	}
	h.Context["resolved_at"] = at.UTC().Format(time.RFC3339)
	h.Context["was_helpful"] = wasHelpful
}

// ResolutionLatency returns the elapsed time between the request and its response.
// The second return value is false when the request has no recorded response.
func (h HelpRequest) ResolutionLatency() (time.Duration, bool) {
	if !h.Resolved || h.Response == nil || h.RespondedAt == nil {
		return 0, false
	}
	return h.RespondedAt.Sub(h.CreatedAt), true
}
