package domain

import (
	"errors"
	"strings"
	"time"
)

// ActivityKind is the closed set of recordable activity events.
type ActivityKind string

const (
	ActivityPageAccess  ActivityKind = "page_access"
	ActivityHelpRequest ActivityKind = "help_request"
	ActivityProgress    ActivityKind = "activity_progress"
)

// ContentKind tags the typed payload carried by an activity event.
type ContentKind string

const (
	ContentQuiz        ContentKind = "quiz"
	ContentInteractive ContentKind = "interactive"
	ContentText        ContentKind = "text"
)

var (
	// ErrInvalidActivityContent indicates the content payload failed boundary validation.
	ErrInvalidActivityContent = errors.New("invalid activity content")
)

// ActivityContent is a tagged union validated at the boundary. Exactly one of the
// variant pointers matching Kind must be populated.
type ActivityContent struct {
	Kind        ContentKind
	Quiz        *QuizContent
	Interactive *InteractiveContent
	Text        *TextContent
}

// QuizContent records a scored quiz attempt.
type QuizContent struct {
	QuizID       string
	Score        int
	MaxScore     int
	PerfectScore bool
}

// InteractiveContent records an interactive exercise step.
type InteractiveContent struct {
	ExerciseID string
	StepsDone  int
	Completed  bool
}

// TextContent records consumption of reading material.
type TextContent struct {
	ResourceID  string
	ReadSeconds int
}

// Validate enforces the closed-variant contract: the tag is known, the matching
// variant is present, and the other variants are absent.
func (c ActivityContent) Validate() error {
	switch c.Kind {
	case ContentQuiz:
		if c.Quiz == nil || c.Interactive != nil || c.Text != nil {
			return ErrInvalidActivityContent
		}
		if c.Quiz.QuizID == "" || c.Quiz.MaxScore <= 0 || c.Quiz.Score < 0 || c.Quiz.Score > c.Quiz.MaxScore {
			return ErrInvalidActivityContent
		}
	case ContentInteractive:
		if c.Interactive == nil || c.Quiz != nil || c.Text != nil {
			return ErrInvalidActivityContent
		}
		if c.Interactive.ExerciseID == "" || c.Interactive.StepsDone < 0 {
			return ErrInvalidActivityContent
		}
	case ContentText:
		if c.Text == nil || c.Quiz != nil || c.Interactive != nil {
			return ErrInvalidActivityContent
		}
		if c.Text.ResourceID == "" || c.Text.ReadSeconds < 0 {
			return ErrInvalidActivityContent
		}
	default:
		return ErrInvalidActivityContent
	}
	return nil
}

// ActivityEvent is an append-only record of an authenticated action taken inside
// a session. Events are never updated.
type ActivityEvent struct {
	ID          string
	PrincipalID string
	SessionID   string
	Kind        ActivityKind
	Subject     string
	Content     ActivityContent
	OccurredAt  time.Time
}

// Validate checks the event is well-formed before it is appended.
func (e ActivityEvent) Validate() error {
	if strings.TrimSpace(e.PrincipalID) == "" || strings.TrimSpace(e.SessionID) == "" {
		return ErrInvalidActivityContent
	}
	switch e.Kind {
	case ActivityPageAccess, ActivityHelpRequest, ActivityProgress:
	default:
		return ErrInvalidActivityContent
	}
	return e.Content.Validate()
}
