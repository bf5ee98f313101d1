package domain

import "time"

// SeekingPattern categorizes a child's help-seeking rate over the trailing week.
type SeekingPattern string

const (
	SeekingIndependent SeekingPattern = "independent"
	SeekingFrequent    SeekingPattern = "frequent"
	SeekingIntensive   SeekingPattern = "intensive"
)

// SubjectFrequency pairs a subject tag with how often it appears.
type SubjectFrequency struct {
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

// HelpAnalyticsSummary aggregates a child's help-request history into
// behavioral metrics. Derived entirely from the append-only HelpRequest log.
type HelpAnalyticsSummary struct {
	ChildID               string             `json:"childId"`
	TotalHelpRequests     int                `json:"totalHelpRequests"`
	HelpRequestsToday     int                `json:"helpRequestsToday"`
	HelpRequestsThisWeek  int                `json:"helpRequestsThisWeek"`
	TopSubjects           []SubjectFrequency `json:"topSubjects"`
	AvgResolutionHours    float64            `json:"avgResolutionHours"`
	MostHelpfulRequests   []HelpRequest      `json:"mostHelpfulRequests"`
	SeekingPattern        SeekingPattern     `json:"seekingPattern"`
	NotificationThreshold bool               `json:"notificationThresholdCrossed"`
	GeneratedAt           time.Time          `json:"generatedAt"`
}

// TimeOfDayBucket is a coarse bucketing of when a help request was made.
type TimeOfDayBucket string

const (
	BucketMorning   TimeOfDayBucket = "morning"
	BucketAfternoon TimeOfDayBucket = "afternoon"
	BucketEvening   TimeOfDayBucket = "evening"
	BucketNight     TimeOfDayBucket = "night"
)

// BucketForHour maps an hour of day to its coarse bucket.
func BucketForHour(hour int) TimeOfDayBucket {
	switch {
	case hour >= 6 && hour < 12:
		return BucketMorning
	case hour >= 12 && hour < 18:
		return BucketAfternoon
	case hour >= 18 && hour < 22:
		return BucketEvening
	default:
		return BucketNight
	}
}

// PatternWindow bounds how far back the pattern projection reaches.
type PatternWindow string

const (
	PatternWindowDay   PatternWindow = "day"
	PatternWindowWeek  PatternWindow = "week"
	PatternWindowMonth PatternWindow = "month"
)

// Valid reports whether the window is one of the known kinds.
func (w PatternWindow) Valid() bool {
	return w == PatternWindowDay || w == PatternWindowWeek || w == PatternWindowMonth
}

// Duration returns the trailing span the window covers. Unknown kinds fall back
// to a week.
func (w PatternWindow) Duration() time.Duration {
	switch w {
	case PatternWindowDay:
		return 24 * time.Hour
	case PatternWindowMonth:
		return 30 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// QuestionType is a lightweight classification of a help question's shape.
type QuestionType string

const (
	QuestionConceptual QuestionType = "conceptual"
	QuestionProcedural QuestionType = "procedural"
	QuestionFactual    QuestionType = "factual"
)

// PatternRecord is one entry of the finite, restartable help-request pattern
// projection: one record per qualifying request.
type PatternRecord struct {
	HelpRequestID string          `json:"helpRequestId"`
	TimeOfDay     TimeOfDayBucket `json:"timeOfDay"`
	Subject       string          `json:"subject"`
	Difficulty    string          `json:"difficulty"`
	QuestionType  QuestionType    `json:"questionType"`
	Resolved      bool            `json:"resolved"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// StreakSnapshot is the cached projection of one streak counter.
type StreakSnapshot struct {
	Kind    StreakKind `json:"kind"`
	Current int        `json:"current"`
	Longest int        `json:"longest"`
	Active  bool       `json:"active"`
}

// ProgressSummary is the expensive aggregation served through the progress
// cache. It is always re-derivable from persisted state; losing the cached copy
// loses latency, never information.
type ProgressSummary struct {
	ChildID              string           `json:"childId"`
	TotalActivities      int              `json:"totalActivities"`
	ActivitiesThisWeek   int              `json:"activitiesThisWeek"`
	QuizzesCompleted     int              `json:"quizzesCompleted"`
	PerfectScores        int              `json:"perfectScores"`
	AvgQuizScorePercent  float64          `json:"avgQuizScorePercent"`
	Streaks              []StreakSnapshot `json:"streaks"`
	HelpRequestsThisWeek int              `json:"helpRequestsThisWeek"`
	ComputedAt           time.Time        `json:"computedAt"`
}
