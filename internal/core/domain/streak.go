package domain

import "time"

// StreakKind enumerates the tracked streak counters per child.
type StreakKind string

const (
	StreakDaily              StreakKind = "daily"
	StreakWeekly             StreakKind = "weekly"
	StreakActivityCompletion StreakKind = "activity_completion"
	StreakPerfectScore       StreakKind = "perfect_score"
	StreakHelpFree           StreakKind = "help_free"
)

// StreakCounter tracks consecutive qualifying periods or events of one kind for
// one child. Updates are performed under transactional isolation by the caller.
type StreakCounter struct {
	ChildID       string
	Kind          StreakKind
	Current       int
	Longest       int
	LastQualified *time.Time
	Active        bool
	UpdatedAt     time.Time
}

// Advance records a qualifying event at the given moment and reports whether the
// counter changed. Same-period repeats are idempotent. A missed period resets the
// current count to a fresh run of one without clearing the longest count.
func (s *StreakCounter) Advance(at time.Time) bool {
	day := dateOnly(at)

	if s.LastQualified == nil {
		s.Current = 1
		s.Active = true
		s.LastQualified = &day
		s.UpdatedAt = at
		if s.Longest < 1 {
			s.Longest = 1
		}
		return true
	}

	last := dateOnly(*s.LastQualified)
	gap := periodsBetween(s.Kind, last, day)

	switch {
	case gap == 0:
		return false
	case gap == 1:
		s.Current++
	default:
		s.Current = 1
	}

	s.Active = true
	s.LastQualified = &day
	s.UpdatedAt = at
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	return true
}

// Lapse resets the current count after a missed qualifying period. The longest
// count is retained.
func (s *StreakCounter) Lapse(at time.Time) bool {
	if s.Current == 0 && !s.Active {
		return false
	}
	s.Current = 0
	s.Active = false
	s.UpdatedAt = at
	return true
}

// Missed reports whether the streak's qualifying period has already been skipped
// as of the supplied moment.
func (s StreakCounter) Missed(at time.Time) bool {
	if s.LastQualified == nil {
		return false
	}
	return periodsBetween(s.Kind, dateOnly(*s.LastQualified), dateOnly(at)) > 1
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// periodsBetween counts qualifying periods separating two dates. Weekly streaks
// qualify per calendar week; every other kind qualifies per day. Weeks are
// compared through their Monday start dates, which stays correct across
// 53-week ISO years.
func periodsBetween(kind StreakKind, from, to time.Time) int {
	if kind == StreakWeekly {
		return int(weekStart(to).Sub(weekStart(from)).Hours() / (24 * 7))
	}
	return int(to.Sub(from).Hours() / 24)
}

// weekStart returns the Monday of the date's week.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
