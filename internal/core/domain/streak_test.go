package domain

import (
	"testing"
	"time"
)

func TestStreakCounter_AdvanceDaily(t *testing.T) {
	counter := StreakCounter{ChildID: "child-1", Kind: StreakDaily}

	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if !counter.Advance(day) {
		t.Fatal("first qualifying day must change the counter")
	}
	if counter.Current != 1 || counter.Longest != 1 {
		t.Fatalf("expected a fresh run of one, got current=%d longest=%d", counter.Current, counter.Longest)
	}

	// A repeat inside the same day is idempotent.
	if counter.Advance(day.Add(6 * time.Hour)) {
		t.Fatal("same-day repeat must not change the counter")
	}

	if !counter.Advance(day.AddDate(0, 0, 1)) {
		t.Fatal("next day must extend the run")
	}
	if counter.Current != 2 {
		t.Fatalf("expected current 2, got %d", counter.Current)
	}

	// Skipping a day resets the run but keeps the longest count.
	if !counter.Advance(day.AddDate(0, 0, 3)) {
		t.Fatal("advance after a gap must change the counter")
	}
	if counter.Current != 1 || counter.Longest != 2 {
		t.Fatalf("expected reset run with retained longest, got current=%d longest=%d", counter.Current, counter.Longest)
	}
}

func TestStreakCounter_WeeklyAcrossYearEnd(t *testing.T) {
	counter := StreakCounter{ChildID: "child-1", Kind: StreakWeekly}

	// 2026-12-28 is the Monday of the last week of a 53-week year; the next
	// Monday lands in the first week of 2027. Consecutive weeks must extend
	// the run across that boundary.
	lastWeek := time.Date(2026, 12, 28, 10, 0, 0, 0, time.UTC)
	if !counter.Advance(lastWeek) {
		t.Fatal("first qualifying week must change the counter")
	}

	nextWeek := time.Date(2027, 1, 4, 10, 0, 0, 0, time.UTC)
	if !counter.Advance(nextWeek) {
		t.Fatal("the following week must change the counter")
	}
	if counter.Current != 2 {
		t.Fatalf("consecutive weeks across the year end must extend the run, got current=%d", counter.Current)
	}

	// Within the same calendar week the counter stays put.
	if counter.Advance(nextWeek.AddDate(0, 0, 3)) {
		t.Fatal("same-week repeat must not change the counter")
	}
}

func TestStreakCounter_MissedAndLapse(t *testing.T) {
	counter := StreakCounter{ChildID: "child-1", Kind: StreakDaily}

	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	counter.Advance(day)

	if counter.Missed(day.AddDate(0, 0, 1)) {
		t.Fatal("the very next day is still reachable, not missed")
	}
	if !counter.Missed(day.AddDate(0, 0, 2)) {
		t.Fatal("two days later the daily streak is missed")
	}

	if !counter.Lapse(day.AddDate(0, 0, 2)) {
		t.Fatal("lapsing an active streak must change the counter")
	}
	if counter.Current != 0 || counter.Active {
		t.Fatalf("expected an inactive zero run after lapse, got current=%d active=%v", counter.Current, counter.Active)
	}
	if counter.Longest != 1 {
		t.Fatalf("lapse must retain the longest count, got %d", counter.Longest)
	}
	if counter.Lapse(day.AddDate(0, 0, 3)) {
		t.Fatal("lapsing twice must be a no-op")
	}
}
