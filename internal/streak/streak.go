// Package streak computes the current run of consecutive completed days for
// a habit and user.
//
// The walk starts at today and goes back one calendar day at a time. A missing
// completion today does not end the streak, so a user who has not checked in
// yet keeps the run built on previous days. Any other missing day ends it.
// Both the fetched history and the walk are bounded by Lookback, so a longer
// run is reported as Lookback.
package streak

import (
	"context"
	"time"

	"habitTrackerAPI/utils"
)

// Lookback is the number of days the calculator examines.
const Lookback = 90

// DateSource returns up to limit completion dates (YYYY-MM-DD) for a habit
// and user, most recent first.
type DateSource interface {
	RecentCompletionDates(ctx context.Context, habitID, userID int64, limit int) ([]string, error)
}

// Calculate returns the streak ending at today for the given completion dates.
func Calculate(dates []string, today time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	done := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		done[d] = struct{}{}
	}

	day := today.UTC()
	streak := 0
	for i := 0; i < Lookback; i++ {
		key := utils.DateKey(day.AddDate(0, 0, -i))
		if _, ok := done[key]; ok {
			streak++
		} else if i > 0 {
			break
		}
	}
	return streak
}

// ForHabit loads the bounded history from src and calculates the streak.
func ForHabit(ctx context.Context, src DateSource, habitID, userID int64, today time.Time) (int, error) {
	dates, err := src.RecentCompletionDates(ctx, habitID, userID, Lookback)
	if err != nil {
		return 0, err
	}
	return Calculate(dates, today), nil
}
