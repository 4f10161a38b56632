package friendship

import "habitTrackerAPI/internal/types/habit"

// Friend is a user who owns at least one public habit.
type Friend struct {
	ID         int64  `json:"id" db:"telegram_id"`
	FirstName  string `json:"first_name" db:"first_name"`
	LastName   string `json:"last_name" db:"last_name"`
	Username   string `json:"username" db:"username"`
	Initials   string `json:"initials"`
	HabitCount int    `json:"habitCount" db:"habit_count"`
}

type FriendProfile struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Initials  string `json:"initials"`
}

type FriendHabit struct {
	habit.Habit
	SubscriberCount int  `json:"subscriber_count" db:"subscriber_count"`
	IsSubscribed    bool `json:"is_subscribed" db:"is_subscribed"`
}

type FriendHabitsResponse struct {
	Friend *FriendProfile  `json:"friend"`
	Habits []*FriendHabit `json:"habits"`
}
