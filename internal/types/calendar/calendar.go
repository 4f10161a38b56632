package calendar

// FriendCompletion is another user's completion of a shared habit.
type FriendCompletion struct {
	Date       string `json:"date" db:"date"`
	FirstName  string `json:"first_name" db:"first_name"`
	TelegramID int64  `json:"telegram_id" db:"telegram_id"`
}

type MonthCompletions struct {
	My      []string            `json:"my"`
	Friends []*FriendCompletion `json:"friends"`
}
