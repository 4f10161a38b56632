package user

// Identity is the caller resolved from a signed init payload or the dev header.
type Identity struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

func (i Identity) ToUser() *User {
	return &User{
		TelegramID: i.ID,
		FirstName:  i.FirstName,
		LastName:   i.LastName,
		Username:   i.Username,
	}
}

// Profile is the caller's own account with a summary of their habits.
type Profile struct {
	User
	Initials         string `json:"initials"`
	OwnedHabits      int    `json:"owned_habits"`
	SubscribedHabits int    `json:"subscribed_habits"`
	DoneToday        int    `json:"done_today"`
	BestStreak       int    `json:"best_streak"`
}
