package user

import "time"

type User struct {
	TelegramID int64     `json:"telegram_id" db:"telegram_id"`
	FirstName  string    `json:"first_name" db:"first_name"`
	LastName   string    `json:"last_name" db:"last_name"`
	Username   string    `json:"username" db:"username"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DisplayName prefers the first name and falls back to the handle.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}
