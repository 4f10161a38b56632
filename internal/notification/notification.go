package notification

import (
	"errors"
	"time"
)

const (
	DefaultEnabled        = true
	DefaultRemindTime     = 20
	DefaultTimezoneOffset = 180
)

// ErrNoDevices is returned by a push transport when the recipient has nothing
// registered to push to.
var ErrNoDevices = errors.New("no registered devices")

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

func (p Platform) Valid() bool {
	return p == PlatformAndroid || p == PlatformIOS || p == PlatformWeb
}

// Settings are a user's reminder preferences. RemindTime is an hour of the
// user's local day, TimezoneOffset is minutes east of UTC.
type Settings struct {
	TelegramID     int64     `json:"-" db:"telegram_id"`
	Enabled        bool      `json:"enabled" db:"enabled"`
	RemindTime     int       `json:"remind_time" db:"remind_time"`
	TimezoneOffset int       `json:"timezone_offset" db:"timezone_offset"`
	UpdatedAt      time.Time `json:"-" db:"updated_at"`
}

func DefaultSettings(telegramID int64) *Settings {
	return &Settings{
		TelegramID:     telegramID,
		Enabled:        DefaultEnabled,
		RemindTime:     DefaultRemindTime,
		TimezoneOffset: DefaultTimezoneOffset,
	}
}

type DeviceToken struct {
	UserID    int64     `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	Platform  Platform  `json:"platform" db:"platform"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Recipient is a user due for a reminder, joined with their settings.
type Recipient struct {
	TelegramID     int64  `db:"telegram_id"`
	FirstName      string `db:"first_name"`
	RemindTime     int    `db:"remind_time"`
	TimezoneOffset int    `db:"timezone_offset"`
}

// OutstandingHabit is a habit the recipient has not completed today.
type OutstandingHabit struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	Icon string `db:"icon"`
}
