package habit

import "time"

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

const DefaultIcon = "⭐"

func (f Frequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

type Habit struct {
	ID          int64     `json:"id" db:"id"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Icon        string    `json:"icon" db:"icon"`
	Frequency   Frequency `json:"frequency" db:"frequency"`
	IsPublic    bool      `json:"is_public" db:"is_public"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Role is how a user relates to a habit.
type Role string

const (
	RoleNone       Role = ""
	RoleOwner      Role = "owner"
	RoleSubscriber Role = "subscriber"
)

// CanComplete reports whether the role grants completion access.
func (r Role) CanComplete() bool {
	return r == RoleOwner || r == RoleSubscriber
}

// Listed is a habit row as returned by list queries, before per-user annotation.
type Listed struct {
	Habit
	Role            Role   `json:"-"`
	OwnerName       string `json:"owner_name,omitempty"`
	OwnerUsername   string `json:"owner_username,omitempty"`
	SubscriberCount int    `json:"subscriber_count"`
}

type HabitSummary struct {
	Habit
	OwnerName       string `json:"owner_name,omitempty"`
	OwnerUsername   string `json:"owner_username,omitempty"`
	SubscriberCount int    `json:"subscriber_count"`
	Streak          int    `json:"streak"`
	CompletedToday  bool   `json:"completedToday"`
}

type HabitList struct {
	My         []*HabitSummary `json:"my"`
	Subscribed []*HabitSummary `json:"subscribed"`
}

type HabitStats struct {
	TotalCompletions int `json:"totalCompletions"`
	CurrentStreak    int `json:"currentStreak"`
}

type CreateHabitRequest struct {
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Frequency   Frequency `json:"frequency"`
	IsPublic    bool      `json:"is_public"`
}
