package subscription

import "habitTrackerAPI/internal/types/habit"

type SubscriptionResult struct {
	Subscribed      bool `json:"subscribed"`
	SubscriberCount int  `json:"subscriber_count"`
}

// InvitePreview is the public view of a shared habit.
type InvitePreview struct {
	ID              int64           `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	Icon            string          `json:"icon" db:"icon"`
	Frequency       habit.Frequency `json:"frequency" db:"frequency"`
	Description     string          `json:"description" db:"description"`
	OwnerName       string          `json:"owner_name" db:"owner_name"`
	OwnerID         int64           `json:"owner_id" db:"owner_id"`
	SubscriberCount int             `json:"subscriber_count" db:"subscriber_count"`
}
