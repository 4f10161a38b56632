// Package store is the persistence layer: users, habits, completions,
// subscriptions, notification settings and device tokens.
//
// Uniqueness and cascade rules live in the store, not in the services:
// one completion per (habit, user, date), one subscription per (user, habit),
// and deleting a habit removes its completions and subscriptions.
package store

import (
	"context"
	"errors"

	"habitTrackerAPI/internal/notification"
	"habitTrackerAPI/internal/types/calendar"
	"habitTrackerAPI/internal/types/friendship"
	"habitTrackerAPI/internal/types/habit"
	"habitTrackerAPI/internal/types/subscription"
	"habitTrackerAPI/internal/user"
)

var ErrNotFound = errors.New("not found")

type UserStore interface {
	UpsertUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, telegramID int64) (*user.User, error)
}

type HabitStore interface {
	CreateHabit(ctx context.Context, h *habit.Habit) (*habit.Habit, error)
	GetHabit(ctx context.Context, habitID int64) (*habit.Habit, error)
	// DeleteOwnedHabit reports false when no habit with that id belongs to ownerID.
	DeleteOwnedHabit(ctx context.Context, habitID, ownerID int64) (bool, error)
	Relationship(ctx context.Context, habitID, userID int64) (habit.Role, error)
	ListOwnedHabits(ctx context.Context, userID int64) ([]*habit.Listed, error)
	ListSubscribedHabits(ctx context.Context, userID int64) ([]*habit.Listed, error)
}

type CompletionStore interface {
	// ToggleCompletion flips the (habit, user, date) row atomically and
	// reports whether a row exists afterwards.
	ToggleCompletion(ctx context.Context, habitID, userID int64, date string) (bool, error)
	CompletedHabitIDs(ctx context.Context, userID int64, date string) (map[int64]bool, error)
	RecentCompletionDates(ctx context.Context, habitID, userID int64, limit int) ([]string, error)
	CountCompletions(ctx context.Context, habitID, userID int64) (int, error)
	// MonthCompletions filters by month (YYYY-MM) unless it is empty.
	MonthCompletions(ctx context.Context, habitID, userID int64, month string) (*calendar.MonthCompletions, error)
}

type SubscriptionStore interface {
	ListDiscoverable(ctx context.Context, userID int64) ([]*friendship.Friend, error)
	ListPublicHabits(ctx context.Context, ownerID, viewerID int64) ([]*friendship.FriendHabit, error)
	// AddSubscription is a no-op when the subscription already exists.
	AddSubscription(ctx context.Context, userID, habitID int64) error
	RemoveSubscription(ctx context.Context, userID, habitID int64) error
	SubscriberCount(ctx context.Context, habitID int64) (int, error)
	InvitePreview(ctx context.Context, habitID int64) (*subscription.InvitePreview, error)
}

type NotificationStore interface {
	GetNotificationSettings(ctx context.Context, telegramID int64) (*notification.Settings, error)
	UpsertNotificationSettings(ctx context.Context, s *notification.Settings) error
	UpsertDeviceToken(ctx context.Context, t *notification.DeviceToken) error
	DeviceTokens(ctx context.Context, userID int64) ([]*notification.DeviceToken, error)
	ReminderRecipients(ctx context.Context) ([]*notification.Recipient, error)
	OutstandingHabits(ctx context.Context, userID int64, date string) ([]*notification.OutstandingHabit, error)
}

type Store interface {
	UserStore
	HabitStore
	CompletionStore
	SubscriptionStore
	NotificationStore
	Ping(ctx context.Context) error
	Close()
}
