package services

import (
	"context"
	"errors"
	"fmt"

	"habitTrackerAPI/internal/apperr"
	"habitTrackerAPI/internal/store"
	"habitTrackerAPI/internal/types/friendship"
	"habitTrackerAPI/internal/types/habit"
	"habitTrackerAPI/internal/types/subscription"
	"habitTrackerAPI/utils"
)

type SocialRepository interface {
	store.UserStore
	store.SubscriptionStore
	GetHabit(ctx context.Context, habitID int64) (*habit.Habit, error)
}

type SocialService struct {
	db SocialRepository
}

func NewSocialService(db SocialRepository) *SocialService {
	return &SocialService{db: db}
}

// ListDiscoverable returns every other user who owns at least one public habit.
func (s *SocialService) ListDiscoverable(ctx context.Context, userID int64) ([]*friendship.Friend, error) {
	friends, err := s.db.ListDiscoverable(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	for _, f := range friends {
		f.Initials = utils.Initials(f.FirstName, f.LastName)
	}
	return friends, nil
}

func (s *SocialService) ListFriendHabits(ctx context.Context, userID, friendID int64) (*friendship.FriendHabitsResponse, error) {
	friend, err := s.db.GetUser(ctx, friendID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friend: %w", err)
	}

	habits, err := s.db.ListPublicHabits(ctx, friendID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend habits: %w", err)
	}

	return &friendship.FriendHabitsResponse{
		Friend: &friendship.FriendProfile{
			ID:        friend.TelegramID,
			FirstName: friend.FirstName,
			LastName:  friend.LastName,
			Username:  friend.Username,
			Initials:  utils.Initials(friend.FirstName, friend.LastName),
		},
		Habits: habits,
	}, nil
}

// Subscribe adds the user to a public habit they do not own. Subscribing
// again is not an error.
func (s *SocialService) Subscribe(ctx context.Context, userID, habitID int64) (*subscription.SubscriptionResult, error) {
	h, err := s.db.GetHabit(ctx, habitID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("habit not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}

	if h.OwnerID == userID {
		return nil, apperr.Validation("cannot subscribe to your own habit")
	}
	if !h.IsPublic {
		return nil, apperr.NotFound("habit not found")
	}

	if err := s.db.AddSubscription(ctx, userID, habitID); err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	count, err := s.db.SubscriberCount(ctx, habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return &subscription.SubscriptionResult{Subscribed: true, SubscriberCount: count}, nil
}

func (s *SocialService) Unsubscribe(ctx context.Context, userID, habitID int64) (*subscription.SubscriptionResult, error) {
	if err := s.db.RemoveSubscription(ctx, userID, habitID); err != nil {
		return nil, fmt.Errorf("failed to unsubscribe: %w", err)
	}

	count, err := s.db.SubscriberCount(ctx, habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return &subscription.SubscriptionResult{Subscribed: false, SubscriberCount: count}, nil
}

// GetInvitePreview describes a public habit to an unauthenticated visitor.
// Private and missing habits look the same.
func (s *SocialService) GetInvitePreview(ctx context.Context, habitID int64) (*subscription.InvitePreview, error) {
	preview, err := s.db.InvitePreview(ctx, habitID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("habit not found or not public")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite preview: %w", err)
	}
	return preview, nil
}
