package services

import (
	"context"
	"errors"
	"fmt"

	"habitTrackerAPI/internal/apperr"
	"habitTrackerAPI/internal/store"
	"habitTrackerAPI/internal/types/habit"
	"habitTrackerAPI/internal/user"
	"habitTrackerAPI/utils"
)

type UserService struct {
	db     store.UserStore
	habits *HabitService
}

func NewUserService(db store.UserStore, habits *HabitService) *UserService {
	return &UserService{db: db, habits: habits}
}

func (s *UserService) GetProfile(ctx context.Context, telegramID int64) (*user.Profile, error) {
	u, err := s.db.GetUser(ctx, telegramID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	list, err := s.habits.ListHabits(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	profile := &user.Profile{
		User:             *u,
		Initials:         utils.Initials(u.FirstName, u.LastName),
		OwnedHabits:      len(list.My),
		SubscribedHabits: len(list.Subscribed),
	}
	for _, group := range [][]*habit.HabitSummary{list.My, list.Subscribed} {
		for _, h := range group {
			if h.CompletedToday {
				profile.DoneToday++
			}
			profile.BestStreak = max(profile.BestStreak, h.Streak)
		}
	}
	return profile, nil
}
