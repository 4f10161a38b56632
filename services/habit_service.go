package services

import (
	"context"
	"fmt"
	"strings"

	"habitTrackerAPI/internal/apperr"
	"habitTrackerAPI/internal/store"
	"habitTrackerAPI/internal/streak"
	"habitTrackerAPI/internal/types/calendar"
	"habitTrackerAPI/internal/types/completion"
	"habitTrackerAPI/internal/types/habit"
	"habitTrackerAPI/utils"
)

type HabitRepository interface {
	store.HabitStore
	store.CompletionStore
}

type HabitService struct {
	db  HabitRepository
	now Clock
}

func NewHabitService(db HabitRepository, now Clock) *HabitService {
	return &HabitService{db: db, now: now.orDefault()}
}

func (s *HabitService) CreateHabit(ctx context.Context, ownerID int64, req *habit.CreateHabitRequest) (*habit.HabitSummary, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	frequency := req.Frequency
	if frequency == "" {
		frequency = habit.FrequencyDaily
	}
	if !frequency.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("frequency must be %q or %q", habit.FrequencyDaily, habit.FrequencyWeekly))
	}

	icon := strings.TrimSpace(req.Icon)
	if icon == "" {
		icon = habit.DefaultIcon
	}

	created, err := s.db.CreateHabit(ctx, &habit.Habit{
		OwnerID:     ownerID,
		Name:        name,
		Description: req.Description,
		Icon:        icon,
		Frequency:   frequency,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create habit: %w", err)
	}

	return &habit.HabitSummary{Habit: *created}, nil
}

func (s *HabitService) DeleteHabit(ctx context.Context, ownerID, habitID int64) error {
	deleted, err := s.db.DeleteOwnedHabit(ctx, habitID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	if !deleted {
		return apperr.NotFound("habit not found")
	}
	return nil
}

// ToggleCompletion flips today's completion for an owner or subscriber and
// returns the new state with the recomputed streak.
func (s *HabitService) ToggleCompletion(ctx context.Context, userID, habitID int64) (*completion.ToggleResult, error) {
	if habitID <= 0 {
		return nil, apperr.Validation("habit_id is required")
	}

	role, err := s.db.Relationship(ctx, habitID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check habit access: %w", err)
	}
	if !role.CanComplete() {
		return nil, apperr.AccessDenied("no access to this habit")
	}

	now := s.now()
	date := utils.DateKey(now)

	completed, err := s.db.ToggleCompletion(ctx, habitID, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle completion: %w", err)
	}

	current, err := streak.ForHabit(ctx, s.db, habitID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate streak: %w", err)
	}

	return &completion.ToggleResult{
		Completed: completed,
		Date:      date,
		Streak:    current,
	}, nil
}

func (s *HabitService) ListHabits(ctx context.Context, userID int64) (*habit.HabitList, error) {
	owned, err := s.db.ListOwnedHabits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list own habits: %w", err)
	}

	subscribed, err := s.db.ListSubscribedHabits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribed habits: %w", err)
	}

	now := s.now()
	doneToday, err := s.db.CompletedHabitIDs(ctx, userID, utils.DateKey(now))
	if err != nil {
		return nil, fmt.Errorf("failed to load today's completions: %w", err)
	}

	my, err := s.summarize(ctx, owned, userID, doneToday)
	if err != nil {
		return nil, err
	}
	subs, err := s.summarize(ctx, subscribed, userID, doneToday)
	if err != nil {
		return nil, err
	}

	return &habit.HabitList{My: my, Subscribed: subs}, nil
}

func (s *HabitService) summarize(ctx context.Context, habits []*habit.Listed, userID int64, doneToday map[int64]bool) ([]*habit.HabitSummary, error) {
	now := s.now()
	summaries := make([]*habit.HabitSummary, 0, len(habits))

	for _, h := range habits {
		current, err := streak.ForHabit(ctx, s.db, h.ID, userID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate streak for habit %d: %w", h.ID, err)
		}

		summary := &habit.HabitSummary{
			Habit:           h.Habit,
			SubscriberCount: h.SubscriberCount,
			Streak:          current,
			CompletedToday:  doneToday[h.ID],
		}
		if h.Role == habit.RoleSubscriber {
			summary.OwnerName = h.OwnerName
			summary.OwnerUsername = h.OwnerUsername
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetCompletionsForMonth splits a habit's completions into the caller's own
// dates and everyone else's. An empty month returns all dates.
func (s *HabitService) GetCompletionsForMonth(ctx context.Context, habitID, userID int64, month string) (*calendar.MonthCompletions, error) {
	if err := utils.ValidateMonth(month); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	result, err := s.db.MonthCompletions(ctx, habitID, userID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to get completions: %w", err)
	}
	return result, nil
}

func (s *HabitService) GetHabitStats(ctx context.Context, habitID, userID int64) (*habit.HabitStats, error) {
	total, err := s.db.CountCompletions(ctx, habitID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completions: %w", err)
	}

	current, err := streak.ForHabit(ctx, s.db, habitID, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to calculate streak: %w", err)
	}

	return &habit.HabitStats{TotalCompletions: total, CurrentStreak: current}, nil
}
