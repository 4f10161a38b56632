package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitTrackerAPI/internal/apperr"
	"habitTrackerAPI/internal/types/habit"
)

func TestCreateHabit_Defaults(t *testing.T) {
	f := newFixture(t)

	h, err := f.habits.CreateHabit(f.ctx, alice, &habit.CreateHabitRequest{Name: "  Water  "})
	require.NoError(t, err)

	assert.Equal(t, "Water", h.Name)
	assert.Equal(t, habit.DefaultIcon, h.Icon)
	assert.Equal(t, habit.FrequencyDaily, h.Frequency)
	assert.Equal(t, alice, h.OwnerID)
	assert.Zero(t, h.Streak)
	assert.Zero(t, h.SubscriberCount)
	assert.False(t, h.CompletedToday)
}

func TestCreateHabit_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.habits.CreateHabit(f.ctx, alice, &habit.CreateHabitRequest{Name: "   "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.habits.CreateHabit(f.ctx, alice, &habit.CreateHabitRequest{Name: "Run", Frequency: "hourly"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	h, err := f.habits.CreateHabit(f.ctx, alice, &habit.CreateHabitRequest{Name: "Run", Frequency: habit.FrequencyWeekly, Icon: "🏃"})
	require.NoError(t, err)
	assert.Equal(t, habit.FrequencyWeekly, h.Frequency)
	assert.Equal(t, "🏃", h.Icon)
}

func TestDeleteHabit_OnlyOwner(t *testing.T) {
	f := newFixture(t)
	h := f.create(t, alice, "Water", true)

	err := f.habits.DeleteHabit(f.ctx, bob, h.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = f.habits.DeleteHabit(f.ctx, alice, 9999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, f.habits.DeleteHabit(f.ctx, alice, h.ID))
}

func TestDeleteHabit_RemovesCompletionsAndSubscriptions(t *testing.T) {
	f := newFixture(t)
	h := f.create(t, alice, "Water", true)

	_, err := f.social.Subscribe(f.ctx, bob, h.ID)
	require.NoError(t, err)
	_, err = f.habits.ToggleCompletion(f.ctx, alice, h.ID)
	require.NoError(t, err)
	_, err = f.habits.ToggleCompletion(f.ctx, bob, h.ID)
	require.NoError(t, err)

	require.NoError(t, f.habits.DeleteHabit(f.ctx, alice, h.ID))

	month, err := f.habits.GetCompletionsForMonth(f.ctx, h.ID, alice, "")
	require.NoError(t, err)
	assert.Empty(t, month.My)
	assert.Empty(t, month.Friends)

	count, err := f.store.SubscriberCount(f.ctx, h.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	list, err := f.habits.ListHabits(f.ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, list.Subscribed)
}

func TestToggleCompletion_TwiceRestoresState(t *testing.T) {
	f := newFixture(t)
	h := f.create(t, alice, "Water", false)
	f.complete(t, h.ID, alice, "2026-02-03", "2026-02-04")

	before, err := f.habits.GetHabitStats(f.ctx, h.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, before.CurrentStreak)

	first, err := f.habits.ToggleCompletion(f.ctx, alice, h.ID)
	require.NoError(t, err)
	assert.True(t, first.Completed)
	assert.Equal(t, "2026-02-05", first.Date)
	assert.Equal(t, 3, first.Streak)

	second, err := f.habits.ToggleCompletion(f.ctx, alice, h.ID)
	require.NoError(t, err)
	assert.False(t, second.Completed)
	assert.Equal(t, before.CurrentStreak, second.Streak)

	after, err := f.habits.GetHabitStats(f.ctx, h.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, *before, *after)
}

func TestToggleCompletion_Access(t *testing.T) {
	f := newFixture(t)
	h := f.create(t, alice, "Water", true)

	_, err := f.habits.ToggleCompletion(f.ctx, bob, h.ID)
	assert.True(t, apperr.Is(err, apperr.KindAccessDenied))

	_, err = f.habits.ToggleCompletion(f.ctx, bob, 9999)
	assert.True(t, apperr.Is(err, apperr.KindAccessDenied))

	_, err = f.habits.ToggleCompletion(f.ctx, bob, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.social.Subscribe(f.ctx, bob, h.ID)
	require.NoError(t, err)

	res, err := f.habits.ToggleCompletion(f.ctx, bob, h.ID)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 1, res.Streak)
}

func TestStreak_FiveDayScenario(t *testing.T) {
	f := newFixture(t)
	h := f.create(t, alice, "Water", false)
	f.complete(t, h.ID, alice, "2026-02-01", "2026-02-02", "2026-02-03", "2026-02-04", "2026-02-05")

	stats, err := f.habits.GetHabitStats(f.ctx, h.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.CurrentStreak)
	assert.Equal(t, 5, stats.TotalCompletions)

	// A new day without a completion yet keeps the streak.
	f.now = f.now.Add(24 * time.Hour)
	stats, err = f.habits.GetHabitStats(f.ctx, h.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.CurrentStreak)

	// Missing a whole day ends it.
	f.now = f.now.Add(24 * time.Hour)
	stats, err = f.habits.GetHabitStats(f.ctx, h.ID, alice)
	require.NoError(t, err)
	assert.Zero(t, stats.CurrentStreak)
}

func TestStreak_SaturatesAtLookback(t *testing.T) {
	f := newFixture(t)
	h := f.create(t, alice, "Water", false)

	for i := 0; i < 91; i++ {
		f.complete(t, h.ID, alice, f.now.AddDate(0, 0, -i).Format("2006-01-02"))
	}

	stats, err := f.habits.GetHabitStats(f.ctx, h.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 90, stats.CurrentStreak)
	assert.Equal(t, 91, stats.TotalCompletions)
}

func TestListHabits_PartitionAndAnnotations(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, alice, "Water", true)
	second := f.create(t, alice, "Read", false)
	shared := f.create(t, bob, "Run", true)

	_, err := f.social.Subscribe(f.ctx, alice, shared.ID)
	require.NoError(t, err)
	_, err = f.social.Subscribe(f.ctx, carol, first.ID)
	require.NoError(t, err)

	f.complete(t, first.ID, alice, "2026-02-04", "2026-02-05")
	f.complete(t, shared.ID, alice, "2026-02-04")

	list, err := f.habits.ListHabits(f.ctx, alice)
	require.NoError(t, err)

	require.Len(t, list.My, 2)
	assert.Equal(t, second.ID, list.My[0].ID, "newest first")
	assert.Equal(t, first.ID, list.My[1].ID)
	assert.Equal(t, 2, list.My[1].Streak)
	assert.True(t, list.My[1].CompletedToday)
	assert.Equal(t, 1, list.My[1].SubscriberCount)
	assert.Empty(t, list.My[1].OwnerName)
	assert.False(t, list.My[0].CompletedToday)

	require.Len(t, list.Subscribed, 1)
	sub := list.Subscribed[0]
	assert.Equal(t, shared.ID, sub.ID)
	assert.Equal(t, "Bob", sub.OwnerName)
	assert.Equal(t, "bob", sub.OwnerUsername)
	assert.Equal(t, 1, sub.Streak)
	assert.False(t, sub.CompletedToday)
	assert.Equal(t, 1, sub.SubscriberCount)
}

func TestGetCompletionsForMonth(t *testing.T) {
	f := newFixture(t)
	h := f.create(t, alice, "Water", true)
	_, err := f.social.Subscribe(f.ctx, bob, h.ID)
	require.NoError(t, err)

	f.complete(t, h.ID, alice, "2026-01-31", "2026-02-02")
	f.complete(t, h.ID, bob, "2026-02-03")

	month, err := f.habits.GetCompletionsForMonth(f.ctx, h.ID, alice, "2026-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-02"}, month.My)
	require.Len(t, month.Friends, 1)
	assert.Equal(t, "Bob", month.Friends[0].FirstName)
	assert.Equal(t, bob, month.Friends[0].TelegramID)

	_, err = f.habits.GetCompletionsForMonth(f.ctx, h.ID, alice, "02-2026")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
