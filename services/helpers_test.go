package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"habitTrackerAPI/internal/store"
	"habitTrackerAPI/internal/types/habit"
	"habitTrackerAPI/internal/user"
)

const (
	alice int64 = 100
	bob   int64 = 200
	carol int64 = 300
)

type fixture struct {
	ctx    context.Context
	now    time.Time
	store  *store.MemoryStore
	habits *HabitService
	social *SocialService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx: context.Background(),
		now: time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC),
	}
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.store = store.NewMemoryStore(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})
	clock := func() time.Time { return f.now }
	f.habits = NewHabitService(f.store, clock)
	f.social = NewSocialService(f.store)

	for _, u := range []*user.User{
		{TelegramID: alice, FirstName: "Alice", LastName: "Smith", Username: "alice"},
		{TelegramID: bob, FirstName: "Bob", Username: "bob"},
		{TelegramID: carol, FirstName: "carol", LastName: "king"},
	} {
		require.NoError(t, f.store.UpsertUser(f.ctx, u))
	}
	return f
}

func (f *fixture) create(t *testing.T, owner int64, name string, public bool) *habit.HabitSummary {
	t.Helper()
	h, err := f.habits.CreateHabit(f.ctx, owner, &habit.CreateHabitRequest{Name: name, IsPublic: public})
	require.NoError(t, err)
	return h
}

func (f *fixture) complete(t *testing.T, habitID, userID int64, dates ...string) {
	t.Helper()
	for _, d := range dates {
		done, err := f.store.ToggleCompletion(f.ctx, habitID, userID, d)
		require.NoError(t, err)
		require.True(t, done, "date %s was already completed", d)
	}
}
