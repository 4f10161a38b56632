package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitTrackerAPI/handlers"
	"habitTrackerAPI/internal/apperr"
	"habitTrackerAPI/internal/notification"
	"habitTrackerAPI/internal/store"
	"habitTrackerAPI/internal/types/habit"
	"habitTrackerAPI/middleware"
	"habitTrackerAPI/services"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	db := store.NewMemoryStore(nil)
	clock := func() time.Time { return time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC) }

	habits := services.NewHabitService(db, clock)
	srv := httptest.NewServer(handlers.NewRouter(handlers.RouterConfig{
		Store:          db,
		Habits:         habits,
		Users:          services.NewUserService(db, habits),
		Social:         services.NewSocialService(db),
		Notification:   services.NewNotificationService(db),
		Auth:           middleware.NewTelegramAuth("", 0, db),
		AllowedOrigins: []string{"*"},
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_AgainstServer(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	alice := New(srv.URL, WithDevUser(1))
	bob := New(srv.URL+"/", WithDevUser(2))

	water, err := alice.CreateHabit(ctx, &habit.CreateHabitRequest{Name: "Water", Icon: "💧", IsPublic: true})
	require.NoError(t, err)
	assert.Equal(t, "💧", water.Icon)

	toggle, err := alice.ToggleCompletion(ctx, water.ID)
	require.NoError(t, err)
	assert.True(t, toggle.Completed)
	assert.Equal(t, "2026-02-05", toggle.Date)

	stats, err := alice.HabitStats(ctx, water.ID)
	require.NoError(t, err)
	assert.Equal(t, &habit.HabitStats{TotalCompletions: 1, CurrentStreak: 1}, stats)

	preview, err := New(srv.URL).Invite(ctx, water.ID)
	require.NoError(t, err)
	assert.Equal(t, "Water", preview.Name)

	sub, err := bob.Subscribe(ctx, water.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.SubscriberCount)

	friends, err := bob.Friends(ctx)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, int64(1), friends[0].ID)

	fh, err := bob.FriendHabits(ctx, 1)
	require.NoError(t, err)
	require.Len(t, fh.Habits, 1)
	assert.True(t, fh.Habits[0].IsSubscribed)

	_, err = bob.ToggleCompletion(ctx, water.ID)
	require.NoError(t, err)

	month, err := alice.MonthCompletions(ctx, water.ID, "2026-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-05"}, month.My)
	require.Len(t, month.Friends, 1)
	assert.Equal(t, int64(2), month.Friends[0].TelegramID)

	list, err := bob.ListHabits(ctx)
	require.NoError(t, err)
	assert.Empty(t, list.My)
	require.Len(t, list.Subscribed, 1)
	assert.True(t, list.Subscribed[0].CompletedToday)

	off := false
	settings, err := bob.UpdateNotificationSettings(ctx, &notification.UpdateSettingsRequest{Enabled: &off})
	require.NoError(t, err)
	assert.False(t, settings.Enabled)
	assert.Equal(t, notification.DefaultRemindTime, settings.RemindTime)

	require.NoError(t, bob.RegisterDevice(ctx, &notification.RegisterDeviceRequest{Token: "tok"}))

	unsub, err := bob.Unsubscribe(ctx, water.ID)
	require.NoError(t, err)
	assert.False(t, unsub.Subscribed)

	me, err := alice.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, me.OwnedHabits)
	assert.Equal(t, 1, me.DoneToday)

	require.NoError(t, alice.DeleteHabit(ctx, water.ID))
}

func TestClient_ErrorKinds(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	alice := New(srv.URL, WithDevUser(1))
	bob := New(srv.URL, WithDevUser(2))

	h, err := alice.CreateHabit(ctx, &habit.CreateHabitRequest{Name: "Read"})
	require.NoError(t, err)

	_, err = alice.CreateHabit(ctx, &habit.CreateHabitRequest{Name: " "})
	assert.True(t, apperr.Is(err, apperr.KindValidation), err)

	_, err = bob.ToggleCompletion(ctx, h.ID)
	assert.True(t, apperr.Is(err, apperr.KindAccessDenied), err)

	_, err = bob.Subscribe(ctx, h.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), err)
	assert.Contains(t, err.Error(), "habit not found")

	err = bob.DeleteHabit(ctx, h.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), err)
}

func TestClient_NetworkFailures(t *testing.T) {
	ctx := context.Background()

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()

	_, err := New(closed.URL).ListHabits(ctx)
	assert.True(t, apperr.Is(err, apperr.KindNetwork), err)

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()

	_, err = New(slow.URL, WithTimeout(20*time.Millisecond)).ListHabits(ctx)
	assert.True(t, apperr.Is(err, apperr.KindNetwork), err)
}

func TestClient_SendsInitData(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get(middleware.InitDataHeader)
		w.Write([]byte(`{"my":[],"subscribed":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithInitData("query_id=1&hash=abc")).ListHabits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "query_id=1&hash=abc", <-got)
}

func TestStatusError(t *testing.T) {
	err := statusError(http.StatusInternalServerError, []byte(`{"error":"boom"}`))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "boom")

	err = statusError(http.StatusUnauthorized, []byte(`not json`))
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
	assert.False(t, apperr.Is(err, apperr.KindAccessDenied))
	assert.Equal(t, "Unauthorized", err.Error())

	err = statusError(http.StatusForbidden, []byte(`{"error":"no access to this habit"}`))
	assert.True(t, apperr.Is(err, apperr.KindAccessDenied))
}
