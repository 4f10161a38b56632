package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitTrackerAPI/internal/apperr"
)

func TestSubscribe_WaterScenario(t *testing.T) {
	f := newFixture(t)
	water := f.create(t, alice, "Water", true)

	res, err := f.social.Subscribe(f.ctx, bob, water.ID)
	require.NoError(t, err)
	assert.True(t, res.Subscribed)
	assert.Equal(t, 1, res.SubscriberCount)

	_, err = f.social.Subscribe(f.ctx, alice, water.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	private := f.create(t, alice, "Diary", false)
	_, err = f.social.GetInvitePreview(f.ctx, private.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSubscribe_PrivateAndOwn(t *testing.T) {
	f := newFixture(t)
	private := f.create(t, alice, "Diary", false)

	_, err := f.social.Subscribe(f.ctx, bob, private.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.social.Subscribe(f.ctx, alice, private.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "own habit is a validation error even when private")

	_, err = f.social.Subscribe(f.ctx, bob, 9999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSubscribe_Twice(t *testing.T) {
	f := newFixture(t)
	water := f.create(t, alice, "Water", true)

	_, err := f.social.Subscribe(f.ctx, bob, water.ID)
	require.NoError(t, err)
	res, err := f.social.Subscribe(f.ctx, bob, water.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SubscriberCount)
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	f := newFixture(t)
	water := f.create(t, alice, "Water", true)
	_, err := f.social.Subscribe(f.ctx, bob, water.ID)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res, err := f.social.Unsubscribe(f.ctx, bob, water.ID)
		require.NoError(t, err)
		assert.False(t, res.Subscribed)
		assert.Zero(t, res.SubscriberCount)
	}
}

func TestListDiscoverable(t *testing.T) {
	f := newFixture(t)
	f.create(t, alice, "Water", true)
	f.create(t, alice, "Read", true)
	f.create(t, alice, "Diary", false)
	f.create(t, bob, "Secret", false)
	f.create(t, carol, "Run", true)

	friends, err := f.social.ListDiscoverable(f.ctx, bob)
	require.NoError(t, err)
	require.Len(t, friends, 2)

	assert.Equal(t, alice, friends[0].ID)
	assert.Equal(t, 2, friends[0].HabitCount)
	assert.Equal(t, "AS", friends[0].Initials)

	assert.Equal(t, carol, friends[1].ID)
	assert.Equal(t, "CK", friends[1].Initials)

	mine, err := f.social.ListDiscoverable(f.ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, carol, mine[0].ID)
}

func TestListFriendHabits(t *testing.T) {
	f := newFixture(t)
	water := f.create(t, alice, "Water", true)
	f.create(t, alice, "Diary", false)
	read := f.create(t, alice, "Read", true)

	_, err := f.social.Subscribe(f.ctx, bob, water.ID)
	require.NoError(t, err)

	res, err := f.social.ListFriendHabits(f.ctx, bob, alice)
	require.NoError(t, err)

	assert.Equal(t, "Alice", res.Friend.FirstName)
	assert.Equal(t, "AS", res.Friend.Initials)
	require.Len(t, res.Habits, 2)
	assert.Equal(t, read.ID, res.Habits[0].ID)
	assert.False(t, res.Habits[0].IsSubscribed)
	assert.Equal(t, water.ID, res.Habits[1].ID)
	assert.True(t, res.Habits[1].IsSubscribed)
	assert.Equal(t, 1, res.Habits[1].SubscriberCount)

	_, err = f.social.ListFriendHabits(f.ctx, bob, 424242)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetInvitePreview(t *testing.T) {
	f := newFixture(t)
	water := f.create(t, alice, "Water", true)
	_, err := f.social.Subscribe(f.ctx, bob, water.ID)
	require.NoError(t, err)

	preview, err := f.social.GetInvitePreview(f.ctx, water.ID)
	require.NoError(t, err)
	assert.Equal(t, "Water", preview.Name)
	assert.Equal(t, "Alice", preview.OwnerName)
	assert.Equal(t, alice, preview.OwnerID)
	assert.Equal(t, 1, preview.SubscriberCount)

	_, err = f.social.GetInvitePreview(f.ctx, 9999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
