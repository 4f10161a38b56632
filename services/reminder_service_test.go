package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitTrackerAPI/internal/notification"
)

type recordingPusher struct {
	name string
	err  error

	mu   sync.Mutex
	sent map[int64][]string
}

func newRecordingPusher(name string, err error) *recordingPusher {
	return &recordingPusher{name: name, err: err, sent: make(map[int64][]string)}
}

func (p *recordingPusher) Name() string { return p.name }

func (p *recordingPusher) SendReminder(_ context.Context, r *notification.Recipient, habits []*notification.OutstandingHabit) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range habits {
		p.sent[r.TelegramID] = append(p.sent[r.TelegramID], h.Name)
	}
	return nil
}

func saveSettings(t *testing.T, f *fixture, userID int64, enabled bool, remindTime, offset int) {
	t.Helper()
	require.NoError(t, f.store.UpsertNotificationSettings(f.ctx, &notification.Settings{
		TelegramID:     userID,
		Enabled:        enabled,
		RemindTime:     remindTime,
		TimezoneOffset: offset,
	}))
}

func TestReminder_RunOnce(t *testing.T) {
	f := newFixture(t)
	water := f.create(t, alice, "Water", true)
	f.create(t, alice, "Read", false)
	run := f.create(t, bob, "Run", true)
	_, err := f.social.Subscribe(f.ctx, alice, run.ID)
	require.NoError(t, err)
	f.create(t, carol, "Yoga", false)

	// 17:00 UTC is 20:00 at +180 minutes.
	now := time.Date(2026, 2, 5, 17, 0, 0, 0, time.UTC)
	f.complete(t, water.ID, alice, "2026-02-05")
	f.complete(t, run.ID, bob, "2026-02-05")

	saveSettings(t, f, alice, true, 20, 180)
	saveSettings(t, f, bob, true, 20, 180)    // everything done
	saveSettings(t, f, carol, false, 20, 180) // disabled

	pusher := newRecordingPusher("test", nil)
	svc := NewReminderService(f.store, MultiPusher{pusher})

	report, err := svc.RunOnce(f.ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Sent)
	assert.Zero(t, report.Failed)
	assert.ElementsMatch(t, []string{"Read", "Run"}, pusher.sent[alice])
	assert.NotContains(t, pusher.sent, bob)
}

func TestReminder_WrongHourSkipped(t *testing.T) {
	f := newFixture(t)
	f.create(t, alice, "Water", false)
	saveSettings(t, f, alice, true, 8, -300)

	pusher := newRecordingPusher("test", nil)
	svc := NewReminderService(f.store, pusher)

	report, err := svc.RunOnce(f.ctx, time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, report.Matched)

	// 13:00 UTC at -300 minutes is 08:00.
	report, err = svc.RunOnce(f.ctx, time.Date(2026, 2, 5, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
}

func TestReminder_FailuresDoNotAbortSweep(t *testing.T) {
	f := newFixture(t)
	f.create(t, alice, "Water", false)
	f.create(t, bob, "Run", false)
	saveSettings(t, f, alice, true, 20, 0)
	saveSettings(t, f, bob, true, 20, 0)

	failing := newRecordingPusher("broken", errors.New("blocked"))
	svc := NewReminderService(f.store, MultiPusher{failing}).WithWorkers(1)

	report, err := svc.RunOnce(f.ctx, time.Date(2026, 2, 5, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Matched)
	assert.Equal(t, 2, report.Failed)
	assert.Zero(t, report.Sent)
}

func TestMultiPusher(t *testing.T) {
	ok := newRecordingPusher("ok", nil)
	bad := newRecordingPusher("bad", errors.New("down"))
	r := &notification.Recipient{TelegramID: 1}
	habits := []*notification.OutstandingHabit{{ID: 1, Name: "Water"}}

	assert.NoError(t, MultiPusher{bad, ok}.SendReminder(context.Background(), r, habits))
	assert.Equal(t, []string{"Water"}, ok.sent[1])

	err := MultiPusher{bad}.SendReminder(context.Background(), r, habits)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: down")
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

type noTokens struct{}

func (noTokens) DeviceTokens(context.Context, int64) ([]*notification.DeviceToken, error) {
	return nil, nil
}

type unusedSender struct{}

func (unusedSender) Send(context.Context, *messaging.Message) (string, error) {
	return "", errors.New("no device should be pushed to")
}

func TestMultiPusher_FCMWithoutDevicesIsNotDelivery(t *testing.T) {
	telegram := newRecordingPusher("telegram", errors.New("bot was blocked by the user"))
	fcm := notification.NewFCMServiceWithSender(unusedSender{}, noTokens{})
	r := &notification.Recipient{TelegramID: 1}
	habits := []*notification.OutstandingHabit{{ID: 1, Name: "Water"}}

	sentBefore := counterValue(t, remindersSent.WithLabelValues("fcm"))
	failedBefore := counterValue(t, reminderFailures.WithLabelValues("fcm"))

	err := MultiPusher{telegram, fcm}.SendReminder(context.Background(), r, habits)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram: bot was blocked by the user")
	assert.NotErrorIs(t, err, notification.ErrNoDevices)

	assert.Equal(t, sentBefore, counterValue(t, remindersSent.WithLabelValues("fcm")))
	assert.Equal(t, failedBefore, counterValue(t, reminderFailures.WithLabelValues("fcm")))

	err = MultiPusher{fcm}.SendReminder(context.Background(), r, habits)
	assert.ErrorIs(t, err, notification.ErrNoDevices)
}

func TestReminder_NoTransportReachedCountsAsFailed(t *testing.T) {
	f := newFixture(t)
	f.create(t, alice, "Water", false)
	saveSettings(t, f, alice, true, 20, 0)

	telegram := newRecordingPusher("telegram", errors.New("bot was blocked by the user"))
	fcm := notification.NewFCMServiceWithSender(unusedSender{}, noTokens{})
	svc := NewReminderService(f.store, MultiPusher{telegram, fcm})

	report, err := svc.RunOnce(f.ctx, time.Date(2026, 2, 5, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)
	assert.Zero(t, report.Sent)
	assert.Equal(t, 1, report.Failed)
}
