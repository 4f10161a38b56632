package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"habitTrackerAPI/internal/notification"
	"habitTrackerAPI/utils"
)

var (
	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_reminders_sent_total",
			Help: "Reminders delivered, by transport",
		},
		[]string{"transport"},
	)
	reminderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_reminder_failures_total",
			Help: "Reminders that failed to deliver, by transport",
		},
		[]string{"transport"},
	)
	reminderSweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "habit_reminder_sweep_duration_seconds",
			Help:    "Duration of one reminder sweep",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// InitReminderMetrics registers the reminder metrics. Call this from main.go
func InitReminderMetrics() {
	prometheus.MustRegister(remindersSent)
	prometheus.MustRegister(reminderFailures)
	prometheus.MustRegister(reminderSweepDuration)
}

// Pusher delivers one reminder to one recipient.
type Pusher interface {
	Name() string
	SendReminder(ctx context.Context, r *notification.Recipient, habits []*notification.OutstandingHabit) error
}

// MultiPusher sends through every transport and succeeds if any of them did.
// Transports with nothing to push to are skipped and do not count either way.
type MultiPusher []Pusher

func (m MultiPusher) Name() string {
	return "multi"
}

func (m MultiPusher) SendReminder(ctx context.Context, r *notification.Recipient, habits []*notification.OutstandingHabit) error {
	var errs []error
	delivered := false

	for _, p := range m {
		err := p.SendReminder(ctx, r, habits)
		if errors.Is(err, notification.ErrNoDevices) {
			continue
		}
		if err != nil {
			reminderFailures.WithLabelValues(p.Name()).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		remindersSent.WithLabelValues(p.Name()).Inc()
		delivered = true
	}

	if delivered {
		return nil
	}
	if len(errs) == 0 {
		return notification.ErrNoDevices
	}
	return errors.Join(errs...)
}

type ReminderSource interface {
	ReminderRecipients(ctx context.Context) ([]*notification.Recipient, error)
	OutstandingHabits(ctx context.Context, userID int64, date string) ([]*notification.OutstandingHabit, error)
}

// SweepReport summarizes one reminder run.
type SweepReport struct {
	Checked int
	Matched int
	Sent    int
	Failed  int
}

type reminderJob struct {
	recipient *notification.Recipient
	habits    []*notification.OutstandingHabit
}

// ReminderService finds users whose local reminder hour is now and who still
// have habits left for today, and sends each of them one reminder.
type ReminderService struct {
	db      ReminderSource
	pusher  Pusher
	workers int
	timeout time.Duration
}

func NewReminderService(db ReminderSource, pusher Pusher) *ReminderService {
	return &ReminderService{
		db:      db,
		pusher:  pusher,
		workers: 5,
		timeout: 10 * time.Second,
	}
}

// WithWorkers sets how many reminders are delivered concurrently.
func (s *ReminderService) WithWorkers(n int) *ReminderService {
	if n > 0 {
		s.workers = n
	}
	return s
}

// RunOnce performs one sweep for the hour containing now. It never writes to
// the store. Per-user failures are logged and counted, not returned.
func (s *ReminderService) RunOnce(ctx context.Context, now time.Time) (*SweepReport, error) {
	start := time.Now()
	defer func() { reminderSweepDuration.Observe(time.Since(start).Seconds()) }()

	recipients, err := s.db.ReminderRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder recipients: %w", err)
	}

	report := &SweepReport{Checked: len(recipients)}
	today := utils.DateKey(now)

	var jobs []reminderJob
	for _, r := range recipients {
		if utils.LocalHour(now, r.TimezoneOffset) != r.RemindTime {
			continue
		}

		habits, err := s.db.OutstandingHabits(ctx, r.TelegramID, today)
		if err != nil {
			log.WithField("telegram_id", r.TelegramID).Errorf("Reminder: failed to load outstanding habits: %v", err)
			report.Failed++
			continue
		}
		if len(habits) == 0 {
			continue
		}

		report.Matched++
		jobs = append(jobs, reminderJob{recipient: r, habits: habits})
	}

	sent, failed := s.dispatch(ctx, jobs)
	report.Sent += sent
	report.Failed += failed

	log.WithFields(log.Fields{
		"checked": report.Checked,
		"matched": report.Matched,
		"sent":    report.Sent,
		"failed":  report.Failed,
	}).Info("Reminder sweep finished")

	return report, nil
}

func (s *ReminderService) dispatch(ctx context.Context, jobs []reminderJob) (int, int) {
	if len(jobs) == 0 {
		return 0, 0
	}

	queue := make(chan reminderJob)
	var sent, failed atomic.Int64
	var wg sync.WaitGroup

	workers := min(s.workers, len(jobs))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				if s.send(ctx, job) {
					sent.Add(1)
				} else {
					failed.Add(1)
				}
			}
		}()
	}

	for _, job := range jobs {
		queue <- job
	}
	close(queue)
	wg.Wait()

	return int(sent.Load()), int(failed.Load())
}

func (s *ReminderService) send(ctx context.Context, job reminderJob) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.pusher.SendReminder(ctx, job.recipient, job.habits); err != nil {
		log.WithField("telegram_id", job.recipient.TelegramID).Errorf("Reminder: failed to send: %v", err)
		return false
	}
	return true
}
