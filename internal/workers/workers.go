package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"habitTrackerAPI/services"
)

// Sweeper runs one reminder pass for the given time.
type Sweeper interface {
	RunOnce(ctx context.Context, now time.Time) (*services.SweepReport, error)
}

// ReminderScheduler runs the reminder sweep on a cron schedule in UTC.
type ReminderScheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
	now     func() time.Time
}

func NewReminderScheduler(schedule string, sweeper Sweeper) (*ReminderScheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}

	s := &ReminderScheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		sweeper: sweeper,
		timeout: 5 * time.Minute,
		now:     time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("failed to schedule reminders: %w", err)
	}
	return s, nil
}

func (s *ReminderScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	now := s.now().UTC()
	log.Printf("Reminder: running hourly check at %s", now.Format(time.RFC3339))

	if _, err := s.sweeper.RunOnce(ctx, now); err != nil {
		log.Errorf("Reminder: sweep failed: %v", err)
	}
}

func (s *ReminderScheduler) Start() {
	s.cron.Start()
	log.Println("Reminder scheduler started")
}

// Stop halts scheduling and waits for a running sweep, bounded by ctx.
func (s *ReminderScheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn("Reminder scheduler stop timed out")
	}
}

func (s *ReminderScheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
