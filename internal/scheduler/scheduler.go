package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const DefaultReminderSchedule = "0 0 8 * * *"

// DueInvoiceReminder is implemented by the reminder service.
type DueInvoiceReminder interface {
	RemindDueInvoices(ctx context.Context, now time.Time) (int, error)
}

// Scheduler runs the periodic billing jobs. Schedules use the six-field
// cron format with seconds.
type Scheduler struct {
	cron     *cron.Cron
	reminder DueInvoiceReminder
	timeout  time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

func New(reminder DueInvoiceReminder, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		reminder: reminder,
		timeout:  5 * time.Minute,
		now:      time.Now,
		logger:   logger,
	}
}

// RegisterReminders schedules the due invoice reminder job.
func (s *Scheduler) RegisterReminders(spec string) error {
	if spec == "" {
		spec = DefaultReminderSchedule
	}
	if _, err := s.cron.AddFunc(spec, s.RunReminders); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	s.logger.Info().Str("schedule", spec).Msg("Invoice reminder job registered")
	return nil
}

// RunReminders runs one pass of the due invoice reminder job.
func (s *Scheduler) RunReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := s.now()
	created, err := s.reminder.RemindDueInvoices(ctx, started)
	if err != nil {
		s.logger.Error().Err(err).Msg("Invoice reminder job failed")
		return
	}

	s.logger.Info().
		Int("reminders_created", created).
		Dur("took", time.Since(started)).
		Msg("Invoice reminder job completed")
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info().Msg("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn().Msg("Scheduler stop timed out")
	}
}
