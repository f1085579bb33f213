package scheduler

import (
	"context"
	"fmt"
	"time"

	"discount_reminder/internal/app" // For RawConfig and RunSummary

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RunExecutor performs one reminder run. *app.ReminderRun implements it.
type RunExecutor interface {
	Execute(ctx context.Context, configInput app.RawConfig) (*app.RunSummary, error)
}

// RunHook is called after every run, e.g. to record metrics or alert.
type RunHook func(summary *app.RunSummary, runErr error)

type ReminderScheduler struct {
	cronEngine  *cron.Cron
	reminderRun RunExecutor
	rawConfig   func() app.RawConfig
	logger      *logrus.Entry
	cronSpec    string
	timeout     time.Duration
	hooks       []RunHook
}

func NewReminderScheduler(
	reminderRun RunExecutor,
	rawConfig func() app.RawConfig, // configuration handed to every run
	logger *logrus.Entry,
	cronSpec string, // e.g., "0 */12 * * *" (twice daily)
	timeout time.Duration,
	hooks ...RunHook,
) *ReminderScheduler {
	return &ReminderScheduler{
		// Ticks that fire while a run is still going are dropped, not queued.
		cronEngine: cron.New(
			cron.WithLocation(time.Local),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
		),
		reminderRun: reminderRun,
		rawConfig:   rawConfig,
		logger:      logger,
		cronSpec:    cronSpec,
		timeout:     timeout,
		hooks:       hooks,
	}
}

// Start registers the reminder job and starts the cron engine.
func (s *ReminderScheduler) Start() error {
	s.logger.WithField("cron_spec", s.cronSpec).Info("Starting reminder scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron job triggered for discount reminders.")
		s.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("could not add reminder cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	for _, e := range s.cronEngine.Entries() {
		s.logger.WithField("next_run", e.Next.Format(time.RFC3339)).Info("Reminder scheduler started.")
	}
	return nil
}

// RunOnce executes a single reminder run with the configured timeout and
// passes the outcome to every hook.
func (s *ReminderScheduler) RunOnce(ctx context.Context) (*app.RunSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var raw app.RawConfig
	if s.rawConfig != nil {
		raw = s.rawConfig()
	}

	summary, err := s.reminderRun.Execute(ctx, raw)
	if err != nil {
		s.logger.WithError(err).Error("Error during discount reminder run")
	}
	for _, hook := range s.hooks {
		hook(summary, err)
	}
	return summary, err
}

// Stop deregisters the job and waits for a running job to finish.
func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Reminder scheduler gracefully stopped.")
}
