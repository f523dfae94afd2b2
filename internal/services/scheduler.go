package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/taskpulse/backend/internal/config"
	"github.com/taskpulse/backend/usecase/lifecycle"
	"github.com/taskpulse/backend/usecase/notify"
)

// Scheduler drives the periodic jobs: the activation sweep, the due-soon
// check, the daily summary and the buffer drain. Jobs run in parallel with
// each other and with foreground traffic, but each individual job never
// overlaps itself: a tick that fires while the previous run is still going is
// skipped, and a running job is allowed to finish rather than being killed
// mid-update.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger
}

func NewScheduler(
	cfg config.JobsConfig,
	machine *lifecycle.Service,
	engine *notify.Engine,
	processor *BufferProcessor,
	retention time.Duration,
	logger *zap.Logger,
) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cronLog := &cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithChain(
				cron.Recover(cronLog),
				cron.SkipIfStillRunning(cronLog),
			),
		),
		timeout: cfg.JobTimeout,
		logger:  logger,
	}

	jobs := []struct {
		name     string
		schedule string
		run      func(ctx context.Context, now time.Time)
	}{
		{"activation_sweep", cfg.SweepSchedule, func(ctx context.Context, now time.Time) {
			machine.Sweep(ctx, now)
		}},
		{"due_soon_check", cfg.DueCheckSchedule, func(ctx context.Context, now time.Time) {
			engine.DueSoonTick(ctx, now)
		}},
		{"daily_summary", cfg.SummarySchedule, func(ctx context.Context, now time.Time) {
			engine.DailySummaryTick(ctx, now)
		}},
		{"buffer_drain", cfg.DrainSchedule, func(ctx context.Context, now time.Time) {
			if err := processor.Drain(ctx); err != nil {
				logger.Error("buffer drain failed", zap.Error(err))
			}
		}},
		{"buffer_cleanup", "@hourly", func(ctx context.Context, now time.Time) {
			processor.Cleanup(now.Add(-retention))
		}},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			job.run(ctx, time.Now())
		})
		if err != nil {
			return nil, err
		}
		logger.Info("job scheduled",
			zap.String("job", job.name),
			zap.String("schedule", job.schedule))
	}

	return s, nil
}

// Start launches the cron scheduler.
func (s *Scheduler) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop waits for in-flight jobs to finish, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("scheduler stopped")
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
