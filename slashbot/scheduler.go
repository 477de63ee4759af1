package slashbot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/lmittmann/tint"
)

// Scheduler wraps gocron with slog logging and per-run panic recovery.
// A job that fails or panics is logged and runs again on its next tick.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(loggerNameKey, "scheduler")

	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(&gocronLogger{logger: log}),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, logger: log}, nil
}

// AddJob schedules task to run every interval. The task's error is
// logged, never propagated.
func (s *Scheduler) AddJob(
	ctx context.Context,
	name string,
	interval time.Duration,
	task func(context.Context) error,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			s.runJob(ctx, name, task)
		}),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("error scheduling job %q: %w", name, err)
	}
	return nil
}

func (s *Scheduler) runJob(
	ctx context.Context,
	name string,
	task func(context.Context) error,
) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(
				ctx,
				"recovered from panic in scheduled job",
				"job", name,
				"panic", r,
			)
		}
	}()
	if err := task(ctx); err != nil {
		s.logger.ErrorContext(
			ctx,
			"scheduled job failed",
			"job", name,
			tint.Err(err),
		)
	}
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
	s.logger.Info("scheduler started", "jobs", len(s.scheduler.Jobs()))
}

func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}

// gocronLogger adapts slog to gocron's Logger interface.
type gocronLogger struct {
	logger *slog.Logger
}

func (g *gocronLogger) Debug(msg string, args ...any) {
	g.logger.Debug(msg, args...)
}

func (g *gocronLogger) Error(msg string, args ...any) {
	g.logger.Error(msg, args...)
}

func (g *gocronLogger) Info(msg string, args ...any) {
	g.logger.Info(msg, args...)
}

func (g *gocronLogger) Warn(msg string, args ...any) {
	g.logger.Warn(msg, args...)
}
