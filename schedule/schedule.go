// Package schedule triggers pipeline runs, one at a time.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kibsywow/recruit-bot/pkg/lfg"
)

// ErrBusy is returned when a run is requested while another is in progress.
var ErrBusy = errors.New("schedule: run already in progress")

// Pipeline performs a single run.
type Pipeline interface {
	Run(ctx context.Context) (*lfg.Report, error)
}

// Runner serializes runs. A trigger that arrives during a run is rejected
// rather than queued.
type Runner struct {
	pipeline Pipeline
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewRunner creates a new runner.
func NewRunner(pipeline Pipeline, logger *slog.Logger) *Runner {
	return &Runner{
		pipeline: pipeline,
		logger:   logger,
	}
}

// Run executes the pipeline unless a run is already in progress.
func (r *Runner) Run(ctx context.Context) (*lfg.Report, error) {
	if !r.mu.TryLock() {
		r.logger.Warn("Run requested while another is in progress, skipping")
		return nil, ErrBusy
	}
	defer r.mu.Unlock()
	return r.pipeline.Run(ctx)
}

// Scheduler fires the runner on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	runner  *Runner
	logger  *slog.Logger
	spec    string
	timeout time.Duration
}

// New creates a scheduler for a standard five-field cron spec or a
// descriptor such as "@every 10m". Each run is bounded by timeout.
func New(spec string, runner *Runner, timeout time.Duration, logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner:  runner,
		logger:  logger,
		spec:    spec,
		timeout: timeout,
	}
}

// Start registers the job and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.fire(ctx) }); err != nil {
		return fmt.Errorf("parse schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", "schedule", s.spec)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) fire(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.runner.Run(runCtx)
	if errors.Is(err, ErrBusy) {
		return
	}
	if err != nil {
		s.logger.Error("Scheduled run failed", "error", err)
		return
	}
	s.logger.Info("Scheduled run finished",
		"announced", report.Announced,
		"failed", len(report.Failed))
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
