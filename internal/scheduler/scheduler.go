// Package scheduler regenerates the wave artifact on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"wave-platform/internal/models"
	"wave-platform/pkg/logging"
)

// Runner performs one generation pass.
type Runner interface {
	Generate(ctx context.Context) (*models.GridRun, error)
}

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate parses a six-field (seconds first) cron expression.
func Validate(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return nil
}

// Scheduler runs a Runner on a schedule. A pass that is still running when
// the next one is due causes that next one to be skipped.
type Scheduler struct {
	schedule cron.Schedule
	spec     string
	runner   Runner
	logger   *logging.StructuredLogger
	cron     *cron.Cron
}

// New creates a scheduler for spec.
func New(spec string, runner Runner, logger *logging.StructuredLogger) (*Scheduler, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	cl := cronLogger{logger: logger}
	return &Scheduler{
		schedule: schedule,
		spec:     spec,
		runner:   runner,
		logger:   logger,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}, nil
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Start blocks, running passes on schedule until ctx is cancelled. It waits
// for an in-flight pass to finish before returning ctx.Err().
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		if err := s.RunOnce(ctx); err != nil {
			s.logger.Error(ctx, "[SCHEDULER_RUN_FAILED] Scheduled generation failed", logging.Fields{}, err)
		}
	}))

	s.logger.Info(ctx, "[SCHEDULER_START] Scheduler started", logging.Fields{
		"schedule": s.spec,
		"next_run": s.Next(time.Now()).UTC().Format(time.RFC3339),
	})
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()

	s.logger.Info(context.Background(), "[SCHEDULER_STOP] Scheduler stopped", logging.Fields{})
	return ctx.Err()
}

// RunOnce performs a single generation pass.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	run, err := s.runner.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generation failed after %s: %w", time.Since(start).Round(time.Millisecond), err)
	}

	fields := logging.Fields{"duration_ms": time.Since(start).Milliseconds()}
	if run != nil {
		fields["run_id"] = run.ID
		fields["cycle"] = run.CycleTime.Format(time.RFC3339)
	}
	s.logger.Info(ctx, "[SCHEDULER_RUN_COMPLETE] Generation pass finished", fields)
	return nil
}

// cronLogger routes cron's own messages into the structured logger.
type cronLogger struct {
	logger *logging.StructuredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(context.Background(), "[CRON] "+msg, kvFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(context.Background(), "[CRON_ERROR] "+msg, kvFields(keysAndValues), err)
}

func kvFields(keysAndValues []interface{}) logging.Fields {
	fields := logging.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
