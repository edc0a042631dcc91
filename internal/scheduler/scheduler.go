// Package scheduler runs the synthetic generation batches on fixed
// intervals.
package scheduler

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/logger"
	"codeberg.org/mutker/vitalsd/internal/metrics"
	"codeberg.org/mutker/vitalsd/internal/simulation"
)

// JobRunner executes one generation batch.
type JobRunner interface {
	Run(ctx context.Context, job simulation.Job, sel simulation.UserSelector) (*simulation.Report, error)
}

// Entry schedules one job. A non-positive interval disables it.
type Entry struct {
	Job      simulation.Job
	Interval time.Duration
}

type Options struct {
	Entries  []Entry
	Selector simulation.UserSelector
	// RunOnStart fires every job once before its first tick.
	RunOnStart bool
	Metrics    metrics.Collector
	Logger     logger.Logger
}

type Scheduler struct {
	runner JobRunner
	opts   Options
}

func New(runner JobRunner, opts Options) (*Scheduler, error) {
	errFactory := errors.New()

	if runner == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "scheduler requires a runner")
	}
	seen := make(map[simulation.Job]bool, len(opts.Entries))
	for _, e := range opts.Entries {
		if seen[e.Job] {
			return nil, errFactory.WithData(errors.ErrInvalidArgument, e.Job)
		}
		seen[e.Job] = true
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(metrics.Config{})
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Scheduler{runner: runner, opts: opts}, nil
}

// Start runs every enabled job on its own ticker and blocks until ctx is
// canceled. A batch in progress is allowed to observe the cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, e := range s.opts.Entries {
		if e.Interval <= 0 {
			s.opts.Logger.Info().Str("job", string(e.Job)).Msg("Job disabled")
			continue
		}
		e := e
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, e)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e Entry) {
	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()

	s.opts.Logger.Info().
		Str("job", string(e.Job)).
		Dur("interval", e.Interval).
		Msg("Job scheduled")

	if s.opts.RunOnStart {
		s.RunOnce(ctx, e.Job)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx, e.Job)
		}
	}
}

// RunOnce executes a single batch of job and records its outcome.
func (s *Scheduler) RunOnce(ctx context.Context, job simulation.Job) *simulation.Report {
	log := s.opts.Logger
	start := time.Now()

	report, err := s.runner.Run(ctx, job, s.opts.Selector)

	res := metrics.JobResult{Elapsed: time.Since(start), Err: err}
	if report != nil {
		res.Users = report.Users
		res.Created = report.Created
		res.Failures = len(report.Failures)
		res.MissingConfigs = report.MissingConfigs()
	}
	s.opts.Metrics.ObserveJob(string(job), res)

	switch {
	case err != nil && ctx.Err() != nil:
		log.Debug().Str("job", string(job)).Msg("Batch interrupted by shutdown")
	case err != nil:
		log.Error().Str("job", string(job)).Err(err).Msg("Batch failed")
	case res.Failures > 0:
		log.Warn().
			Str("job", string(job)).
			Int("users", res.Users).
			Int("created", res.Created).
			Int("failures", res.Failures).
			Int("missing_configs", res.MissingConfigs).
			Dur("elapsed", res.Elapsed).
			Msg("Batch finished with failures")
	default:
		log.Info().
			Str("job", string(job)).
			Int("users", res.Users).
			Int("created", res.Created).
			Dur("elapsed", res.Elapsed).
			Msg("Batch finished")
	}

	return report
}
