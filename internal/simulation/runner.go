package simulation

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/logger"
	"codeberg.org/mutker/vitalsd/internal/metric"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// UserDirectory lists the users a batch runs for.
type UserDirectory interface {
	UserIDs(ctx context.Context, role string) ([]string, error)
}

// ConfigStore resolves a user's generator parameters. A user without one
// must yield an error carrying ErrConfigMissing.
type ConfigStore interface {
	GetSimulationConfig(ctx context.Context, userID string) (Config, error)
}

// ReadingSink persists a reading, validating it first.
type ReadingSink interface {
	Create(ctx context.Context, r metric.Reading) error
}

// Publisher announces stored readings.
type Publisher interface {
	Publish(ctx context.Context, r metric.Reading) error
}

// SourceFactory yields a fresh random source for each generator.
type SourceFactory func() rand.Source

// TimeSeeded seeds every source from the wall clock.
func TimeSeeded() rand.Source {
	return rand.NewSource(time.Now().UnixNano())
}

// UserSelector picks the users of a batch; the zero value selects all.
type UserSelector struct {
	Role string
}

var AllUsers = UserSelector{}

func ByRole(role string) UserSelector {
	return UserSelector{Role: role}
}

// Job names the batch drivers.
type Job string

const (
	JobBloodPressure Job = "blood_pressure"
	JobHeartRate     Job = "heart_rate"
	JobSpO2          Job = "spo2"
	JobDaily         Job = "daily_metrics"
)

type Failure struct {
	UserID string
	Kind   metric.Kind
	Err    error
}

// Report summarizes one batch. A user with a failure may still have some
// readings created when the job produces more than one kind.
type Report struct {
	Job      Job
	Users    int
	Created  int
	Failures []Failure
}

func (r *Report) MissingConfigs() int {
	n := 0
	for _, f := range r.Failures {
		if errors.HasCode(f.Err, ErrConfigMissing) {
			n++
		}
	}
	return n
}

type RunnerOptions struct {
	Workers   int
	Sources   SourceFactory
	Now       func() time.Time
	Location  *time.Location
	Publisher Publisher
	Logger    logger.Logger
}

// Runner drives generation for a set of users. Users are processed
// concurrently and a failure for one never stops the others.
type Runner struct {
	users   UserDirectory
	configs ConfigStore
	sink    ReadingSink
	opts    RunnerOptions
}

func NewRunner(users UserDirectory, configs ConfigStore, sink ReadingSink, opts RunnerOptions) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Sources == nil {
		opts.Sources = TimeSeeded
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Runner{users: users, configs: configs, sink: sink, opts: opts}
}

type produceFunc func(g *Generator, userID string, cfg Config) []metric.Reading

func (r *Runner) GenerateBloodPressureForUsers(ctx context.Context, sel UserSelector) (*Report, error) {
	return r.run(ctx, JobBloodPressure, sel, func(g *Generator, id string, cfg Config) []metric.Reading {
		return []metric.Reading{g.BloodPressure(id, cfg)}
	})
}

func (r *Runner) GenerateHeartRateForUsers(ctx context.Context, sel UserSelector) (*Report, error) {
	return r.run(ctx, JobHeartRate, sel, func(g *Generator, id string, cfg Config) []metric.Reading {
		return []metric.Reading{g.HeartRate(id, cfg)}
	})
}

func (r *Runner) GenerateSpO2ForUsers(ctx context.Context, sel UserSelector) (*Report, error) {
	return r.run(ctx, JobSpO2, sel, func(g *Generator, id string, cfg Config) []metric.Reading {
		return []metric.Reading{g.SpO2(id, cfg)}
	})
}

// GenerateDailyMetricsForUsers produces one step count and one sleep
// session per user.
func (r *Runner) GenerateDailyMetricsForUsers(ctx context.Context, sel UserSelector) (*Report, error) {
	return r.run(ctx, JobDaily, sel, func(g *Generator, id string, cfg Config) []metric.Reading {
		return []metric.Reading{g.DailySteps(id, cfg), g.SleepDuration(id, cfg)}
	})
}

// Run dispatches a job by name.
func (r *Runner) Run(ctx context.Context, job Job, sel UserSelector) (*Report, error) {
	switch job {
	case JobBloodPressure:
		return r.GenerateBloodPressureForUsers(ctx, sel)
	case JobHeartRate:
		return r.GenerateHeartRateForUsers(ctx, sel)
	case JobSpO2:
		return r.GenerateSpO2ForUsers(ctx, sel)
	case JobDaily:
		return r.GenerateDailyMetricsForUsers(ctx, sel)
	default:
		return nil, errors.New().WithData(errors.ErrInvalidArgument, job)
	}
}

func (r *Runner) run(ctx context.Context, job Job, sel UserSelector, produce produceFunc) (*Report, error) {
	ids, err := r.users.UserIDs(ctx, sel.Role)
	if err != nil {
		return nil, errors.New().Wrap(ErrListUsersFailed, err)
	}

	report := &Report{Job: job, Users: len(ids)}
	var mu sync.Mutex
	record := func(created int, failures []Failure) {
		mu.Lock()
		defer mu.Unlock()
		report.Created += created
		report.Failures = append(report.Failures, failures...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			record(r.generateFor(gctx, job, id, produce))
			return nil
		})
	}
	_ = g.Wait()

	r.opts.Logger.Debug().
		Str("job", string(job)).
		Str("role", sel.Role).
		Int("users", report.Users).
		Int("created", report.Created).
		Int("failures", len(report.Failures)).
		Msg("Generation batch finished")

	return report, ctx.Err()
}

func (r *Runner) generateFor(ctx context.Context, job Job, userID string, produce produceFunc) (int, []Failure) {
	log := r.opts.Logger

	cfg, err := r.configs.GetSimulationConfig(ctx, userID)
	if err != nil {
		if errors.HasCode(err, ErrConfigMissing) {
			log.Error().
				Bool("violation", true).
				Str("user_id", userID).
				Str("job", string(job)).
				Msg("User has no simulation config, skipping")
		} else {
			log.Warn().
				Str("user_id", userID).
				Str("job", string(job)).
				Err(err).
				Msg("Failed to load simulation config")
		}
		return 0, []Failure{{UserID: userID, Err: err}}
	}

	gen := NewGenerator(r.opts.Sources(), r.opts.Now, r.opts.Location)
	created := 0
	var failures []Failure
	for _, reading := range produce(gen, userID, cfg) {
		if err := r.sink.Create(ctx, reading); err != nil {
			log.Warn().
				Str("user_id", userID).
				Str("kind", string(reading.Kind())).
				Err(err).
				Msg("Failed to store generated reading")
			failures = append(failures, Failure{UserID: userID, Kind: reading.Kind(), Err: err})
			continue
		}
		created++

		if r.opts.Publisher == nil {
			continue
		}
		if err := r.opts.Publisher.Publish(ctx, reading); err != nil {
			log.Warn().
				Str("user_id", userID).
				Str("kind", string(reading.Kind())).
				Err(err).
				Msg("Failed to publish generated reading")
		}
	}
	return created, failures
}
