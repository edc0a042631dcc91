package simulation

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	byRole map[string][]string
	err    error
	roles  []string
}

func (d *fakeDirectory) UserIDs(_ context.Context, role string) ([]string, error) {
	d.roles = append(d.roles, role)
	if d.err != nil {
		return nil, d.err
	}
	if role == "" {
		var all []string
		for _, ids := range d.byRole {
			all = append(all, ids...)
		}
		return all, nil
	}
	return d.byRole[role], nil
}

type fakeConfigs map[string]Config

func (c fakeConfigs) GetSimulationConfig(_ context.Context, userID string) (Config, error) {
	cfg, ok := c[userID]
	if !ok {
		return Config{}, errors.New().WithData(ErrConfigMissing, userID)
	}
	return cfg, nil
}

// validatingSink behaves like the store: it rejects invalid readings.
type validatingSink struct {
	mu       sync.Mutex
	readings []metric.Reading
	failFor  map[string]bool
}

func (s *validatingSink) Create(_ context.Context, r metric.Reading) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if s.failFor[r.Header().UserID] {
		return errors.New().New(errors.ErrUnavailable)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, r)
	return nil
}

func (s *validatingSink) byUser() map[string][]metric.Reading {
	out := make(map[string][]metric.Reading)
	for _, r := range s.readings {
		out[r.Header().UserID] = append(out[r.Header().UserID], r)
	}
	return out
}

type recordingPublisher struct {
	mu    sync.Mutex
	kinds []metric.Kind
}

func (p *recordingPublisher) Publish(_ context.Context, r metric.Reading) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, r.Kind())
	return nil
}

func seeded() rand.Source {
	return rand.NewSource(11)
}

func newTestRunner(dir *fakeDirectory, cfgs fakeConfigs, sink *validatingSink, pub Publisher) *Runner {
	return NewRunner(dir, cfgs, sink, RunnerOptions{
		Workers:   3,
		Sources:   seeded,
		Now:       fixedClock(noon),
		Publisher: pub,
	})
}

func TestRunnerCreatesOneReadingPerUser(t *testing.T) {
	dir := &fakeDirectory{byRole: map[string][]string{"patient": {"p1", "p2", "p3"}, "doctor": {"d1"}}}
	cfgs := fakeConfigs{}
	for _, id := range []string{"p1", "p2", "p3", "d1"} {
		cfgs[id] = DefaultConfig(id)
	}
	sink := &validatingSink{}
	pub := &recordingPublisher{}
	r := newTestRunner(dir, cfgs, sink, pub)

	report, err := r.GenerateBloodPressureForUsers(context.Background(), AllUsers)
	require.NoError(t, err)
	assert.Equal(t, JobBloodPressure, report.Job)
	assert.Equal(t, 4, report.Users)
	assert.Equal(t, 4, report.Created)
	assert.Empty(t, report.Failures)
	assert.Len(t, pub.kinds, 4)

	for id, readings := range sink.byUser() {
		require.Len(t, readings, 1, id)
		assert.Equal(t, metric.KindBloodPressure, readings[0].Kind())
		assert.Equal(t, metric.SourceSimulated, readings[0].Header().Source)
	}
}

func TestRunnerFiltersByRole(t *testing.T) {
	dir := &fakeDirectory{byRole: map[string][]string{"patient": {"p1"}, "doctor": {"d1"}}}
	cfgs := fakeConfigs{"p1": DefaultConfig("p1"), "d1": DefaultConfig("d1")}
	sink := &validatingSink{}
	r := newTestRunner(dir, cfgs, sink, nil)

	report, err := r.GenerateHeartRateForUsers(context.Background(), ByRole("patient"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, []string{"patient"}, dir.roles)
	assert.Contains(t, sink.byUser(), "p1")
	assert.NotContains(t, sink.byUser(), "d1")
}

func TestRunnerIsolatesMissingConfig(t *testing.T) {
	dir := &fakeDirectory{byRole: map[string][]string{"patient": {"p1", "p2", "p3"}}}
	cfgs := fakeConfigs{"p1": DefaultConfig("p1"), "p3": DefaultConfig("p3")}
	sink := &validatingSink{}
	r := newTestRunner(dir, cfgs, sink, nil)

	report, err := r.GenerateSpO2ForUsers(context.Background(), AllUsers)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "p2", report.Failures[0].UserID)
	assert.True(t, errors.HasCode(report.Failures[0].Err, ErrConfigMissing))
	assert.Equal(t, 1, report.MissingConfigs())
	assert.NotContains(t, sink.byUser(), "p2")
}

func TestRunnerIsolatesStoreFailures(t *testing.T) {
	dir := &fakeDirectory{byRole: map[string][]string{"patient": {"p1", "p2"}}}
	cfgs := fakeConfigs{"p1": DefaultConfig("p1"), "p2": DefaultConfig("p2")}
	sink := &validatingSink{failFor: map[string]bool{"p1": true}}
	r := newTestRunner(dir, cfgs, sink, nil)

	report, err := r.GenerateDailyMetricsForUsers(context.Background(), AllUsers)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Len(t, report.Failures, 2)
	assert.Zero(t, report.MissingConfigs())

	readings := sink.byUser()["p2"]
	require.Len(t, readings, 2)
	kinds := []metric.Kind{readings[0].Kind(), readings[1].Kind()}
	assert.ElementsMatch(t, []metric.Kind{metric.KindDailySteps, metric.KindSleepDuration}, kinds)
}

func TestRunnerListFailure(t *testing.T) {
	dir := &fakeDirectory{err: errors.New().New(errors.ErrUnavailable)}
	r := newTestRunner(dir, fakeConfigs{}, &validatingSink{}, nil)

	_, err := r.GenerateBloodPressureForUsers(context.Background(), AllUsers)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrListUsersFailed))
}

func TestRunnerRunDispatch(t *testing.T) {
	dir := &fakeDirectory{byRole: map[string][]string{"patient": {"p1"}}}
	sink := &validatingSink{}
	r := newTestRunner(dir, fakeConfigs{"p1": DefaultConfig("p1")}, sink, nil)

	for _, job := range []Job{JobBloodPressure, JobHeartRate, JobSpO2, JobDaily} {
		report, err := r.Run(context.Background(), job, AllUsers)
		require.NoError(t, err)
		assert.Equal(t, job, report.Job)
	}
	assert.Len(t, sink.readings, 5)

	_, err := r.Run(context.Background(), Job("weight"), AllUsers)
	assert.Error(t, err)
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	dir := &fakeDirectory{byRole: map[string][]string{"patient": {"p1", "p2"}}}
	sink := &validatingSink{}
	r := newTestRunner(dir, fakeConfigs{"p1": DefaultConfig("p1"), "p2": DefaultConfig("p2")}, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := r.GenerateBloodPressureForUsers(ctx, AllUsers)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Created)
}
