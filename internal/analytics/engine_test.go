package analytics

import (
	"context"
	"slices"
	"testing"
	"time"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	readings []metric.Reading
	filters  []metric.Filter
	err      error
}

func (m *memorySource) Query(_ context.Context, f metric.Filter) ([]metric.Reading, error) {
	m.filters = append(m.filters, f)
	if m.err != nil {
		return nil, m.err
	}
	var out []metric.Reading
	for _, r := range m.readings {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b metric.Reading) int {
		c := a.Header().Timestamp.Compare(b.Header().Timestamp)
		if f.Order == metric.Descending {
			return -c
		}
		return c
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func newTestEngine(readings ...metric.Reading) (*Engine, *memorySource) {
	src := &memorySource{readings: readings}
	return NewEngine(src, WithClock(func() time.Time { return t0 })), src
}

func TestEngineRejectsBadParameters(t *testing.T) {
	e, src := newTestEngine()
	ctx := context.Background()

	_, err := e.TimeOfDayAnalysis(ctx, "u1", 0)
	assert.True(t, errors.HasCode(err, ErrInvalidParameter))
	_, err = e.ElevationCheck(ctx, "u1", 91)
	assert.True(t, errors.HasCode(err, ErrInvalidParameter))
	_, err = e.AgeComparison(ctx, "u1", 0)
	assert.True(t, errors.HasCode(err, ErrInvalidParameter))
	_, err = e.HeartRateVariability(ctx, "u1", 25)
	assert.True(t, errors.HasCode(err, ErrInvalidParameter))
	_, err = e.BaselineComparison(ctx, "u1", 30, "running")
	assert.True(t, errors.HasCode(err, ErrInvalidParameter))
	_, err = e.LowestSpO2(ctx, "u1", 8)
	assert.True(t, errors.HasCode(err, ErrInvalidParameter))
	_, err = e.SleepSufficiency(ctx, "u1", 121)
	assert.True(t, errors.HasCode(err, ErrInvalidParameter))
	_, err = e.SleepWeeklyAverage(ctx, "u1", 7, -1)
	assert.True(t, errors.HasCode(err, ErrInvalidParameter))
	_, err = e.Trend(ctx, "u1", metric.Kind("weight"), 7)
	assert.True(t, errors.HasCode(err, ErrUnknownKind))

	assert.Empty(t, src.filters)
}

func TestEngineWrapsSourceErrors(t *testing.T) {
	e, src := newTestEngine()
	src.err = errors.New().New(errors.ErrUnavailable)

	_, err := e.RestingAverage(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrQueryFailed))
	assert.True(t, errors.HasCode(err, errors.ErrUnavailable))
}

func TestEngineWindowsAreScopedToUser(t *testing.T) {
	other := bp(t0.Add(-time.Hour), 180, 110)
	other.UserID = "u2"
	e, _ := newTestEngine(
		bp(t0.Add(-time.Hour), 120, 78),
		bp(t0.Add(-8*day), 170, 100),
		other,
	)

	res, err := e.ElevationCheck(context.Background(), "u1", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalCount)
	assert.False(t, res.IsConsistentlyElevated)
}

func TestEngineHeartRateVariabilityWindow(t *testing.T) {
	e, src := newTestEngine(
		hr(t0.Add(-30*time.Hour), 150, metric.ActivityActive),
		hr(t0.Add(-2*time.Hour), 70, metric.ActivityResting),
		hr(t0.Add(-90*time.Minute), 72, metric.ActivityResting),
		hr(t0, 68, metric.ActivityResting),
	)

	out, err := e.HeartRateVariability(context.Background(), "u1", 24)
	require.NoError(t, err)
	v, ok := out.Value()
	require.True(t, ok)
	assert.Equal(t, 3.16, v.HRV)
	assert.Equal(t, t0.Add(-24*time.Hour), src.filters[0].Start)

	out, err = e.HeartRateVariability(context.Background(), "u1", 1)
	require.NoError(t, err)
	assert.False(t, out.IsOK())
}

func TestEngineBaselineComparison(t *testing.T) {
	e, src := newTestEngine(
		hr(t0.Add(-40*day), 50, metric.ActivityResting),
		hr(t0.Add(-3*day), 70, metric.ActivityResting),
		hr(t0.Add(-2*day), 74, metric.ActivityResting),
		hr(t0.Add(-1*day), 120, metric.ActivityActive),
		hr(t0, 88, metric.ActivityResting),
	)

	out, err := e.BaselineComparison(context.Background(), "u1", 30, "")
	require.NoError(t, err)
	v, ok := out.Value()
	require.True(t, ok)
	assert.Equal(t, 88, v.Current)
	assert.Equal(t, 72.0, v.Baseline)
	assert.Equal(t, 2, v.SampleSize)

	last := src.filters[len(src.filters)-1]
	assert.Equal(t, t0, last.End)
	assert.Equal(t, t0.Add(-30*day), last.Start)

	out, err = e.BaselineComparison(context.Background(), "u1", 30, metric.ActivityActive)
	require.NoError(t, err)
	v, ok = out.Value()
	require.True(t, ok)
	assert.Equal(t, 120.0, v.Baseline)
	assert.False(t, v.IsElevated)
}

func TestEngineBaselineWithoutHistory(t *testing.T) {
	e, _ := newTestEngine(hr(t0, 88, metric.ActivityResting))
	out, err := e.BaselineComparison(context.Background(), "u1", 30, "")
	require.NoError(t, err)
	assert.False(t, out.IsOK())

	e, _ = newTestEngine()
	out, err = e.BaselineComparison(context.Background(), "u1", 30, "")
	require.NoError(t, err)
	assert.False(t, out.IsOK())
}

func TestEngineLatestReadingIsDeterministic(t *testing.T) {
	e, _ := newTestEngine(
		bp(t0, 140, 92),
		bp(t0.Add(-time.Hour), 110, 70),
	)
	out, err := e.AgeComparison(context.Background(), "u1", 30)
	require.NoError(t, err)
	v, ok := out.Value()
	require.True(t, ok)
	assert.Equal(t, 140, v.LatestReading.Systolic)
}

func TestEngineLowestSpO2(t *testing.T) {
	e, _ := newTestEngine(
		spo2(t0.Add(-4*day), 85),
		spo2(t0.Add(-2*day), 98),
		spo2(t0.Add(-1*day), 94),
		spo2(t0, 91),
	)
	out, err := e.LowestSpO2(context.Background(), "u1", 3)
	require.NoError(t, err)
	v, ok := out.Value()
	require.True(t, ok)
	assert.Equal(t, 91, v.LowestOxygenLevel)
	assert.False(t, v.AlertRequired)
}

func TestEngineStepsWindowIsCalendarDays(t *testing.T) {
	e, src := newTestEngine(
		steps(t0.Add(-7*day), 20000, 10000),
		steps(t0.Add(-6*day-11*time.Hour), 6000, 10000),
		steps(t0, 10000, 10000),
	)
	out, err := e.StepsWeeklyAverage(context.Background(), "u1", 7)
	require.NoError(t, err)
	v, ok := out.Value()
	require.True(t, ok)
	assert.Equal(t, 8000.0, v.WeeklyAverage)
	assert.Equal(t, 2, v.DaysWithData)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), src.filters[0].Start)
}

func TestEngineSleepWeeklyAverageWindowsOnStartTime(t *testing.T) {
	in := sleep(t0.Add(-6*day), 7)
	out := sleep(t0.Add(-8*day), 9)
	// timestamp inside the window, start time outside
	out.Timestamp = t0.Add(-time.Hour)

	e, src := newTestEngine(in, out)
	res, err := e.SleepWeeklyAverage(context.Background(), "u1", 7, 70)
	require.NoError(t, err)
	v, ok := res.Value()
	require.True(t, ok)
	assert.Equal(t, 1, v.SessionCount)
	assert.Equal(t, 7.0, v.WeeklyAverage)
	assert.Equal(t, SleepWithin, v.Verdict)
	assert.Equal(t, metric.WindowStartTime, src.filters[0].WindowOn)

	e, _ = newTestEngine()
	res, err = e.SleepWeeklyAverage(context.Background(), "u1", 7, 0)
	require.NoError(t, err)
	assert.False(t, res.IsOK())
}

func TestEngineDailyAveragesUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	src := &memorySource{readings: []metric.Reading{
		hr(time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC), 60, metric.ActivitySleeping),
		hr(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC), 80, metric.ActivityResting),
	}}
	e := NewEngine(src, WithClock(func() time.Time { return t0 }), WithLocation(loc))

	out, err := e.DailyAverages(context.Background(), "u1", metric.KindHeartRate, 7)
	require.NoError(t, err)
	v, ok := out.Value()
	require.True(t, ok)
	require.Len(t, v, 2)
	assert.Equal(t, "2024-03-09", v[0].Day)
	assert.Equal(t, 60.0, v[0].Value)
	assert.Equal(t, "2024-03-10", v[1].Day)
}
