package analytics

import (
	"context"
	"time"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/logger"
	"codeberg.org/mutker/vitalsd/internal/metric"
)

const day = 24 * time.Hour

// ReadingSource is the read side of the reading store.
type ReadingSource interface {
	Query(ctx context.Context, f metric.Filter) ([]metric.Reading, error)
}

// Engine resolves analytics windows against a ReadingSource for one user
// at a time and hands the readings to the pure computations.
type Engine struct {
	src    ReadingSource
	now    func() time.Time
	loc    *time.Location
	logger logger.Logger
}

type Option func(*Engine)

// WithClock replaces time.Now as the reference for trailing windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone used for hour-of-day and calendar-day grouping.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(src ReadingSource, opts ...Option) *Engine {
	e := &Engine{
		src:    src,
		now:    time.Now,
		loc:    time.UTC,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) query(ctx context.Context, f metric.Filter) ([]metric.Reading, error) {
	readings, err := e.src.Query(ctx, f)
	if err != nil {
		e.logger.Debug().
			Str("user_id", f.UserID).
			Str("kind", string(f.Kind)).
			Err(err).
			Msg("Reading query failed")
		return nil, errors.New().Wrap(ErrQueryFailed, err)
	}
	return readings, nil
}

func (e *Engine) since(days int) time.Time {
	return e.now().Add(-time.Duration(days) * day)
}

func queryAs[T metric.Reading](ctx context.Context, e *Engine, f metric.Filter) ([]T, error) {
	readings, err := e.query(ctx, f)
	if err != nil {
		return nil, err
	}
	return ofKind[T](readings), nil
}

func latestAs[T metric.Reading](ctx context.Context, e *Engine, userID string, kind metric.Kind) ([]T, error) {
	return queryAs[T](ctx, e, metric.Filter{UserID: userID, Kind: kind, Order: metric.Descending, Limit: 1})
}

// TimeOfDayAnalysis compares morning and evening blood pressure over the
// last days days.
func (e *Engine) TimeOfDayAnalysis(ctx context.Context, userID string, days int) (Outcome[TimeOfDay], error) {
	if err := ValidateDays(days, MaxDays); err != nil {
		return Outcome[TimeOfDay]{}, err
	}
	readings, err := queryAs[*metric.BloodPressure](ctx, e, metric.Since(userID, metric.KindBloodPressure, e.since(days)))
	if err != nil {
		return Outcome[TimeOfDay]{}, err
	}
	return AnalyzeTimeOfDay(readings, days, e.loc), nil
}

func (e *Engine) ElevationCheck(ctx context.Context, userID string, days int) (Elevation, error) {
	if err := ValidateDays(days, MaxDays); err != nil {
		return Elevation{}, err
	}
	readings, err := queryAs[*metric.BloodPressure](ctx, e, metric.Since(userID, metric.KindBloodPressure, e.since(days)))
	if err != nil {
		return Elevation{}, err
	}
	return CheckElevation(readings, days), nil
}

func (e *Engine) AgeComparison(ctx context.Context, userID string, age int) (Outcome[AgeComparison], error) {
	if err := ValidateAge(age); err != nil {
		return Outcome[AgeComparison]{}, err
	}
	latest, err := latestAs[*metric.BloodPressure](ctx, e, userID, metric.KindBloodPressure)
	if err != nil {
		return Outcome[AgeComparison]{}, err
	}
	return CompareToAge(latest, age), nil
}

// HeartRateVariability computes RMSSD over the trailing window of hours.
func (e *Engine) HeartRateVariability(ctx context.Context, userID string, hours int) (Outcome[HRV], error) {
	if err := ValidateWindowHours(hours); err != nil {
		return Outcome[HRV]{}, err
	}
	start := e.now().Add(-time.Duration(hours) * time.Hour)
	readings, err := queryAs[*metric.HeartRate](ctx, e, metric.Since(userID, metric.KindHeartRate, start))
	if err != nil {
		return Outcome[HRV]{}, err
	}
	return RMSSD(readings, hours), nil
}

// BaselineComparison compares the latest heart rate with the mean of the
// days before it. An empty activity lets the reading's own activity be
// preferred.
func (e *Engine) BaselineComparison(ctx context.Context, userID string, days int, activity metric.ActivityLevel) (Outcome[Baseline], error) {
	if err := inRange("baseline_days", days, 1, MaxDays); err != nil {
		return Outcome[Baseline]{}, err
	}
	if activity != "" && !activity.IsValid() {
		return Outcome[Baseline]{}, paramError("baseline_activity", string(activity), "must be one of resting, active, sleeping")
	}

	latest, err := latestAs[*metric.HeartRate](ctx, e, userID, metric.KindHeartRate)
	if err != nil {
		return Outcome[Baseline]{}, err
	}
	if len(latest) == 0 {
		return CompareToBaseline(nil, nil, activity, days), nil
	}
	current := latest[0]

	history, err := queryAs[*metric.HeartRate](ctx, e, metric.Filter{
		UserID:   userID,
		Kind:     metric.KindHeartRate,
		Start:    current.Timestamp.Add(-time.Duration(days) * day),
		End:      current.Timestamp,
		Activity: activity,
	})
	if err != nil {
		return Outcome[Baseline]{}, err
	}
	return CompareToBaseline(current, history, activity, days), nil
}

func (e *Engine) RestingAverage(ctx context.Context, userID string) (Outcome[RestingAverage], error) {
	readings, err := queryAs[*metric.HeartRate](ctx, e, metric.Filter{
		UserID:   userID,
		Kind:     metric.KindHeartRate,
		Activity: metric.ActivityResting,
	})
	if err != nil {
		return Outcome[RestingAverage]{}, err
	}
	return AverageResting(readings), nil
}

func (e *Engine) LowestSpO2(ctx context.Context, userID string, days int) (Outcome[LowestSpO2], error) {
	if err := ValidateDays(days, MaxSpO2Days); err != nil {
		return Outcome[LowestSpO2]{}, err
	}
	readings, err := queryAs[*metric.SpO2](ctx, e, metric.Since(userID, metric.KindSpO2, e.since(days)))
	if err != nil {
		return Outcome[LowestSpO2]{}, err
	}
	return FindLowestSpO2(readings, days), nil
}

// SpO2AlertCheck grades the most recent SpO2 reading.
func (e *Engine) SpO2AlertCheck(ctx context.Context, userID string) (Outcome[SpO2Alert], error) {
	latest, err := latestAs[*metric.SpO2](ctx, e, userID, metric.KindSpO2)
	if err != nil {
		return Outcome[SpO2Alert]{}, err
	}
	return CheckSpO2Alert(latest), nil
}

// StepsWeeklyAverage averages the last days calendar days, today included.
func (e *Engine) StepsWeeklyAverage(ctx context.Context, userID string, days int) (Outcome[StepsAverage], error) {
	if err := ValidateDays(days, MaxDays); err != nil {
		return Outcome[StepsAverage]{}, err
	}
	start := startOfDay(e.now(), e.loc).AddDate(0, 0, -(days - 1))
	readings, err := queryAs[*metric.DailySteps](ctx, e, metric.Since(userID, metric.KindDailySteps, start))
	if err != nil {
		return Outcome[StepsAverage]{}, err
	}
	return AverageSteps(readings, days, e.loc), nil
}

func (e *Engine) SleepSufficiency(ctx context.Context, userID string, age int) (Outcome[SleepSufficiency], error) {
	if err := ValidateAge(age); err != nil {
		return Outcome[SleepSufficiency]{}, err
	}
	latest, err := latestAs[*metric.SleepDuration](ctx, e, userID, metric.KindSleepDuration)
	if err != nil {
		return Outcome[SleepSufficiency]{}, err
	}
	return CheckSleepSufficiency(latest, age), nil
}

// SleepWeeklyAverage averages sessions that started in the last days days.
// An age of 0 means unknown.
func (e *Engine) SleepWeeklyAverage(ctx context.Context, userID string, days, age int) (Outcome[SleepAverage], error) {
	if err := ValidateDays(days, MaxDays); err != nil {
		return Outcome[SleepAverage]{}, err
	}
	if age != 0 {
		if err := ValidateAge(age); err != nil {
			return Outcome[SleepAverage]{}, err
		}
	}
	f := metric.Since(userID, metric.KindSleepDuration, e.since(days))
	f.WindowOn = metric.WindowStartTime
	sessions, err := queryAs[*metric.SleepDuration](ctx, e, f)
	if err != nil {
		return Outcome[SleepAverage]{}, err
	}
	return AverageSleep(sessions, days, age, e.loc), nil
}

// DailyAverages returns per-day means of any reading kind.
func (e *Engine) DailyAverages(ctx context.Context, userID string, kind metric.Kind, days int) (Outcome[[]DailyAverage], error) {
	if err := e.checkSeries(kind, days); err != nil {
		return Outcome[[]DailyAverage]{}, err
	}
	readings, err := e.query(ctx, metric.Since(userID, kind, e.since(days)))
	if err != nil {
		return Outcome[[]DailyAverage]{}, err
	}
	return DailyAverages(readings, e.loc), nil
}

// Trend returns the raw series of any reading kind over the last days days.
func (e *Engine) Trend(ctx context.Context, userID string, kind metric.Kind, days int) (Outcome[[]TrendPoint], error) {
	if err := e.checkSeries(kind, days); err != nil {
		return Outcome[[]TrendPoint]{}, err
	}
	readings, err := e.query(ctx, metric.Since(userID, kind, e.since(days)))
	if err != nil {
		return Outcome[[]TrendPoint]{}, err
	}
	return Trend(readings), nil
}

func (*Engine) checkSeries(kind metric.Kind, days int) error {
	if _, ok := metric.New(kind); !ok {
		return errors.New().WithData(ErrUnknownKind, kind)
	}
	return ValidateDays(days, MaxDays)
}
