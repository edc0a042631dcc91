package analytics

import (
	"math"

	"codeberg.org/mutker/vitalsd/internal/metric"
)

// percent change beyond which a deviation from baseline is significant
const significantChange = 10.0

type HRV struct {
	HRV             float64 `json:"hrv"`
	ReadingCount    int     `json:"reading_count"`
	TimeWindowHours int     `json:"time_window_hours"`
}

// RMSSD computes the root mean square of successive differences over the
// readings in chronological order, rounded to two decimals.
func RMSSD(readings []*metric.HeartRate, windowHours int) Outcome[HRV] {
	if len(readings) < 2 {
		return Insufficient[HRV]("Not enough data to calculate HRV (at least 2 readings required)")
	}

	ordered := chronological(readings)
	var sum float64
	for i := 1; i < len(ordered); i++ {
		d := float64(ordered[i].Value - ordered[i-1].Value)
		sum += d * d
	}
	rmssd := math.Sqrt(sum / float64(len(ordered)-1))

	return Ok(HRV{
		HRV:             metric.Round(rmssd, 2),
		ReadingCount:    len(ordered),
		TimeWindowHours: windowHours,
	})
}

type Baseline struct {
	Current       int                  `json:"current"`
	Baseline      float64              `json:"baseline"`
	Difference    float64              `json:"difference"`
	PercentChange float64              `json:"percent_change"`
	IsElevated    bool                 `json:"is_elevated"`
	IsSignificant bool                 `json:"is_significant"`
	Activity      metric.ActivityLevel `json:"activity_level,omitempty"`
	BaselineDays  int                  `json:"baseline_days"`
	SampleSize    int                  `json:"sample_size"`
}

// CompareToBaseline compares current against the mean of history, which
// must already be restricted to the baseline window before current. With
// an explicit activity only matching history counts; otherwise readings
// sharing current's activity are preferred when there are any.
func CompareToBaseline(current *metric.HeartRate, history []*metric.HeartRate, activity metric.ActivityLevel, days int) Outcome[Baseline] {
	if current == nil {
		return Insufficient[Baseline]("No heart rate readings available")
	}

	pool := history
	switch {
	case activity != "":
		pool = withActivity(history, activity)
	default:
		if same := withActivity(history, current.ActivityLevel); len(same) > 0 {
			pool = same
			activity = current.ActivityLevel
		}
	}
	if len(pool) == 0 {
		return Insufficient[Baseline]("Not enough historical data to establish a baseline")
	}

	values := make([]float64, len(pool))
	for i, r := range pool {
		values[i] = float64(r.Value)
	}
	base := mean(values)
	diff := float64(current.Value) - base
	pct := diff / base * 100

	return Ok(Baseline{
		Current:       current.Value,
		Baseline:      metric.Round(base, 1),
		Difference:    metric.Round(diff, 1),
		PercentChange: metric.Round(pct, 1),
		IsElevated:    diff > 0,
		IsSignificant: abs(pct) > significantChange,
		Activity:      activity,
		BaselineDays:  days,
		SampleSize:    len(pool),
	})
}

func withActivity(readings []*metric.HeartRate, activity metric.ActivityLevel) []*metric.HeartRate {
	var out []*metric.HeartRate
	for _, r := range readings {
		if r.ActivityLevel == activity {
			out = append(out, r)
		}
	}
	return out
}

type RestingAverage struct {
	Average      float64 `json:"average_resting_heart_rate"`
	ReadingCount int     `json:"reading_count"`
}

// AverageResting is the mean of every resting reading given, unbounded in
// time.
func AverageResting(readings []*metric.HeartRate) Outcome[RestingAverage] {
	resting := withActivity(readings, metric.ActivityResting)
	if len(resting) == 0 {
		return Insufficient[RestingAverage]("No resting heart rate readings available")
	}
	values := make([]float64, len(resting))
	for i, r := range resting {
		values[i] = float64(r.Value)
	}
	return Ok(RestingAverage{Average: metric.Round(mean(values), 1), ReadingCount: len(resting)})
}
