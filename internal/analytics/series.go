package analytics

import (
	"math"
	"slices"
	"time"

	"codeberg.org/mutker/vitalsd/internal/metric"
)

const dayLayout = "2006-01-02"

// latestOf picks the maximum-timestamp reading. Ties go to the later
// element so that an ascending result set yields its last row.
func latestOf[T metric.Reading](readings []T) T {
	var best T
	found := false
	for _, r := range readings {
		if !found || !r.Header().Timestamp.Before(best.Header().Timestamp) {
			best, found = r, true
		}
	}
	return best
}

// chronological returns a timestamp-ordered copy; equal timestamps keep
// their input order.
func chronological[T metric.Reading](readings []T) []T {
	out := slices.Clone(readings)
	slices.SortStableFunc(out, func(a, b T) int {
		return a.Header().Timestamp.Compare(b.Header().Timestamp)
	})
	return out
}

// ofKind narrows a heterogeneous result to one concrete reading type.
func ofKind[T metric.Reading](readings []metric.Reading) []T {
	out := make([]T, 0, len(readings))
	for _, r := range readings {
		if v, ok := r.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func abs(v float64) float64 {
	return math.Abs(v)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// dayKey is the calendar date of t in loc.
func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayLayout)
}

// startOfDay returns local midnight of the day containing t.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// PrimaryValue is the headline number of a reading: systolic pressure,
// heart rate, saturation, step count or sleep hours. Secondary is the
// diastolic pressure for blood pressure readings.
func PrimaryValue(r metric.Reading) (primary float64, secondary *float64) {
	switch v := r.(type) {
	case *metric.BloodPressure:
		d := float64(v.Diastolic)
		return float64(v.Systolic), &d
	case *metric.HeartRate:
		return float64(v.Value), nil
	case *metric.SpO2:
		return float64(v.Value), nil
	case *metric.DailySteps:
		return float64(v.Count), nil
	case *metric.SleepDuration:
		return v.Duration(), nil
	default:
		return 0, nil
	}
}

type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Secondary *float64  `json:"secondary,omitempty"`
}

// Trend lists the primary value of each reading in chronological order.
func Trend(readings []metric.Reading) Outcome[[]TrendPoint] {
	if len(readings) == 0 {
		return Insufficient[[]TrendPoint]("No readings in the selected period")
	}
	points := make([]TrendPoint, 0, len(readings))
	for _, r := range chronological(readings) {
		v, sec := PrimaryValue(r)
		points = append(points, TrendPoint{Timestamp: r.Header().Timestamp, Value: v, Secondary: sec})
	}
	return Ok(points)
}

type DailyAverage struct {
	Day       string   `json:"day"`
	Value     float64  `json:"avg_value"`
	Secondary *float64 `json:"avg_secondary,omitempty"`
	Count     int      `json:"reading_count"`
}

// DailyAverages groups readings by local calendar day and averages the
// primary value per day, oldest day first.
func DailyAverages(readings []metric.Reading, loc *time.Location) Outcome[[]DailyAverage] {
	if len(readings) == 0 {
		return Insufficient[[]DailyAverage]("No readings in the selected period")
	}

	type acc struct {
		values, secondary []float64
	}
	byDay := make(map[string]*acc)
	var days []string
	for _, r := range readings {
		key := dayKey(r.Header().Timestamp, loc)
		a, ok := byDay[key]
		if !ok {
			a = &acc{}
			byDay[key] = a
			days = append(days, key)
		}
		v, sec := PrimaryValue(r)
		a.values = append(a.values, v)
		if sec != nil {
			a.secondary = append(a.secondary, *sec)
		}
	}
	slices.Sort(days)

	out := make([]DailyAverage, 0, len(days))
	for _, day := range days {
		a := byDay[day]
		avg := DailyAverage{Day: day, Value: metric.Round(mean(a.values), 2), Count: len(a.values)}
		if len(a.secondary) > 0 {
			s := metric.Round(mean(a.secondary), 2)
			avg.Secondary = &s
		}
		out = append(out, avg)
	}
	return Ok(out)
}
