package analytics

import (
	"fmt"
	"time"

	"codeberg.org/mutker/vitalsd/internal/metric"
)

type SleepRange struct {
	MinHours float64 `json:"min_hours"`
	MaxHours float64 `json:"max_hours"`
}

func sleepRange(age int) SleepRange {
	r := metric.RecommendedSleep(age)
	return SleepRange{MinHours: r.Min, MaxHours: r.Max}
}

type SleepVerdict string

const (
	SleepBelow  SleepVerdict = "below_minimum"
	SleepWithin SleepVerdict = "within_range"
	SleepAbove  SleepVerdict = "above_maximum"
)

func judgeSleep(hours float64, r SleepRange) SleepVerdict {
	switch {
	case hours < r.MinHours:
		return SleepBelow
	case hours > r.MaxHours:
		return SleepAbove
	default:
		return SleepWithin
	}
}

type SleepSufficiency struct {
	IsSufficient     bool         `json:"is_sufficient"`
	Duration         float64      `json:"duration"`
	StartTime        time.Time    `json:"start_time"`
	EndTime          time.Time    `json:"end_time"`
	Age              int          `json:"age"`
	RecommendedRange SleepRange   `json:"recommended_range"`
	Verdict          SleepVerdict `json:"verdict"`
	Recommendation   string       `json:"recommendation"`
}

// CheckSleepSufficiency assesses the most recent session against the
// recommended range for age.
func CheckSleepSufficiency(sessions []*metric.SleepDuration, age int) Outcome[SleepSufficiency] {
	latest := latestOf(sessions)
	if latest == nil {
		return Insufficient[SleepSufficiency]("No sleep sessions available")
	}

	r := sleepRange(age)
	d := latest.Duration()
	verdict := judgeSleep(d, r)

	var rec string
	switch verdict {
	case SleepBelow:
		rec = fmt.Sprintf("Your sleep of %g hours is below the recommended minimum of %g hours for your age. Try to get more sleep.", d, r.MinHours)
	case SleepAbove:
		rec = fmt.Sprintf("Your sleep of %g hours is above the recommended maximum of %g hours for your age. Consistently long sleep may be worth discussing with a healthcare provider.", d, r.MaxHours)
	default:
		rec = fmt.Sprintf("Your sleep of %g hours is within the recommended %g-%g hours for your age.", d, r.MinHours, r.MaxHours)
	}

	return Ok(SleepSufficiency{
		IsSufficient:     verdict == SleepWithin,
		Duration:         d,
		StartTime:        latest.StartTime,
		EndTime:          latest.EndTime,
		Age:              age,
		RecommendedRange: r,
		Verdict:          verdict,
		Recommendation:   rec,
	})
}

type SleepAverage struct {
	WeeklyAverage    float64      `json:"weekly_average"`
	SessionCount     int          `json:"session_count"`
	DaysWithData     int          `json:"days_with_data"`
	Days             int          `json:"days"`
	DataCompleteness float64      `json:"data_completeness"`
	RecommendedRange SleepRange   `json:"recommended_range"`
	Verdict          SleepVerdict `json:"verdict"`
	Assessment       string       `json:"assessment"`
}

// AverageSleep is the mean session duration for sessions that started in
// the window. Without an age the adult range is used for the assessment.
func AverageSleep(sessions []*metric.SleepDuration, days, age int, loc *time.Location) Outcome[SleepAverage] {
	if len(sessions) == 0 {
		return Insufficient[SleepAverage](fmt.Sprintf("No sleep sessions in the last %d days", days))
	}

	seen := make(map[string]struct{})
	values := make([]float64, len(sessions))
	for i, s := range sessions {
		values[i] = s.Duration()
		seen[dayKey(s.StartTime, loc)] = struct{}{}
	}
	avg := metric.Round(mean(values), 2)

	if age <= 0 {
		age = adultAge
	}
	r := sleepRange(age)
	verdict := judgeSleep(avg, r)

	var assessment string
	switch verdict {
	case SleepBelow:
		assessment = fmt.Sprintf("Average sleep is below the recommended %g-%g hours.", r.MinHours, r.MaxHours)
	case SleepAbove:
		assessment = fmt.Sprintf("Average sleep is above the recommended %g-%g hours.", r.MinHours, r.MaxHours)
	default:
		assessment = fmt.Sprintf("Average sleep is within the recommended %g-%g hours.", r.MinHours, r.MaxHours)
	}

	return Ok(SleepAverage{
		WeeklyAverage:    avg,
		SessionCount:     len(sessions),
		DaysWithData:     len(seen),
		Days:             days,
		DataCompleteness: completeness(len(seen), days),
		RecommendedRange: r,
		Verdict:          verdict,
		Assessment:       assessment,
	})
}

// used when the caller gives no age
const adultAge = 30
