package analytics

import (
	"fmt"
	"strings"
	"time"

	"codeberg.org/mutker/vitalsd/internal/metric"
)

const (
	// morning is [00:00, 12:00) local time, evening the rest of the day
	eveningStartHour = 12

	// systolic gap between buckets that counts as a circadian pattern
	patternThreshold = 10.0

	// at least 6 in 10 readings elevated for a consistently elevated verdict
	elevatedPerTen = 6
	seniorAge      = 60
)

type PatternType string

const (
	PatternMorningDominant PatternType = "morning_dominant"
	PatternEveningDominant PatternType = "evening_dominant"
	PatternConsistent      PatternType = "consistent"
)

type BPAverages struct {
	Systolic  float64 `json:"avg_systolic"`
	Diastolic float64 `json:"avg_diastolic"`
	Count     int     `json:"reading_count"`
}

type Pattern struct {
	Type               PatternType `json:"type"`
	Description        string      `json:"description"`
	SystolicDifference float64     `json:"systolic_difference"`
}

// TimeOfDay holds per-bucket averages. A bucket without readings is nil,
// and Pattern is only set when both buckets have readings.
type TimeOfDay struct {
	Morning      *BPAverages `json:"morning_averages"`
	Evening      *BPAverages `json:"evening_averages"`
	Pattern      *Pattern    `json:"pattern,omitempty"`
	ReadingCount int         `json:"reading_count"`
	Days         int         `json:"days"`
}

// AnalyzeTimeOfDay buckets readings by local hour in loc and compares the
// morning and evening systolic means.
func AnalyzeTimeOfDay(readings []*metric.BloodPressure, days int, loc *time.Location) Outcome[TimeOfDay] {
	if len(readings) == 0 {
		return Insufficient[TimeOfDay]("No blood pressure readings in the selected period")
	}

	var morning, evening []*metric.BloodPressure
	for _, r := range readings {
		if r.Timestamp.In(loc).Hour() < eveningStartHour {
			morning = append(morning, r)
		} else {
			evening = append(evening, r)
		}
	}

	res := TimeOfDay{
		Morning:      averageBP(morning),
		Evening:      averageBP(evening),
		ReadingCount: len(readings),
		Days:         days,
	}
	if res.Morning != nil && res.Evening != nil {
		res.Pattern = circadianPattern(res.Morning.Systolic, res.Evening.Systolic)
	}
	return Ok(res)
}

func averageBP(readings []*metric.BloodPressure) *BPAverages {
	if len(readings) == 0 {
		return nil
	}
	var sys, dia int
	for _, r := range readings {
		sys += r.Systolic
		dia += r.Diastolic
	}
	n := float64(len(readings))
	return &BPAverages{
		Systolic:  metric.Round(float64(sys)/n, 1),
		Diastolic: metric.Round(float64(dia)/n, 1),
		Count:     len(readings),
	}
}

func circadianPattern(morning, evening float64) *Pattern {
	diff := metric.Round(abs(morning-evening), 1)
	switch {
	case diff < patternThreshold:
		return &Pattern{
			Type:               PatternConsistent,
			Description:        "Blood pressure is consistent throughout the day",
			SystolicDifference: diff,
		}
	case morning > evening:
		return &Pattern{
			Type:               PatternMorningDominant,
			Description:        "Blood pressure tends to be higher in the morning",
			SystolicDifference: diff,
		}
	default:
		return &Pattern{
			Type:               PatternEveningDominant,
			Description:        "Blood pressure tends to be higher in the evening",
			SystolicDifference: diff,
		}
	}
}

type Elevation struct {
	IsConsistentlyElevated bool `json:"is_consistently_elevated"`
	ElevatedCount          int  `json:"elevated_count"`
	TotalCount             int  `json:"total_count"`
	DaysChecked            int  `json:"days_checked"`
}

// CheckElevation reports whether at least 60% of readings are at or above
// 130/80. An empty window is never elevated.
func CheckElevation(readings []*metric.BloodPressure, days int) Elevation {
	res := Elevation{TotalCount: len(readings), DaysChecked: days}
	for _, r := range readings {
		if metric.IsElevatedReading(r.Systolic, r.Diastolic) {
			res.ElevatedCount++
		}
	}
	if res.TotalCount > 0 {
		res.IsConsistentlyElevated = res.ElevatedCount*10 >= res.TotalCount*elevatedPerTen
	}
	return res
}

// BPLimits is the age-specific upper bound for a reading, inclusive.
type BPLimits struct {
	Systolic  int
	Diastolic int
}

// RecommendedBP returns the upper bounds for age: 120/80 under 60, 140/90
// from 60.
func RecommendedBP(age int) BPLimits {
	if age >= seniorAge {
		return BPLimits{Systolic: 140, Diastolic: 90}
	}
	return BPLimits{Systolic: 120, Diastolic: 80}
}

type LatestBP struct {
	Systolic  int               `json:"systolic"`
	Diastolic int               `json:"diastolic"`
	Category  metric.BPCategory `json:"category"`
	Timestamp time.Time         `json:"timestamp"`
}

type RecommendedRanges struct {
	Systolic  string `json:"systolic"`
	Diastolic string `json:"diastolic"`
}

type AgeAssessment struct {
	WithinRecommendedRange bool              `json:"within_recommended_range"`
	RecommendedRanges      RecommendedRanges `json:"recommended_ranges"`
}

type AgeComparison struct {
	Age            int           `json:"age"`
	LatestReading  LatestBP      `json:"latest_reading"`
	Assessment     AgeAssessment `json:"age_specific_assessment"`
	Recommendation string        `json:"recommendation"`
}

// CompareToAge checks the most recent reading against the age-specific
// bounds and phrases a recommendation.
func CompareToAge(readings []*metric.BloodPressure, age int) Outcome[AgeComparison] {
	latest := latestOf(readings)
	if latest == nil {
		return Insufficient[AgeComparison]("No blood pressure readings available")
	}

	limits := RecommendedBP(age)
	var exceeded []string
	if latest.Systolic > limits.Systolic {
		exceeded = append(exceeded, fmt.Sprintf("systolic pressure (%d mmHg) is above %d mmHg", latest.Systolic, limits.Systolic))
	}
	if latest.Diastolic > limits.Diastolic {
		exceeded = append(exceeded, fmt.Sprintf("diastolic pressure (%d mmHg) is above %d mmHg", latest.Diastolic, limits.Diastolic))
	}

	recommendation := "Your blood pressure is within the recommended range for your age."
	if len(exceeded) > 0 {
		recommendation = "Your " + strings.Join(exceeded, " and your ") +
			" for your age. Consider consulting a healthcare provider."
	}

	return Ok(AgeComparison{
		Age: age,
		LatestReading: LatestBP{
			Systolic:  latest.Systolic,
			Diastolic: latest.Diastolic,
			Category:  latest.Category(),
			Timestamp: latest.Timestamp,
		},
		Assessment: AgeAssessment{
			WithinRecommendedRange: len(exceeded) == 0,
			RecommendedRanges: RecommendedRanges{
				Systolic:  fmt.Sprintf("≤%d mmHg", limits.Systolic),
				Diastolic: fmt.Sprintf("≤%d mmHg", limits.Diastolic),
			},
		},
		Recommendation: recommendation,
	})
}
