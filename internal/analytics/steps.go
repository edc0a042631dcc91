package analytics

import (
	"fmt"
	"time"

	"codeberg.org/mutker/vitalsd/internal/metric"
)

type GoalMetrics struct {
	CurrentGoal       int     `json:"current_goal"`
	AveragePercentage float64 `json:"average_percentage"`
	MeetingGoal       bool    `json:"meeting_goal"`
}

type StepsAverage struct {
	WeeklyAverage    float64             `json:"weekly_average"`
	ActivityLevel    metric.StepActivity `json:"active_level"`
	DaysWithData     int                 `json:"days_with_data"`
	Days             int                 `json:"days"`
	DataCompleteness float64             `json:"data_completeness"`
	GoalMetrics      GoalMetrics         `json:"goal_metrics"`
}

// AverageSteps averages step counts over a days-long window and compares
// the mean with the goal of the most recent reading.
func AverageSteps(readings []*metric.DailySteps, days int, loc *time.Location) Outcome[StepsAverage] {
	if len(readings) == 0 {
		return Insufficient[StepsAverage](fmt.Sprintf("No step data in the last %d days", days))
	}

	seen := make(map[string]struct{})
	values := make([]float64, len(readings))
	for i, r := range readings {
		values[i] = float64(r.Count)
		seen[dayKey(r.Timestamp, loc)] = struct{}{}
	}
	avg := mean(values)
	goal := latestOf(readings).Goal

	return Ok(StepsAverage{
		WeeklyAverage:    metric.Round(avg, 1),
		ActivityLevel:    metric.ClassifySteps(int(avg)),
		DaysWithData:     len(seen),
		Days:             days,
		DataCompleteness: completeness(len(seen), days),
		GoalMetrics: GoalMetrics{
			CurrentGoal:       goal,
			AveragePercentage: goalPercentage(avg, goal),
			MeetingGoal:       goal > 0 && avg >= float64(goal),
		},
	})
}

func goalPercentage(avg float64, goal int) float64 {
	if goal <= 0 {
		return 0
	}
	return metric.Round(avg/float64(goal)*100, 1)
}

// completeness is the share of window days that have data, capped at 1.
func completeness(withData, days int) float64 {
	if days <= 0 {
		return 0
	}
	return metric.Round(min(float64(withData)/float64(days), 1), 2)
}
