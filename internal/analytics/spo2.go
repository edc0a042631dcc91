package analytics

import (
	"fmt"
	"time"

	"codeberg.org/mutker/vitalsd/internal/metric"
)

type LowestSpO2 struct {
	LowestOxygenLevel int                 `json:"lowest_oxygen_level"`
	Timestamp         time.Time           `json:"timestamp"`
	Severity          metric.SpO2Severity `json:"severity"`
	AlertRequired     bool                `json:"alert_required"`
	DaysChecked       int                 `json:"days_checked"`
	ReadingCount      int                 `json:"reading_count"`
}

// FindLowestSpO2 returns the minimum saturation; among equal minima the
// most recent reading wins.
func FindLowestSpO2(readings []*metric.SpO2, days int) Outcome[LowestSpO2] {
	var low *metric.SpO2
	for _, r := range readings {
		if low == nil || r.Value < low.Value || (r.Value == low.Value && r.Timestamp.After(low.Timestamp)) {
			low = r
		}
	}
	if low == nil {
		return Insufficient[LowestSpO2](fmt.Sprintf("No SpO2 readings in the last %d days", days))
	}
	return Ok(LowestSpO2{
		LowestOxygenLevel: low.Value,
		Timestamp:         low.Timestamp,
		Severity:          low.Severity(),
		AlertRequired:     low.AlertRequired(),
		DaysChecked:       days,
		ReadingCount:      len(readings),
	})
}

type AlertLevel string

const (
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

type SpO2Alert struct {
	Value         int                 `json:"value"`
	Timestamp     time.Time           `json:"timestamp"`
	Severity      metric.SpO2Severity `json:"severity"`
	AlertRequired bool                `json:"alert_required"`
	AlertLevel    AlertLevel          `json:"alert_level"`
	Message       string              `json:"message"`
}

// CheckSpO2Alert grades the most recent reading: critical below 90%,
// warning below 95%, info otherwise.
func CheckSpO2Alert(readings []*metric.SpO2) Outcome[SpO2Alert] {
	latest := latestOf(readings)
	if latest == nil {
		return Insufficient[SpO2Alert]("No SpO2 readings available")
	}

	res := SpO2Alert{
		Value:         latest.Value,
		Timestamp:     latest.Timestamp,
		Severity:      latest.Severity(),
		AlertRequired: latest.AlertRequired(),
	}
	switch {
	case latest.AlertRequired():
		res.AlertLevel = AlertCritical
		res.Message = fmt.Sprintf("Oxygen saturation of %d%% is below 90%%. Seek medical attention.", latest.Value)
	case !latest.IsNormal():
		res.AlertLevel = AlertWarning
		res.Message = fmt.Sprintf("Oxygen saturation of %d%% is below the normal range (95%%).", latest.Value)
	default:
		res.AlertLevel = AlertInfo
		res.Message = fmt.Sprintf("Oxygen saturation of %d%% is within the normal range.", latest.Value)
	}
	return Ok(res)
}
