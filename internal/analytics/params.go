package analytics

import (
	"fmt"

	"codeberg.org/mutker/vitalsd/internal/errors"
)

// Caller-facing parameter bounds.
const (
	MaxDays        = 90
	MaxSpO2Days    = 7
	MinAge         = 1
	MaxAge         = 120
	MaxWindowHours = 24

	DefaultTimeOfDayDays = 30
	DefaultElevationDays = 7
	DefaultBaselineDays  = 30
	DefaultWindowHours   = 24
	DefaultWeekDays      = 7
)

// ParamError describes a rejected caller parameter.
type ParamError struct {
	Name  string `json:"parameter"`
	Value any    `json:"value"`
	Rule  string `json:"rule"`
}

func (e ParamError) String() string {
	return fmt.Sprintf("%s=%v: %s", e.Name, e.Value, e.Rule)
}

func paramError(name string, value any, rule string) error {
	return errors.New().WithData(ErrInvalidParameter, ParamError{Name: name, Value: value, Rule: rule})
}

// ValidateDays checks a look-back day count against [1, max].
func ValidateDays(days, max int) error {
	return inRange("days", days, 1, max)
}

func ValidateAge(age int) error {
	return inRange("age", age, MinAge, MaxAge)
}

// ValidateWindowHours checks an HRV trailing window in hours.
func ValidateWindowHours(hours int) error {
	return inRange("time_window", hours, 1, MaxWindowHours)
}

func inRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return paramError(name, v, fmt.Sprintf("must be between %d and %d", lo, hi))
	}
	return nil
}
