package metric

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	MinSleepHours = 1
	MaxSleepHours = 16
	maxSleepSpan  = 36 * time.Hour
)

// SleepRange is an inclusive recommended duration in hours.
type SleepRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r SleepRange) String() string {
	return fmt.Sprintf("%g-%g hours", r.Min, r.Max)
}

// RecommendedSleep returns the age-banded recommended duration. Adults
// between 18 and 65 get the 7-9 hour default.
func RecommendedSleep(age int) SleepRange {
	switch {
	case age < 1:
		return SleepRange{12, 16}
	case age < 3:
		return SleepRange{11, 14}
	case age < 6:
		return SleepRange{10, 13}
	case age < 13:
		return SleepRange{9, 11}
	case age < 18:
		return SleepRange{8, 10}
	case age > 65:
		return SleepRange{7, 8}
	default:
		return SleepRange{7, 9}
	}
}

// SleepHours returns end-start in hours rounded to two decimals.
func SleepHours(start, end time.Time) float64 {
	return Round(end.Sub(start).Hours(), 2)
}

type SleepDuration struct {
	Base
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Quality       *int      `json:"quality,omitempty"`
	Interruptions *int      `json:"interruptions,omitempty"`
}

func (*SleepDuration) Kind() Kind { return KindSleepDuration }

func (s *SleepDuration) Validate() error {
	if err := s.validate(); err != nil {
		return err
	}
	if !s.EndTime.After(s.StartTime) {
		return invalid("end_time", "end time must be after start time", s.EndTime)
	}
	hours := s.EndTime.Sub(s.StartTime).Hours()
	if hours > MaxSleepHours {
		return invalid("end_time", "sleep duration exceeds reasonable limit (16 hours)", Round(hours, 2))
	}
	if hours < MinSleepHours {
		return invalid("end_time", "sleep duration is too short (< 1 hour)", Round(hours, 2))
	}
	if s.EndTime.Sub(s.StartTime) > maxSleepSpan {
		return invalid("end_time", "sleep start and end times must be within a 36-hour period", s.EndTime)
	}
	if s.Quality != nil && !between(*s.Quality, 1, 10) {
		return invalid("quality", "sleep quality must be between 1 and 10", *s.Quality)
	}
	if s.Interruptions != nil && *s.Interruptions < 0 {
		return invalid("interruptions", "interruptions cannot be negative", *s.Interruptions)
	}
	return nil
}

func (s *SleepDuration) IsWithinNormalRange() bool {
	d := s.Duration()
	return d >= 7 && d <= 9
}

// Duration is the session length in hours, rounded to two decimals.
func (s *SleepDuration) Duration() float64 {
	return SleepHours(s.StartTime, s.EndTime)
}

// Midpoint is start plus half the rounded duration.
func (s *SleepDuration) Midpoint() time.Time {
	half := time.Duration(s.Duration() / 2 * float64(time.Hour))
	return s.StartTime.Add(half)
}

// IsSufficient checks the duration against the recommended range for age.
func (s *SleepDuration) IsSufficient(age int) bool {
	r := RecommendedSleep(age)
	d := s.Duration()
	return d >= r.Min && d <= r.Max
}

func (s *SleepDuration) MarshalJSON() ([]byte, error) {
	type plain SleepDuration
	return json.Marshal(struct {
		*plain
		Duration      float64   `json:"duration"`
		SleepMidpoint time.Time `json:"sleep_midpoint"`
	}{(*plain)(s), s.Duration(), s.Midpoint()})
}
