// Package metric holds the typed health readings, their derived values and
// the physiological validation rules applied before a reading is stored.
package metric

import (
	"math"
	"time"
)

// Kind discriminates the reading variants.
type Kind string

const (
	KindBloodPressure Kind = "blood_pressure"
	KindHeartRate     Kind = "heart_rate"
	KindSpO2          Kind = "spo2"
	KindDailySteps    Kind = "daily_steps"
	KindSleepDuration Kind = "sleep_duration"
)

// Kinds lists every reading kind in a stable order.
var Kinds = []Kind{KindBloodPressure, KindHeartRate, KindSpO2, KindDailySteps, KindSleepDuration}

// ParseKind accepts the canonical name or its URL form (e.g. "blood-pressure").
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if s == string(k) || s == k.Slug() {
			return k, true
		}
	}
	return "", false
}

// Slug returns the hyphenated form used in URLs.
func (k Kind) Slug() string {
	b := []byte(k)
	for i := range b {
		if b[i] == '_' {
			b[i] = '-'
		}
	}
	return string(b)
}

// Source tells where a reading came from.
type Source string

const (
	SourceManual    Source = "manual"
	SourceDevice    Source = "device"
	SourceSimulated Source = "simulated"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceManual, SourceDevice, SourceSimulated:
		return true
	default:
		return false
	}
}

// Base carries the attributes shared by every reading.
type Base struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Header gives access to the shared attributes of any reading.
func (b *Base) Header() *Base {
	return b
}

func (b *Base) validate() error {
	if b.Timestamp.IsZero() {
		return invalid("timestamp", "timestamp is required", nil)
	}
	if !b.Source.IsValid() {
		return invalid("source", "source must be one of manual, device, simulated", b.Source)
	}
	return nil
}

// Reading is implemented by every reading variant.
type Reading interface {
	Kind() Kind
	Header() *Base
	Validate() error
	IsWithinNormalRange() bool
}

// New returns an empty reading of the given kind.
func New(kind Kind) (Reading, bool) {
	switch kind {
	case KindBloodPressure:
		return &BloodPressure{}, true
	case KindHeartRate:
		return &HeartRate{}, true
	case KindSpO2:
		return &SpO2{MeasurementMethod: MethodOther}, true
	case KindDailySteps:
		return &DailySteps{Goal: DefaultStepGoal, Device: DeviceOther}, true
	case KindSleepDuration:
		return &SleepDuration{}, true
	default:
		return nil, false
	}
}

// Round rounds v to the given number of decimal places, halves away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
