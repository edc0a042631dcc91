package metric

import "encoding/json"

type ActivityLevel string

const (
	ActivityResting  ActivityLevel = "resting"
	ActivityActive   ActivityLevel = "active"
	ActivitySleeping ActivityLevel = "sleeping"
)

func (a ActivityLevel) IsValid() bool {
	switch a {
	case ActivityResting, ActivityActive, ActivitySleeping:
		return true
	default:
		return false
	}
}

type HeartRateZone string

const (
	ZoneBelowNormal HeartRateZone = "Below Normal"
	ZoneNormal      HeartRateZone = "Normal"
	ZoneFatBurn     HeartRateZone = "Fat Burn"
	ZoneCardio      HeartRateZone = "Cardio"
	ZonePeak        HeartRateZone = "Peak"
)

func ClassifyHeartRate(bpm int) HeartRateZone {
	switch {
	case bpm < 60:
		return ZoneBelowNormal
	case bpm <= 100:
		return ZoneNormal
	case bpm <= 140:
		return ZoneFatBurn
	case bpm <= 170:
		return ZoneCardio
	default:
		return ZonePeak
	}
}

type HeartRate struct {
	Base
	Value         int           `json:"value"`
	ActivityLevel ActivityLevel `json:"activity_level"`
}

func (*HeartRate) Kind() Kind { return KindHeartRate }

func (hr *HeartRate) Validate() error {
	if err := hr.validate(); err != nil {
		return err
	}
	if !between(hr.Value, 30, 220) {
		return invalid("value", "heart rate out of expected range (30-220)", hr.Value)
	}
	if !hr.ActivityLevel.IsValid() {
		return invalid("activity_level", "activity level must be one of resting, active, sleeping", hr.ActivityLevel)
	}
	return nil
}

func (hr *HeartRate) IsWithinNormalRange() bool {
	return between(hr.Value, 60, 100)
}

func (hr *HeartRate) Zone() HeartRateZone {
	return ClassifyHeartRate(hr.Value)
}

func (hr *HeartRate) IsTachycardia() bool {
	return hr.Value > 100
}

func (hr *HeartRate) IsBradycardia() bool {
	return hr.Value < 60
}

func (hr *HeartRate) MarshalJSON() ([]byte, error) {
	type plain HeartRate
	return json.Marshal(struct {
		*plain
		Zone          HeartRateZone `json:"heart_rate_zone"`
		IsTachycardia bool          `json:"is_tachycardia"`
		IsBradycardia bool          `json:"is_bradycardia"`
	}{(*plain)(hr), hr.Zone(), hr.IsTachycardia(), hr.IsBradycardia()})
}
