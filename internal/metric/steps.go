package metric

import "encoding/json"

// DefaultStepGoal applies when a reading does not carry its own goal.
const DefaultStepGoal = 10000

type StepDevice string

const (
	DevicePhone     StepDevice = "PHONE"
	DeviceWatch     StepDevice = "WATCH"
	DevicePedometer StepDevice = "PEDOMETER"
	DeviceOther     StepDevice = "OTHER"
)

func (d StepDevice) IsValid() bool {
	switch d {
	case DevicePhone, DeviceWatch, DevicePedometer, DeviceOther:
		return true
	default:
		return false
	}
}

const (
	MaxDailySteps = 100000
	MinStepsPerKm = 1000
	MaxStepsPerKm = 2000

	// ratio check only applies above this count
	ratioCheckMinSteps = 1000
)

type StepActivity string

const (
	Sedentary     StepActivity = "Sedentary"
	LightlyActive StepActivity = "Lightly Active"
	Active        StepActivity = "Active"
	VeryActive    StepActivity = "Very Active"
)

func ClassifySteps(count int) StepActivity {
	switch {
	case count < 5000:
		return Sedentary
	case count < 7500:
		return LightlyActive
	case count < 12000:
		return Active
	default:
		return VeryActive
	}
}

// GoalPercentage is count/goal*100 rounded to one decimal, 0 when goal is 0.
func GoalPercentage(count, goal int) float64 {
	if goal <= 0 {
		return 0
	}
	return Round(float64(count)/float64(goal)*100, 1)
}

// StepsPerKm returns count/distance, 0 for a non-positive distance.
func StepsPerKm(count int, distance float64) float64 {
	if distance <= 0 {
		return 0
	}
	return float64(count) / distance
}

type DailySteps struct {
	Base
	Count    int        `json:"count"`
	Goal     int        `json:"goal"`
	Device   StepDevice `json:"device"`
	Distance *float64   `json:"distance,omitempty"`
}

func (*DailySteps) Kind() Kind { return KindDailySteps }

func (s *DailySteps) Validate() error {
	if err := s.validate(); err != nil {
		return err
	}
	if s.Count < 0 {
		return invalid("count", "step count cannot be negative", s.Count)
	}
	if s.Count > MaxDailySteps {
		return invalid("count", "step count exceeds reasonable daily limit (100,000)", s.Count)
	}
	if s.Goal < 0 {
		return invalid("goal", "goal cannot be negative", s.Goal)
	}
	if !s.Device.IsValid() {
		return invalid("device", "device must be one of PHONE, WATCH, PEDOMETER, OTHER", s.Device)
	}
	if s.Distance != nil && s.Count > ratioCheckMinSteps {
		ratio := StepsPerKm(s.Count, *s.Distance)
		if !between(ratio, MinStepsPerKm, MaxStepsPerKm) {
			return invalid("distance", "step to distance ratio is unrealistic (1000-2000 steps per km)", *s.Distance)
		}
	}
	return nil
}

func (s *DailySteps) IsWithinNormalRange() bool {
	return s.Count >= 5000
}

func (s *DailySteps) GoalPercentage() float64 {
	return GoalPercentage(s.Count, s.Goal)
}

func (s *DailySteps) ActivityLevel() StepActivity {
	return ClassifySteps(s.Count)
}

func (s *DailySteps) MarshalJSON() ([]byte, error) {
	type plain DailySteps
	return json.Marshal(struct {
		*plain
		GoalPercentage float64      `json:"goal_percentage"`
		ActiveLevel    StepActivity `json:"active_level"`
	}{(*plain)(s), s.GoalPercentage(), s.ActivityLevel()})
}
