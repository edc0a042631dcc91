package metric

import "encoding/json"

type MeasurementMethod string

const (
	MethodFingertip MeasurementMethod = "FINGERTIP"
	MethodMedical   MeasurementMethod = "MEDICAL"
	MethodWearable  MeasurementMethod = "WEARABLE"
	MethodOther     MeasurementMethod = "OTHER"
)

func (m MeasurementMethod) IsValid() bool {
	switch m {
	case MethodFingertip, MethodMedical, MethodWearable, MethodOther:
		return true
	default:
		return false
	}
}

type SpO2Severity string

const (
	SpO2Normal   SpO2Severity = "Normal"
	SpO2Mild     SpO2Severity = "Mild Hypoxemia"
	SpO2Moderate SpO2Severity = "Moderate Hypoxemia"
	SpO2Severe   SpO2Severity = "Severe Hypoxemia"
)

func ClassifySpO2(percent int) SpO2Severity {
	switch {
	case percent >= 95:
		return SpO2Normal
	case percent >= 90:
		return SpO2Mild
	case percent >= 80:
		return SpO2Moderate
	default:
		return SpO2Severe
	}
}

// SpO2AlertRequired reports whether a saturation needs medical attention.
func SpO2AlertRequired(percent int) bool {
	return percent < 90
}

type SpO2 struct {
	Base
	Value             int               `json:"value"`
	MeasurementMethod MeasurementMethod `json:"measurement_method"`
}

func (*SpO2) Kind() Kind { return KindSpO2 }

func (s *SpO2) Validate() error {
	if err := s.validate(); err != nil {
		return err
	}
	if !between(s.Value, 70, 100) {
		return invalid("value", "SpO2 value must be between 70% and 100%", s.Value)
	}
	if !s.MeasurementMethod.IsValid() {
		return invalid("measurement_method", "measurement method must be one of FINGERTIP, MEDICAL, WEARABLE, OTHER", s.MeasurementMethod)
	}
	return nil
}

func (s *SpO2) IsWithinNormalRange() bool { return s.IsNormal() }

func (s *SpO2) IsNormal() bool { return s.Value >= 95 }

func (s *SpO2) Severity() SpO2Severity { return ClassifySpO2(s.Value) }

func (s *SpO2) AlertRequired() bool { return SpO2AlertRequired(s.Value) }

func (s *SpO2) MarshalJSON() ([]byte, error) {
	type plain SpO2
	return json.Marshal(struct {
		*plain
		IsNormal      bool         `json:"is_normal"`
		Severity      SpO2Severity `json:"severity"`
		AlertRequired bool         `json:"alert_required"`
	}{(*plain)(s), s.IsNormal(), s.Severity(), s.AlertRequired()})
}
