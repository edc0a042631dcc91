package metric

import "encoding/json"

// BPCategory is the hypertension stage of a systolic/diastolic pair.
type BPCategory string

const (
	BPNormal        BPCategory = "Normal"
	BPElevated      BPCategory = "Elevated"
	BPHypertension1 BPCategory = "Hypertension Stage 1"
	BPHypertension2 BPCategory = "Hypertension Stage 2"
)

// Severity orders the categories, Normal being 0.
func (c BPCategory) Severity() int {
	switch c {
	case BPElevated:
		return 1
	case BPHypertension1:
		return 2
	case BPHypertension2:
		return 3
	default:
		return 0
	}
}

// Thresholds are in mmHg.
const (
	elevatedSystolic = 120
	stage1Systolic   = 130
	stage1Diastolic  = 80
	stage2Systolic   = 140
	stage2Diastolic  = 90
)

// ClassifyBloodPressure returns the highest stage whose systolic or diastolic
// threshold is met.
func ClassifyBloodPressure(systolic, diastolic int) BPCategory {
	switch {
	case systolic >= stage2Systolic || diastolic >= stage2Diastolic:
		return BPHypertension2
	case systolic >= stage1Systolic || diastolic >= stage1Diastolic:
		return BPHypertension1
	case systolic >= elevatedSystolic:
		return BPElevated
	default:
		return BPNormal
	}
}

// IsElevatedReading matches the consistent-elevation rule: systolic ≥ 130 or
// diastolic ≥ 80.
func IsElevatedReading(systolic, diastolic int) bool {
	return systolic >= stage1Systolic || diastolic >= stage1Diastolic
}

type BloodPressure struct {
	Base
	Systolic  int  `json:"systolic"`
	Diastolic int  `json:"diastolic"`
	Pulse     *int `json:"pulse,omitempty"`
}

func (*BloodPressure) Kind() Kind { return KindBloodPressure }

func (bp *BloodPressure) Validate() error {
	if err := bp.validate(); err != nil {
		return err
	}
	if bp.Systolic <= bp.Diastolic {
		return invalid("systolic", "systolic pressure must be greater than diastolic pressure", bp.Systolic)
	}
	if !between(bp.Systolic, 70, 220) {
		return invalid("systolic", "systolic pressure out of expected range (70-220)", bp.Systolic)
	}
	if !between(bp.Diastolic, 40, 130) {
		return invalid("diastolic", "diastolic pressure out of expected range (40-130)", bp.Diastolic)
	}
	if bp.Pulse != nil && !between(*bp.Pulse, 40, 200) {
		return invalid("pulse", "pulse must be between 40 and 200 if provided", *bp.Pulse)
	}
	return nil
}

func (bp *BloodPressure) IsWithinNormalRange() bool {
	return bp.Systolic < elevatedSystolic && bp.Diastolic < stage1Diastolic
}

func (bp *BloodPressure) Category() BPCategory {
	return ClassifyBloodPressure(bp.Systolic, bp.Diastolic)
}

func (bp *BloodPressure) PulsePressure() int {
	return bp.Systolic - bp.Diastolic
}

// MeanArterialPressure is (systolic + 2*diastolic)/3 rounded to one decimal.
func (bp *BloodPressure) MeanArterialPressure() float64 {
	return Round(float64(bp.Systolic+2*bp.Diastolic)/3, 1)
}

func (bp *BloodPressure) MarshalJSON() ([]byte, error) {
	type plain BloodPressure
	return json.Marshal(struct {
		*plain
		Category             BPCategory `json:"bp_category"`
		PulsePressure        int        `json:"pulse_pressure"`
		MeanArterialPressure float64    `json:"mean_arterial_pressure"`
	}{(*plain)(bp), bp.Category(), bp.PulsePressure(), bp.MeanArterialPressure()})
}
