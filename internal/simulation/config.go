package simulation

import (
	"fmt"

	"codeberg.org/mutker/vitalsd/internal/errors"
)

// Config holds one user's generator parameters. Each variance is used as
// the standard deviation of the normal distribution for its field.
type Config struct {
	UserID            string  `db:"user_id" json:"user_id"`
	HeartRateMean     float64 `db:"heart_rate_mean" json:"heart_rate_mean"`
	HeartRateVariance float64 `db:"heart_rate_variance" json:"heart_rate_variance"`
	SystolicMean      float64 `db:"systolic_mean" json:"systolic_mean"`
	SystolicVariance  float64 `db:"systolic_variance" json:"systolic_variance"`
	DiastolicMean     float64 `db:"diastolic_mean" json:"diastolic_mean"`
	DiastolicVariance float64 `db:"diastolic_variance" json:"diastolic_variance"`
	PulseMean         float64 `db:"pulse_mean" json:"pulse_mean"`
	PulseVariance     float64 `db:"pulse_variance" json:"pulse_variance"`
	SpO2Mean          float64 `db:"spo2_mean" json:"spo2_mean"`
	SpO2Variance      float64 `db:"spo2_variance" json:"spo2_variance"`
	StepsMean         float64 `db:"steps_mean" json:"steps_mean"`
	StepsVariance     float64 `db:"steps_variance" json:"steps_variance"`
	SleepMean         float64 `db:"sleep_mean" json:"sleep_mean"`
	SleepVariance     float64 `db:"sleep_variance" json:"sleep_variance"`
}

// DefaultConfig returns the parameters a new user is provisioned with.
func DefaultConfig(userID string) Config {
	return Config{
		UserID:            userID,
		HeartRateMean:     75,
		HeartRateVariance: 5,
		SystolicMean:      120,
		SystolicVariance:  10,
		DiastolicMean:     80,
		DiastolicVariance: 5,
		PulseMean:         70,
		PulseVariance:     5,
		SpO2Mean:          97,
		SpO2Variance:      1,
		StepsMean:         8000,
		StepsVariance:     2000,
		SleepMean:         7.5,
		SleepVariance:     1,
	}
}

// Validate requires positive means and non-negative variances.
func (c Config) Validate() error {
	fields := []struct {
		name           string
		mean, variance float64
	}{
		{"heart_rate", c.HeartRateMean, c.HeartRateVariance},
		{"systolic", c.SystolicMean, c.SystolicVariance},
		{"diastolic", c.DiastolicMean, c.DiastolicVariance},
		{"pulse", c.PulseMean, c.PulseVariance},
		{"spo2", c.SpO2Mean, c.SpO2Variance},
		{"steps", c.StepsMean, c.StepsVariance},
		{"sleep", c.SleepMean, c.SleepVariance},
	}

	errFactory := errors.New()
	for _, f := range fields {
		if f.mean <= 0 {
			return errFactory.WithMessage(ErrInvalidConfig, fmt.Sprintf("%s_mean must be positive", f.name))
		}
		if f.variance < 0 {
			return errFactory.WithMessage(ErrInvalidConfig, fmt.Sprintf("%s_variance cannot be negative", f.name))
		}
	}
	return nil
}
