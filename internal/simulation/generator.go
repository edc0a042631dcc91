package simulation

import (
	"math"
	"math/rand"
	"time"

	"codeberg.org/mutker/vitalsd/internal/metric"
)

// Generated value bounds.
const (
	minSystolic    = 90
	maxSystolic    = 180
	minDiastolic   = 60
	diastolicGap   = 10
	minPulse       = 40
	maxPulse       = 100
	minHeartRate   = 40
	maxHeartRate   = 180
	minSpO2        = 70
	maxSpO2        = 100
	minStepCount   = 1000
	maxStepCount   = 25000
	minStepGoal    = 10000
	maxStepGoal    = 50000
	minSleepHours  = 3.0
	maxSleepHours  = 14.0
	maxQuality     = 10
	maxInterrupted = 3

	// share of nights with a bedtime before midnight
	earlyBedtimeChance = 0.7
)

// Generator draws single plausible readings. It is not safe for concurrent
// use; give each goroutine its own.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
	loc *time.Location
}

// NewGenerator wraps src. A nil now uses time.Now and a nil loc UTC; the
// zone decides the hour used for heart rate activity and sleep bedtimes.
func NewGenerator(src rand.Source, now func() time.Time, loc *time.Location) *Generator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{rng: rand.New(src), now: now, loc: loc}
}

func (g *Generator) normal(mean, stddev float64) float64 {
	return g.rng.NormFloat64()*stddev + mean
}

func (g *Generator) base(userID string, ts time.Time) metric.Base {
	return metric.Base{UserID: userID, Timestamp: ts, Source: metric.SourceSimulated}
}

// BloodPressure keeps diastolic at least 10 mmHg below systolic whatever
// the configured means.
func (g *Generator) BloodPressure(userID string, cfg Config) *metric.BloodPressure {
	systolic := g.normal(cfg.SystolicMean, cfg.SystolicVariance)
	diastolic := g.normal(cfg.DiastolicMean, cfg.DiastolicVariance)
	pulse := g.normal(cfg.PulseMean, cfg.PulseVariance)

	sys := clamp(round(systolic), minSystolic, maxSystolic)
	dia := clamp(round(diastolic), minDiastolic, sys-diastolicGap)
	p := clamp(round(pulse), minPulse, maxPulse)

	return &metric.BloodPressure{
		Base:      g.base(userID, g.now()),
		Systolic:  sys,
		Diastolic: dia,
		Pulse:     &p,
	}
}

func (g *Generator) DailySteps(userID string, cfg Config) *metric.DailySteps {
	count := clamp(round(g.normal(cfg.StepsMean, cfg.StepsVariance)), minStepCount, maxStepCount)
	goal := clamp(round(g.normal(cfg.StepsMean, cfg.StepsVariance)), minStepGoal, maxStepGoal)
	ratio := metric.MinStepsPerKm + g.rng.Intn(metric.MaxStepsPerKm-metric.MinStepsPerKm+1)
	distance := stepDistance(count, ratio)

	return &metric.DailySteps{
		Base:     g.base(userID, g.now()),
		Count:    count,
		Goal:     goal,
		Device:   metric.DeviceOther,
		Distance: &distance,
	}
}

// stepDistance is count/ratio in km to two decimals, nudged by a hundredth
// when rounding pushed the ratio outside the plausible range.
func stepDistance(count, ratio int) float64 {
	d := metric.Round(float64(count)/float64(ratio), 2)
	switch spk := float64(count) / d; {
	case spk > metric.MaxStepsPerKm:
		d = metric.Round(d+0.01, 2)
	case spk < metric.MinStepsPerKm:
		d = metric.Round(d-0.01, 2)
	}
	return d
}

// activityAt maps a local hour to an activity and its heart rate factor.
// Hour 22 belongs to neither the evening nor the night band and is
// treated as resting.
func activityAt(hour int) (metric.ActivityLevel, float64) {
	switch {
	case hour < 6 || hour > 22:
		return metric.ActivitySleeping, 0.9
	case hour >= 9 && hour < 17:
		return metric.ActivityActive, 1.1
	default:
		return metric.ActivityResting, 1.05
	}
}

func (g *Generator) HeartRate(userID string, cfg Config) *metric.HeartRate {
	now := g.now()
	activity, factor := activityAt(now.In(g.loc).Hour())
	value := g.normal(cfg.HeartRateMean, cfg.HeartRateVariance) * factor

	return &metric.HeartRate{
		Base:          g.base(userID, now),
		Value:         clamp(round(value), minHeartRate, maxHeartRate),
		ActivityLevel: activity,
	}
}

func (g *Generator) SpO2(userID string, cfg Config) *metric.SpO2 {
	return &metric.SpO2{
		Base:              g.base(userID, g.now()),
		Value:             clamp(round(g.normal(cfg.SpO2Mean, cfg.SpO2Variance)), minSpO2, maxSpO2),
		MeasurementMethod: metric.MethodOther,
	}
}

// SleepDuration simulates last night's sleep. The reading's timestamp is
// the bedtime.
func (g *Generator) SleepDuration(userID string, cfg Config) *metric.SleepDuration {
	var hour int
	if g.rng.Float64() < earlyBedtimeChance {
		hour = 21 + g.rng.Intn(3)
	} else {
		hour = g.rng.Intn(2)
	}
	minute := g.rng.Intn(4) * 15

	y, m, d := g.now().In(g.loc).AddDate(0, 0, -1).Date()
	bedtime := time.Date(y, m, d, hour, minute, 0, 0, g.loc)

	hours := clampFloat(g.normal(cfg.SleepMean, cfg.SleepVariance), minSleepHours, maxSleepHours)
	quality := 1 + g.rng.Intn(maxQuality)
	interruptions := g.rng.Intn(maxInterrupted + 1)

	return &metric.SleepDuration{
		Base:          g.base(userID, bedtime),
		StartTime:     bedtime,
		EndTime:       bedtime.Add(time.Duration(hours * float64(time.Hour))),
		Quality:       &quality,
		Interruptions: &interruptions,
	}
}

func round(v float64) int {
	return int(math.Round(v))
}

func clamp(value, minValue, maxValue int) int {
	if value < minValue {
		return minValue
	}

	if value > maxValue {
		return maxValue
	}

	return value
}

func clampFloat(value, minValue, maxValue float64) float64 {
	return math.Max(minValue, math.Min(maxValue, value))
}
