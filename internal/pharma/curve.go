package pharma

import (
	"errors"
	"math"
)

// InitialConcentration is the relative concentration right after a dose.
const InitialConcentration = 100.0

// DefaultCycles is used when the caller asks for zero cycles.
const DefaultCycles = 3

// Upper bounds keep the sample count finite for pathological input.
const (
	MaxCycles         = 30
	MaxFrequencyHours = 24 * 365
)

var ErrInvalidCurve = errors.New("half-life and frequency must be positive")

// Sample is one point of the concentration curve.
type Sample struct {
	Time          float64 `json:"time"`
	Concentration float64 `json:"concentration"`
}

// Decay returns the remaining concentration t hours after a dose.
func Decay(t, halfLife float64) float64 {
	return InitialConcentration * math.Pow(0.5, t/halfLife)
}

// GenerateConcentrationCurve samples the accumulated concentration at every
// whole hour of each dosing cycle. The residual carried into a cycle is the
// last (rounded) sample of the previous one, decayed alongside the new dose.
func GenerateConcentrationCurve(halfLife, frequency float64, cycles int) ([]Sample, error) {
	if halfLife <= 0 || frequency <= 0 || math.IsNaN(halfLife) || math.IsNaN(frequency) ||
		math.IsInf(halfLife, 0) || frequency > MaxFrequencyHours || cycles < 0 || cycles > MaxCycles {
		return nil, ErrInvalidCurve
	}
	if cycles == 0 {
		cycles = DefaultCycles
	}

	steps := int(math.Ceil(frequency))
	samples := make([]Sample, 0, cycles*(steps+1))
	baseline := 0.0

	for cycle := 0; cycle < cycles; cycle++ {
		for h := 0; h <= steps; h++ {
			hours := float64(h)
			total := Decay(hours, halfLife)
			if cycle > 0 {
				total += baseline * math.Pow(0.5, hours/halfLife)
			}
			samples = append(samples, Sample{
				Time:          round(float64(cycle)*frequency+hours, 1),
				Concentration: round(total, 2),
			})
		}
		baseline = samples[len(samples)-1].Concentration
	}
	return samples, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
