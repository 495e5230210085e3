package pharma

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateConcentrationCurve_SingleCycleClosedForm(t *testing.T) {
	samples, err := GenerateConcentrationCurve(6, 8, 1)
	require.NoError(t, err)
	require.Len(t, samples, 9)

	for h, s := range samples {
		assert.Equal(t, float64(h), s.Time)
		want := 100 * math.Pow(0.5, float64(h)/6)
		assert.InDelta(t, want, s.Concentration, 0.01, "hour %d", h)
	}
	assert.Equal(t, 100.0, samples[0].Concentration)
	assert.Equal(t, 50.0, samples[6].Concentration)
}

func TestGenerateConcentrationCurve_Accumulates(t *testing.T) {
	samples, err := GenerateConcentrationCurve(6, 8, 0)
	require.NoError(t, err)
	require.Len(t, samples, 27)

	// second cycle starts with the new dose plus the residual of the first
	first := samples[8].Concentration
	second := samples[9]
	assert.Equal(t, 8.0, second.Time)
	assert.InDelta(t, 100+first, second.Concentration, 0.01)

	// each cycle peaks higher than the last
	assert.Greater(t, samples[18].Concentration, samples[9].Concentration)
	assert.Equal(t, 24.0, samples[26].Time)
}

func TestGenerateConcentrationCurve_FractionalFrequency(t *testing.T) {
	samples, err := GenerateConcentrationCurve(4, 2.5, 2)
	require.NoError(t, err)
	// h runs 0..3 in each cycle
	require.Len(t, samples, 8)
	assert.Equal(t, 2.5, samples[4].Time)
	assert.Equal(t, 5.5, samples[7].Time)
}

func TestGenerateConcentrationCurve_Invalid(t *testing.T) {
	for _, tc := range []struct{ h, f float64 }{{0, 8}, {-1, 8}, {6, 0}, {6, -4}, {math.NaN(), 8}} {
		_, err := GenerateConcentrationCurve(tc.h, tc.f, 1)
		assert.ErrorIs(t, err, ErrInvalidCurve)
	}
	_, err := GenerateConcentrationCurve(6, 8, -1)
	assert.ErrorIs(t, err, ErrInvalidCurve)
	_, err = GenerateConcentrationCurve(6, 8, MaxCycles+1)
	assert.ErrorIs(t, err, ErrInvalidCurve)
	_, err = GenerateConcentrationCurve(6, MaxFrequencyHours+1, 1)
	assert.ErrorIs(t, err, ErrInvalidCurve)
}
