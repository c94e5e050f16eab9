package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarPayoffs(t *testing.T) {
	tests := []struct {
		name string
		fn   func(s, k, p float64) (float64, error)
		s    float64
		want float64
	}{
		{"long call in the money", LongCall, 130, 25},
		{"long call out of the money", LongCall, 90, -5},
		{"long put in the money", LongPut, 80, 15},
		{"long put out of the money", LongPut, 120, -5},
		{"short call in the money", ShortCall, 130, -25},
		{"short call out of the money", ShortCall, 90, 5},
		{"short put in the money", ShortPut, 80, -15},
		{"short put at strike", ShortPut, 100, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(tt.s, 100, 5)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPayoffsElementWise(t *testing.T) {
	spots := []float64{50, 100, 150}
	got, err := Payoffs(StrategyLongPut, spots, 100, 2.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{47.5, -2.5, -2.5}, got)

	empty, err := Payoffs(StrategyLongCall, nil, 100, 1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLongAndShortAreZeroSum(t *testing.T) {
	for s := 0.0; s <= 250; s += 0.37 {
		for _, pair := range [][2]PayoffStrategy{
			{StrategyLongCall, StrategyShortCall},
			{StrategyLongPut, StrategyShortPut},
		} {
			long, err := Payoff(pair[0], s, 100, 7.3)
			require.NoError(t, err)
			short, err := Payoff(pair[1], s, 100, 7.3)
			require.NoError(t, err)
			assert.Equal(t, long, -short, "S=%g %s", s, pair[0])
		}
	}
}

func TestPayoffRejectsNonFinite(t *testing.T) {
	_, err := LongCall(math.NaN(), 100, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ShortPut(100, math.Inf(1), 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Payoffs(StrategyShortCall, []float64{90, math.Inf(-1)}, 100, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Payoff(PayoffStrategy("COLLAR"), 100, 100, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParsePayoffStrategy(t *testing.T) {
	for in, want := range map[string]PayoffStrategy{
		"long_call":  StrategyLongCall,
		"LONG-PUT":   StrategyLongPut,
		"Short_Call": StrategyShortCall,
		" short-put": StrategyShortPut,
	} {
		got, err := ParsePayoffStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParsePayoffStrategy("butterfly")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuildPayoffProfile(t *testing.T) {
	in := BlackScholesInput{S: 120, K: 100, T: 1, R: 0.08, V: 0.1}
	profile, err := BuildPayoffProfile(in, 0)
	require.NoError(t, err)

	require.Len(t, profile.Spots, DefaultPayoffPoints)
	assert.Equal(t, 60.0, profile.Spots[0])
	assert.Equal(t, 180.0, profile.Spots[DefaultPayoffPoints-1])
	assert.InDelta(t, 27.702656386181, profile.CallPremium, priceTolerance)
	assert.InDelta(t, 0.014291024845, profile.PutPremium, priceTolerance)

	require.Len(t, profile.Curves, len(PayoffStrategies))
	for _, st := range PayoffStrategies {
		assert.Len(t, profile.Curves[st], DefaultPayoffPoints, st)
	}

	// S=180 处买入看涨收益 = 80 - 看涨权利金
	last := DefaultPayoffPoints - 1
	assert.InDelta(t, 80-profile.CallPremium, profile.Curves[StrategyLongCall][last], 1e-9)
	assert.InDelta(t, -profile.PutPremium, profile.Curves[StrategyLongPut][last], 1e-9)
	assert.InDelta(t, 40-profile.PutPremium, profile.Curves[StrategyLongPut][0], 1e-9)
}

func TestBuildPayoffProfileRejectsBadInput(t *testing.T) {
	_, err := BuildPayoffProfile(BlackScholesInput{S: 120, K: 100, T: 1, R: 0.08, V: 0}, 50)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = BuildPayoffProfile(BlackScholesInput{S: 120, K: 100, T: 1, R: 0.08, V: 0.1}, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
