package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseSurfaceSpec() SurfaceSpec {
	return SurfaceSpec{MinSpot: 80, MaxSpot: 120, MinVol: 0.1, MaxVol: 0.3, K: 100, T: 1, R: 0.08}
}

func TestGenerateSurfaceDimensionsAndAxes(t *testing.T) {
	surface, err := GenerateSurface(baseSurfaceSpec())
	require.NoError(t, err)

	n := DefaultSurfaceSamples
	require.Len(t, surface.Spots, n)
	require.Len(t, surface.Vols, n)
	require.Len(t, surface.Calls, n)
	require.Len(t, surface.Puts, n)
	for i := 0; i < n; i++ {
		assert.Len(t, surface.Calls[i], n)
		assert.Len(t, surface.Puts[i], n)
	}

	assert.Equal(t, 80.0, surface.Spots[0])
	assert.Equal(t, 120.0, surface.Spots[n-1])
	assert.Equal(t, 0.1, surface.Vols[0])
	assert.Equal(t, 0.3, surface.Vols[n-1])
	assert.InDelta(t, 40.0/19, surface.Spots[1]-surface.Spots[0], 1e-12)
	for i := 1; i < n; i++ {
		assert.Greater(t, surface.Spots[i], surface.Spots[i-1])
		assert.Greater(t, surface.Vols[i], surface.Vols[i-1])
	}
}

func TestGenerateSurfaceCornersMatchEngine(t *testing.T) {
	spec := baseSurfaceSpec()
	spec.N = 7
	surface, err := GenerateSurface(spec)
	require.NoError(t, err)

	lo, err := CalculateBlackScholes(BlackScholesInput{S: spec.MinSpot, K: spec.K, T: spec.T, R: spec.R, V: spec.MinVol})
	require.NoError(t, err)
	hi, err := CalculateBlackScholes(BlackScholesInput{S: spec.MaxSpot, K: spec.K, T: spec.T, R: spec.R, V: spec.MaxVol})
	require.NoError(t, err)

	assert.Equal(t, lo.Call, surface.Calls[0][0])
	assert.Equal(t, lo.Put, surface.Puts[0][0])
	assert.Equal(t, hi.Call, surface.Calls[6][6])
	assert.Equal(t, hi.Put, surface.Puts[6][6])

	assert.InDelta(t, 0.293658857699, surface.Calls[0][0], priceTolerance)
	assert.InDelta(t, 30.988361943391, surface.Calls[6][6], priceTolerance)
	assert.InDelta(t, 17.565339426066, surface.Puts[0][6], priceTolerance)
	assert.InDelta(t, 0.014291024845, surface.Puts[6][0], priceTolerance)
}

func TestGenerateSurfaceCellsAreIndependent(t *testing.T) {
	spec := baseSurfaceSpec()
	spec.N = 5
	surface, err := GenerateSurface(spec)
	require.NoError(t, err)

	for i, s := range surface.Spots {
		for j, v := range surface.Vols {
			want, err := CalculateBlackScholes(BlackScholesInput{S: s, K: spec.K, T: spec.T, R: spec.R, V: v})
			require.NoError(t, err)
			assert.Equal(t, want.Call, surface.Calls[i][j])
			assert.Equal(t, want.Put, surface.Puts[i][j])
		}
	}
}

func TestGenerateSurfaceRejectsBadRanges(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(s *SurfaceSpec)
		param string
	}{
		{"min spot equals max", func(s *SurfaceSpec) { s.MinSpot = 120 }, "min_spot"},
		{"min spot above max", func(s *SurfaceSpec) { s.MinSpot = 150 }, "min_spot"},
		{"min vol equals max", func(s *SurfaceSpec) { s.MinVol = 0.3 }, "min_vol"},
		{"zero min vol", func(s *SurfaceSpec) { s.MinVol = 0 }, "min_vol"},
		{"negative min spot", func(s *SurfaceSpec) { s.MinSpot = -10 }, "min_spot"},
		{"one sample", func(s *SurfaceSpec) { s.N = 1 }, "N"},
		{"negative samples", func(s *SurfaceSpec) { s.N = -4 }, "N"},
		{"zero strike", func(s *SurfaceSpec) { s.K = 0 }, "K"},
		{"zero time", func(s *SurfaceSpec) { s.T = 0 }, "T"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := baseSurfaceSpec()
			tt.mod(&spec)
			_, err := GenerateSurface(spec)
			require.ErrorIs(t, err, ErrInvalidInput)

			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.param, inputErr.Param)
		})
	}
}

func TestGenerateSurfaceMinimalGrid(t *testing.T) {
	spec := baseSurfaceSpec()
	spec.N = 2
	surface, err := GenerateSurface(spec)
	require.NoError(t, err)
	assert.Equal(t, []float64{80, 120}, surface.Spots)
	assert.Equal(t, []float64{0.1, 0.3}, surface.Vols)
}
