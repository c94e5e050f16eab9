package domain

import "gonum.org/v1/gonum/floats"

// DefaultSurfaceSamples 每个轴的默认采样数
const DefaultSurfaceSamples = 20

// SurfaceSpec 敏感度曲面参数
type SurfaceSpec struct {
	MinSpot float64
	MaxSpot float64
	MinVol  float64
	MaxVol  float64
	K       float64
	T       float64
	R       float64
	// N 每轴采样数，0 表示 DefaultSurfaceSamples
	N int
}

// Surface 价格对 (标的价格, 波动率) 的二维敏感度曲面
// Calls[i][j] 与 Puts[i][j] 对应 (Spots[i], Vols[j])：行是标的价格，列是波动率
type Surface struct {
	Spots []float64   `json:"spots"`
	Vols  []float64   `json:"vols"`
	Calls [][]float64 `json:"calls"`
	Puts  [][]float64 `json:"puts"`
}

// Validate 校验区间与采样数，N 为 0 时先取默认值
func (s *SurfaceSpec) Validate() error {
	if s.N == 0 {
		s.N = DefaultSurfaceSamples
	}
	if s.N < 2 {
		return &InputError{Param: "N", Value: s.N, Reason: "must be >= 2"}
	}
	for _, p := range []struct {
		name string
		v    float64
	}{{"min_spot", s.MinSpot}, {"max_spot", s.MaxSpot}, {"min_vol", s.MinVol}, {"max_vol", s.MaxVol}} {
		if err := requireFinite(p.name, p.v); err != nil {
			return err
		}
	}
	if s.MinSpot >= s.MaxSpot {
		return &InputError{Param: "min_spot", Value: s.MinSpot, Reason: "must be < max_spot"}
	}
	if s.MinVol >= s.MaxVol {
		return &InputError{Param: "min_vol", Value: s.MinVol, Reason: "must be < max_vol"}
	}
	if s.MinVol <= 0 {
		return &InputError{Param: "min_vol", Value: s.MinVol, Reason: "must be > 0"}
	}
	if s.MinSpot <= 0 {
		return &InputError{Param: "min_spot", Value: s.MinSpot, Reason: "must be > 0"}
	}
	// 角点校验覆盖 K、T、R
	return BlackScholesInput{S: s.MinSpot, K: s.K, T: s.T, R: s.R, V: s.MinVol}.Validate()
}

// GenerateSurface 逐格独立计算 N×N 的看涨/看跌价格矩阵
func GenerateSurface(spec SurfaceSpec) (*Surface, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	n := spec.N
	surface := &Surface{
		Spots: linspace(n, spec.MinSpot, spec.MaxSpot),
		Vols:  linspace(n, spec.MinVol, spec.MaxVol),
		Calls: make([][]float64, n),
		Puts:  make([][]float64, n),
	}
	for i, spot := range surface.Spots {
		surface.Calls[i] = make([]float64, n)
		surface.Puts[i] = make([]float64, n)
		for j, vol := range surface.Vols {
			call, put := blackScholes(BlackScholesInput{S: spot, K: spec.K, T: spec.T, R: spec.R, V: vol})
			surface.Calls[i][j] = call
			surface.Puts[i][j] = put
		}
	}
	return surface, nil
}

// linspace 闭区间等距采样，首尾精确等于 lo、hi
func linspace(n int, lo, hi float64) []float64 {
	xs := floats.Span(make([]float64, n), lo, hi)
	xs[0], xs[n-1] = lo, hi
	return xs
}
