package application

import (
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// PriceOptionCommand 期权定价命令
// Symbol 为空时只计算不落库；OptionType 为空时同时返回看涨与看跌价格
type PriceOptionCommand struct {
	Symbol          string
	OptionType      string
	UnderlyingPrice float64
	StrikePrice     float64
	TimeToExpiry    float64
	RiskFreeRate    float64
	Volatility      float64
}

func (c PriceOptionCommand) input() domain.BlackScholesInput {
	return domain.BlackScholesInput{
		S: c.UnderlyingPrice,
		K: c.StrikePrice,
		T: c.TimeToExpiry,
		R: c.RiskFreeRate,
		V: c.Volatility,
	}
}

// GenerateSurfaceCommand 敏感度曲面生成命令
type GenerateSurfaceCommand struct {
	Symbol       string
	MinSpot      float64
	MaxSpot      float64
	MinVol       float64
	MaxVol       float64
	StrikePrice  float64
	TimeToExpiry float64
	RiskFreeRate float64
	// Samples 每轴采样数，0 取配置默认值
	Samples int
}

// PayoffProfileQuery 收益曲线查询
type PayoffProfileQuery struct {
	UnderlyingPrice float64
	StrikePrice     float64
	TimeToExpiry    float64
	RiskFreeRate    float64
	Volatility      float64
	Points          int
}

// EvaluatePayoffQuery 单一头寸在给定标的价格序列上的损益
type EvaluatePayoffQuery struct {
	Strategy    string
	StrikePrice float64
	Premium     float64
	Spots       []float64
}

// Options 应用层默认值与上限
type Options struct {
	DefaultSurfaceSamples int
	MaxSurfaceSamples     int
	PayoffPoints          int
	HistoryLimit          int
	MaxHistoryLimit       int
	ChainCacheTTL         time.Duration
}

// DefaultOptions 返回与配置默认值一致的选项
func DefaultOptions() Options {
	return Options{
		DefaultSurfaceSamples: domain.DefaultSurfaceSamples,
		MaxSurfaceSamples:     200,
		PayoffPoints:          domain.DefaultPayoffPoints,
		HistoryLimit:          50,
		MaxHistoryLimit:       500,
		ChainCacheTTL:         5 * time.Minute,
	}
}
