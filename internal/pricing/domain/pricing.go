package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingModelBlackScholes 当前唯一的定价模型
const PricingModelBlackScholes = "BlackScholes"

// PricingResult 定价结果实体
// 记录一次定价请求的输入与看涨/看跌理论价
type PricingResult struct {
	ID              uint            `json:"id"`
	RecordID        int64           `json:"record_id,string"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Symbol          string          `json:"symbol"`
	UnderlyingPrice decimal.Decimal `json:"underlying_price"`
	StrikePrice     decimal.Decimal `json:"strike_price"`
	TimeToExpiry    float64         `json:"time_to_expiry"`
	RiskFreeRate    float64         `json:"risk_free_rate"`
	Volatility      float64         `json:"volatility"`
	CallPrice       decimal.Decimal `json:"call_price"`
	PutPrice        decimal.Decimal `json:"put_price"`
	CalculatedAt    int64           `json:"calculated_at"`
	PricingModel    string          `json:"pricing_model"`
}

// NewPricingResult 由输入与计算结果构造实体
func NewPricingResult(symbol string, in BlackScholesInput, res *BlackScholesResult, now time.Time) *PricingResult {
	return &PricingResult{
		Symbol:          symbol,
		UnderlyingPrice: decimal.NewFromFloat(in.S),
		StrikePrice:     decimal.NewFromFloat(in.K),
		TimeToExpiry:    in.T,
		RiskFreeRate:    in.R,
		Volatility:      in.V,
		CallPrice:       decimal.NewFromFloat(res.Call),
		PutPrice:        decimal.NewFromFloat(res.Put),
		CalculatedAt:    now.UnixMilli(),
		PricingModel:    PricingModelBlackScholes,
	}
}

// Input 还原定价输入
func (r *PricingResult) Input() BlackScholesInput {
	return BlackScholesInput{
		S: r.UnderlyingPrice.InexactFloat64(),
		K: r.StrikePrice.InexactFloat64(),
		T: r.TimeToExpiry,
		R: r.RiskFreeRate,
		V: r.Volatility,
	}
}
