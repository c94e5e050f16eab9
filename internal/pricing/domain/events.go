package domain

import "time"

const (
	OptionPricedEventType     = "OptionPriced"
	SurfaceGeneratedEventType = "SurfaceGenerated"
)

// OptionPricedEvent 期权定价完成事件
type OptionPricedEvent struct {
	RecordID        int64     `json:"record_id,string"`
	Symbol          string    `json:"symbol"`
	UnderlyingPrice float64   `json:"underlying_price"`
	StrikePrice     float64   `json:"strike_price"`
	TimeToExpiry    float64   `json:"time_to_expiry"`
	RiskFreeRate    float64   `json:"risk_free_rate"`
	Volatility      float64   `json:"volatility"`
	CallPrice       float64   `json:"call_price"`
	PutPrice        float64   `json:"put_price"`
	PricingModel    string    `json:"pricing_model"`
	CalculatedAt    int64     `json:"calculated_at"`
	OccurredOn      time.Time `json:"occurred_on"`
}

// SurfaceGeneratedEvent 敏感度曲面生成事件
type SurfaceGeneratedEvent struct {
	BatchID      int64     `json:"batch_id,string"`
	Symbol       string    `json:"symbol"`
	MinSpot      float64   `json:"min_spot"`
	MaxSpot      float64   `json:"max_spot"`
	MinVol       float64   `json:"min_vol"`
	MaxVol       float64   `json:"max_vol"`
	StrikePrice  float64   `json:"strike_price"`
	TimeToExpiry float64   `json:"time_to_expiry"`
	RiskFreeRate float64   `json:"risk_free_rate"`
	Samples      int       `json:"samples"`
	Cells        int       `json:"cells"`
	OccurredOn   time.Time `json:"occurred_on"`
}
