package application

import "github.com/wyfcoding/optionpricing/internal/pricing/domain"

// SurfaceOrientation 曲面矩阵的行列含义
const SurfaceOrientation = "row=spot,col=vol"

// PriceResultDTO 定价结果
type PriceResultDTO struct {
	RecordID   int64    `json:"record_id,string,omitempty"`
	Symbol     string   `json:"symbol,omitempty"`
	OptionType string   `json:"option_type,omitempty"`
	CallPrice  float64  `json:"call_price"`
	PutPrice   float64  `json:"put_price"`
	Price      *float64 `json:"price,omitempty"`
	Persisted  bool     `json:"persisted"`
	// CalculatedAt 毫秒时间戳
	CalculatedAt int64 `json:"calculated_at"`
}

// SurfaceDTO 曲面结果
type SurfaceDTO struct {
	*domain.Surface
	BatchID     int64  `json:"batch_id,string"`
	Samples     int    `json:"samples"`
	Orientation string `json:"orientation"`
}

// PayoffCurveDTO 单一头寸的损益序列
type PayoffCurveDTO struct {
	Strategy domain.PayoffStrategy `json:"strategy"`
	Spots    []float64             `json:"spots"`
	Payoffs  []float64             `json:"payoffs"`
}
