package mysql

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// PricingResultModel 定价结果数据库模型
// 价格以字符串形式写入 decimal 列，避免浮点往返误差
type PricingResultModel struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
	RecordID        int64     `gorm:"column:record_id;uniqueIndex;not null"`
	Symbol          string    `gorm:"column:symbol;type:varchar(32);index:idx_symbol_calculated,priority:1;not null"`
	UnderlyingPrice string    `gorm:"column:underlying_price;type:decimal(32,18);not null"`
	StrikePrice     string    `gorm:"column:strike_price;type:decimal(32,18);not null"`
	TimeToExpiry    float64   `gorm:"column:time_to_expiry;not null"`
	RiskFreeRate    float64   `gorm:"column:risk_free_rate;not null"`
	Volatility      float64   `gorm:"column:volatility;not null"`
	CallPrice       string    `gorm:"column:call_price;type:decimal(32,18);not null"`
	PutPrice        string    `gorm:"column:put_price;type:decimal(32,18);not null"`
	CalculatedAt    int64     `gorm:"column:calculated_at;type:bigint;index:idx_symbol_calculated,priority:2;not null"`
	PricingModel    string    `gorm:"column:pricing_model;type:varchar(32)"`
}

func (PricingResultModel) TableName() string { return "pricing_results" }

// mapping helpers

func toPricingResultModel(res *domain.PricingResult) *PricingResultModel {
	if res == nil {
		return nil
	}
	return &PricingResultModel{
		ID:              res.ID,
		CreatedAt:       res.CreatedAt,
		UpdatedAt:       res.UpdatedAt,
		RecordID:        res.RecordID,
		Symbol:          res.Symbol,
		UnderlyingPrice: res.UnderlyingPrice.String(),
		StrikePrice:     res.StrikePrice.String(),
		TimeToExpiry:    res.TimeToExpiry,
		RiskFreeRate:    res.RiskFreeRate,
		Volatility:      res.Volatility,
		CallPrice:       res.CallPrice.String(),
		PutPrice:        res.PutPrice.String(),
		CalculatedAt:    res.CalculatedAt,
		PricingModel:    res.PricingModel,
	}
}

func toPricingResult(m *PricingResultModel) (*domain.PricingResult, error) {
	if m == nil {
		return nil, nil
	}
	var (
		prices [4]decimal.Decimal
		err    error
	)
	for i, raw := range []string{m.UnderlyingPrice, m.StrikePrice, m.CallPrice, m.PutPrice} {
		if prices[i], err = decimal.NewFromString(raw); err != nil {
			return nil, err
		}
	}

	return &domain.PricingResult{
		ID:              m.ID,
		RecordID:        m.RecordID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		Symbol:          m.Symbol,
		UnderlyingPrice: prices[0],
		StrikePrice:     prices[1],
		TimeToExpiry:    m.TimeToExpiry,
		RiskFreeRate:    m.RiskFreeRate,
		Volatility:      m.Volatility,
		CallPrice:       prices[2],
		PutPrice:        prices[3],
		CalculatedAt:    m.CalculatedAt,
		PricingModel:    m.PricingModel,
	}, nil
}
