package domain

import (
	"context"
	"time"
)

// OptionQuote 期权链中的单个合约报价，字段原样透传
type OptionQuote struct {
	ContractSymbol    string    `json:"contract_symbol"`
	Strike            float64   `json:"strike"`
	Currency          string    `json:"currency"`
	LastPrice         float64   `json:"last_price"`
	Change            float64   `json:"change"`
	PercentChange     float64   `json:"percent_change"`
	Volume            int64     `json:"volume"`
	OpenInterest      int64     `json:"open_interest"`
	Bid               float64   `json:"bid"`
	Ask               float64   `json:"ask"`
	ContractSize      string    `json:"contract_size"`
	Expiration        time.Time `json:"expiration"`
	LastTradeDate     time.Time `json:"last_trade_date"`
	ImpliedVolatility float64   `json:"implied_volatility"`
	InTheMoney        bool      `json:"in_the_money"`
}

// ExpirationChain 单个到期日的看涨/看跌合约表
type ExpirationChain struct {
	Calls []OptionQuote `json:"calls"`
	Puts  []OptionQuote `json:"puts"`
}

// OptionChain 标的全部到期日的期权链，key 为 YYYY-MM-DD
type OptionChain struct {
	Symbol      string                     `json:"symbol"`
	Expirations map[string]ExpirationChain `json:"expirations"`
	FetchedAt   time.Time                  `json:"fetched_at"`
}

// ExpirationLayout 到期日 key 的格式
const ExpirationLayout = "2006-01-02"

// ChainProvider 外部行情源
// 标的没有挂牌期权时返回 ErrNoData
type ChainProvider interface {
	FetchOptionChain(ctx context.Context, symbol string) (*OptionChain, error)
}
