package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// StaticUnderlying 静态行情源中的一个标的
type StaticUnderlying struct {
	Spot       float64
	Volatility float64
}

// DefaultStaticUnderlyings 开发环境使用的固定标的
var DefaultStaticUnderlyings = map[string]StaticUnderlying{
	"AAPL": {Spot: 190, Volatility: 0.25},
	"MSFT": {Spot: 410, Volatility: 0.22},
	"SPY":  {Spot: 520, Volatility: 0.15},
}

var staticExpiryDays = []int{30, 60, 90}

const (
	staticRiskFreeRate = 0.05
	staticStrikeSteps  = 4    // 平值上下各 4 档
	staticStrikeStep   = 0.05 // 每档 5%
	staticHalfSpread   = 0.01
)

// StaticChainProvider 用 Black-Scholes 理论价生成期权链，不访问外部网络
type StaticChainProvider struct {
	underlyings map[string]StaticUnderlying
	now         func() time.Time
}

// NewStaticChainProvider 创建静态行情源，underlyings 为空时使用默认标的
func NewStaticChainProvider(underlyings map[string]StaticUnderlying) *StaticChainProvider {
	if len(underlyings) == 0 {
		underlyings = DefaultStaticUnderlyings
	}
	return &StaticChainProvider{underlyings: underlyings, now: time.Now}
}

// FetchOptionChain 未配置的标的返回 ErrNoData
func (p *StaticChainProvider) FetchOptionChain(ctx context.Context, symbol string) (*domain.OptionChain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	u, ok := p.underlyings[symbol]
	if !ok {
		return nil, domain.ErrNoData
	}

	now := p.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	chain := &domain.OptionChain{
		Symbol:      symbol,
		Expirations: make(map[string]domain.ExpirationChain, len(staticExpiryDays)),
		FetchedAt:   now,
	}

	for _, days := range staticExpiryDays {
		expiry := today.AddDate(0, 0, days)
		t := float64(days) / 365
		var exp domain.ExpirationChain
		for i := -staticStrikeSteps; i <= staticStrikeSteps; i++ {
			strike := decimal.NewFromFloat(u.Spot * (1 + float64(i)*staticStrikeStep)).Round(0).InexactFloat64()
			res, err := domain.CalculateBlackScholes(domain.BlackScholesInput{
				S: u.Spot, K: strike, T: t, R: staticRiskFreeRate, V: u.Volatility,
			})
			if err != nil {
				return nil, err
			}
			exp.Calls = append(exp.Calls, staticQuote(symbol, domain.OptionTypeCall, strike, res.Call, u, expiry, now))
			exp.Puts = append(exp.Puts, staticQuote(symbol, domain.OptionTypePut, strike, res.Put, u, expiry, now))
		}
		chain.Expirations[expiry.Format(domain.ExpirationLayout)] = exp
	}
	return chain, nil
}

func staticQuote(symbol string, ot domain.OptionType, strike, theo float64, u StaticUnderlying, expiry, now time.Time) domain.OptionQuote {
	price := decimal.NewFromFloat(theo)
	spread := price.Mul(decimal.NewFromFloat(staticHalfSpread))
	itm := strike < u.Spot
	if ot == domain.OptionTypePut {
		itm = strike > u.Spot
	}
	return domain.OptionQuote{
		ContractSymbol:    occSymbol(symbol, expiry, ot, strike),
		Strike:            strike,
		Currency:          "USD",
		LastPrice:         price.Round(2).InexactFloat64(),
		Bid:               price.Sub(spread).Round(2).InexactFloat64(),
		Ask:               price.Add(spread).Round(2).InexactFloat64(),
		ContractSize:      "REGULAR",
		Expiration:        expiry,
		LastTradeDate:     now,
		ImpliedVolatility: u.Volatility,
		InTheMoney:        itm,
	}
}

// occSymbol OCC 格式合约代码，如 AAPL240119C00190000
func occSymbol(symbol string, expiry time.Time, ot domain.OptionType, strike float64) string {
	return fmt.Sprintf("%s%s%s%08d", symbol, expiry.Format("060102"), string(ot)[:1], int64(strike*1000))
}
