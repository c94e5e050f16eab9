// Package client 外部行情源客户端
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/config"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	optionsPath       = "/v7/finance/options/{symbol}"
	defaultBaseURL    = "https://query2.finance.yahoo.com"
	defaultUserAgent  = "Mozilla/5.0 (compatible; optionpricing/1.0)"
	fetchConcurrency  = 4
	defaultTimeoutSec = 10
)

// YahooChainClient 基于 Yahoo Finance v7 options 接口的期权链客户端
type YahooChainClient struct {
	http           *resty.Client
	breaker        *gobreaker.CircuitBreaker
	maxExpirations int
	now            func() time.Time
}

// NewYahooChainClient 创建客户端，熔断器按连续失败次数打开
func NewYahooChainClient(cfg config.MarketDataConfig) *YahooChainClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeoutSec
	}
	threshold := cfg.BreakerFailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(time.Duration(timeout)*time.Second).
		SetHeader("User-Agent", ua).
		SetHeader("Accept", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "yahoo-options",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    time.Duration(cfg.BreakerInterval) * time.Second,
		Timeout:     time.Duration(cfg.BreakerTimeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		// 标的无期权不是上游故障
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNoData)
		},
	})

	return &YahooChainClient{
		http:           httpClient,
		breaker:        breaker,
		maxExpirations: cfg.MaxExpirations,
		now:            time.Now,
	}
}

// FetchOptionChain 先取到期日列表，再逐个到期日拉取看涨/看跌合约
func (c *YahooChainClient) FetchOptionChain(ctx context.Context, symbol string) (*domain.OptionChain, error) {
	defer logger.LogDuration(ctx, "fetch option chain", "symbol", symbol)()

	first, err := c.fetch(ctx, symbol, 0)
	if err != nil {
		return nil, err
	}
	if len(first.ExpirationDates) == 0 {
		return nil, domain.ErrNoData
	}

	dates := first.ExpirationDates
	if c.maxExpirations > 0 && len(dates) > c.maxExpirations {
		dates = dates[:c.maxExpirations]
	}

	chain := &domain.OptionChain{
		Symbol:      symbol,
		Expirations: make(map[string]domain.ExpirationChain, len(dates)),
		FetchedAt:   c.now().UTC(),
	}
	var mu sync.Mutex
	put := func(opts yahooOptions) {
		key := time.Unix(opts.ExpirationDate, 0).UTC().Format(domain.ExpirationLayout)
		mu.Lock()
		chain.Expirations[key] = opts.toExpirationChain()
		mu.Unlock()
	}

	// 首次响应已带最近到期日的合约
	pending := make([]int64, 0, len(dates))
	for _, d := range dates {
		if opts, ok := first.optionsFor(d); ok {
			put(opts)
			continue
		}
		pending = append(pending, d)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, d := range pending {
		g.Go(func() error {
			res, err := c.fetch(gctx, symbol, d)
			if errors.Is(err, domain.ErrNoData) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("expiration %d: %w", d, err)
			}
			if opts, ok := res.optionsFor(d); ok {
				put(opts)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(chain.Expirations) == 0 {
		return nil, domain.ErrNoData
	}
	return chain, nil
}

// fetch 单次请求，date 为 0 时不带 date 参数
func (c *YahooChainClient) fetch(ctx context.Context, symbol string, date int64) (*yahooChainResult, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		var body yahooOptionsResponse
		req := c.http.R().
			SetContext(ctx).
			SetPathParam("symbol", symbol).
			SetResult(&body)
		if date > 0 {
			req.SetQueryParam("date", strconv.FormatInt(date, 10))
		}

		resp, err := req.Get(optionsPath)
		if err != nil {
			return nil, fmt.Errorf("request option chain: %w", err)
		}
		if resp.StatusCode() == http.StatusNotFound {
			return nil, domain.ErrNoData
		}
		if resp.IsError() {
			return nil, fmt.Errorf("option chain upstream returned %d", resp.StatusCode())
		}
		if len(body.OptionChain.Result) == 0 {
			return nil, domain.ErrNoData
		}
		return &body.OptionChain.Result[0], nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logger.Warn(ctx, "option chain request rejected by breaker", "symbol", symbol, "error", err)
		}
		return nil, err
	}
	return out.(*yahooChainResult), nil
}

type yahooOptionsResponse struct {
	OptionChain struct {
		Result []yahooChainResult `json:"result"`
	} `json:"optionChain"`
}

type yahooChainResult struct {
	UnderlyingSymbol string         `json:"underlyingSymbol"`
	ExpirationDates  []int64        `json:"expirationDates"`
	Options          []yahooOptions `json:"options"`
}

func (r *yahooChainResult) optionsFor(date int64) (yahooOptions, bool) {
	for _, o := range r.Options {
		if o.ExpirationDate == date {
			return o, true
		}
	}
	return yahooOptions{}, false
}

type yahooOptions struct {
	ExpirationDate int64           `json:"expirationDate"`
	Calls          []yahooContract `json:"calls"`
	Puts           []yahooContract `json:"puts"`
}

func (o yahooOptions) toExpirationChain() domain.ExpirationChain {
	return domain.ExpirationChain{
		Calls: toQuotes(o.Calls),
		Puts:  toQuotes(o.Puts),
	}
}

type yahooContract struct {
	ContractSymbol    string  `json:"contractSymbol"`
	Strike            float64 `json:"strike"`
	Currency          string  `json:"currency"`
	LastPrice         float64 `json:"lastPrice"`
	Change            float64 `json:"change"`
	PercentChange     float64 `json:"percentChange"`
	Volume            int64   `json:"volume"`
	OpenInterest      int64   `json:"openInterest"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	ContractSize      string  `json:"contractSize"`
	Expiration        int64   `json:"expiration"`
	LastTradeDate     int64   `json:"lastTradeDate"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
	InTheMoney        bool    `json:"inTheMoney"`
}

// toQuotes 保持上游返回的合约顺序
func toQuotes(in []yahooContract) []domain.OptionQuote {
	out := make([]domain.OptionQuote, 0, len(in))
	for _, c := range in {
		out = append(out, domain.OptionQuote{
			ContractSymbol:    c.ContractSymbol,
			Strike:            c.Strike,
			Currency:          c.Currency,
			LastPrice:         c.LastPrice,
			Change:            c.Change,
			PercentChange:     c.PercentChange,
			Volume:            c.Volume,
			OpenInterest:      c.OpenInterest,
			Bid:               c.Bid,
			Ask:               c.Ask,
			ContractSize:      c.ContractSize,
			Expiration:        time.Unix(c.Expiration, 0).UTC(),
			LastTradeDate:     time.Unix(c.LastTradeDate, 0).UTC(),
			ImpliedVolatility: c.ImpliedVolatility,
			InTheMoney:        c.InTheMoney,
		})
	}
	return out
}
