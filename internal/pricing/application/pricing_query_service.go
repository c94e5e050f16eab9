package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
)

// PricingQueryService 处理所有定价相关的查询操作（Queries）。
type PricingQueryService struct {
	repo       domain.PricingRepository
	cache      domain.PricingCache
	chains     domain.ChainProvider
	chainCache domain.ChainCache
	metrics    *metrics.Metrics
	opts       Options
}

// NewPricingQueryService 构造函数。repo、cache、chainCache 可为 nil
func NewPricingQueryService(
	repo domain.PricingRepository,
	cache domain.PricingCache,
	chains domain.ChainProvider,
	chainCache domain.ChainCache,
	m *metrics.Metrics,
	opts Options,
) *PricingQueryService {
	return &PricingQueryService{
		repo:       repo,
		cache:      cache,
		chains:     chains,
		chainCache: chainCache,
		metrics:    m,
		opts:       opts,
	}
}

// GetLatestResult 获取最新定价结果，先查缓存再查库，均无记录时返回 ErrNoData
func (s *PricingQueryService) GetLatestResult(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, &domain.InputError{Param: "symbol", Value: symbol, Reason: "is required"}
	}

	if s.cache != nil {
		cached, err := s.cache.GetLatest(ctx, symbol)
		if err != nil {
			logger.Warn(ctx, "pricing cache lookup failed", "symbol", symbol, "error", err)
		}
		s.metrics.RecordCache("pricing_result", cached != nil)
		if cached != nil {
			return cached, nil
		}
	}

	if s.repo == nil {
		return nil, domain.ErrNoData
	}
	result, err := s.repo.GetLatest(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest pricing result: %w", err)
	}
	if result == nil {
		return nil, domain.ErrNoData
	}

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, result); err != nil {
			logger.Warn(ctx, "failed to backfill pricing cache", "symbol", symbol, "error", err)
		}
	}
	return result, nil
}

// GetHistory 按计算时间倒序返回历史定价结果
// limit 为 0 时取默认值，超过上限时截断到上限
func (s *PricingQueryService) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, &domain.InputError{Param: "symbol", Value: symbol, Reason: "is required"}
	}
	if limit < 0 {
		return nil, &domain.InputError{Param: "limit", Value: limit, Reason: "must be >= 0"}
	}
	if limit == 0 {
		limit = s.opts.HistoryLimit
	}
	if s.opts.MaxHistoryLimit > 0 && limit > s.opts.MaxHistoryLimit {
		limit = s.opts.MaxHistoryLimit
	}

	if s.repo == nil {
		return []*domain.PricingResult{}, nil
	}
	results, err := s.repo.GetHistory(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing history: %w", err)
	}
	return results, nil
}

// PayoffProfile 计算四种单腿头寸的收益曲线
func (s *PricingQueryService) PayoffProfile(ctx context.Context, q PayoffProfileQuery) (*domain.PayoffProfile, error) {
	points := q.Points
	if points == 0 {
		points = s.opts.PayoffPoints
	}
	return domain.BuildPayoffProfile(domain.BlackScholesInput{
		S: q.UnderlyingPrice,
		K: q.StrikePrice,
		T: q.TimeToExpiry,
		R: q.RiskFreeRate,
		V: q.Volatility,
	}, points)
}

// EvaluatePayoff 计算单一头寸在给定标的价格序列上的损益
func (s *PricingQueryService) EvaluatePayoff(ctx context.Context, q EvaluatePayoffQuery) (*PayoffCurveDTO, error) {
	strategy, err := domain.ParsePayoffStrategy(q.Strategy)
	if err != nil {
		return nil, err
	}
	payoffs, err := domain.Payoffs(strategy, q.Spots, q.StrikePrice, q.Premium)
	if err != nil {
		return nil, err
	}
	spots := q.Spots
	if spots == nil {
		spots = []float64{}
	}
	return &PayoffCurveDTO{Strategy: strategy, Spots: spots, Payoffs: payoffs}, nil
}

// GetOptionChain 获取期权链，先查缓存，未命中时请求行情源并回填
func (s *PricingQueryService) GetOptionChain(ctx context.Context, symbol string) (*domain.OptionChain, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, &domain.InputError{Param: "symbol", Value: symbol, Reason: "is required"}
	}

	if s.chainCache != nil {
		cached, err := s.chainCache.GetChain(ctx, symbol)
		if err != nil {
			logger.Warn(ctx, "option chain cache lookup failed", "symbol", symbol, "error", err)
		}
		s.metrics.RecordCache("option_chain", cached != nil)
		if cached != nil {
			return cached, nil
		}
	}

	chain, err := s.chains.FetchOptionChain(ctx, symbol)
	switch {
	case errors.Is(err, domain.ErrNoData):
		s.metrics.RecordChainFetch("no_data")
		return nil, err
	case err != nil:
		s.metrics.RecordChainFetch("error")
		return nil, fmt.Errorf("failed to fetch option chain for %s: %w", symbol, err)
	}
	s.metrics.RecordChainFetch("ok")

	if s.chainCache != nil {
		if err := s.chainCache.SetChain(ctx, chain, s.opts.ChainCacheTTL); err != nil {
			logger.Warn(ctx, "failed to cache option chain", "symbol", symbol, "error", err)
		}
	}
	return chain, nil
}
