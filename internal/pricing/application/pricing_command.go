package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
)

// PricingCommandService 处理定价相关的命令操作
// repo、cache、publisher 均可为 nil，对应的副作用会被跳过
type PricingCommandService struct {
	repo      domain.PricingRepository
	cache     domain.PricingCache
	publisher domain.EventPublisher
	idGen     *snowflake.Node
	metrics   *metrics.Metrics
	opts      Options
	now       func() time.Time
}

// NewPricingCommandService 创建新的 PricingCommandService 实例
func NewPricingCommandService(
	repo domain.PricingRepository,
	cache domain.PricingCache,
	publisher domain.EventPublisher,
	idGen *snowflake.Node,
	m *metrics.Metrics,
	opts Options,
) *PricingCommandService {
	return &PricingCommandService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		idGen:     idGen,
		metrics:   m,
		opts:      opts,
		now:       time.Now,
	}
}

// PriceOption 期权定价
// 带 symbol 的请求会持久化结果、刷新缓存并发布 OptionPriced 事件
func (c *PricingCommandService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*PriceResultDTO, error) {
	var optionType domain.OptionType
	if strings.TrimSpace(cmd.OptionType) != "" {
		t, err := domain.ParseOptionType(cmd.OptionType)
		if err != nil {
			c.metrics.RecordPricing(err)
			return nil, err
		}
		optionType = t
	}

	in := cmd.input()
	res, err := domain.CalculateBlackScholes(in)
	c.metrics.RecordPricing(err)
	if err != nil {
		return nil, err
	}

	now := c.now()
	dto := &PriceResultDTO{
		Symbol:       normalizeSymbol(cmd.Symbol),
		OptionType:   string(optionType),
		CallPrice:    res.Call,
		PutPrice:     res.Put,
		CalculatedAt: now.UnixMilli(),
	}
	switch optionType {
	case domain.OptionTypeCall:
		dto.Price = &res.Call
	case domain.OptionTypePut:
		dto.Price = &res.Put
	}

	if dto.Symbol == "" {
		return dto, nil
	}

	result := domain.NewPricingResult(dto.Symbol, in, res, now)
	result.RecordID = c.nextID()
	dto.RecordID = result.RecordID

	if c.repo != nil {
		if err := c.repo.Save(ctx, result); err != nil {
			return nil, fmt.Errorf("failed to save pricing result: %w", err)
		}
		dto.Persisted = true
	}

	if c.cache != nil {
		if err := c.cache.SetLatest(ctx, result); err != nil {
			logger.Warn(ctx, "failed to cache pricing result", "symbol", dto.Symbol, "error", err)
		}
	}

	c.publishOptionPriced(ctx, result)

	logger.Debug(ctx, "option priced", "symbol", dto.Symbol, "record_id", dto.RecordID, "input", in.String())
	return dto, nil
}

// GenerateSurface 生成 N×N 敏感度曲面并发布 SurfaceGenerated 事件
func (c *PricingCommandService) GenerateSurface(ctx context.Context, cmd GenerateSurfaceCommand) (*SurfaceDTO, error) {
	samples := cmd.Samples
	if samples == 0 {
		samples = c.opts.DefaultSurfaceSamples
	}
	if c.opts.MaxSurfaceSamples > 0 && samples > c.opts.MaxSurfaceSamples {
		return nil, &domain.InputError{
			Param:  "samples",
			Value:  samples,
			Reason: fmt.Sprintf("must be <= %d", c.opts.MaxSurfaceSamples),
		}
	}

	defer logger.LogDuration(ctx, "surface generated", "samples", samples)()

	surface, err := domain.GenerateSurface(domain.SurfaceSpec{
		MinSpot: cmd.MinSpot,
		MaxSpot: cmd.MaxSpot,
		MinVol:  cmd.MinVol,
		MaxVol:  cmd.MaxVol,
		K:       cmd.StrikePrice,
		T:       cmd.TimeToExpiry,
		R:       cmd.RiskFreeRate,
		N:       samples,
	})
	if err != nil {
		return nil, err
	}

	n := len(surface.Spots)
	c.metrics.RecordSurface(n * n)

	dto := &SurfaceDTO{
		Surface:     surface,
		BatchID:     c.nextID(),
		Samples:     n,
		Orientation: SurfaceOrientation,
	}

	c.publishSurfaceGenerated(ctx, cmd, dto)
	return dto, nil
}

func (c *PricingCommandService) publishOptionPriced(ctx context.Context, r *domain.PricingResult) {
	if c.publisher == nil {
		return
	}
	event := domain.OptionPricedEvent{
		RecordID:        r.RecordID,
		Symbol:          r.Symbol,
		UnderlyingPrice: r.UnderlyingPrice.InexactFloat64(),
		StrikePrice:     r.StrikePrice.InexactFloat64(),
		TimeToExpiry:    r.TimeToExpiry,
		RiskFreeRate:    r.RiskFreeRate,
		Volatility:      r.Volatility,
		CallPrice:       r.CallPrice.InexactFloat64(),
		PutPrice:        r.PutPrice.InexactFloat64(),
		PricingModel:    r.PricingModel,
		CalculatedAt:    r.CalculatedAt,
		OccurredOn:      c.now(),
	}
	err := c.publisher.PublishOptionPriced(ctx, event)
	c.metrics.RecordEvent(domain.OptionPricedEventType, err)
	if err != nil {
		logger.Warn(ctx, "failed to publish event", "type", domain.OptionPricedEventType, "symbol", r.Symbol, "error", err)
	}
}

func (c *PricingCommandService) publishSurfaceGenerated(ctx context.Context, cmd GenerateSurfaceCommand, dto *SurfaceDTO) {
	if c.publisher == nil {
		return
	}
	event := domain.SurfaceGeneratedEvent{
		BatchID:      dto.BatchID,
		Symbol:       normalizeSymbol(cmd.Symbol),
		MinSpot:      cmd.MinSpot,
		MaxSpot:      cmd.MaxSpot,
		MinVol:       cmd.MinVol,
		MaxVol:       cmd.MaxVol,
		StrikePrice:  cmd.StrikePrice,
		TimeToExpiry: cmd.TimeToExpiry,
		RiskFreeRate: cmd.RiskFreeRate,
		Samples:      dto.Samples,
		Cells:        dto.Samples * dto.Samples,
		OccurredOn:   c.now(),
	}
	err := c.publisher.PublishSurfaceGenerated(ctx, event)
	c.metrics.RecordEvent(domain.SurfaceGeneratedEventType, err)
	if err != nil {
		logger.Warn(ctx, "failed to publish event", "type", domain.SurfaceGeneratedEventType, "batch_id", dto.BatchID, "error", err)
	}
}

func (c *PricingCommandService) nextID() int64 {
	if c.idGen == nil {
		return 0
	}
	return c.idGen.Generate().Int64()
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
