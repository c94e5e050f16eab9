package domain

import (
	"context"
	"time"
)

// PricingRepository 定价历史仓储接口
type PricingRepository interface {
	Save(ctx context.Context, result *PricingResult) error
	// GetLatest 不存在时返回 nil, nil
	GetLatest(ctx context.Context, symbol string) (*PricingResult, error)
	GetHistory(ctx context.Context, symbol string, limit int) ([]*PricingResult, error)
}

// PricingCache 最新定价结果缓存
type PricingCache interface {
	SetLatest(ctx context.Context, result *PricingResult) error
	// GetLatest 未命中时返回 nil, nil
	GetLatest(ctx context.Context, symbol string) (*PricingResult, error)
}

// ChainCache 期权链缓存
type ChainCache interface {
	SetChain(ctx context.Context, chain *OptionChain, ttl time.Duration) error
	// GetChain 未命中时返回 nil, nil
	GetChain(ctx context.Context, symbol string) (*OptionChain, error)
}
