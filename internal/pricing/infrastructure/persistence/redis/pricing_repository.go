// Package redis 定价结果与期权链的 Redis 缓存
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

const (
	resultPrefix = "pricing_result:"
	chainPrefix  = "option_chain:"
)

// PricingRedisCache 最新定价结果缓存
type PricingRedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewPricingRedisCache ttl <= 0 时使用 15 分钟
func NewPricingRedisCache(client redis.UniversalClient, ttl time.Duration) *PricingRedisCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &PricingRedisCache{client: client, ttl: ttl}
}

func (r *PricingRedisCache) SetLatest(ctx context.Context, result *domain.PricingResult) error {
	if result == nil {
		return nil
	}
	return setJSON(ctx, r.client, resultPrefix+result.Symbol, result, r.ttl)
}

func (r *PricingRedisCache) GetLatest(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	if symbol == "" {
		return nil, nil
	}
	var result domain.PricingResult
	ok, err := getJSON(ctx, r.client, resultPrefix+symbol, &result)
	if err != nil || !ok {
		return nil, err
	}
	return &result, nil
}

// ChainRedisCache 期权链缓存
type ChainRedisCache struct {
	client redis.UniversalClient
}

func NewChainRedisCache(client redis.UniversalClient) *ChainRedisCache {
	return &ChainRedisCache{client: client}
}

func (r *ChainRedisCache) SetChain(ctx context.Context, chain *domain.OptionChain, ttl time.Duration) error {
	if chain == nil {
		return nil
	}
	return setJSON(ctx, r.client, chainPrefix+chain.Symbol, chain, ttl)
}

func (r *ChainRedisCache) GetChain(ctx context.Context, symbol string) (*domain.OptionChain, error) {
	if symbol == "" {
		return nil, nil
	}
	var chain domain.OptionChain
	ok, err := getJSON(ctx, r.client, chainPrefix+symbol, &chain)
	if err != nil || !ok {
		return nil, err
	}
	return &chain, nil
}

func setJSON(ctx context.Context, client redis.UniversalClient, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// getJSON 未命中时返回 false, nil
func getJSON(ctx context.Context, client redis.UniversalClient, key string, dest any) (bool, error) {
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}
