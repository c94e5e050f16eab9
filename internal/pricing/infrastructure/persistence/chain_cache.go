// Package persistence 组合本地与远端缓存
package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/cache"
	"github.com/wyfcoding/optionpricing/pkg/logger"
)

// TieredChainCache 进程内 bigcache 作为一级缓存，Redis 作为可选二级缓存
// 一级缓存的过期时间由 LocalCache 统一决定，与写入时的 ttl 无关
type TieredChainCache struct {
	local  *cache.LocalCache
	remote domain.ChainCache
}

// NewTieredChainCache remote 可为 nil
func NewTieredChainCache(local *cache.LocalCache, remote domain.ChainCache) *TieredChainCache {
	return &TieredChainCache{local: local, remote: remote}
}

func (c *TieredChainCache) SetChain(ctx context.Context, chain *domain.OptionChain, ttl time.Duration) error {
	if chain == nil {
		return nil
	}
	c.setLocal(ctx, chain)
	if c.remote == nil {
		return nil
	}
	return c.remote.SetChain(ctx, chain, ttl)
}

func (c *TieredChainCache) GetChain(ctx context.Context, symbol string) (*domain.OptionChain, error) {
	if data, err := c.local.Get(symbol); err != nil {
		logger.Warn(ctx, "local chain cache read failed", "symbol", symbol, "error", err)
	} else if data != nil {
		var chain domain.OptionChain
		if err := json.Unmarshal(data, &chain); err == nil {
			return &chain, nil
		}
		_ = c.local.Delete(symbol)
	}

	if c.remote == nil {
		return nil, nil
	}
	chain, err := c.remote.GetChain(ctx, symbol)
	if err != nil || chain == nil {
		return nil, err
	}
	c.setLocal(ctx, chain)
	return chain, nil
}

func (c *TieredChainCache) setLocal(ctx context.Context, chain *domain.OptionChain) {
	data, err := json.Marshal(chain)
	if err == nil {
		err = c.local.Set(chain.Symbol, data)
	}
	if err != nil {
		logger.Warn(ctx, "local chain cache write failed", "symbol", chain.Symbol, "error", err)
	}
}
