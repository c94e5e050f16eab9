package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// localClient 连接本机 Redis 的测试库，不可用时跳过
func localClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPricingRedisCacheRoundTrip(t *testing.T) {
	client := localClient(t)
	ctx := context.Background()
	symbol := "TEST" + time.Now().Format("150405.000000")
	t.Cleanup(func() { client.Del(ctx, resultPrefix+symbol) })

	cache := NewPricingRedisCache(client, time.Minute)

	miss, err := cache.GetLatest(ctx, symbol)
	require.NoError(t, err)
	assert.Nil(t, miss)

	in := domain.BlackScholesInput{S: 120, K: 100, T: 1, R: 0.08, V: 0.1}
	res, err := domain.CalculateBlackScholes(in)
	require.NoError(t, err)
	r := domain.NewPricingResult(symbol, in, res, time.UnixMilli(1_700_000_000_000))
	r.RecordID = 1234567890123

	require.NoError(t, cache.SetLatest(ctx, r))
	got, err := cache.GetLatest(ctx, symbol)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r.RecordID, got.RecordID)
	assert.True(t, r.CallPrice.Equal(got.CallPrice))

	ttl, err := client.TTL(ctx, resultPrefix+symbol).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestChainRedisCacheRoundTrip(t *testing.T) {
	client := localClient(t)
	ctx := context.Background()
	symbol := "CHAIN" + time.Now().Format("150405.000000")
	t.Cleanup(func() { client.Del(ctx, chainPrefix+symbol) })

	cache := NewChainRedisCache(client)
	chain := &domain.OptionChain{
		Symbol: symbol,
		Expirations: map[string]domain.ExpirationChain{
			"2026-11-20": {Calls: []domain.OptionQuote{{ContractSymbol: "X261120C00100000", Strike: 100}}},
		},
		FetchedAt: time.Unix(1_700_000_000, 0).UTC(),
	}

	require.NoError(t, cache.SetChain(ctx, chain, time.Minute))
	got, err := cache.GetChain(ctx, symbol)
	require.NoError(t, err)
	assert.Equal(t, chain, got)
}

func TestEmptySymbolIsMiss(t *testing.T) {
	// 不访问 Redis
	cache := NewPricingRedisCache(nil, 0)
	got, err := cache.GetLatest(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 15*time.Minute, cache.ttl)

	chain, err := NewChainRedisCache(nil).GetChain(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, chain)
}
