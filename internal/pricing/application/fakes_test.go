package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

type fakeRepo struct {
	mu      sync.Mutex
	saved   []*domain.PricingResult
	saveErr error
}

func (f *fakeRepo) Save(_ context.Context, r *domain.PricingResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeRepo) GetLatest(_ context.Context, symbol string) (*domain.PricingResult, error) {
	hist, _ := f.GetHistory(context.Background(), symbol, 1)
	if len(hist) == 0 {
		return nil, nil
	}
	return hist[0], nil
}

func (f *fakeRepo) GetHistory(_ context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PricingResult
	for _, r := range f.saved {
		if r.Symbol == symbol {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CalculatedAt > out[j].CalculatedAt })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeCache struct {
	latest map[string]*domain.PricingResult
	err    error
}

func newFakeCache() *fakeCache {
	return &fakeCache{latest: map[string]*domain.PricingResult{}}
}

func (f *fakeCache) SetLatest(_ context.Context, r *domain.PricingResult) error {
	if f.err != nil {
		return f.err
	}
	f.latest[r.Symbol] = r
	return nil
}

func (f *fakeCache) GetLatest(_ context.Context, symbol string) (*domain.PricingResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.latest[symbol], nil
}

type fakePublisher struct {
	priced   []domain.OptionPricedEvent
	surfaces []domain.SurfaceGeneratedEvent
	err      error
}

func (f *fakePublisher) PublishOptionPriced(_ context.Context, e domain.OptionPricedEvent) error {
	f.priced = append(f.priced, e)
	return f.err
}

func (f *fakePublisher) PublishSurfaceGenerated(_ context.Context, e domain.SurfaceGeneratedEvent) error {
	f.surfaces = append(f.surfaces, e)
	return f.err
}

type fakeChains struct {
	calls  int
	chains map[string]*domain.OptionChain
	err    error
}

func (f *fakeChains) FetchOptionChain(_ context.Context, symbol string) (*domain.OptionChain, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.chains[symbol]
	if !ok {
		return nil, domain.ErrNoData
	}
	return c, nil
}

type fakeChainCache struct {
	chains map[string]*domain.OptionChain
	ttl    time.Duration
}

func (f *fakeChainCache) SetChain(_ context.Context, c *domain.OptionChain, ttl time.Duration) error {
	f.chains[c.Symbol] = c
	f.ttl = ttl
	return nil
}

func (f *fakeChainCache) GetChain(_ context.Context, symbol string) (*domain.OptionChain, error) {
	return f.chains[symbol], nil
}

var errBoom = errors.New("boom")
