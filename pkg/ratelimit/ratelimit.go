// Package ratelimit 提供按 key 划分的令牌桶限流
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter 限流器接口
type RateLimiter interface {
	// Allow 检查 key 在给定规则下是否放行
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Limit 限流规则：每秒 Rate 个令牌，桶容量 Burst
type Limit struct {
	Rate  float64
	Burst int
}

// Result 限流判定结果
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalRateLimiter 进程内限流器，每个 key 一个 rate.Limiter
type LocalRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	idleTTL time.Duration
	now     func() time.Time
}

// NewLocalRateLimiter 创建进程内限流器，idleTTL 之后未访问的 key 会被回收
func NewLocalRateLimiter(idleTTL time.Duration) *LocalRateLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &LocalRateLimiter{
		entries: make(map[string]*entry),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Allow 实现 RateLimiter
func (l *LocalRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := l.now()
	lim := l.get(key, limit, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return &Result{Allowed: false}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &Result{Allowed: false, RetryAfter: delay}, nil
	}

	remaining := int(lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return &Result{Allowed: true, Remaining: remaining}, nil
}

func (l *LocalRateLimiter) get(key string, limit Limit, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		l.evict(now)
		e = &entry{limiter: rate.NewLimiter(rate.Limit(limit.Rate), limit.Burst)}
		l.entries[key] = e
	} else if e.limiter.Limit() != rate.Limit(limit.Rate) || e.limiter.Burst() != limit.Burst {
		e.limiter.SetLimitAt(now, rate.Limit(limit.Rate))
		e.limiter.SetBurstAt(now, limit.Burst)
	}
	e.lastSeen = now
	return e.limiter
}

// evict 清理空闲 key，调用方需持有锁
func (l *LocalRateLimiter) evict(now time.Time) {
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.entries, k)
		}
	}
}

// Len 当前跟踪的 key 数量
func (l *LocalRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
