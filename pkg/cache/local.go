package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

const (
	// localShards 分片数，单个分片上限为 localMaxSizeMB/localShards
	localShards = 16

	// localMaxSizeMB 缓存总上限（MB）
	localMaxSizeMB = 256

	// localMaxEntrySize 仅用于初始分配，队列按需扩容到分片上限
	localMaxEntrySize = 64 * 1024

	localEntriesInWindow = 256
)

// LocalCache 进程内字节缓存，条目按 TTL 整体过期
type LocalCache struct {
	cache *bigcache.BigCache
}

// NewLocalCache 创建本地缓存，ttl 为条目存活时间
func NewLocalCache(ctx context.Context, ttl time.Duration) (*LocalCache, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.CleanWindow = ttl
	cfg.Verbose = false
	cfg.Shards = localShards
	cfg.HardMaxCacheSize = localMaxSizeMB
	cfg.MaxEntrySize = localMaxEntrySize
	cfg.MaxEntriesInWindow = localEntriesInWindow

	c, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create local cache: %w", err)
	}
	return &LocalCache{cache: c}, nil
}

// Get 读取缓存，未命中返回 (nil, nil)
func (l *LocalCache) Get(key string) ([]byte, error) {
	data, err := l.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Set 写入缓存
func (l *LocalCache) Set(key string, value []byte) error {
	return l.cache.Set(key, value)
}

// Delete 删除缓存，不存在时忽略
func (l *LocalCache) Delete(key string) error {
	err := l.cache.Delete(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

// Len 当前条目数
func (l *LocalCache) Len() int {
	return l.cache.Len()
}

// Close 停止后台清理
func (l *LocalCache) Close() error {
	return l.cache.Close()
}
