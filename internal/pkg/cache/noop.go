package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// Noop 空缓存实现
// Redis 不可用时的降级：写入丢弃，读取一律未命中。
type Noop struct{}

// NewNoop 创建空缓存
func NewNoop() *Noop {
	return &Noop{}
}

// Set 丢弃写入
func (n *Noop) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return nil
}

// Get 一律未命中
func (n *Noop) Get(ctx context.Context, key string, dest any) error {
	return ErrCacheMiss
}

// Delete 无操作
func (n *Noop) Delete(ctx context.Context, keys ...string) error {
	return nil
}
