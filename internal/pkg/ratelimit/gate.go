package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate 按服务名限制外部调用频率
// 同一服务名的所有调用方共享一个最小调用间隔，进程级别生效：
// 两个互不相关的操作访问同一服务时也会被串行隔开。
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[string]*rate.Limiter
}

// DefaultInterval 外部 API 的默认最小调用间隔
const DefaultInterval = 3 * time.Second

// NewGate 创建调用间隔门
// interval <= 0 时使用 DefaultInterval
func NewGate(interval time.Duration) *Gate {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Gate{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait 阻塞直到允许对指定服务发起下一次调用
// ctx 取消时返回其错误
func (g *Gate) Wait(ctx context.Context, service string) error {
	return g.limiter(service).Wait(ctx)
}

func (g *Gate) limiter(service string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()

	l, ok := g.limiters[service]
	if !ok {
		l = rate.NewLimiter(rate.Every(g.interval), 1)
		g.limiters[service] = l
	}
	return l
}
