package utils

import (
	"context"
	"sync"
	"time"
)

// RateLimiter ホスト別にリクエスト間隔を空ける
// meteo.pl は短時間に連続アクセスすると画像生成を拒否するため
type RateLimiter struct {
	interval time.Duration
	mu       sync.Mutex
	next     map[string]time.Time
}

// NewRateLimiter rps 回/秒 を上限とするリミッターを作成
func NewRateLimiter(rps int) *RateLimiter {
	if rps <= 0 {
		rps = 3
	}
	return &RateLimiter{
		interval: time.Second / time.Duration(rps),
		next:     make(map[string]time.Time),
	}
}

// reserve 次に実行できる時刻を予約して返す
func (rl *RateLimiter) reserve(host string) time.Time {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	slot := rl.next[host]
	if slot.Before(now) {
		slot = now
	}
	rl.next[host] = slot.Add(rl.interval)
	return slot
}

// Wait 予約した時刻まで待機
func (rl *RateLimiter) Wait(ctx context.Context, host string) error {
	delay := time.Until(rl.reserve(host))
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do ホストの順番が来たら fn を実行
func (rl *RateLimiter) Do(ctx context.Context, host string, fn func() error) error {
	if rl == nil {
		return fn()
	}
	if err := rl.Wait(ctx, host); err != nil {
		return err
	}
	return fn()
}
