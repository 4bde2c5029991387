package models

import (
	"sync/atomic"
	"time"
)

// BotInfo Botの情報を保持
type BotInfo struct {
	Version   string
	StartTime time.Time

	GridLoaded  bool // 格子データがあるか
	MoonEnabled bool // 月画像のDBに接続しているか

	chartsServed atomic.Int64
}

// NewBotInfo 新しいBotInfo構造体を作成
func NewBotInfo(version string) *BotInfo {
	return &BotInfo{
		Version:   version,
		StartTime: time.Now(),
	}
}

// Uptime Bot起動からの経過時間を返す
func (b *BotInfo) Uptime() time.Duration {
	return time.Since(b.StartTime)
}

// ChartServed メテオグラムを1枚送った
func (b *BotInfo) ChartServed() {
	b.chartsServed.Add(1)
}

// ChartsServed 起動してから送ったメテオグラムの数
func (b *BotInfo) ChartsServed() int64 {
	return b.chartsServed.Load()
}
