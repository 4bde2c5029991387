package geocode

import (
	"context"
	"log"
	"sync"

	"meteo_discord_bot/internal/utils"
)

// Coordinate 地理座標（度）
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Geocoder 都市名を座標に変換する
// 見つからない場合は (nil, nil)、通信エラーの場合は error を返す
type Geocoder interface {
	Geocode(ctx context.Context, city string) (*Coordinate, error)
}

// Cached 結果をメモリに保持する Geocoder
// 見つからなかった都市もキャッシュする
type Cached struct {
	next  Geocoder
	mu    sync.RWMutex
	items map[string]*Coordinate
}

// NewCached next をラップした Cached を作成
func NewCached(next Geocoder) *Cached {
	return &Cached{
		next:  next,
		items: make(map[string]*Coordinate),
	}
}

// Geocode キャッシュを確認し、なければ next に問い合わせる
func (c *Cached) Geocode(ctx context.Context, city string) (*Coordinate, error) {
	key := utils.FoldKey(city)

	c.mu.RLock()
	coord, ok := c.items[key]
	c.mu.RUnlock()
	if ok {
		return coord, nil
	}

	coord, err := c.next.Geocode(ctx, city)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.items[key] = coord
	c.mu.Unlock()

	if coord != nil {
		log.Printf("Method Geocode, coords found: (%f, %f)", coord.Latitude, coord.Longitude)
	} else {
		log.Printf("Method Geocode, coords for city %s not found", utils.FoldName(city))
	}
	return coord, nil
}
