package geocode

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"
)

// geocoder パッケージは API キーをグローバル変数で持つため直列化する
var googleMu sync.Mutex

// Google Google Geocoding API を使う Geocoder
type Google struct {
	apiKey  string
	country string
}

// NewGoogle country は検索範囲を絞るための国名（空でもよい）
func NewGoogle(apiKey, country string) *Google {
	return &Google{apiKey: apiKey, country: country}
}

// Geocode city を検索する。結果がなければ (nil, nil)
func (g *Google) Geocode(ctx context.Context, city string) (*Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	googleMu.Lock()
	geocoder.ApiKey = g.apiKey
	location, err := geocoder.Geocoding(geocoder.Address{
		City:    city,
		Country: g.country,
	})
	googleMu.Unlock()

	if err != nil {
		if isNoResults(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("google geocode %q: %w", city, err)
	}
	return &Coordinate{Latitude: location.Latitude, Longitude: location.Longitude}, nil
}

func isNoResults(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no results") || strings.Contains(msg, "zero_results")
}
