package meteo

import (
	"context"
	"fmt"
	"strings"

	"meteo_discord_bot/internal/utils"
)

// NoRemoteLookup meteo.pl の都市検索を使わず、常に格子フォールバックに任せる
type NoRemoteLookup struct{}

// ChartURL 常に "" を返す
func (NoRemoteLookup) ChartURL(ctx context.Context, city string) (string, error) {
	return "", ctx.Err()
}

// StaticLookup 都市名ごとに固定のメテオグラムURLを返す
// キーは FoldKey 済みの都市名
type StaticLookup map[string]string

// ParseStaticLookup "Warszawa=https://...,Gdańsk=https://..." 形式を読み込む
func ParseStaticLookup(raw string) (StaticLookup, error) {
	out := StaticLookup{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		city, chartURL, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || strings.TrimSpace(city) == "" || strings.TrimSpace(chartURL) == "" {
			return nil, fmt.Errorf("invalid chart override %q: expected city=url", pair)
		}
		out[utils.FoldKey(city)] = strings.TrimSpace(chartURL)
	}
	return out, nil
}

// ChartURL 登録されていなければ ""
func (s StaticLookup) ChartURL(ctx context.Context, city string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s[utils.FoldKey(city)], nil
}
