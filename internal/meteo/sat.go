package meteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"meteo_discord_bot/internal/fetch"
	"meteo_discord_bot/internal/utils"
)

const defaultSunAPIURL = "https://api.sunrise-sunset.org/json"

// ErrSatDisabled 衛星画像のURLが設定されていない
var ErrSatDisabled = errors.New("satellite images are not configured")

// SunClient sunrise-sunset.org から日の出・日の入り時刻を取得
type SunClient struct {
	BaseURL string
	Client  *http.Client
}

// SunTimes 指定地点の日の出・日の入り (UTC)
func (c *SunClient) SunTimes(ctx context.Context, lat, lng float64) (sunrise, sunset time.Time, err error) {
	base := c.BaseURL
	if base == "" {
		base = defaultSunAPIURL
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lng", fmt.Sprintf("%f", lng))
	q.Set("formatted", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return time.Time{}, time.Time{}, &fetch.TransportError{URL: base, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return time.Time{}, time.Time{}, &fetch.TransportError{URL: base, Err: fmt.Errorf("unexpected status: %s", resp.Status)}
	}

	var payload struct {
		Results struct {
			Sunrise string `json:"sunrise"`
			Sunset  string `json:"sunset"`
		} `json:"results"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("decode sun times: %w", err)
	}
	if payload.Status != "OK" {
		return time.Time{}, time.Time{}, fmt.Errorf("sun times status %q", payload.Status)
	}

	sunrise, err = time.Parse(time.RFC3339, payload.Results.Sunrise)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse sunrise: %w", err)
	}
	sunset, err = time.Parse(time.RFC3339, payload.Results.Sunset)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse sunset: %w", err)
	}
	return sunrise, sunset, nil
}

// SunTimer 日の出・日の入りの取得元
type SunTimer interface {
	SunTimes(ctx context.Context, lat, lng float64) (time.Time, time.Time, error)
}

// SatPicker 昼は可視画像、夜は赤外画像を取得する
// 衛星画像はポーランド全域なので、基準地点はワルシャワ固定で十分
type SatPicker struct {
	Sun      SunTimer
	Fetcher  fetch.Fetcher
	MediaDir string
	DayURL   string
	NightURL string
	Lat, Lng float64
}

// IsDaylight 分単位で sunrise <= now < sunset
func IsDaylight(now, sunrise, sunset time.Time) bool {
	return utils.SameMinuteOrAfter(now, sunrise) && !utils.SameMinuteOrAfter(now, sunset)
}

// Pick 現在時刻に合う衛星画像をダウンロードしてパスを返す
func (p *SatPicker) Pick(ctx context.Context, now time.Time) (string, error) {
	if p.DayURL == "" || p.NightURL == "" {
		return "", ErrSatDisabled
	}

	sunrise, sunset, err := p.Sun.SunTimes(ctx, p.Lat, p.Lng)
	if err != nil {
		return "", err
	}

	src, name := p.NightURL, "infra_sat.gif"
	if IsDaylight(now, sunrise, sunset) {
		src, name = p.DayURL, "sat.gif"
	}
	log.Printf("Method Pick, satellite image: %s", name)

	dst := filepath.Join(p.MediaDir, name)
	if err := p.Fetcher.Download(ctx, src, dst); err != nil {
		return "", err
	}
	return dst, nil
}
