package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"meteo_discord_bot/internal/utils"

	"github.com/sony/gobreaker"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org/search"

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errCircuitOpen = errors.New("circuit breaker open")
)

// BackoffConfig 指数バックオフの設定
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Nominatim OpenStreetMap の Nominatim で都市名を検索する
type Nominatim struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
	Limiter   *utils.RateLimiter
	Backoff   BackoffConfig
	breaker   *gobreaker.CircuitBreaker
}

// NewNominatim 既定の設定で Nominatim を作成
func NewNominatim(client *http.Client, limiter *utils.RateLimiter, userAgent string) *Nominatim {
	return &Nominatim{
		BaseURL:   defaultNominatimURL,
		UserAgent: userAgent,
		Client:    client,
		Limiter:   limiter,
		Backoff: BackoffConfig{
			MaxRetries:      2,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     4 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "nominatim",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     time.Minute,
		}),
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode city を検索し、最初の候補の座標を返す
func (n *Nominatim) Geocode(ctx context.Context, city string) (*Coordinate, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("format", "json")
	q.Set("limit", "1")
	endpoint := n.BaseURL + "?" + q.Encode()

	var results []nominatimResult
	if err := n.getJSON(ctx, endpoint, &results); err != nil {
		return nil, fmt.Errorf("geocode %q: %w", city, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: parse lat: %w", city, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: parse lon: %w", city, err)
	}
	return &Coordinate{Latitude: lat, Longitude: lng}, nil
}

// getJSON 429/5xx/ネットワークエラーは指数バックオフでリトライ
func (n *Nominatim) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := n.Limiter.Do(ctx, u.Host, func() error {
			_, err := n.breaker.Execute(func() (interface{}, error) {
				return nil, n.doOnce(ctx, client, endpoint, out)
			})
			return err
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if !retryable(err) || attempt >= n.Backoff.MaxRetries {
			return lastErr
		}

		delay := n.Backoff.InitialInterval << attempt
		if n.Backoff.MaxInterval > 0 && delay > n.Backoff.MaxInterval {
			delay = n.Backoff.MaxInterval
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (n *Nominatim) doOnce(ctx context.Context, client *http.Client, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return errRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", errServerError, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, errRateLimited) || errors.Is(err, errServerError) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
