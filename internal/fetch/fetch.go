package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"meteo_discord_bot/internal/utils"

	"github.com/sony/gobreaker"
)

// maxImageBytes 1ファイルあたりのダウンロード上限
const maxImageBytes = 32 << 20

// TransportError ダウンロードに失敗したことを表す
// 「存在しない」ではなく「判断できなかった」ことを呼び出し側に伝える
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Fetcher URL の内容を dst に保存する
type Fetcher interface {
	Download(ctx context.Context, rawURL, dst string) error
}

// NewHTTPClient 外部サービス向けの共有クライアント
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          32,
			MaxIdleConnsPerHost:   8,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// HTTPFetcher HTTP GET で画像を取得する Fetcher
type HTTPFetcher struct {
	client    *http.Client
	limiter   *utils.RateLimiter
	breaker   *gobreaker.CircuitBreaker
	userAgent string
}

// NewHTTPFetcher HTTPFetcher を作成。limiter は nil でもよい
func NewHTTPFetcher(client *http.Client, limiter *utils.RateLimiter, userAgent string) *HTTPFetcher {
	if client == nil {
		client = NewHTTPClient(0)
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "image-fetch",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &HTTPFetcher{
		client:    client,
		limiter:   limiter,
		breaker:   cb,
		userAgent: userAgent,
	}
}

// Download rawURL を取得して dst にアトミックに書き込む
// 失敗はすべて *TransportError で返す。リトライはしない
func (f *HTTPFetcher) Download(ctx context.Context, rawURL, dst string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &TransportError{URL: rawURL, Err: err}
	}

	log.Printf("Started downloading file: %s", rawURL)
	err = f.limiter.Do(ctx, u.Host, func() error {
		_, err := f.breaker.Execute(func() (interface{}, error) {
			return nil, f.download(ctx, rawURL, dst)
		})
		return err
	})
	if err != nil {
		return &TransportError{URL: rawURL, Err: err}
	}
	return nil
}

func (f *HTTPFetcher) download(ctx context.Context, rawURL, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP GET failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	return utils.WriteStreamAtomic(dst, func(w io.Writer) error {
		n, err := io.Copy(w, io.LimitReader(resp.Body, maxImageBytes+1))
		if err != nil {
			return err
		}
		if n > maxImageBytes {
			return fmt.Errorf("response larger than %d bytes", maxImageBytes)
		}
		return nil
	})
}
