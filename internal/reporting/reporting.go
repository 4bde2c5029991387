package reporting

import (
	"log"
	"time"

	"github.com/getsentry/sentry-go"
)

// Options Sentry の初期化設定
type Options struct {
	DSN         string
	Environment string
	Release     string
	// BeforeSend 送信前に呼ばれる。nil を返すと送信しない
	BeforeSend func(*sentry.Event, *sentry.EventHint) *sentry.Event
}

// Reporter 予期しないエラーを Sentry に送る
// DSN 未設定なら何もしない。nil でも安全に呼べる
type Reporter struct {
	hub *sentry.Hub
}

// New DSN が空なら無効な Reporter を返す
func New(opts Options) (*Reporter, error) {
	if opts.DSN == "" {
		log.Println("Sentry DSN not set, error reporting disabled")
		return &Reporter{}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		AttachStacktrace: true,
		BeforeSend:       opts.BeforeSend,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Sentry error reporting enabled (environment: %s)", opts.Environment)
	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Enabled Sentry に送信するか
func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// Capture err をタグ付きで送信
func (r *Reporter) Capture(err error, tags map[string]string) {
	if err == nil || !r.Enabled() {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		r.hub.CaptureException(err)
	})
}

// Flush 終了前に送信待ちのイベントを送る
func (r *Reporter) Flush(timeout time.Duration) {
	if !r.Enabled() {
		return
	}
	if !r.hub.Flush(timeout) {
		log.Println("Sentry flush timed out")
	}
}
