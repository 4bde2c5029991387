package keepalive

import (
	"log"
	"math/rand"
	"time"

	"meteo_discord_bot/internal/utils"

	"github.com/go-co-op/gocron"
)

// Phrases 定期的に送るメッセージ
var Phrases = []string{
	"Hey, you missed me?",
	"Its Friday soon   \\.^.^./",
	"whats uuuuuuuuuup?",
}

// IntervalHours 起動時にこの中から1つ選ぶ
var IntervalHours = []int{3, 4, 6, 8}

// 送信してよい時間帯（開区間）
const (
	quietUntil = 7
	quietFrom  = 22
)

// SendFunc チャンネルにテキストを送る
type SendFunc func(channelID, text string) error

// Options KeepAlive の設定
type Options struct {
	Location *time.Location
	Channels func() []string
	Send     SendFunc
	Rand     *rand.Rand
	Now      func() time.Time
}

// KeepAlive 数時間おきにチャンネルへ一言送る
type KeepAlive struct {
	scheduler *gocron.Scheduler
	opts      Options
	hours     int
}

// New 送信間隔をランダムに決めて作成
func New(opts Options) *KeepAlive {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &KeepAlive{
		scheduler: gocron.NewScheduler(opts.Location),
		opts:      opts,
		hours:     IntervalHours[opts.Rand.Intn(len(IntervalHours))],
	}
}

// Interval 選ばれた送信間隔
func (k *KeepAlive) Interval() time.Duration {
	return time.Duration(k.hours) * time.Hour
}

// Start スケジューラを開始
func (k *KeepAlive) Start() error {
	log.Printf("keepalive: posting every %d hours", k.hours)
	if _, err := k.scheduler.Every(k.hours).Hours().Do(k.Tick); err != nil {
		return err
	}
	k.scheduler.StartAsync()
	return nil
}

// Stop スケジューラを停止
func (k *KeepAlive) Stop() {
	if k.scheduler != nil {
		k.scheduler.Stop()
	}
}

// ShouldPost 夜間は送らない
func ShouldPost(now time.Time, loc *time.Location) bool {
	return utils.HourBetween(now, loc, quietUntil, quietFrom)
}

// Tick 1回分の送信。送ったチャンネル数を返す
func (k *KeepAlive) Tick() int {
	now := k.opts.Now()
	if !ShouldPost(now, k.opts.Location) {
		log.Printf("keepalive: quiet hours (%s), skipping", now.In(k.opts.Location).Format("15:04"))
		return 0
	}

	phrase := Phrases[k.opts.Rand.Intn(len(Phrases))]
	sent := 0
	seen := map[string]bool{}
	for _, ch := range k.opts.Channels() {
		if ch == "" || seen[ch] {
			continue
		}
		seen[ch] = true
		if err := k.opts.Send(ch, phrase); err != nil {
			log.Printf("keepalive: failed to send to %s: %v", ch, err)
			continue
		}
		sent++
	}
	return sent
}
