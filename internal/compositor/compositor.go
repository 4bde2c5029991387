package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	// メテオグラム以外の画像形式にも対応
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"meteo_discord_bot/internal/fetch"
	"meteo_discord_bot/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// ErrBaseImage 凡例画像のキャッシュが壊れている・取得できない
var ErrBaseImage = errors.New("base image unavailable")

// Options Compositor の設定
type Options struct {
	BaseImageURL  string // 凡例画像の取得元
	BaseImagePath string // 凡例画像のキャッシュ先
	WorkDir       string // 一時ファイルと合成結果の保存先
}

// Compositor 凡例画像とメテオグラムを横に並べた1枚の画像を作る
type Compositor struct {
	opts    Options
	fetcher fetch.Fetcher
	group   singleflight.Group
	newID   func() string
}

// New Compositor を作成
func New(opts Options, fetcher fetch.Fetcher) *Compositor {
	return &Compositor{
		opts:    opts,
		fetcher: fetcher,
		newID:   uuid.NewString,
	}
}

// baseDownloadTimeout 凡例画像の共有ダウンロードの上限
const baseDownloadTimeout = 30 * time.Second

// Compose chartURL の画像を取得して凡例と合成し、合成画像のパスを返す
// 合成画像の削除は呼び出し側の責任
func (c *Compositor) Compose(ctx context.Context, chartURL string) (string, error) {
	base, err := c.loadBase(ctx)
	if err != nil {
		return "", err
	}

	id := c.newID()
	tmpPath := filepath.Join(c.opts.WorkDir, "chart-"+id+".tmp")
	outPath := filepath.Join(c.opts.WorkDir, "merged-"+id+".png")

	if err := c.fetcher.Download(ctx, chartURL, tmpPath); err != nil {
		return "", err
	}
	// 一時ファイルは成否に関わらず削除。凡例のキャッシュは残す
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove temporary chart %s: %v", tmpPath, err)
		}
	}()

	chart, err := decodeFile(tmpPath)
	if err != nil {
		return "", fmt.Errorf("decode chart %s: %w", chartURL, err)
	}

	merged := Merge(base, chart)
	err = utils.WriteStreamAtomic(outPath, func(w io.Writer) error {
		return png.Encode(w, merged)
	})
	if err != nil {
		return "", fmt.Errorf("write merged image: %w", err)
	}

	log.Printf("Merged image saved: %s (%dx%d)", outPath, merged.Bounds().Dx(), merged.Bounds().Dy())
	return outPath, nil
}

// loadBase 凡例画像を読む。キャッシュが壊れていれば1回だけ取り直す
func (c *Compositor) loadBase(ctx context.Context) (image.Image, error) {
	if err := c.shared(ctx, "fetch", c.fetchBaseIfMissing); err != nil {
		return nil, err
	}
	base, err := decodeFile(c.opts.BaseImagePath)
	if err == nil {
		return base, nil
	}

	log.Printf("Cached base image is unreadable (%v), downloading it again", err)
	if err := c.shared(ctx, "refresh", c.refreshBase); err != nil {
		return nil, err
	}
	base, err = decodeFile(c.opts.BaseImagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaseImage, err)
	}
	return base, nil
}

// shared fn を singleflight で1回だけ実行する
// fn は呼び出し元のキャンセルに巻き込まれないよう独立した ctx で動く
func (c *Compositor) shared(ctx context.Context, key string, fn func(context.Context) error) error {
	ch := c.group.DoChan(key+":"+c.opts.BaseImagePath, func() (interface{}, error) {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), baseDownloadTimeout)
		defer cancel()
		return nil, fn(dctx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetchBaseIfMissing キャッシュがなければ凡例画像をダウンロード
func (c *Compositor) fetchBaseIfMissing(ctx context.Context) error {
	if utils.FileExists(c.opts.BaseImagePath) {
		return nil
	}
	return c.downloadBase(ctx)
}

// refreshBase 壊れたキャッシュを消して取り直す
// 先に別の呼び出しが直していれば何もしない
func (c *Compositor) refreshBase(ctx context.Context) error {
	if _, err := decodeFile(c.opts.BaseImagePath); err == nil {
		return nil
	}
	if err := os.Remove(c.opts.BaseImagePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove corrupt cache: %v", ErrBaseImage, err)
	}
	if err := c.downloadBase(ctx); err != nil {
		return fmt.Errorf("%w: re-download: %w", ErrBaseImage, err)
	}
	return nil
}

func (c *Compositor) downloadBase(ctx context.Context) error {
	if c.opts.BaseImageURL == "" {
		return fmt.Errorf("%w: no cached copy at %s and no source URL", ErrBaseImage, c.opts.BaseImagePath)
	}
	log.Printf("Downloading base image %s", c.opts.BaseImageURL)
	return c.fetcher.Download(ctx, c.opts.BaseImageURL, c.opts.BaseImagePath)
}

// Merge base を左、chart を右に配置した画像を作る
// 幅は2枚の合計、高さは base に合わせる
func Merge(base, chart image.Image) *image.RGBA {
	baseBounds := base.Bounds()
	chartBounds := chart.Bounds()

	width := baseBounds.Dx() + chartBounds.Dx()
	height := baseBounds.Dy()

	merged := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(merged, image.Rect(0, 0, baseBounds.Dx(), height), base, baseBounds.Min, draw.Src)

	chartRect := image.Rect(baseBounds.Dx(), 0, width, chartBounds.Dy())
	draw.Draw(merged, chartRect, chart, chartBounds.Min, draw.Src)
	return merged
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
