package moon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"meteo_discord_bot/internal/store"
	"meteo_discord_bot/internal/utils"
)

var (
	// ErrInvalidDate 日付が dd.mm.yyyy でない、または範囲外
	ErrInvalidDate = errors.New("Day or month is out of range")
	// ErrNoMoonData その日の月画像がない
	ErrNoMoonData = errors.New("no moon data available")
	// ErrEmptyCrop 切り抜き範囲が画像と重ならない
	ErrEmptyCrop = errors.New("crop rectangle does not overlap the image")
)

const dayLayout = "2006-01-02"

// Crop 切り抜き範囲（左上を含み右下を含まない）
type Crop struct {
	Left, Top, Right, Bottom int
}

// DefaultCrop 月齢ページのスクリーンショットから月の部分だけを切り出す範囲
var DefaultCrop = Crop{Left: 230, Top: 290, Right: 1250, Bottom: 950}

func (c Crop) rect() image.Rectangle {
	return image.Rect(c.Left, c.Top, c.Right, c.Bottom)
}

// ParseCrop "left,top,right,bottom" 形式
func ParseCrop(s string) (*Crop, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("crop %q: want left,top,right,bottom", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("crop %q: %w", s, err)
		}
		v[i] = n
	}
	c := &Crop{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}
	if c.Right <= c.Left || c.Bottom <= c.Top {
		return nil, fmt.Errorf("crop %q: empty rectangle", s)
	}
	return c, nil
}

// ParseDay "20.02.2023" を UTC の0時に変換
func ParseDay(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		n[i] = v
	}
	day, month, year := n[0], n[1], n[2]

	// time.Date は範囲外を繰り上げるので、戻した値と比べて弾く
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Catalog 日付ごとの月画像
type Catalog struct {
	repo     store.MoonRepository
	mediaDir string
}

func NewCatalog(repo store.MoonRepository, mediaDir string) *Catalog {
	return &Catalog{repo: repo, mediaDir: mediaDir}
}

// FindByDate day の月画像を PNG として書き出してパスを返す
// 書き出したファイルはキャッシュとして残る
func (c *Catalog) FindByDate(ctx context.Context, day time.Time) (string, error) {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	path := filepath.Join(c.mediaDir, "moon", day.Format(dayLayout)+".png")
	if utils.FileExists(path) {
		return path, nil
	}

	records, err := c.repo.Filter(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", fmt.Errorf("%w for day %s", ErrNoMoonData, day.Format("02.01.2006"))
	}

	img, _, err := image.Decode(bytes.NewReader(records[0].Image))
	if err != nil {
		return "", fmt.Errorf("decode moon image %d: %w", records[0].ID, err)
	}
	err = utils.WriteStreamAtomic(path, func(w io.Writer) error {
		return png.Encode(w, img)
	})
	if err != nil {
		return "", fmt.Errorf("write moon image: %w", err)
	}
	log.Printf("Moon image for %s written to %s", day.Format(dayLayout), path)
	return path, nil
}

// Import srcPath の画像を（必要なら切り抜いて）PNG で保存する
func (c *Catalog) Import(ctx context.Context, day time.Time, srcPath string, crop *Crop) (store.MoonRecord, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return store.MoonRecord{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return store.MoonRecord{}, fmt.Errorf("decode %s: %w", srcPath, err)
	}
	if crop != nil {
		img, err = CropImage(img, *crop)
		if err != nil {
			return store.MoonRecord{}, err
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return store.MoonRecord{}, fmt.Errorf("encode moon png: %w", err)
	}

	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	rec, err := c.repo.Save(ctx, store.MoonRecord{Date: day, Image: buf.Bytes()})
	if err != nil {
		return store.MoonRecord{}, err
	}
	log.Printf("Moon image for %s imported from %s (%d bytes)", day.Format(dayLayout), srcPath, len(rec.Image))
	return rec, nil
}

// CropImage 画像の範囲外は切り詰める
func CropImage(img image.Image, crop Crop) (*image.RGBA, error) {
	r := crop.rect().Add(img.Bounds().Min).Intersect(img.Bounds())
	if r.Empty() {
		return nil, ErrEmptyCrop
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out, nil
}
