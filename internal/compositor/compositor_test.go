package compositor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"meteo_discord_bot/internal/fetch"
	"meteo_discord_bot/internal/utils"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeFetcher URL ごとに用意した内容を書き込む
type fakeFetcher struct {
	mu     sync.Mutex
	files  map[string][]byte
	counts map[string]int
}

func newFakeFetcher(files map[string][]byte) *fakeFetcher {
	return &fakeFetcher{files: files, counts: map[string]int{}}
}

func (f *fakeFetcher) Download(_ context.Context, url, dst string) error {
	f.mu.Lock()
	f.counts[url]++
	data, ok := f.files[url]
	f.mu.Unlock()
	if !ok {
		return &fetch.TransportError{URL: url, Err: errors.New("404 Not Found")}
	}
	return utils.WriteFileAtomic(dst, data)
}

func (f *fakeFetcher) set(url string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[url] = data
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[url]
}

const (
	baseURL  = "http://meteo.test/base.png"
	chartURL = "http://meteo.test/chart.png"
)

func newTestCompositor(t *testing.T, f *fakeFetcher) (*Compositor, string) {
	t.Helper()
	dir := t.TempDir()
	c := New(Options{
		BaseImageURL:  baseURL,
		BaseImagePath: filepath.Join(dir, "utils", "base.png"),
		WorkDir:       filepath.Join(dir, "media"),
	}, f)
	return c, dir
}

func TestCompose_SizeAndLayout(t *testing.T) {
	f := newFakeFetcher(map[string][]byte{
		baseURL:  pngBytes(t, 280, 660, color.RGBA{R: 255, A: 255}),
		chartURL: pngBytes(t, 540, 660, color.RGBA{B: 255, A: 255}),
	})
	c, _ := newTestCompositor(t, f)

	out, err := c.Compose(context.Background(), chartURL)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	file, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	img, format, err := image.Decode(file)
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" {
		t.Errorf("format = %s, want png", format)
	}
	if got := img.Bounds().Size(); got != image.Pt(280+540, 660) {
		t.Errorf("size = %v, want 820x660", got)
	}

	r, _, _, _ := img.At(10, 10).RGBA()
	if r>>8 != 255 {
		t.Errorf("left side should be the base image")
	}
	_, _, b, _ := img.At(300, 10).RGBA()
	if b>>8 != 255 {
		t.Errorf("right side should be the chart image")
	}
}

func TestCompose_HeightFollowsBase(t *testing.T) {
	f := newFakeFetcher(map[string][]byte{
		baseURL:  pngBytes(t, 10, 20, color.White),
		chartURL: pngBytes(t, 15, 30, color.Black),
	})
	c, _ := newTestCompositor(t, f)

	out, err := c.Compose(context.Background(), chartURL)
	if err != nil {
		t.Fatal(err)
	}
	file, _ := os.Open(out)
	defer file.Close()
	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 25 || cfg.Height != 20 {
		t.Errorf("size = %dx%d, want 25x20", cfg.Width, cfg.Height)
	}
}

func TestCompose_BaseImageDownloadedOnce(t *testing.T) {
	f := newFakeFetcher(map[string][]byte{
		baseURL:  pngBytes(t, 4, 4, color.White),
		chartURL: pngBytes(t, 4, 4, color.Black),
	})
	c, _ := newTestCompositor(t, f)

	for i := 0; i < 2; i++ {
		if _, err := c.Compose(context.Background(), chartURL); err != nil {
			t.Fatalf("Compose #%d: %v", i, err)
		}
	}
	if got := f.count(baseURL); got != 1 {
		t.Errorf("base downloads = %d, want 1", got)
	}
	if got := f.count(chartURL); got != 2 {
		t.Errorf("chart downloads = %d, want 2", got)
	}
}

func TestCompose_CleansTemporaryFileKeepsBase(t *testing.T) {
	f := newFakeFetcher(map[string][]byte{
		baseURL:  pngBytes(t, 4, 4, color.White),
		chartURL: pngBytes(t, 4, 4, color.Black),
	})
	c, dir := newTestCompositor(t, f)

	out, err := c.Compose(context.Background(), chartURL)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "media"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary chart left behind: %s", e.Name())
		}
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("merged image missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "utils", "base.png")); err != nil {
		t.Errorf("base image cache must be kept: %v", err)
	}
}

func TestCompose_ChartDownloadFailureIsTransportError(t *testing.T) {
	f := newFakeFetcher(map[string][]byte{
		baseURL: pngBytes(t, 4, 4, color.White),
	})
	c, _ := newTestCompositor(t, f)

	_, err := c.Compose(context.Background(), "http://meteo.test/missing.png")
	var te *fetch.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *fetch.TransportError, got %v", err)
	}
}

func TestCompose_CorruptBaseImage(t *testing.T) {
	f := newFakeFetcher(map[string][]byte{
		baseURL:  []byte("not an image"),
		chartURL: pngBytes(t, 4, 4, color.Black),
	})
	c, dir := newTestCompositor(t, f)

	_, err := c.Compose(context.Background(), chartURL)
	if !errors.Is(err, ErrBaseImage) {
		t.Fatalf("expected ErrBaseImage, got %v", err)
	}
	if got := f.count(baseURL); got != 2 {
		t.Errorf("base downloads = %d, want 2 (initial + one retry)", got)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "media"))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary chart left behind after failure: %s", e.Name())
		}
	}

	// 取得元が直れば次の呼び出しで回復する
	f.set(baseURL, pngBytes(t, 4, 4, color.White))
	out, err := c.Compose(context.Background(), chartURL)
	if err != nil {
		t.Fatalf("Compose after source recovered: %v", err)
	}
	if got := f.count(baseURL); got != 3 {
		t.Errorf("base downloads = %d, want 3", got)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("merged image missing: %v", err)
	}
}

func TestCompose_ReplacesCorruptCachedBase(t *testing.T) {
	f := newFakeFetcher(map[string][]byte{
		baseURL:  pngBytes(t, 4, 4, color.White),
		chartURL: pngBytes(t, 4, 4, color.Black),
	})
	c, dir := newTestCompositor(t, f)
	if err := utils.WriteFileAtomic(filepath.Join(dir, "utils", "base.png"), []byte("<html>502</html>")); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Compose(context.Background(), chartURL); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := f.count(baseURL); got != 1 {
		t.Errorf("base downloads = %d, want 1", got)
	}
}

// gatedFetcher 凡例画像のダウンロードを gate が閉じられるまで止める
type gatedFetcher struct {
	*fakeFetcher
	started chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (g *gatedFetcher) Download(ctx context.Context, url, dst string) error {
	if url == baseURL {
		g.once.Do(func() { close(g.started) })
		select {
		case <-g.gate:
		case <-ctx.Done():
			return &fetch.TransportError{URL: url, Err: ctx.Err()}
		}
	}
	return g.fakeFetcher.Download(ctx, url, dst)
}

func TestCompose_CancelledCallerDoesNotAbortSharedDownload(t *testing.T) {
	g := &gatedFetcher{
		fakeFetcher: newFakeFetcher(map[string][]byte{
			baseURL:  pngBytes(t, 4, 4, color.White),
			chartURL: pngBytes(t, 4, 4, color.Black),
		}),
		started: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	dir := t.TempDir()
	c := New(Options{
		BaseImageURL:  baseURL,
		BaseImagePath: filepath.Join(dir, "base.png"),
		WorkDir:       dir,
	}, g)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Compose(ctxA, chartURL)
		errA <- err
	}()
	<-g.started
	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller err = %v", err)
	}

	errB := make(chan error, 1)
	go func() {
		_, err := c.Compose(context.Background(), chartURL)
		errB <- err
	}()
	close(g.gate)
	if err := <-errB; err != nil {
		t.Fatalf("second caller: %v", err)
	}
	if got := g.count(baseURL); got != 1 {
		t.Errorf("base downloads = %d, want 1", got)
	}
}

func TestCompose_NoBaseSource(t *testing.T) {
	dir := t.TempDir()
	c := New(Options{
		BaseImagePath: filepath.Join(dir, "base.png"),
		WorkDir:       dir,
	}, newFakeFetcher(nil))
	if _, err := c.Compose(context.Background(), chartURL); !errors.Is(err, ErrBaseImage) {
		t.Fatalf("expected ErrBaseImage, got %v", err)
	}
}

func TestCompose_ConcurrentCallsUseDistinctPaths(t *testing.T) {
	f := newFakeFetcher(map[string][]byte{
		baseURL:  pngBytes(t, 4, 4, color.White),
		chartURL: pngBytes(t, 4, 4, color.Black),
	})
	c, _ := newTestCompositor(t, f)

	const n = 8
	paths := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = c.Compose(context.Background(), chartURL)
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Compose #%d: %v", i, errs[i])
		}
		if seen[paths[i]] {
			t.Errorf("output path reused: %s", paths[i])
		}
		seen[paths[i]] = true
	}
	if got := f.count(baseURL); got != 1 {
		t.Errorf("base downloads = %d, want 1", got)
	}
}

func TestMerge(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 3, 5))
	chart := image.NewRGBA(image.Rect(0, 0, 7, 5))
	if got := Merge(base, chart).Bounds().Size(); got != image.Pt(10, 5) {
		t.Errorf("Merge size = %v, want 10x5", got)
	}
}
