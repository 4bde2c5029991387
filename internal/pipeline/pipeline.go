package pipeline

import (
	"context"
	"fmt"
	"log"

	"meteo_discord_bot/internal/fetch"
	"meteo_discord_bot/internal/geocode"
	"meteo_discord_bot/internal/grid"
	"meteo_discord_bot/internal/meteo"
	"meteo_discord_bot/internal/utils"
)

// Reason メテオグラムが見つからなかった理由
type Reason string

const (
	// ReasonNoRemoteURL Resolve は返さない。URL がなければ必ず格子側の理由になる。
	// 呼び出し側がフォールバックなしで検索した結果を表すために残している
	ReasonNoRemoteURL  Reason = "no-remote-url"
	ReasonNoGridMatrix Reason = "no-grid-matrix"
	ReasonNoCoordinate Reason = "no-coordinate"
)

// Outcome Resolve の結果。Path が空なら Reason に理由が入る
type Outcome struct {
	Path   string
	Reason Reason
}

// Found 合成画像が得られたか
func (o Outcome) Found() bool {
	return o.Path != ""
}

func found(path string) Outcome {
	return Outcome{Path: path}
}

func notFound(reason Reason) Outcome {
	return Outcome{Reason: reason}
}

// ChartLookup meteo.pl 側で都市名からメテオグラムURLを探す
// 見つからなければ ""
type ChartLookup interface {
	ChartURL(ctx context.Context, city string) (string, error)
}

// Composer URL の画像を凡例と合成してファイルパスを返す
type Composer interface {
	Compose(ctx context.Context, chartURL string) (string, error)
}

// Pipeline リモート検索 -> 格子フォールバック -> 画像合成 の順に処理する
type Pipeline struct {
	lookup   ChartLookup
	grid     *grid.Grid
	urls     meteo.URLBuilder
	composer Composer
}

// New g は nil でもよい（格子フォールバックなし）
func New(lookup ChartLookup, g *grid.Grid, urls meteo.URLBuilder, composer Composer) *Pipeline {
	return &Pipeline{
		lookup:   lookup,
		grid:     g,
		urls:     urls,
		composer: composer,
	}
}

// HasGrid 格子データが読み込まれているか
func (p *Pipeline) HasGrid() bool {
	return p.grid != nil
}

// Resolve city のメテオグラムを用意する
// 見つからないのは NotFound の Outcome、通信や合成の失敗は error で返す
func (p *Pipeline) Resolve(ctx context.Context, city string, coord *geocode.Coordinate) (Outcome, error) {
	name := utils.FoldName(city)

	chartURL, err := p.lookup.ChartURL(ctx, city)
	if err != nil {
		return Outcome{}, &fetch.TransportError{URL: "chart lookup for " + name, Err: err}
	}
	log.Printf("Method Resolve, url: %q", chartURL)

	if chartURL == "" {
		if p.grid == nil {
			log.Printf("Matrix is nil. Cannot obtain city %s data", name)
			return notFound(ReasonNoGridMatrix), nil
		}
		if coord == nil {
			log.Printf("Url and coords are nil. Cannot obtain city %s data", name)
			return notFound(ReasonNoCoordinate), nil
		}

		cell := grid.NearestCell(coord.Longitude, coord.Latitude, p.grid)
		log.Printf("Method Resolve, points from grid found: (%d, %d)", cell.ActX, cell.ActY)
		chartURL = p.urls.Build(cell)
		log.Printf("Url not found, preparing from grid: %s", chartURL)
	}

	path, err := p.composer.Compose(ctx, chartURL)
	if err != nil {
		return Outcome{}, fmt.Errorf("compose chart for %s: %w", name, err)
	}
	return found(path), nil
}
