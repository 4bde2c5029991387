package meteo

import (
	"strconv"
	"strings"

	"meteo_discord_bot/internal/grid"

	"github.com/google/uuid"
)

const (
	// DefaultChartURLTemplate UMモデルのメテオグラム画像
	DefaultChartURLTemplate = "http://www.meteo.pl/um/metco/mgram_pict.php?ntype=0u&row={row}&col={col}&lang=pl&uid={uid}"
	// DefaultBaseImageURL メテオグラムの凡例画像
	DefaultBaseImageURL = "http://www.meteo.pl/um/metco/leg_um_pl_cbase_256.png"
)

// URLBuilder 格子セルからメテオグラム画像のURLを組み立てる
type URLBuilder struct {
	Template string
	// NewUID テスト用の差し替え口。nil なら uuid を生成
	NewUID func() string
}

// NewURLBuilder テンプレートが空なら既定値を使う
func NewURLBuilder(template string) URLBuilder {
	if template == "" {
		template = DefaultChartURLTemplate
	}
	return URLBuilder{Template: template}
}

// Build 呼び出しごとに新しい uid を埋め込む（meteo.pl 側のキャッシュ回避）
func (b URLBuilder) Build(cell grid.Cell) string {
	tmpl := b.Template
	if tmpl == "" {
		tmpl = DefaultChartURLTemplate
	}
	uid := uuid.NewString()
	if b.NewUID != nil {
		uid = b.NewUID()
	}
	return strings.NewReplacer(
		"{col}", strconv.Itoa(cell.ActX),
		"{row}", strconv.Itoa(cell.ActY),
		"{uid}", uid,
	).Replace(tmpl)
}
