package grid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

const (
	// DefaultRows UMモデル格子の行数
	DefaultRows = 616
	// DefaultCols UMモデル格子の列数
	DefaultCols = 448
)

// ErrInvalidGrid 格子ファイルが存在しない・壊れている場合のエラー
var ErrInvalidGrid = errors.New("invalid coordinate grid")

// Grid 格子セルごとの (緯度, 経度) を保持する読み取り専用の行列
// data は行優先で [lat, lng, lat, lng, ...] の順に並ぶ
type Grid struct {
	rows int
	cols int
	data []float64
}

// New 平坦化済みデータから Grid を作成
func New(rows, cols int, data []float64) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: shape %dx%d", ErrInvalidGrid, rows, cols)
	}
	if len(data) != rows*cols*2 {
		return nil, fmt.Errorf("%w: expected %d values for shape (%d, %d, 2), got %d",
			ErrInvalidGrid, rows*cols*2, rows, cols, len(data))
	}
	copied := make([]float64, len(data))
	copy(copied, data)
	return &Grid{rows: rows, cols: cols, data: copied}, nil
}

// Load バイナリファイル (little-endian float64, 行優先) から Grid を読み込む
func Load(path string, rows, cols int) (*Grid, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidGrid, path, err)
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("%w: %s size %d is not a multiple of 8", ErrInvalidGrid, path, len(raw))
	}

	values := make([]float64, len(raw)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return New(rows, cols, values)
}

// LoadOptional パスが空なら格子なしとして nil を返す
func LoadOptional(path string, rows, cols int) (*Grid, error) {
	if path == "" {
		return nil, nil
	}
	return Load(path, rows, cols)
}

// Encode Grid を Load と同じバイナリ形式に書き出す
func (g *Grid) Encode() []byte {
	out := make([]byte, len(g.data)*8)
	for i, v := range g.data {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}

// Shape 行数と列数
func (g *Grid) Shape() (rows, cols int) {
	return g.rows, g.cols
}

// At セル (r, c) の緯度と経度
func (g *Grid) At(r, c int) (lat, lng float64) {
	i := (r*g.cols + c) * 2
	return g.data[i], g.data[i+1]
}
