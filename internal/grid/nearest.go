package grid

import "math"

const (
	// latticeOffset / latticeStride meteo.pl のメテオグラムが描画されるセルの間隔
	latticeOffset = 10
	latticeStride = 7
)

// Cell メテオグラムURLに渡す補正済みの格子座標
type Cell struct {
	ActX int // 列
	ActY int // 行
}

// NearestCell 指定座標に最も近い格子セルを探し、描画可能な格子点へ補正する
// 距離が同じセルが複数ある場合は行優先で最初に見つかったものを採用
func NearestCell(lng, lat float64, g *Grid) Cell {
	bestRow, bestCol := 0, 0
	best := math.Inf(1)

	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			cellLat, cellLng := g.At(r, c)
			dLng := cellLng - lng
			dLat := cellLat - lat
			d := math.Sqrt(dLng*dLng + dLat*dLat)
			if d < best {
				best = d
				bestRow, bestCol = r, c
			}
		}
	}

	return Cell{
		ActX: snap(bestCol),
		ActY: snap(bestRow),
	}
}

// snap 偶数丸めで offset + k*stride の格子点に寄せる
func snap(index int) int {
	k := math.RoundToEven(float64(index-latticeOffset) / latticeStride)
	return latticeOffset + int(k)*latticeStride
}
