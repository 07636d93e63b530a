package statictiles

import (
	"math"
	"sort"
)

// TileGrid is pure geometry: world<->grid mapping and visible-tile
// enumeration. It holds no state beyond its immutable config (spec §4.1).
//
// Fixing tile world size (not screen size) means the set of tiles a stroke
// touches is invariant under pan/zoom — essential for cache stability.
type TileGrid struct {
	cfg GridConfig
}

// NewTileGrid creates a TileGrid with the given configuration.
func NewTileGrid(cfg GridConfig) *TileGrid {
	return &TileGrid{cfg: cfg}
}

// Config returns the grid's configuration.
func (g *TileGrid) Config() GridConfig {
	return g.cfg
}

// WorldToTile returns the grid position of the tile containing the given
// world point.
func (g *TileGrid) WorldToTile(wx, wy float64) TileKey {
	w := g.cfg.TileWorldSize
	return TileKey{Col: int(math.Floor(wx / w)), Row: int(math.Floor(wy / w))}
}

// TileBounds returns the exact world rectangle covered by the given tile:
// [col*W, (col+1)*W) x [row*W, (row+1)*W).
func (g *TileGrid) TileBounds(key TileKey) Rect {
	w := g.cfg.TileWorldSize
	return Rect{X: float64(key.Col) * w, Y: float64(key.Row) * w, Width: w, Height: w}
}

// colRowRange returns the inclusive [minCol,maxCol] x [minRow,maxRow] tile
// range whose tile rectangles intersect r.
func (g *TileGrid) colRowRange(r Rect) (minCol, maxCol, minRow, maxRow int) {
	w := g.cfg.TileWorldSize
	minCol = int(math.Floor(r.X / w))
	maxCol = int(math.Floor((r.X + r.Width) / w))
	minRow = int(math.Floor(r.Y / w))
	maxRow = int(math.Floor((r.Y + r.Height) / w))
	return
}

// VisibleTiles returns every tile position intersecting the camera's
// visible rect expanded by overscan, ordered by ascending Manhattan
// distance of the tile center from the viewport center (spec §4.1). This
// ordering is a contract: the scheduler relies on it to render closer
// tiles first when batch budgets prevent finishing all in one frame
// (spec property 7).
func (g *TileGrid) VisibleTiles(cam CameraView, screenW, screenH float64) []TileKey {
	vis := cam.VisibleRect(screenW, screenH)
	centerX := vis.X + vis.Width/2
	centerY := vis.Y + vis.Height/2

	expanded := vis.Expand(float64(g.cfg.OverscanTiles) * g.cfg.TileWorldSize)
	minCol, maxCol, minRow, maxRow := g.colRowRange(expanded)

	keys := make([]TileKey, 0, (maxCol-minCol+1)*(maxRow-minRow+1))
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			keys = append(keys, TileKey{Col: col, Row: row})
		}
	}

	w := g.cfg.TileWorldSize
	dist := func(k TileKey) float64 {
		cx := (float64(k.Col) + 0.5) * w
		cy := (float64(k.Row) + 0.5) * w
		return math.Abs(cx-centerX) + math.Abs(cy-centerY)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return dist(keys[i]) < dist(keys[j])
	})
	return keys
}

// TilesForWorldBBox returns all tile positions intersecting the given
// world-space rectangle, in row-major order.
func (g *TileGrid) TilesForWorldBBox(bbox Rect) []TileKey {
	minCol, maxCol, minRow, maxRow := g.colRowRange(bbox)
	keys := make([]TileKey, 0, (maxCol-minCol+1)*(maxRow-minRow+1))
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			keys = append(keys, TileKey{Col: col, Row: row})
		}
	}
	return keys
}
