package statictiles

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// TileCompositor draws one frame: the intersection of the tile grid with the
// viewport at the current camera transform, tolerating stale tiles (spec
// §4.4). Grounded on willow's DrawImage/GeoM draw path (rendertexture.go,
// scene.go's final blit) but deliberately never smooths: destination
// corners are rounded to integers in screen space so adjacent tiles never
// show a sub-pixel seam, which is a correctness requirement the teacher's
// own (rotation-aware, smoothed) draws do not need to satisfy.
type TileCompositor struct {
	grid *TileGrid
}

// NewTileCompositor creates a TileCompositor over the given grid.
func NewTileCompositor(grid *TileGrid) *TileCompositor {
	return &TileCompositor{grid: grid}
}

// Composite draws every visible, cached tile (stale or clean) onto surface
// at the camera's current transform (spec §4.4).
func (tc *TileCompositor) Composite(surface *ebiten.Image, cam CameraView, screenW, screenH float64, cache *TileCache) {
	camX, camY := cam.Position()
	zoom := cam.ZoomLevel()
	w := tc.grid.Config().TileWorldSize

	for _, key := range tc.grid.VisibleTiles(cam, screenW, screenH) {
		entry, ok := cache.getStale(key)
		if !ok || entry.Pixels == nil {
			continue
		}
		tc.drawTile(surface, entry, key, camX, camY, zoom, w)
	}
}

// drawTile draws one tile's pixel surface into its screen rectangle, with
// destination corners rounded to integer physical pixels (spec §4.4 step 3).
func (tc *TileCompositor) drawTile(surface *ebiten.Image, entry *TileEntry, key TileKey, camX, camY, zoom, w float64) {
	x0 := math.Round((float64(key.Col)*w - camX) * zoom)
	y0 := math.Round((float64(key.Row)*w - camY) * zoom)
	x1 := math.Round((float64(key.Col+1)*w - camX) * zoom)
	y1 := math.Round((float64(key.Row+1)*w - camY) * zoom)

	destW := x1 - x0
	destH := y1 - y0
	if destW <= 0 || destH <= 0 {
		return
	}

	b := entry.Pixels.Bounds()
	srcW, srcH := float64(b.Dx()), float64(b.Dy())
	if srcW == 0 || srcH == 0 {
		return
	}

	var opts ebiten.DrawImageOptions
	opts.GeoM.Scale(destW/srcW, destH/srcH)
	opts.GeoM.Translate(x0, y0)
	opts.Filter = ebiten.FilterNearest
	surface.DrawImage(entry.Pixels, &opts)
}
