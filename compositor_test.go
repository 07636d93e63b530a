package statictiles

import "testing"

func TestCompositeOneCachedTileAmongHolesDoesNotPanic(t *testing.T) {
	grid := NewTileGrid(GridConfig{TileWorldSize: 100, OverscanTiles: 0})
	cache := NewTileCache(DefaultCacheConfig(), GridConfig{TileWorldSize: 100, DPR: 1, MinTilePhysical: 64, MaxTilePhysical: 2048})
	compositor := NewTileCompositor(grid)

	visible := TileKey{0, 0}
	cache.allocate(visible, Rect{X: 0, Y: 0, Width: 100, Height: 100}, 0)
	cache.markClean(visible)

	cam := &Camera{X: 0, Y: 0, Zoom: 1}
	surface := ebitenTestSurface(200, 200)

	// Should not panic even though most visible tiles are uncached holes.
	compositor.Composite(surface, cam, 200, 200, cache)
}

func TestCompositeSkipsUncachedKeysWithoutPanic(t *testing.T) {
	grid := NewTileGrid(GridConfig{TileWorldSize: 512, OverscanTiles: 1})
	cache := NewTileCache(DefaultCacheConfig(), testGridConfig())
	compositor := NewTileCompositor(grid)
	cam := &Camera{X: 0, Y: 0, Zoom: 1}
	surface := ebitenTestSurface(800, 600)

	compositor.Composite(surface, cam, 800, 600, cache)
}

func TestDrawTileSkipsDegenerateRect(t *testing.T) {
	grid := NewTileGrid(GridConfig{TileWorldSize: 512})
	compositor := NewTileCompositor(grid)
	cache := NewTileCache(DefaultCacheConfig(), testGridConfig())
	entry := cache.allocate(TileKey{0, 0}, Rect{Width: 512, Height: 512}, 0)

	surface := ebitenTestSurface(64, 64)
	// Zero zoom would collapse the destination rect to a point; must not panic.
	compositor.drawTile(surface, entry, TileKey{0, 0}, 0, 0, 0, 512)
}
