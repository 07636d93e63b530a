package statictiles

import (
	"math"
	"testing"
)

func TestWorldToTileInsideBounds(t *testing.T) {
	grid := NewTileGrid(GridConfig{TileWorldSize: 512})
	for _, key := range []TileKey{{0, 0}, {1, 0}, {-1, 0}, {3, -4}} {
		b := grid.TileBounds(key)
		pts := [][2]float64{
			{b.X + 1, b.Y + 1},
			{b.X + b.Width - 1, b.Y + b.Height - 1},
			{b.X, b.Y},
		}
		for _, p := range pts {
			got := grid.WorldToTile(p[0], p[1])
			if got != key {
				t.Errorf("WorldToTile(%v) in tile %v = %v, want %v", p, key, got, key)
			}
		}
	}
}

func TestTileBoundsExact(t *testing.T) {
	grid := NewTileGrid(GridConfig{TileWorldSize: 512})
	b := grid.TileBounds(TileKey{Col: -1, Row: 2})
	want := Rect{X: -512, Y: 1024, Width: 512, Height: 512}
	if b != want {
		t.Errorf("TileBounds(-1,2) = %+v, want %+v", b, want)
	}
}

// S1 — blank load: screen 800x600 centered on the world origin (camera
// top-left at (-400,-300), zoom 1), W=512, overscan=1.
func TestVisibleTilesBlankLoadS1(t *testing.T) {
	grid := NewTileGrid(GridConfig{TileWorldSize: 512, OverscanTiles: 1})
	cam := &Camera{X: -400, Y: -300, Zoom: 1}
	keys := grid.VisibleTiles(cam, 800, 600)
	if len(keys) == 0 {
		t.Fatal("expected visible tiles")
	}
	seen := map[TileKey]bool{}
	for _, k := range keys {
		seen[k] = true
	}
	// Visible world rect is [-400,400)x[-300,300); with 1 tile (512) overscan
	// every tile from col/row -2..0 must be present.
	for col := -2; col <= 0; col++ {
		for row := -2; row <= 0; row++ {
			if !seen[TileKey{col, row}] {
				t.Errorf("expected tile (%d,%d) to be visible", col, row)
			}
		}
	}
}

func TestVisibleTilesOrderingByDistance(t *testing.T) {
	grid := NewTileGrid(GridConfig{TileWorldSize: 100, OverscanTiles: 2})
	cam := &Camera{X: 0, Y: 0, Zoom: 1}
	keys := grid.VisibleTiles(cam, 300, 300)
	centerX, centerY := 150.0, 150.0
	lastDist := -1.0
	for _, k := range keys {
		cx := (float64(k.Col) + 0.5) * 100
		cy := (float64(k.Row) + 0.5) * 100
		d := math.Abs(cx-centerX) + math.Abs(cy-centerY)
		if d < lastDist-1e-9 {
			t.Fatalf("ordering violated: tile %v at distance %f after %f", k, d, lastDist)
		}
		lastDist = d
	}
}

// Property 8: tile count is independent of zoom when the world-space
// visible rect and overscan are held fixed.
func TestVisibleTilesCountIndependentOfZoom(t *testing.T) {
	grid := NewTileGrid(GridConfig{TileWorldSize: 100, OverscanTiles: 1})
	cam1 := &Camera{X: 0, Y: 0, Zoom: 1}
	keys1 := grid.VisibleTiles(cam1, 400, 400)

	cam2 := &Camera{X: 0, Y: 0, Zoom: 2}
	// Same world-space visible rect requires doubling the screen dims at 2x zoom.
	keys2 := grid.VisibleTiles(cam2, 800, 800)

	if len(keys1) != len(keys2) {
		t.Errorf("tile count changed with zoom: %d vs %d", len(keys1), len(keys2))
	}
}

func TestTilesForWorldBBoxSpansThreeColumns(t *testing.T) {
	grid := NewTileGrid(GridConfig{TileWorldSize: 512})
	// x spans [-50, 600): touches tile col -1 ([-512,0)), 0 ([0,512)), 1 ([512,1024)).
	keys := grid.TilesForWorldBBox(Rect{X: -50, Y: 50, Width: 650, Height: 50})
	want := map[TileKey]bool{{-1, 0}: true, {0, 0}: true, {1, 0}: true}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want 3 tiles matching %v", keys, want)
	}
	for _, k := range keys {
		if !want[k] {
			t.Errorf("unexpected tile %v", k)
		}
	}
}

func TestTilesForWorldBBoxSingleTile(t *testing.T) {
	grid := NewTileGrid(GridConfig{TileWorldSize: 512})
	keys := grid.TilesForWorldBBox(Rect{X: 50, Y: 50, Width: 10, Height: 10})
	if len(keys) != 1 || keys[0] != (TileKey{0, 0}) {
		t.Errorf("got %v, want single tile (0,0)", keys)
	}
}
