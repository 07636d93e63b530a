package statictiles

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// StrokeID identifies a finalized ink stroke. Opaque to this package beyond
// equality and use as a map key.
type StrokeID uint64

// TileKey identifies one position in the fixed world-space tile grid. The
// grid never changes with zoom: each (Col, Row) maps to one world rectangle
// forever (spec §3).
type TileKey struct {
	Col, Row int
}

// ZoomBand is a discrete, √2-spaced approximation of the continuous zoom
// level, selecting the resolution a tile is rendered at (spec §3).
type ZoomBand int

// zoomToZoomBand derives the band for a continuous zoom level:
// band = floor(log2(zoom) * 2).
func zoomToZoomBand(zoom float64) ZoomBand {
	return ZoomBand(math.Floor(math.Log2(zoom) * 2))
}

// BaseZoom returns the zoom level at the low end of this band: 2^(band/2).
func (b ZoomBand) BaseZoom() float64 {
	return math.Pow(2, float64(b)/2)
}

// GridConfig is the immutable configuration of a TileGrid and the tile
// surfaces rendered from it.
type GridConfig struct {
	// TileWorldSize is the world-space width/height of one grid cell (W in
	// spec §3). Typical values are 128 or 512 world units.
	TileWorldSize float64
	// DPR is the device pixel ratio used to size tile surfaces.
	DPR float64
	// OverscanTiles is the number of tile-rings outside the strict
	// viewport also considered visible, for panning headroom.
	OverscanTiles int
	// MinTilePhysical and MaxTilePhysical bound the physical pixel size of
	// a rendered tile surface regardless of zoom band.
	MinTilePhysical int
	MaxTilePhysical int
}

// DefaultGridConfig returns the configuration used by spec.md's worked
// scenarios: 512 world-unit tiles, DPR 2, one ring of overscan.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		TileWorldSize:   512,
		DPR:             2,
		OverscanTiles:   1,
		MinTilePhysical: 64,
		MaxTilePhysical: 2048,
	}
}

// TilePhysicalSize returns the physical pixel size (both dimensions, tiles
// are always square) a tile rendered at the given band should use:
// clamp(W * 2^(band/2) * dpr, min, max) (spec §3).
func (cfg GridConfig) TilePhysicalSize(band ZoomBand) int {
	size := cfg.TileWorldSize * band.BaseZoom() * cfg.DPR
	clamped := math.Max(float64(cfg.MinTilePhysical), math.Min(size, float64(cfg.MaxTilePhysical)))
	return int(math.Round(clamped))
}

// TileEntry is one occupied grid position's cached render state (spec §3).
// TileCache.allocate gives every entry a surface when it creates it, before
// the tile is first rendered.
type TileEntry struct {
	Key TileKey
	// Pixels is the offscreen raster surface holding this tile's rendered
	// content, sized tilePhysical x tilePhysical. Acquired (cleared) by
	// TileCache.allocate; it stays blank until the first render or until a
	// scheduler result replaces it.
	Pixels      *ebiten.Image
	WorldBounds Rect
	// StrokeIDs is the set of strokes whose rasterization contributed to
	// this tile's current pixels, used for targeted invalidation.
	StrokeIDs map[StrokeID]struct{}
	// Dirty is true if the pixels do not reflect current document state.
	// A change of display band does not set it; callers compare
	// RenderedAtBand with the current band to find wrong-band tiles.
	Dirty bool
	// RenderedAtBand is the zoom band the current pixels were produced at.
	RenderedAtBand ZoomBand
	// LastAccess is a monotonic logical clock used for LRU ordering
	// (non-decreasing across successive accesses to the same entry, spec
	// invariant I5). It is a logical tick counter, not a wall-clock
	// timestamp, so cache behavior is deterministic under test.
	LastAccess uint64
	// MemoryBytes is tilePhysical^2 * 4 (RGBA), tracked for budget
	// enforcement (spec invariant I1).
	MemoryBytes int64

	listElem any // *list.Element, opaque to callers outside cache.go
}

// hasStroke reports whether id is recorded as contributing to this tile.
func (e *TileEntry) hasStroke(id StrokeID) bool {
	if e.StrokeIDs == nil {
		return false
	}
	_, ok := e.StrokeIDs[id]
	return ok
}

// memoryBytesFor computes the RGBA byte size of a tilePhysical x
// tilePhysical surface.
func memoryBytesFor(tilePhysical int) int64 {
	return int64(tilePhysical) * int64(tilePhysical) * 4
}
