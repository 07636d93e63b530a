package statictiles

import "github.com/hajimehoshi/ebiten/v2"

// Stroke is one finalized ink stroke as the core sees it: an identity, an
// axis-aligned world-space bounding box, the page it belongs to, and opaque
// style info the core never interprets itself (spec §3, §6).
type Stroke struct {
	ID        StrokeID
	Bounds    Rect
	PageIndex int
	Style     any
}

// PaperStyle distinguishes background pattern rendering for a page.
type PaperStyle int

const (
	PaperBlank PaperStyle = iota
	PaperLined
	PaperGrid
	PaperDotted
)

// Page is one paginated surface's background configuration. Its placement in
// world space comes from PageLayout, not from Page itself.
type Page struct {
	Paper  PaperStyle
	Margin float64
}

// Document is the external collaborator providing the ordered strokes and
// pages the core renders. The core never mutates it (spec §1, §6).
type Document struct {
	Strokes []Stroke
	Pages   []Page
}

// PageRect places one page's background rectangle in world space (spec §3,
// §6). Pages are non-overlapping.
type PageRect struct {
	PageIndex     int
	X, Y          float64
	Width, Height float64
}

// Rect returns the page's world-space rectangle.
func (p PageRect) Rect() Rect {
	return Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

// PageLayout is the ordered sequence of page placements the core consumes;
// constructing it from document structure is out of scope for this package
// (spec §1).
type PageLayout []PageRect

// SpatialIndex answers which strokes intersect a world-space rectangle. The
// core treats its implementation (R-tree-like or otherwise) as a black box
// (spec §3, §6).
type SpatialIndex interface {
	QueryRect(minX, minY, maxX, maxY float64) []StrokeID
}

// LOD is the level-of-detail hint passed to the stroke renderer, derived
// from a zoom band's base zoom.
type LOD float64

// StrokeRenderer is the external, deterministic collaborator that rasterizes
// one stroke's outline, pressure/tilt modeling, and grain/stamp texture —
// all explicitly out of scope for this package (spec §1, §6). resources is
// the host's opaque grain/stamp texture bundle, replicated to every worker
// alongside the document snapshot (spec §4.5, §5); this package never
// interprets it. Implementors must be pure in their inputs: identical
// (target, stroke, lod, isDark, resources) must produce pixel-identical
// output, since TileRenderer's own determinism guarantee depends on it.
type StrokeRenderer interface {
	Render(target *ebiten.Image, stroke Stroke, lod LOD, isDark bool, resources any)
}

// ThemeSource reports the current light/dark theme (spec §6). The core does
// not call it: the authoritative methods and RenderTile take isDark as a
// plain bool, so a host reads its ThemeSource and passes the value in.
type ThemeSource interface {
	IsDarkMode() bool
}
