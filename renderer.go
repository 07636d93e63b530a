package statictiles

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// deskColor returns the fill behind every page, theme-dependent.
func deskColor(isDark bool) Color {
	if isDark {
		return Color{R: 0.11, G: 0.11, B: 0.13, A: 1}
	}
	return Color{R: 0.82, G: 0.82, B: 0.80, A: 1}
}

// paperColor returns a page's background fill, theme-dependent.
func paperColor(isDark bool) Color {
	if isDark {
		return Color{R: 0.05, G: 0.05, B: 0.06, A: 1}
	}
	return Color{R: 1, G: 1, B: 1, A: 1}
}

// ruleColor returns the color used for lined/grid/dot pattern strokes.
func ruleColor(isDark bool) Color {
	if isDark {
		return Color{R: 0.3, G: 0.32, B: 0.4, A: 0.6}
	}
	return Color{R: 0.55, G: 0.65, B: 0.85, A: 0.6}
}

// colorToRGBA converts the package's float Color to image/color.RGBA, the
// form ebiten's vector package and (*ebiten.Image).Fill expect.
func colorToRGBA(c Color) color.RGBA {
	return color.RGBA{
		R: uint8(clamp01(c.R) * 255),
		G: uint8(clamp01(c.G) * 255),
		B: uint8(clamp01(c.B) * 255),
		A: uint8(clamp01(c.A) * 255),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func deskColorAsRGBA(isDark bool) color.RGBA {
	return colorToRGBA(deskColor(isDark))
}

// TileRenderer produces the pixel content of one tile: desk color, page
// backgrounds with pattern fills, and stroke rasterization clipped to each
// page (spec §4.3). Grounded on willow's SubImage-based clipping
// (rendertexture.go, scene.go's viewport SubImage) and on the vector-package
// line-drawing idiom used elsewhere in the example pack (Afromullet-TinkerRogue's
// graphics/vx.go, opticalflyer's lines.go) for the ruled/grid/dot patterns
// willow itself has no equivalent for.
type TileRenderer struct {
	StrokeRenderer StrokeRenderer
}

// NewTileRenderer constructs a TileRenderer delegating stroke rasterization
// to the given external collaborator.
func NewTileRenderer(strokeRenderer StrokeRenderer) *TileRenderer {
	return &TileRenderer{StrokeRenderer: strokeRenderer}
}

// worldToSurfaceScale returns the scale factor mapping one world unit to
// one surface pixel, for a tile rendered at tilePhysical with world size W.
func worldToSurfaceScale(tilePhysical int, worldSize float64) float64 {
	return float64(tilePhysical) / worldSize
}

// RenderTile writes a complete image of entry.WorldBounds onto entry.Pixels
// and updates entry.StrokeIDs to exactly the set of strokes drawn (spec
// §4.3). doc, layout, and index are caller-owned snapshots; resources is the
// grain/stamp texture bundle forwarded to the stroke renderer unexamined
// (spec §5). RenderTile never retains references to any of them past the
// call.
func (r *TileRenderer) RenderTile(entry *TileEntry, doc *Document, layout PageLayout, index SpatialIndex, band ZoomBand, worldSize float64, isDark bool, resources any) {
	if entry.Pixels == nil {
		return
	}
	target := entry.Pixels
	target.Clear()

	tilePhysical := target.Bounds().Dx()
	scale := worldToSurfaceScale(tilePhysical, worldSize)
	bounds := entry.WorldBounds

	toSurface := func(wx, wy float64) (float32, float32) {
		return float32((wx - bounds.X) * scale), float32((wy - bounds.Y) * scale)
	}

	target.Fill(deskColorAsRGBA(isDark))

	strokeIDs := index.QueryRect(bounds.X, bounds.Y, bounds.X+bounds.Width, bounds.Y+bounds.Height)
	strokeSet := make(map[StrokeID]struct{}, len(strokeIDs))
	for _, id := range strokeIDs {
		strokeSet[id] = struct{}{}
	}

	drawn := make(map[StrokeID]struct{})
	lod := LOD(band.BaseZoom())

	for _, page := range layout {
		pageRect := page.Rect()
		if !pageRect.Intersects(bounds) {
			continue
		}
		r.renderPageBackground(target, toSurface, scale, page, doc, isDark)

		pageSub := clampSurfaceRect(pageRect, bounds, scale, tilePhysical)
		clipTarget := target
		if sub, ok := target.SubImage(pageSub).(*ebiten.Image); ok {
			clipTarget = sub
		}

		for i := range doc.Strokes {
			s := &doc.Strokes[i]
			if s.PageIndex != page.PageIndex {
				continue
			}
			if _, inQuery := strokeSet[s.ID]; !inQuery {
				continue
			}
			r.StrokeRenderer.Render(clipTarget, *s, lod, isDark, resources)
			drawn[s.ID] = struct{}{}
		}
	}

	entry.StrokeIDs = drawn
}

// renderPageBackground fills the page's paper color and, depending on
// Paper, its ruled/grid/dotted pattern, clipped to the page rectangle.
// Drawing happens in surface-pixel coordinates (toSurface), so line widths
// of one surface pixel are one pixel on screen at the band's base zoom
// (spec §4.3); dot radii are 1.2 surface pixels.
func (r *TileRenderer) renderPageBackground(target *ebiten.Image, toSurface func(float64, float64) (float32, float32), scale float64, page PageRect, doc *Document, isDark bool) {
	var paper Page
	if page.PageIndex >= 0 && page.PageIndex < len(doc.Pages) {
		paper = doc.Pages[page.PageIndex]
	}

	x0, y0 := toSurface(page.X, page.Y)
	x1, y1 := toSurface(page.X+page.Width, page.Y+page.Height)
	vector.DrawFilledRect(target, x0, y0, x1-x0, y1-y0, colorToRGBA(paperColor(isDark)), false)

	lineWidth := float32(1.0)
	rule := colorToRGBA(ruleColor(isDark))

	const ruleSpacing = 32.0 // world units between lines/grid cells/dots

	switch paper.Paper {
	case PaperLined:
		for y := page.Y + ruleSpacing; y < page.Y+page.Height; y += ruleSpacing {
			sx0, sy := toSurface(page.X, y)
			sx1, _ := toSurface(page.X+page.Width, y)
			vector.StrokeLine(target, sx0, sy, sx1, sy, lineWidth, rule, false)
		}
	case PaperGrid:
		for y := page.Y + ruleSpacing; y < page.Y+page.Height; y += ruleSpacing {
			sx0, sy := toSurface(page.X, y)
			sx1, _ := toSurface(page.X+page.Width, y)
			vector.StrokeLine(target, sx0, sy, sx1, sy, lineWidth, rule, false)
		}
		for x := page.X + ruleSpacing; x < page.X+page.Width; x += ruleSpacing {
			sx, sy0 := toSurface(x, page.Y)
			_, sy1 := toSurface(x, page.Y+page.Height)
			vector.StrokeLine(target, sx, sy0, sx, sy1, lineWidth, rule, false)
		}
	case PaperDotted:
		dotRadius := float32(1.2)
		for y := page.Y + ruleSpacing; y < page.Y+page.Height; y += ruleSpacing {
			for x := page.X + ruleSpacing; x < page.X+page.Width; x += ruleSpacing {
				sx, sy := toSurface(x, y)
				vector.DrawFilledCircle(target, sx, sy, dotRadius, rule, false)
			}
		}
	case PaperBlank:
		// no pattern
	}
}

// clampSurfaceRect converts a world-space page rectangle to surface pixel
// coordinates relative to the tile, clamped to the tile's own bounds so the
// resulting rect is always a valid SubImage argument.
func clampSurfaceRect(pageRect, tileBounds Rect, scale float64, tilePhysical int) image.Rectangle {
	minX := int((pageRect.X - tileBounds.X) * scale)
	minY := int((pageRect.Y - tileBounds.Y) * scale)
	maxX := int((pageRect.X + pageRect.Width - tileBounds.X) * scale)
	maxY := int((pageRect.Y + pageRect.Height - tileBounds.Y) * scale)

	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX > tilePhysical {
		maxX = tilePhysical
	}
	if maxY > tilePhysical {
		maxY = tilePhysical
	}
	if maxX < minX {
		maxX = minX
	}
	if maxY < minY {
		maxY = minY
	}
	return image.Rect(minX, minY, maxX, maxY)
}
