package statictiles

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// This file provides small, deterministic fakes for the core's external
// collaborators (spec §6), used by this package's own tests. It is not
// gated behind a build tag: the types are unexported and too small to
// warrant a separate internal/testutil package, matching willow's
// self-contained testrunner.go harness style.

// bruteSpatialIndex answers QueryRect by scanning a fixed stroke list —
// correct but not R-tree-fast, which is fine for unit tests exercising a
// handful of strokes.
type bruteSpatialIndex struct {
	strokes []Stroke
}

func newBruteSpatialIndex(strokes []Stroke) *bruteSpatialIndex {
	return &bruteSpatialIndex{strokes: strokes}
}

func (idx *bruteSpatialIndex) QueryRect(minX, minY, maxX, maxY float64) []StrokeID {
	query := Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	var hits []StrokeID
	for _, s := range idx.strokes {
		if s.Bounds.Intersects(query) {
			hits = append(hits, s.ID)
		}
	}
	return hits
}

// recordingStrokeRenderer records which strokes were actually drawn and by
// which invocation, without depending on any real ink rasterization (out of
// scope per spec §1). Tests assert against Rendered rather than pixels.
type recordingStrokeRenderer struct {
	Rendered      []StrokeID
	LastResources any
}

func (r *recordingStrokeRenderer) Render(target *ebiten.Image, stroke Stroke, lod LOD, isDark bool, resources any) {
	r.Rendered = append(r.Rendered, stroke.ID)
	r.LastResources = resources
}

var _ StrokeRenderer = (*recordingStrokeRenderer)(nil)

// fixedThemeSource is a ThemeSource with a constant value.
type fixedThemeSource struct {
	dark bool
}

func (f fixedThemeSource) IsDarkMode() bool { return f.dark }

var _ ThemeSource = fixedThemeSource{}

var _ SpatialIndex = (*bruteSpatialIndex)(nil)

// ebitenTestSurface creates an unmanaged offscreen image suitable as a
// composite destination in tests, mirroring willow's test convention of
// calling ebiten.NewImage directly rather than mocking the graphics API.
func ebitenTestSurface(w, h int) *ebiten.Image {
	return ebiten.NewImageWithOptions(
		image.Rect(0, 0, w, h),
		&ebiten.NewImageOptions{Unmanaged: true},
	)
}

