package statictiles

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// CameraView is the narrow camera interface the core consumes (spec §6).
// Camera math beyond this — rotation, projection, input handling — is the
// host's responsibility and out of scope for this package.
type CameraView interface {
	// ScreenToWorld converts screen coordinates to world coordinates.
	ScreenToWorld(sx, sy float64) (wx, wy float64)
	// WorldToScreen converts world coordinates to screen coordinates.
	WorldToScreen(wx, wy float64) (sx, sy float64)
	// VisibleRect returns the world-space rectangle visible for a surface
	// of the given screen dimensions.
	VisibleRect(screenW, screenH float64) Rect
	// Position returns the world point shown at the top-left screen corner.
	Position() (x, y float64)
	// ZoomLevel returns the current zoom factor (> 0).
	ZoomLevel() float64
}

// scrollAnim holds an active scroll-to tween for camera X and Y.
type scrollAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// Camera is a reference CameraView implementation: world = screen/zoom + cam,
// screen = (world - cam) * zoom (spec §3). Rotation is intentionally not
// modeled — the compositor draws axis-aligned, integer-rounded screen rects
// (spec §4.4) and has no use for a rotated view.
type Camera struct {
	// X and Y are the world-space point shown at the top-left screen corner.
	X, Y float64
	// Zoom is the scale factor (1.0 = no zoom, >1 = zoom in, <1 = zoom out).
	// The host is expected to clamp this to its own range (spec §6 uses
	// [0.1, 5.0]); this package does not enforce a range.
	Zoom float64

	followTarget func() (x, y float64)
	followOffX   float64
	followOffY   float64
	followLerp   float64

	// BoundsEnabled clamps the camera position so the visible area (at the
	// given screen size) stays within Bounds.
	BoundsEnabled bool
	Bounds        Rect
	boundsScreenW float64
	boundsScreenH float64

	scroll *scrollAnim
}

// NewCamera creates a Camera at the origin with zoom 1.
func NewCamera() *Camera {
	return &Camera{Zoom: 1.0}
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	z := c.Zoom
	return sx/z + c.X, sy/z + c.Y
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float64) {
	z := c.Zoom
	return (wx - c.X) * z, (wy - c.Y) * z
}

// VisibleRect returns the world-space rectangle visible on a screen of the
// given dimensions at the camera's current position and zoom. The camera
// position (X, Y) is the world point at the top-left screen corner, matching
// the screen/world conversion formulas above.
func (c *Camera) VisibleRect(screenW, screenH float64) Rect {
	z := c.Zoom
	return Rect{X: c.X, Y: c.Y, Width: screenW / z, Height: screenH / z}
}

// Position returns the camera's world-space top-left corner.
func (c *Camera) Position() (x, y float64) { return c.X, c.Y }

// ZoomLevel returns the current zoom factor.
func (c *Camera) ZoomLevel() float64 { return c.Zoom }

// Follow makes the camera track a moving world-space point with the given
// offset and lerp factor (1.0 snaps immediately; lower values are smoother).
// Convenience only — the core does not call this; the host advances it via
// Update.
func (c *Camera) Follow(target func() (x, y float64), offsetX, offsetY, lerp float64) {
	c.followTarget = target
	c.followOffX = offsetX
	c.followOffY = offsetY
	c.followLerp = lerp
}

// Unfollow stops tracking the current follow target.
func (c *Camera) Unfollow() {
	c.followTarget = nil
}

// ScrollTo animates the camera to the given world position over duration
// seconds.
func (c *Camera) ScrollTo(x, y float64, duration float32, easeFn ease.TweenFunc) {
	c.scroll = &scrollAnim{
		tweenX: gween.New(float32(c.X), float32(x), duration, easeFn),
		tweenY: gween.New(float32(c.Y), float32(y), duration, easeFn),
	}
}

// ScrollToTile scrolls to the center of the given tile in a fixed-size grid.
func (c *Camera) ScrollToTile(tileX, tileY int, tileSize float64, duration float32, easeFn ease.TweenFunc) {
	worldX := float64(tileX)*tileSize + tileSize/2
	worldY := float64(tileY)*tileSize + tileSize/2
	c.ScrollTo(worldX, worldY, duration, easeFn)
}

// SetBounds enables camera bounds clamping for a viewport of the given
// screen size.
func (c *Camera) SetBounds(bounds Rect, screenW, screenH float64) {
	c.BoundsEnabled = true
	c.Bounds = bounds
	c.boundsScreenW = screenW
	c.boundsScreenH = screenH
}

// ClearBounds disables camera bounds clamping.
func (c *Camera) ClearBounds() {
	c.BoundsEnabled = false
}

// Update advances follow, scroll-to, and bounds clamping by dt seconds. Not
// called by any core component — the host drives it, if at all, before
// reading Position()/VisibleRect() for the frame.
func (c *Camera) Update(dt float32) {
	if c.followTarget != nil {
		tx, ty := c.followTarget()
		c.X += (tx + c.followOffX - c.X) * c.followLerp
		c.Y += (ty + c.followOffY - c.Y) * c.followLerp
	}

	if c.scroll != nil {
		if !c.scroll.doneX {
			val, done := c.scroll.tweenX.Update(dt)
			c.X = float64(val)
			c.scroll.doneX = done
		}
		if !c.scroll.doneY {
			val, done := c.scroll.tweenY.Update(dt)
			c.Y = float64(val)
			c.scroll.doneY = done
		}
		if c.scroll.doneX && c.scroll.doneY {
			c.scroll = nil
		}
	}

	if c.BoundsEnabled {
		c.clampToBounds()
	}
}

// clampToBounds restricts the camera's top-left position so the visible
// rect at boundsScreenW x boundsScreenH stays within Bounds.
func (c *Camera) clampToBounds() {
	visW := c.boundsScreenW / c.Zoom
	visH := c.boundsScreenH / c.Zoom

	minX := c.Bounds.X
	maxX := c.Bounds.X + c.Bounds.Width - visW
	minY := c.Bounds.Y
	maxY := c.Bounds.Y + c.Bounds.Height - visH

	if minX > maxX {
		c.X = c.Bounds.X + (c.Bounds.Width-visW)/2
	} else {
		c.X = math.Max(minX, math.Min(c.X, maxX))
	}
	if minY > maxY {
		c.Y = c.Bounds.Y + (c.Bounds.Height-visH)/2
	} else {
		c.Y = math.Max(minY, math.Min(c.Y, maxY))
	}
}

var _ CameraView = (*Camera)(nil)
