package statictiles

import (
	"testing"

	"github.com/tanema/gween/ease"
)

func TestCameraDefaults(t *testing.T) {
	cam := NewCamera()
	if cam.Zoom != 1.0 {
		t.Errorf("Zoom = %f, want 1.0", cam.Zoom)
	}
}

func TestCameraScreenWorldRoundTrip(t *testing.T) {
	cam := NewCamera()
	cam.X, cam.Y, cam.Zoom = 100, 200, 2.0

	wx, wy := cam.ScreenToWorld(50, 50)
	sx, sy := cam.WorldToScreen(wx, wy)
	if !approxEqual(sx, 50, epsilon) || !approxEqual(sy, 50, epsilon) {
		t.Errorf("round trip = (%f,%f), want (50,50)", sx, sy)
	}
}

func TestCameraVisibleRect(t *testing.T) {
	cam := NewCamera()
	cam.X, cam.Y, cam.Zoom = 0, 0, 1.0
	r := cam.VisibleRect(800, 600)
	want := Rect{X: 0, Y: 0, Width: 800, Height: 600}
	if r != want {
		t.Errorf("VisibleRect = %+v, want %+v", r, want)
	}
}

func TestCameraVisibleRectZoomed(t *testing.T) {
	cam := NewCamera()
	cam.Zoom = 2.0
	r := cam.VisibleRect(800, 600)
	if r.Width != 400 || r.Height != 300 {
		t.Errorf("VisibleRect at 2x zoom = %+v, want 400x300", r)
	}
}

func TestCameraScrollTo(t *testing.T) {
	cam := NewCamera()
	cam.ScrollTo(100, 200, 1.0, ease.Linear)
	cam.Update(1.0)
	if !approxEqual(cam.X, 100, 0.01) || !approxEqual(cam.Y, 200, 0.01) {
		t.Errorf("after full duration, camera = (%f,%f), want (100,200)", cam.X, cam.Y)
	}
}

func TestCameraFollow(t *testing.T) {
	cam := NewCamera()
	cam.Follow(func() (float64, float64) { return 100, 100 }, 0, 0, 1.0)
	cam.Update(1.0 / 60.0)
	if cam.X != 100 || cam.Y != 100 {
		t.Errorf("lerp=1.0 should snap immediately, got (%f,%f)", cam.X, cam.Y)
	}
}

func TestCameraBoundsClamp(t *testing.T) {
	cam := NewCamera()
	cam.SetBounds(Rect{X: 0, Y: 0, Width: 1000, Height: 1000}, 800, 600)
	cam.X, cam.Y = -500, -500
	cam.Update(0)
	if cam.X != 0 || cam.Y != 0 {
		t.Errorf("expected clamp to (0,0), got (%f,%f)", cam.X, cam.Y)
	}
}

func TestCameraBoundsSmallerThanViewportCenters(t *testing.T) {
	cam := NewCamera()
	cam.SetBounds(Rect{X: 0, Y: 0, Width: 100, Height: 100}, 800, 600)
	cam.Update(0)
	// visW=800 > bounds width 100: camera centers on the bounds.
	wantX := 0 + (100-800)/2.0
	if !approxEqual(cam.X, wantX, epsilon) {
		t.Errorf("X = %f, want %f", cam.X, wantX)
	}
}
