package statictiles

import "testing"

func approxEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < eps
}

const epsilon = 1e-9

func TestRectIntersectsAdjacent(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 10, Y: 0, Width: 10, Height: 10}
	if !a.Intersects(b) {
		t.Error("adjacent rects sharing an edge should intersect")
	}
}

func TestRectIntersectsDisjoint(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 11, Y: 0, Width: 10, Height: 10}
	if a.Intersects(b) {
		t.Error("disjoint rects should not intersect")
	}
}

func TestRectExpand(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 20, Height: 20}
	e := r.Expand(5)
	want := Rect{X: 5, Y: 5, Width: 30, Height: 30}
	if e != want {
		t.Errorf("Expand(5) = %+v, want %+v", e, want)
	}
}

func TestUnionRect(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}
	u := unionRect(a, b)
	want := Rect{X: 0, Y: 0, Width: 15, Height: 15}
	if u != want {
		t.Errorf("unionRect = %+v, want %+v", u, want)
	}
}

func TestInvertAffineRoundTrip(t *testing.T) {
	m := [6]float64{2, 0, 0, 2, 10, 20}
	inv := invertAffine(m)
	x, y := transformPoint(m, 3, 4)
	x2, y2 := transformPoint(inv, x, y)
	if !approxEqual(x2, 3, epsilon) || !approxEqual(y2, 4, epsilon) {
		t.Errorf("round-trip = (%f,%f), want (3,4)", x2, y2)
	}
}

func TestInvertAffineSingular(t *testing.T) {
	m := [6]float64{0, 0, 0, 0, 5, 5}
	inv := invertAffine(m)
	if inv != identityTransform {
		t.Errorf("singular matrix should invert to identity, got %v", inv)
	}
}

func TestMultiplyAffineIdentity(t *testing.T) {
	m := [6]float64{2, 1, 3, 4, 5, 6}
	got := multiplyAffine(identityTransform, m)
	if got != m {
		t.Errorf("identity * m = %v, want %v", got, m)
	}
}
