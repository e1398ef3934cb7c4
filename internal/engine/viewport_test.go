package engine

import (
	"math"
	"math/rand"
	"testing"
)

func TestScaleClampInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	v := NewViewport()

	for i := 0; i < 2000; i++ {
		switch rng.Intn(4) {
		case 0:
			v = v.WheelZoom(Point{X: rng.Float64() * 800, Y: rng.Float64() * 600}, 1)
		case 1:
			v = v.WheelZoom(Point{X: rng.Float64() * 800, Y: rng.Float64() * 600}, -1)
		case 2:
			v = v.ZoomIn(800, 600)
		case 3:
			v = v.ZoomOut(800, 600)
		}
		if v.Scale < MinScale || v.Scale > MaxScale {
			t.Fatalf("scale %v escaped [%v, %v] after %d steps", v.Scale, MinScale, MaxScale, i+1)
		}
	}
}

func TestWheelZoomCursorAnchoring(t *testing.T) {
	pointers := []Point{{0, 0}, {400, 300}, {799, 1}, {123.4, 567.8}}
	const tol = 1e-9

	for _, p := range pointers {
		v := Viewport{Scale: 1.7, OffsetX: -42, OffsetY: 88}
		before := ToImage(p, v.Scale, v.OffsetX, v.OffsetY)

		for _, deltaY := range []float64{-1, -1, 1, -1, 1, 1} {
			v = v.WheelZoom(p, deltaY)
			after := ToImage(p, v.Scale, v.OffsetX, v.OffsetY)
			if math.Abs(after.X-before.X) > tol || math.Abs(after.Y-before.Y) > tol {
				t.Fatalf("content slid under pointer %+v: before %+v, after %+v", p, before, after)
			}
		}
	}
}

func TestWheelZoomDirection(t *testing.T) {
	v := NewViewport()
	if got := v.WheelZoom(Point{}, -1).Scale; got != 1.1 {
		t.Errorf("zoom in scale = %v, want 1.1", got)
	}
	if got := v.WheelZoom(Point{}, 1).Scale; got != 0.9 {
		t.Errorf("zoom out scale = %v, want 0.9", got)
	}
}

func TestResetZoomIsOrigin(t *testing.T) {
	v := Viewport{Scale: 3.2, OffsetX: 150, OffsetY: -90}
	got := v.Reset()
	want := Viewport{Scale: 1}
	if got != want {
		t.Errorf("Reset = %+v, want %+v", got, want)
	}
}

func TestFitToScreen(t *testing.T) {
	v := Viewport{Scale: 4, OffsetX: 99, OffsetY: 99}

	// Rendered content twice the container: fit halves the scale, offset zeroed.
	got := v.FitToScreen(800, 600, 1600, 1200)
	want := Viewport{Scale: 0.5}
	if got != want {
		t.Errorf("FitToScreen = %+v, want %+v", got, want)
	}

	// Content already smaller than the container: capped at 1, never upscaled.
	got = v.FitToScreen(800, 600, 200, 100)
	want = Viewport{Scale: 1}
	if got != want {
		t.Errorf("FitToScreen small content = %+v, want %+v", got, want)
	}
}

func TestScaleAndOffsetChangeAtomically(t *testing.T) {
	v := Viewport{Scale: 1, OffsetX: 50, OffsetY: 50}
	next := v.WheelZoom(Point{X: 100, Y: 100}, -1)
	if next.Scale == v.Scale {
		t.Fatal("scale did not change")
	}
	if next.OffsetX == v.OffsetX && next.OffsetY == v.OffsetY {
		t.Error("offset unchanged after anchored zoom away from origin")
	}
}

func TestWithPositionKeepsScale(t *testing.T) {
	v := Viewport{Scale: 2.5, OffsetX: 1, OffsetY: 2}
	got := v.WithPosition(-30, 44)
	want := Viewport{Scale: 2.5, OffsetX: -30, OffsetY: 44}
	if got != want {
		t.Errorf("WithPosition = %+v, want %+v", got, want)
	}
}
