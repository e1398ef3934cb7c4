package engine

import (
	"math"
	"testing"
)

func TestToCanvasToImageRoundTrip(t *testing.T) {
	views := []struct {
		scale, ox, oy float64
	}{
		{1, 0, 0},
		{0.5, 120, -48},
		{0.1, 3.7, 9.1},
		{5, -300, 250},
		{2.25, 33.3, 66.6},
	}
	points := []Point{
		{0, 0}, {1, 1}, {640, 480}, {0.25, 1917.5}, {-10, -3},
	}

	const tol = 1e-9
	for _, v := range views {
		for _, p := range points {
			got := ToImage(ToCanvas(p, v.scale, v.ox, v.oy), v.scale, v.ox, v.oy)
			if math.Abs(got.X-p.X) > tol || math.Abs(got.Y-p.Y) > tol {
				t.Errorf("round trip at scale=%v offset=(%v,%v): got %+v, want %+v",
					v.scale, v.ox, v.oy, got, p)
			}
		}
	}
}

func TestComputeFitScale(t *testing.T) {
	tests := []struct {
		name                         string
		imageW, imageH, stageW, stageH float64
		want                         float64
	}{
		{"image smaller than stage never upscales", 100, 100, 800, 600, 1},
		{"wide image limited by width", 1600, 400, 800, 600, 0.5},
		{"tall image limited by height", 400, 1200, 800, 600, 0.5},
		{"exact fit", 800, 600, 800, 600, 1},
		{"huge image", 8000, 6000, 800, 600, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeFitScale(tt.imageW, tt.imageH, tt.stageW, tt.stageH)
			if got != tt.want {
				t.Errorf("ComputeFitScale = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeFitScaleBounds(t *testing.T) {
	dims := []float64{1, 17, 256, 800, 4096, 1e6}
	for _, iw := range dims {
		for _, ih := range dims {
			for _, sw := range dims {
				for _, sh := range dims {
					s := ComputeFitScale(iw, ih, sw, sh)
					if s > 1 {
						t.Fatalf("fit scale %v > 1 for image %vx%v stage %vx%v", s, iw, ih, sw, sh)
					}
					if s <= 0 {
						t.Fatalf("fit scale %v <= 0 for image %vx%v stage %vx%v", s, iw, ih, sw, sh)
					}
				}
			}
		}
	}
}

func TestComputeCenteredOffset(t *testing.T) {
	// 800x600 stage, 400x400 image at fit scale 1: centered with equal margins.
	ox, oy := ComputeCenteredOffset(400, 400, 800, 600, 1)
	if ox != 200 || oy != 100 {
		t.Errorf("offset = (%v, %v), want (200, 100)", ox, oy)
	}

	// Each axis is centered independently: a full-width image has no x margin.
	ox, oy = ComputeCenteredOffset(1600, 400, 800, 600, 0.5)
	if ox != 0 || oy != 200 {
		t.Errorf("offset = (%v, %v), want (0, 200)", ox, oy)
	}
}

func TestMatrixInvertRoundTrip(t *testing.T) {
	m := ViewMatrix(2.5, 40, -17)
	inv := m.Invert()

	x, y := m.TransformPoint(12, 34)
	bx, by := inv.TransformPoint(x, y)

	const tol = 1e-9
	if math.Abs(bx-12) > tol || math.Abs(by-34) > tol {
		t.Errorf("invert round trip = (%v, %v), want (12, 34)", bx, by)
	}
}
