package engine

import (
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pixelmark/pixelmark/backend-go/internal/annotation"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestBuildDrawableRectangleCornerOrder(t *testing.T) {
	// Either corner may come first; the drawable normalizes to min/abs.
	orders := [][][2]float64{
		{{10, 10}, {50, 50}},
		{{50, 50}, {10, 10}},
		{{50, 10}, {10, 50}},
		{{10, 50}, {50, 10}},
	}

	want := Rect{X: 10, Y: 10, Width: 40, Height: 40}
	for _, pts := range orders {
		a := annotation.Annotation{Label: "box", ShapeType: annotation.ShapeRectangle, Points: pts}
		d := BuildDrawable(a, 0, 1, 0, 0, discard())
		if d == nil {
			t.Fatalf("drawable is nil for points %v", pts)
		}
		if diff := cmp.Diff(want, d.Shape); diff != "" {
			t.Errorf("shape mismatch for points %v (-want +got):\n%s", pts, diff)
		}
	}
}

func TestBuildDrawableAppliesFitTransform(t *testing.T) {
	a := annotation.Annotation{Label: "box", ShapeType: annotation.ShapeBoundingBox, Points: [][2]float64{{0, 0}, {100, 100}}}
	d := BuildDrawable(a, 0, 0.5, 40, 20, discard())
	if d == nil {
		t.Fatal("drawable is nil")
	}

	want := Rect{X: 40, Y: 20, Width: 50, Height: 50}
	if diff := cmp.Diff(want, d.Shape); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}
	if d.ShapeType != annotation.ShapeRectangle {
		t.Errorf("bounding_box not normalized: %q", d.ShapeType)
	}
}

func TestBuildDrawablePolygon(t *testing.T) {
	a := annotation.Annotation{
		Label:     "zone",
		ShapeType: annotation.ShapePolygon,
		Points:    [][2]float64{{0, 0}, {100, 0}, {50, 80}},
	}
	d := BuildDrawable(a, 2, 1, 0, 0, discard())
	if d == nil {
		t.Fatal("drawable is nil")
	}

	wantPoints := []float64{0, 0, 100, 0, 50, 80}
	if diff := cmp.Diff(wantPoints, d.PolygonPoints); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}

	wantBounds := Rect{X: 0, Y: 0, Width: 100, Height: 80}
	if diff := cmp.Diff(wantBounds, d.Bounds); diff != "" {
		t.Errorf("bounds mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDrawableSkipsMalformed(t *testing.T) {
	tests := []struct {
		name string
		a    annotation.Annotation
	}{
		{"polygon with one point", annotation.Annotation{ShapeType: annotation.ShapePolygon, Points: [][2]float64{{0, 0}}}},
		{"polygon with two points", annotation.Annotation{ShapeType: annotation.ShapePolygon, Points: [][2]float64{{0, 0}, {1, 1}}}},
		{"rectangle with one point", annotation.Annotation{ShapeType: annotation.ShapeRectangle, Points: [][2]float64{{0, 0}}}},
		{"unknown shape type", annotation.Annotation{ShapeType: "circle", Points: [][2]float64{{0, 0}, {1, 1}, {2, 2}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := BuildDrawable(tt.a, 0, 1, 0, 0, discard()); d != nil {
				t.Errorf("expected nil drawable, got %+v", d)
			}
		})
	}
}

func TestPaletteColorDeterministic(t *testing.T) {
	if PaletteColor(0) != PaletteColor(7) || PaletteColor(3) != PaletteColor(10) {
		t.Error("palette does not cycle with period 7")
	}
	seen := map[string]bool{}
	for i := 0; i < 7; i++ {
		seen[PaletteColor(i)] = true
	}
	if len(seen) != 7 {
		t.Errorf("palette has %d distinct colors, want 7", len(seen))
	}
}

func TestTooltipCarriesConfidence(t *testing.T) {
	conf := 0.87
	a := annotation.Annotation{
		Label:      "person",
		ShapeType:  annotation.ShapeRectangle,
		Points:     [][2]float64{{0, 0}, {10, 10}},
		Confidence: &conf,
	}
	d := BuildDrawable(a, 0, 1, 0, 0, discard())
	if d == nil {
		t.Fatal("drawable is nil")
	}
	if d.Tooltip.Confidence == nil || *d.Tooltip.Confidence != conf {
		t.Errorf("tooltip confidence = %v, want %v", d.Tooltip.Confidence, conf)
	}
	if d.Tooltip.ShapeType != annotation.ShapeRectangle {
		t.Errorf("tooltip shape type = %q", d.Tooltip.ShapeType)
	}
}
