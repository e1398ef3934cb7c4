package annotation

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizedShapeType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{ShapeRectangle, ShapeRectangle},
		{ShapeBoundingBox, ShapeRectangle},
		{ShapePolygon, ShapePolygon},
		{"circle", "circle"},
	}
	for _, tt := range tests {
		a := Annotation{ShapeType: tt.in}
		if got := a.NormalizedShapeType(); got != tt.want {
			t.Errorf("NormalizedShapeType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		a    Annotation
		want bool
	}{
		{"rectangle with two points", Annotation{ShapeType: ShapeRectangle, Points: [][2]float64{{0, 0}, {1, 1}}}, true},
		{"bounding_box alias", Annotation{ShapeType: ShapeBoundingBox, Points: [][2]float64{{0, 0}, {1, 1}}}, true},
		{"rectangle with one point", Annotation{ShapeType: ShapeRectangle, Points: [][2]float64{{0, 0}}}, false},
		{"polygon with three points", Annotation{ShapeType: ShapePolygon, Points: [][2]float64{{0, 0}, {1, 0}, {0, 1}}}, true},
		{"polygon with two points", Annotation{ShapeType: ShapePolygon, Points: [][2]float64{{0, 0}, {1, 1}}}, false},
		{"unknown shape", Annotation{ShapeType: "line", Points: [][2]float64{{0, 0}, {1, 1}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Valid(); got != tt.want {
				t.Errorf("Valid = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoundingBox(t *testing.T) {
	b, ok := BoundingBox([][2]float64{{50, 10}, {10, 50}, {30, 5}})
	if !ok {
		t.Fatal("BoundingBox returned not-ok")
	}
	want := Bounds{MinX: 10, MinY: 5, MaxX: 50, MaxY: 50}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Errorf("bounds mismatch (-want +got):\n%s", diff)
	}

	if _, ok := BoundingBox(nil); ok {
		t.Error("BoundingBox(nil) reported ok")
	}
}

func TestWireDecoding(t *testing.T) {
	raw := `{"label":"person","shape_type":"bounding_box","points":[[96,40],[260,420]],"confidence":0.91}`
	var a Annotation
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.Label != "person" || !a.Valid() {
		t.Errorf("decoded annotation invalid: %+v", a)
	}
	if a.Confidence == nil || *a.Confidence != 0.91 {
		t.Errorf("confidence = %v, want 0.91", a.Confidence)
	}
	if a.NormalizedShapeType() != ShapeRectangle {
		t.Errorf("shape type = %q, want rectangle", a.NormalizedShapeType())
	}
}

func TestSampleImage(t *testing.T) {
	img := SampleImage()
	if len(img.Annotations) == 0 {
		t.Fatal("sample image has no annotations")
	}
	for i, a := range img.Annotations {
		if !a.Valid() {
			t.Errorf("sample annotation %d invalid: %+v", i, a)
		}
	}
}
