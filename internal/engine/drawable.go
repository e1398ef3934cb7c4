package engine

import (
	"fmt"
	"log/slog"

	"github.com/pixelmark/pixelmark/backend-go/internal/annotation"
)

const (
	shapeRectangle = annotation.ShapeRectangle
	shapePolygon   = annotation.ShapePolygon
)

// palette is the fixed annotation color cycle. Color assignment is by
// annotation index, so colors are stable across redraws of the same list
// order.
var palette = [7]string{
	"#e6194b", // red
	"#3cb44b", // green
	"#4363d8", // blue
	"#f58231", // orange
	"#911eb4", // purple
	"#42d4f4", // cyan
	"#f032e6", // magenta
}

// PaletteColor returns the deterministic color for an annotation index.
func PaletteColor(index int) string {
	return palette[index%len(palette)]
}

// Tooltip is the hover payload for one drawable. The host positions it at
// the pointer and hides it on pointer-leave.
type Tooltip struct {
	Label      string   `json:"label"`
	ShapeType  string   `json:"shapeType"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Drawable is the rendered composite for one annotation: the fill shape plus
// a label chip and tooltip payload. Drawables are created wholesale when the
// annotation layer is (re)drawn and never mutated shape-by-shape.
type Drawable struct {
	ID    string
	Index int
	Label string
	Color string

	// Canonical shape type ("rectangle" or "polygon").
	ShapeType string

	// Canvas-space geometry. Rectangles fill Shape; polygons fill
	// PolygonPoints with a flattened closed-path vertex list.
	Shape         Rect
	PolygonPoints []float64

	// Axis-aligned canvas-space bounds; the label chip sits above the
	// top-left corner and hit-testing starts here.
	Bounds Rect

	Tooltip Tooltip

	// Source annotation, kept for save snapshots.
	Source annotation.Annotation
}

// BuildDrawable converts one annotation into a drawable for the given fit
// transform. Returns nil for unrecognized shape types or short point lists;
// the skip is logged, never fatal, and drawing of the remaining annotations
// continues.
func BuildDrawable(a annotation.Annotation, index int, scale, offsetX, offsetY float64, logger *slog.Logger) *Drawable {
	if !a.Valid() {
		logger.Warn("skipping malformed annotation",
			"label", a.Label, "shapeType", a.ShapeType, "points", len(a.Points))
		return nil
	}

	d := &Drawable{
		ID:        fmt.Sprintf("anno-%d", index),
		Index:     index,
		Label:     a.Label,
		Color:     PaletteColor(index),
		ShapeType: a.NormalizedShapeType(),
		Tooltip: Tooltip{
			Label:      a.Label,
			ShapeType:  a.NormalizedShapeType(),
			Confidence: a.Confidence,
		},
		Source: a,
	}

	switch d.ShapeType {
	case shapeRectangle:
		p0 := ToCanvas(Point{X: a.Points[0][0], Y: a.Points[0][1]}, scale, offsetX, offsetY)
		p1 := ToCanvas(Point{X: a.Points[1][0], Y: a.Points[1][1]}, scale, offsetX, offsetY)
		// min/abs normalization means corner order never matters.
		d.Shape = Rect{
			X:      min(p0.X, p1.X),
			Y:      min(p0.Y, p1.Y),
			Width:  abs(p1.X - p0.X),
			Height: abs(p1.Y - p0.Y),
		}
		d.Bounds = d.Shape

	case shapePolygon:
		flat := make([]float64, 0, len(a.Points)*2)
		var minX, minY, maxX, maxY float64
		for i, pt := range a.Points {
			cp := ToCanvas(Point{X: pt[0], Y: pt[1]}, scale, offsetX, offsetY)
			flat = append(flat, cp.X, cp.Y)
			if i == 0 {
				minX, minY, maxX, maxY = cp.X, cp.Y, cp.X, cp.Y
				continue
			}
			minX = min(minX, cp.X)
			minY = min(minY, cp.Y)
			maxX = max(maxX, cp.X)
			maxY = max(maxY, cp.Y)
		}
		d.PolygonPoints = flat
		d.Bounds = Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	}

	return d
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
