package engine

// Rect is an axis-aligned bounding box in canvas space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Center returns the center point of the rect.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Layer is one z-ordered drawing surface on the stage. Layers hold drawables
// in painter's order; the compiled command buffer walks them back to front.
type Layer struct {
	Name      string
	Drawables []*Drawable
}

// Transformer is the resize/rotate handle widget attached to the current
// selection. Its node list is the single representation of what is selected.
type Transformer struct {
	Nodes []*Drawable
}

// Bounds returns the combined canvas-space bounding box of the attached
// nodes, or an empty rect when nothing is attached.
func (t *Transformer) Bounds() Rect {
	var result Rect
	for _, n := range t.Nodes {
		result = result.Union(n.Bounds)
	}
	return result
}

// Stage is the root canvas surface. It owns exactly three layers in fixed
// z-order (image < annotations < overlay) plus the transformer widget, which
// lives on the overlay layer so it always renders above annotations.
type Stage struct {
	Width  float64
	Height float64

	ImageLayer      *Layer
	AnnotationLayer *Layer
	OverlayLayer    *Layer

	Transformer *Transformer

	// Stage position as reported by the host's native drag. Read back into
	// the viewport state for external reporting only.
	X float64
	Y float64
}

func newStage(width, height float64) *Stage {
	return &Stage{
		Width:           width,
		Height:          height,
		ImageLayer:      &Layer{Name: "image"},
		AnnotationLayer: &Layer{Name: "annotations"},
		OverlayLayer:    &Layer{Name: "overlay"},
		Transformer:     &Transformer{},
	}
}

// destroy releases layer contents and detaches the transformer. Safe to call
// on an already-destroyed stage.
func (s *Stage) destroy() {
	if s == nil {
		return
	}
	s.ImageLayer.Drawables = nil
	s.AnnotationLayer.Drawables = nil
	s.OverlayLayer.Drawables = nil
	s.Transformer.Nodes = nil
}

// hitTest returns the topmost annotation drawable containing the canvas
// point, or nil. Drawables are tested front to back (reverse painter's
// order); polygon drawables additionally require the point to be inside the
// polygon itself so clicks in the bounding box but outside the outline fall
// through to shapes beneath.
func (s *Stage) hitTest(x, y float64) *Drawable {
	ds := s.AnnotationLayer.Drawables
	for i := len(ds) - 1; i >= 0; i-- {
		d := ds[i]
		if d.Bounds.IsEmpty() || !d.Bounds.Contains(x, y) {
			continue
		}
		if d.ShapeType == shapePolygon && !pointInPolygon(d.PolygonPoints, x, y) {
			continue
		}
		return d
	}
	return nil
}

// pointInPolygon ray-casts against a flattened [x0,y0,x1,y1,...] vertex list.
func pointInPolygon(flat []float64, x, y float64) bool {
	n := len(flat) / 2
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := flat[2*i], flat[2*i+1]
		xj, yj := flat[2*j], flat[2*j+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}
