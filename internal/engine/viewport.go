package engine

import "math"

// Scale bounds enforced at every mutation site.
const (
	MinScale = 0.1
	MaxScale = 5.0
)

// Zoom step factors. Wheel zoom uses the classic 0.9/1.1 multiplier; the
// explicit zoom buttons take a slightly larger step.
const (
	wheelZoomOutFactor = 0.9
	wheelZoomInFactor  = 1.1
	buttonZoomFactor   = 1.2
)

// Viewport is the single source of viewport truth: the stage-level zoom and
// offset applied on top of the image's base fit transform. Scale and offset
// always change together as one atomic update.
type Viewport struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// NewViewport returns the origin viewport: scale 1, no offset.
func NewViewport() Viewport {
	return Viewport{Scale: 1}
}

// ClampScale clamps a scale value to [MinScale, MaxScale].
func ClampScale(s float64) float64 {
	return math.Min(math.Max(s, MinScale), MaxScale)
}

// WheelZoom multiplies the scale by the wheel factor and recomputes the
// offset so the content point under the pointer stays fixed.
func (v Viewport) WheelZoom(pointer Point, deltaY float64) Viewport {
	factor := wheelZoomInFactor
	if deltaY > 0 {
		factor = wheelZoomOutFactor
	}
	return v.zoomAnchored(pointer, ClampScale(v.Scale*factor))
}

// ZoomIn steps the scale up, anchored at the stage center.
func (v Viewport) ZoomIn(stageW, stageH float64) Viewport {
	return v.zoomAnchored(Point{X: stageW / 2, Y: stageH / 2}, ClampScale(v.Scale*buttonZoomFactor))
}

// ZoomOut steps the scale down, anchored at the stage center.
func (v Viewport) ZoomOut(stageW, stageH float64) Viewport {
	return v.zoomAnchored(Point{X: stageW / 2, Y: stageH / 2}, ClampScale(v.Scale/buttonZoomFactor))
}

// zoomAnchored rescales while keeping the content point under the anchor
// fixed: solve for the offset that maps the pre-zoom content point back to
// the anchor at the new scale.
func (v Viewport) zoomAnchored(anchor Point, newScale float64) Viewport {
	content := ToImage(anchor, v.Scale, v.OffsetX, v.OffsetY)
	return Viewport{
		Scale:   newScale,
		OffsetX: anchor.X - content.X*newScale,
		OffsetY: anchor.Y - content.Y*newScale,
	}
}

// Reset returns the explicit origin reset: scale 1, offset (0,0). This is
// not fit-to-screen.
func (v Viewport) Reset() Viewport {
	return Viewport{Scale: 1}
}

// FitToScreen recomputes the scale from the image's base rendered dimensions
// (natural size times fit scale, not natural pixels) and zeroes the offset.
func (v Viewport) FitToScreen(containerW, containerH, renderedW, renderedH float64) Viewport {
	if renderedW <= 0 || renderedH <= 0 {
		return v.Reset()
	}
	scale := math.Min(math.Min(containerW/renderedW, containerH/renderedH), 1.0)
	return Viewport{Scale: ClampScale(scale)}
}

// WithPosition records a host-native drag position. The drag itself is
// handled by the underlying renderer; the engine only reads the position
// back for external reporting.
func (v Viewport) WithPosition(x, y float64) Viewport {
	return Viewport{Scale: v.Scale, OffsetX: x, OffsetY: y}
}
