package annotation

// Shape types as they arrive from the upstream parsers. "bounding_box" is an
// alias some exporters emit for "rectangle" and is normalized on read.
const (
	ShapeRectangle   = "rectangle"
	ShapeBoundingBox = "bounding_box"
	ShapePolygon     = "polygon"
)

// Annotation is one labeled geometric region in original image-pixel space.
// Rectangles are encoded as two corner points (order does not matter);
// polygons as an ordered list of at least three vertices.
type Annotation struct {
	Label      string          `json:"label"`
	ShapeType  string          `json:"shape_type"`
	Points     [][2]float64    `json:"points"`
	GroupID    *int            `json:"group_id,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	Flags      map[string]bool `json:"flags,omitempty"`
}

// NormalizedShapeType maps the wire shape_type onto the canonical set.
// "bounding_box" and "rectangle" are treated identically.
func (a Annotation) NormalizedShapeType() string {
	if a.ShapeType == ShapeBoundingBox {
		return ShapeRectangle
	}
	return a.ShapeType
}

// Valid reports whether the annotation has enough points for its shape type.
// Malformed annotations are skipped at the drawing boundary, never fatal.
func (a Annotation) Valid() bool {
	switch a.NormalizedShapeType() {
	case ShapeRectangle:
		return len(a.Points) >= 2
	case ShapePolygon:
		return len(a.Points) >= 3
	default:
		return false
	}
}

// ImageContext is the immutable input to one engine session. Replacing the
// image requires a full engine teardown and re-initialize.
type ImageContext struct {
	ID          string       `json:"id"`
	Path        string       `json:"path"`
	PreviewURL  string       `json:"previewUrl"`
	Name        string       `json:"name"`
	Annotations []Annotation `json:"annotations"`
}

// Bounds is an axis-aligned bounding box in image-pixel space.
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// BoundingBox returns the min/max box over the given points. The second
// return is false when there are no points.
func BoundingBox(points [][2]float64) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b := Bounds{MinX: points[0][0], MinY: points[0][1], MaxX: points[0][0], MaxY: points[0][1]}
	for _, p := range points[1:] {
		b.MinX = min(b.MinX, p[0])
		b.MinY = min(b.MinY, p[1])
		b.MaxX = max(b.MaxX, p[0])
		b.MaxY = max(b.MaxY, p[1])
	}
	return b, true
}
