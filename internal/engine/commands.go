package engine

import "encoding/json"

// DrawCommand is a single drawing operation for the host renderer to
// execute. The host receives the full buffer for the stage on every redraw;
// the engine never diffs.
type DrawCommand struct {
	Op          string    `json:"op"`                    // "stage", "image", "rect", "polygon", "label", "handles"
	ObjectID    string    `json:"objectId,omitempty"`    // for hit correlation
	Transform   []float64 `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Rect        *Rect     `json:"rect,omitempty"`        // for "rect", "label", "handles"
	Points      []float64 `json:"points,omitempty"`      // flattened closed path for "polygon"
	Fill        string    `json:"fill,omitempty"`
	Stroke      string    `json:"stroke,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
	Text        string    `json:"text,omitempty"`        // label text
	URL         string    `json:"url,omitempty"`         // image source for "image"
	Width       float64   `json:"width,omitempty"`       // rendered image size
	Height      float64   `json:"height,omitempty"`
	Tooltip     *Tooltip  `json:"tooltip,omitempty"`
}

const (
	annotationStrokeWidth = 2
	labelChipHeight       = 18
	labelCharWidth        = 7.5
	labelChipPadding      = 8
)

// compileCommands builds the full draw buffer in painter's order: the stage
// transform first, then image layer, annotation layer, overlay layer.
func compileCommands(s *Stage, view Viewport, imageURL string, renderedW, renderedH, fitOffsetX, fitOffsetY float64) []DrawCommand {
	if s == nil {
		return nil
	}

	commands := []DrawCommand{{
		Op:        "stage",
		Transform: ViewMatrix(view.Scale, view.OffsetX, view.OffsetY).ToSlice(),
	}}

	if imageURL != "" {
		commands = append(commands, DrawCommand{
			Op:     "image",
			URL:    imageURL,
			Rect:   &Rect{X: fitOffsetX, Y: fitOffsetY, Width: renderedW, Height: renderedH},
			Width:  renderedW,
			Height: renderedH,
		})
	}

	for _, d := range s.AnnotationLayer.Drawables {
		commands = append(commands, compileDrawable(d)...)
	}

	if len(s.Transformer.Nodes) > 0 {
		bounds := s.Transformer.Bounds()
		commands = append(commands, DrawCommand{
			Op:          "handles",
			Rect:        &bounds,
			Stroke:      "#ffffff",
			StrokeWidth: 1,
		})
	}

	return commands
}

// compileDrawable emits the shape command followed by its label chip, so the
// chip always paints above the fill.
func compileDrawable(d *Drawable) []DrawCommand {
	var commands []DrawCommand

	switch d.ShapeType {
	case shapeRectangle:
		shape := d.Shape
		commands = append(commands, DrawCommand{
			Op:          "rect",
			ObjectID:    d.ID,
			Rect:        &shape,
			Stroke:      d.Color,
			Fill:        d.Color + "33", // translucent fill
			StrokeWidth: annotationStrokeWidth,
			Tooltip:     &d.Tooltip,
		})
	case shapePolygon:
		commands = append(commands, DrawCommand{
			Op:          "polygon",
			ObjectID:    d.ID,
			Points:      d.PolygonPoints,
			Stroke:      d.Color,
			Fill:        d.Color + "33",
			StrokeWidth: annotationStrokeWidth,
			Tooltip:     &d.Tooltip,
		})
	}

	if d.Label != "" {
		chip := Rect{
			X:      d.Bounds.X,
			Y:      d.Bounds.Y - labelChipHeight,
			Width:  float64(len(d.Label))*labelCharWidth + labelChipPadding,
			Height: labelChipHeight,
		}
		commands = append(commands, DrawCommand{
			Op:       "label",
			ObjectID: d.ID,
			Rect:     &chip,
			Fill:     d.Color,
			Text:     d.Label,
		})
	}

	return commands
}

// CommandsToJSON serializes a draw buffer to JSON.
func CommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
