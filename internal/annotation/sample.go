package annotation

// SampleImage returns the built-in playground image context: a small fixed
// annotation set used by anonymous viewer sessions and tests.
func SampleImage() *ImageContext {
	conf := func(v float64) *float64 { return &v }

	return &ImageContext{
		ID:         "img_sample",
		Path:       "/samples/street.jpg",
		PreviewURL: "/assets/img_sample.png",
		Name:       "street.jpg",
		Annotations: []Annotation{
			{
				Label:     "helmet",
				ShapeType: ShapeRectangle,
				Points:    [][2]float64{{120, 48}, {210, 140}},
			},
			{
				Label:      "person",
				ShapeType:  ShapeBoundingBox,
				Points:     [][2]float64{{96, 40}, {260, 420}},
				Confidence: conf(0.91),
			},
			{
				Label:     "crosswalk",
				ShapeType: ShapePolygon,
				Points: [][2]float64{
					{10, 400}, {620, 400}, {560, 470}, {60, 470},
				},
			},
		},
	}
}
