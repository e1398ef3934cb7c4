package engine

import "math"

// Point is a position in either image-pixel or canvas space, depending on
// which side of the transform it sits.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToCanvas maps an image-pixel point into canvas space for the given scale
// and offset.
func ToCanvas(p Point, scale, offsetX, offsetY float64) Point {
	return Point{
		X: p.X*scale + offsetX,
		Y: p.Y*scale + offsetY,
	}
}

// ToImage is the exact inverse of ToCanvas.
func ToImage(p Point, scale, offsetX, offsetY float64) Point {
	return Point{
		X: (p.X - offsetX) / scale,
		Y: (p.Y - offsetY) / scale,
	}
}

// ComputeFitScale returns the zoom factor that fits the full image inside the
// stage. Images are never upscaled past 100% on initial fit.
func ComputeFitScale(imageW, imageH, stageW, stageH float64) float64 {
	return math.Min(math.Min(stageW/imageW, stageH/imageH), 1.0)
}

// ComputeCenteredOffset centers the scaled image within the stage, each axis
// independently.
func ComputeCenteredOffset(imageW, imageH, stageW, stageH, fitScale float64) (float64, float64) {
	return (stageW - imageW*fitScale) / 2, (stageH - imageH*fitScale) / 2
}

// Matrix2D is a 2D affine transformation matrix.
// Layout: [a, b, c, d, e, f] representing:
// | a  c  e |
// | b  d  f |
// | 0  0  1 |
type Matrix2D [6]float64

// Identity returns the identity matrix.
func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

// ViewMatrix builds the uniform scale+translate matrix for a viewport state.
func ViewMatrix(scale, offsetX, offsetY float64) Matrix2D {
	return Matrix2D{scale, 0, 0, scale, offsetX, offsetY}
}

// Multiply multiplies this matrix by another: result = m * other.
// This applies 'other' first, then 'm'.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

// TransformPoint applies the matrix to a point.
func (m Matrix2D) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// Invert returns the inverse of the matrix, or Identity if not invertible.
func (m Matrix2D) Invert() Matrix2D {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 {
		return Identity()
	}

	invDet := 1.0 / det
	return Matrix2D{
		m[3] * invDet,
		-m[1] * invDet,
		-m[2] * invDet,
		m[0] * invDet,
		(m[2]*m[5] - m[3]*m[4]) * invDet,
		(m[1]*m[4] - m[0]*m[5]) * invDet,
	}
}

// ToSlice returns the matrix as a float64 slice for JSON serialization.
func (m Matrix2D) ToSlice() []float64 {
	return []float64{m[0], m[1], m[2], m[3], m[4], m[5]}
}
