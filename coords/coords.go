// Package coords holds the affine and rectangle helpers shared by the engine
// and its backends. Matrices use the PDF row-vector convention:
// [a b c d e f] maps (x, y) to (a*x + c*y + e, b*x + d*y + f).
package coords

import (
	"errors"
	"math"
)

// Matrix is an affine transform in PDF order.
type Matrix [6]float64

func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

// Multiply returns the transform that applies m first and then o.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

type Point struct{ X, Y float64 }

func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

var ErrSingular = errors.New("matrix singular")

func (m Matrix) Inverse() (Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if math.Abs(det) < 1e-10 {
		return Matrix{}, ErrSingular
	}
	return Matrix{
		m[3] / det, -m[1] / det,
		-m[2] / det, m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det,
		(m[1]*m[4] - m[0]*m[5]) / det,
	}, nil
}

// TransformRect returns the axis-aligned bounds of r after applying m.
func (m Matrix) TransformRect(r Rect) Rect {
	corners := [4]Point{
		m.Transform(Point{r.X, r.Y}),
		m.Transform(Point{r.X + r.Dx, r.Y}),
		m.Transform(Point{r.X, r.Y + r.Dy}),
		m.Transform(Point{r.X + r.Dx, r.Y + r.Dy}),
	}
	x0, y0 := corners[0].X, corners[0].Y
	x1, y1 := x0, y0
	for _, c := range corners[1:] {
		x0, x1 = math.Min(x0, c.X), math.Max(x1, c.X)
		y0, y1 = math.Min(y0, c.Y), math.Max(y1, c.Y)
	}
	return Rect{X: x0, Y: y0, Dx: x1 - x0, Dy: y1 - y0}
}

func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }
func Scale(sx, sy float64) Matrix     { return Matrix{sx, 0, 0, sy, 0, 0} }

// Rotate rotates by angle radians.
func Rotate(angle float64) Matrix {
	c, s := math.Cos(angle), math.Sin(angle)
	return Matrix{c, s, -s, c, 0, 0}
}

// RotateDegrees is Rotate for degrees, exact for quarter turns.
func RotateDegrees(deg int) Matrix {
	switch deg % 360 {
	case 0:
		return Identity()
	case 90, -270:
		return Matrix{0, 1, -1, 0, 0, 0}
	case 180, -180:
		return Matrix{-1, 0, 0, -1, 0, 0}
	case 270, -90:
		return Matrix{0, -1, 1, 0, 0, 0}
	}
	return Rotate(float64(deg) * math.Pi / 180)
}

// NormalizeRotation maps any angle in degrees onto 0, 90, 180 or 270,
// snapping to the nearest quarter turn.
func NormalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return ((deg + 45) / 90 * 90) % 360
}

// ViewMatrix maps page space to device space for the given zoom and
// rotation. The rotated page bounds are moved back to the origin so device
// coordinates are never negative.
func ViewMatrix(page Rect, zoom float64, rotation int) Matrix {
	m := Translate(-page.X, -page.Y).
		Multiply(RotateDegrees(NormalizeRotation(rotation))).
		Multiply(Scale(zoom, zoom))
	b := m.TransformRect(page)
	return m.Multiply(Translate(-b.X, -b.Y))
}

// PageMatrix maps PDF user space (y up) inside box to page space (y down,
// origin at the top-left of the displayed page) honoring the page /Rotate.
func PageMatrix(box NativeRect, rotate int) Matrix {
	box = box.Normalize()
	m := Translate(-box.X0, -box.Y1).
		Multiply(Scale(1, -1)).
		Multiply(RotateDegrees(NormalizeRotation(rotate)))
	b := m.TransformRect(FromNative(box))
	return m.Multiply(Translate(-b.X, -b.Y))
}
