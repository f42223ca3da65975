package coords

import "math"

// Rect is the engine rectangle: an origin plus a size.
type Rect struct {
	X, Y   float64
	Dx, Dy float64
}

func (r Rect) IsEmpty() bool { return r.Dx <= 0 || r.Dy <= 0 }

func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Dx * r.Dy
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Dx && p.Y >= r.Y && p.Y <= r.Y+r.Dy
}

func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := math.Max(r.X, o.X), math.Max(r.Y, o.Y)
	x1, y1 := math.Min(r.X+r.Dx, o.X+o.Dx), math.Min(r.Y+r.Dy, o.Y+o.Dy)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Dx: x1 - x0, Dy: y1 - y0}
}

func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	x0, y0 := math.Min(r.X, o.X), math.Min(r.Y, o.Y)
	x1, y1 := math.Max(r.X+r.Dx, o.X+o.Dx), math.Max(r.Y+r.Dy, o.Y+o.Dy)
	return Rect{X: x0, Y: y0, Dx: x1 - x0, Dy: y1 - y0}
}

// ToNative converts to corner form. Negative sizes are folded so that
// X0 <= X1 and Y0 <= Y1.
func (r Rect) ToNative() NativeRect {
	return NativeRect{X0: r.X, Y0: r.Y, X1: r.X + r.Dx, Y1: r.Y + r.Dy}.Normalize()
}

// NativeRect is the corner form used by the parsing backend.
type NativeRect struct {
	X0, Y0 float64
	X1, Y1 float64
}

// Normalize orders the corners. Zero-width or zero-height rects stay
// degenerate; they are never given a negative extent.
func (n NativeRect) Normalize() NativeRect {
	if n.X1 < n.X0 {
		n.X0, n.X1 = n.X1, n.X0
	}
	if n.Y1 < n.Y0 {
		n.Y0, n.Y1 = n.Y1, n.Y0
	}
	return n
}

func (n NativeRect) IsEmpty() bool { return n.X1 <= n.X0 || n.Y1 <= n.Y0 }

func (n NativeRect) Intersect(o NativeRect) NativeRect {
	r := NativeRect{
		X0: math.Max(n.X0, o.X0), Y0: math.Max(n.Y0, o.Y0),
		X1: math.Min(n.X1, o.X1), Y1: math.Min(n.Y1, o.Y1),
	}
	if r.IsEmpty() {
		return NativeRect{}
	}
	return r
}

// FromNative converts corner form to the engine rectangle.
func FromNative(n NativeRect) Rect {
	n = n.Normalize()
	return Rect{X: n.X0, Y: n.Y0, Dx: n.X1 - n.X0, Dy: n.Y1 - n.Y0}
}
