package nav

import "math"

// Vec2 is a position or direction on the ground plane.
// X and Z follow the world axes; there is no height component.
type Vec2 struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Z - o.Z} }

// Scale returns v * s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Z * s} }

// Dot returns the dot product.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Z*o.Z }

// Len returns the Euclidean length.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Z) }

// Normalize returns a unit vector, or the zero vector when v is zero or not finite.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 || math.IsInf(l, 0) || math.IsNaN(l) {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Z / l}
}

// IsZero reports whether both components are zero.
func (v Vec2) IsZero() bool { return v.X == 0 && v.Z == 0 }

// lerp is the scalar linear interpolation used by bilinear sampling.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// quadLerp interpolates the four corners of a unit cell.
//
//	a(0,0) --- b(1,0)
//	  |          |
//	d(0,1) --- c(1,1)
func quadLerp(a, b, c, d, u, v float64) float64 {
	return lerp(lerp(a, b, u), lerp(d, c, u), v)
}
