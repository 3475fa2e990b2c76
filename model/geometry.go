package model

import "math"

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Length returns the Euclidean norm.
func (v Vec3) Length() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// MaxComponent returns the largest component.
func (v Vec3) MaxComponent() float64 { return max(v.X, v.Y, v.Z) }

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Vec3
}

// Center returns the box center.
func (b Box) Center() Vec3 { return b.Min.Add(b.Max).Scale(0.5) }

// Size returns the box extent per axis.
func (b Box) Size() Vec3 { return b.Max.Sub(b.Min) }

// Mat4 is a 4x4 matrix stored column-major, as uploaded to shaders.
type Mat4 [16]float64

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate returns a translation matrix.
func Translate(t Vec3) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	return m
}

// RotateY returns a rotation of angle radians about the Y axis.
func RotateY(angle float64) Mat4 {
	s, c := math.Sincos(angle)
	m := Identity()
	m[0], m[2] = c, -s
	m[8], m[10] = s, c
	return m
}

// Mul returns m * o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for col := range 4 {
		for row := range 4 {
			var sum float64
			for k := range 4 {
				sum += m[k*4+row] * o[col*4+k]
			}
			r[col*4+row] = sum
		}
	}
	return r
}

// MulPoint transforms p as a homogeneous point (w = 1) and divides by w.
func (m Mat4) MulPoint(p Vec3) Vec3 {
	x := m[0]*p.X + m[4]*p.Y + m[8]*p.Z + m[12]
	y := m[1]*p.X + m[5]*p.Y + m[9]*p.Z + m[13]
	z := m[2]*p.X + m[6]*p.Y + m[10]*p.Z + m[14]
	w := m[3]*p.X + m[7]*p.Y + m[11]*p.Z + m[15]
	if w != 0 && w != 1 {
		return Vec3{x / w, y / w, z / w}
	}
	return Vec3{x, y, z}
}

// Frustum is the per-frame view handed to the scheduler.
type Frustum struct {
	// ModelView maps world space into eye space; the eye sits at the origin.
	ModelView Mat4
	// FovY is the vertical field of view in radians.
	FovY float64
	// ViewportHeight is the target height in pixels.
	ViewportHeight float64
}

// NewFrustum returns a frustum with the given model-view matrix and a
// 60 degree field of view over a 1080 pixel viewport.
func NewFrustum(modelView Mat4) Frustum {
	return Frustum{
		ModelView:      modelView,
		FovY:           math.Pi / 3,
		ViewportHeight: 1080,
	}
}

// EyeDistance returns the distance between the viewpoint and p.
func (f Frustum) EyeDistance(p Vec3) float64 {
	return f.ModelView.MulPoint(p).Length()
}
