package arbor

import (
	"math"
	"math/rand/v2"

	"github.com/golang/geo/r3"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Alpha is carried for collaborators that want it; the emitter always writes 1.
type Color struct {
	R, G, B, A float64
}

// Default vertex colors for flat-shaded geometry.
var (
	ColorBark   = Color{1, 1, 1, 1}
	ColorLeaf   = Color{0.2, 1, 0.2, 1}
	ColorShadow = Color{0.6, 0.6, 0.6, 1}
	ColorGround = Color{0.7, 0.7, 0.7, 1}
)

// Vec2 is a point on the horizontal ground plane. X maps to world X and Y maps
// to world Z.
type Vec2 struct {
	X, Y float64
}

// Dist returns the euclidean distance between v and o.
func (v Vec2) Dist(o Vec2) float64 {
	return math.Hypot(v.X-o.X, v.Y-o.Y)
}

// horizontal projects a world-space point onto the ground plane.
func horizontal(p r3.Vector) Vec2 {
	return Vec2{X: p.X, Y: p.Z}
}

// Rect is an axis-aligned rectangle on the ground plane.
type Rect struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Vec2 {
	return Vec2{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// randomPoint returns a uniformly distributed point inside r.
func (r Rect) randomPoint(rng *rand.Rand) Vec2 {
	return Vec2{
		X: r.X + rng.Float64()*r.Width,
		Y: r.Y + rng.Float64()*r.Height,
	}
}

// Range is a general-purpose min/max range.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Random returns a random float64 in [Min, Max) drawn from rng.
func (r Range) Random(rng *rand.Rand) float64 {
	if r.Min == r.Max {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Vertex is one corner of an emitted triangle. Every three consecutive
// vertices in a mesh form one triangle; there is no index buffer.
type Vertex struct {
	Position r3.Vector
	Normal   r3.Vector
	Color    Color
}

// SegmentID identifies a segment in a Skeleton. IDs are indices into the
// append-only store and stay valid as the store grows.
type SegmentID int32

// TreeID identifies a tree planted in a Skeleton.
type TreeID int32
