package render

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// zoomAnim holds an active FitBounds animation.
type zoomAnim struct {
	zoom    *gween.Tween
	targetY *gween.Tween
	done    bool
}

// Camera is a perspective camera looking at Target from Target + Offset*Zoom.
// The scene is rotated about the vertical axis by the angle passed to
// Project, then tilted about X by Pitch.
type Camera struct {
	// Target is the world-space point the camera looks at.
	Target r3.Vector
	// Offset is the eye position relative to Target at Zoom 1.
	Offset r3.Vector
	// Zoom scales Offset (1.0 = default distance, >1 = farther away).
	Zoom float64
	// Pitch tilts the scene about the X axis, in radians.
	Pitch float64
	// FOV is the vertical field of view in radians.
	FOV float64
	// Near and Far clip depths along the view direction.
	Near, Far float64

	// view basis, recomputed when dirty
	eye, right, up, forward r3.Vector
	focal                   float64
	dirty                   bool

	anim *zoomAnim
}

// NewCamera returns a camera at (0, 2.5, 6) looking at (0, 1, 0) with a 60°
// field of view.
func NewCamera() *Camera {
	return &Camera{
		Target: r3.Vector{X: 0, Y: 1, Z: 0},
		Offset: r3.Vector{X: 0, Y: 1.5, Z: 6},
		Zoom:   1,
		FOV:    math.Pi / 3,
		Near:   0.5,
		Far:    20,
		dirty:  true,
	}
}

// MarkDirty forces the view basis to be recomputed. Call after changing
// Target, Offset, Zoom or FOV directly.
func (c *Camera) MarkDirty() {
	c.dirty = true
}

// Eye returns the world-space eye position.
func (c *Camera) Eye() r3.Vector {
	c.computeView()
	return c.eye
}

func (c *Camera) computeView() {
	if !c.dirty {
		return
	}
	c.eye = c.Target.Add(c.Offset.Mul(c.Zoom))
	c.forward = c.Target.Sub(c.eye).Normalize()
	c.right = c.forward.Cross(r3.Vector{X: 0, Y: 1, Z: 0}).Normalize()
	c.up = c.right.Cross(c.forward)
	c.focal = 1 / math.Tan(c.FOV/2)
	c.dirty = false
}

// Project maps a world-space point, rotated by rotation radians about the
// vertical axis, to screen coordinates of a w×h viewport. depth is the
// distance along the view direction. ok is false when the point falls
// outside the near/far range.
func (c *Camera) Project(p r3.Vector, rotation float64, w, h int) (sx, sy, depth float64, ok bool) {
	c.computeView()
	p = c.model(p, rotation)

	d := p.Sub(c.eye)
	depth = d.Dot(c.forward)
	if depth < c.Near || depth > c.Far {
		return 0, 0, depth, false
	}
	aspect := float64(w) / float64(h)
	nx := d.Dot(c.right) * c.focal / (aspect * depth)
	ny := d.Dot(c.up) * c.focal / depth
	sx = (nx + 1) / 2 * float64(w)
	sy = (1 - ny) / 2 * float64(h)
	return sx, sy, depth, true
}

// model applies the turntable rotation about Y, then the pitch about X.
func (c *Camera) model(p r3.Vector, rotation float64) r3.Vector {
	sin, cos := math.Sincos(rotation)
	p = r3.Vector{X: p.X*cos + p.Z*sin, Y: p.Y, Z: -p.X*sin + p.Z*cos}
	if c.Pitch != 0 {
		sin, cos = math.Sincos(c.Pitch)
		p = r3.Vector{X: p.X, Y: p.Y*cos - p.Z*sin, Z: p.Y*sin + p.Z*cos}
	}
	return p
}

// fitRadius is the bounding radius that fills the view at Zoom 1.
const fitRadius = 2.0

// FitBounds animates Zoom and Target.Y over duration seconds so that the
// box [lo, hi] stays in view. The camera never zooms in past 1.
func (c *Camera) FitBounds(lo, hi r3.Vector, duration float32, easeFn ease.TweenFunc) {
	half := hi.Sub(lo).Mul(0.5)
	zoom := math.Max(1, half.Norm()/fitRadius)
	centerY := math.Max(1, lo.Y+half.Y)
	if duration <= 0 {
		c.Zoom = zoom
		c.Target.Y = centerY
		c.anim = nil
		c.dirty = true
		return
	}
	c.anim = &zoomAnim{
		zoom:    gween.New(float32(c.Zoom), float32(zoom), duration, easeFn),
		targetY: gween.New(float32(c.Target.Y), float32(centerY), duration, easeFn),
	}
}

// Update advances an active FitBounds animation by dt seconds.
func (c *Camera) Update(dt float32) {
	if c.anim == nil || c.anim.done {
		return
	}
	z, zDone := c.anim.zoom.Update(dt)
	y, yDone := c.anim.targetY.Update(dt)
	c.Zoom = float64(z)
	c.Target.Y = float64(y)
	c.anim.done = zDone && yDone
	c.dirty = true
}

// Animating reports whether a FitBounds animation is in progress.
func (c *Camera) Animating() bool {
	return c.anim != nil && !c.anim.done
}
