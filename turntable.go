package arbor

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Turntable is the per-frame animation parameter: a rotation about the
// vertical axis that loops from 0 to 360 degrees. It advances on every frame,
// growth or not, and never touches the skeleton.
type Turntable struct {
	tween   *gween.Tween
	period  float32
	elapsed float32
	degrees float32
}

// NewTurntable creates a turntable completing one revolution every
// revolutionSeconds. Non-positive periods freeze it at 0 degrees.
func NewTurntable(revolutionSeconds float64) *Turntable {
	p := float32(revolutionSeconds)
	t := &Turntable{period: p}
	if p > 0 {
		t.tween = gween.New(0, 360, p, ease.Linear)
	}
	return t
}

// Update advances the rotation by dt seconds, wrapping at one revolution.
func (t *Turntable) Update(dt float32) {
	if t.tween == nil || dt <= 0 {
		return
	}
	t.elapsed = float32(math.Mod(float64(t.elapsed+dt), float64(t.period)))
	t.degrees, _ = t.tween.Set(t.elapsed)
}

// Degrees returns the current rotation in [0, 360).
func (t *Turntable) Degrees() float64 {
	return float64(t.degrees)
}

// Radians returns the current rotation in [0, 2π).
func (t *Turntable) Radians() float64 {
	return float64(t.degrees) * math.Pi / 180
}
