package arbor

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// ErrDegenerateFrame is returned when a direction/up pair cannot produce an
// orthonormal basis: either vector is near zero or not finite, or the two are
// parallel.
var ErrDegenerateFrame = errors.New("arbor: degenerate frame")

// frameEpsilon bounds the smallest vector length and the smallest sine of the
// angle between direction and up that NewFrame accepts.
const frameEpsilon = 1e-9

// Frame is a right-handed orthonormal basis with a translation. Y runs along
// the segment direction, X and Z span the cross-section plane.
type Frame struct {
	X, Y, Z r3.Vector
	Origin  r3.Vector
}

// NewFrame builds a frame from a direction and an approximate up vector.
// Neither needs to be unit length and up need not be orthogonal to dir; it is
// re-orthogonalized here. The origin is zero; see WithOrigin.
//
//	Y = normalize(dir)
//	X = normalize(Y × normalize(up))
//	Z = X × Y
func NewFrame(dir, up r3.Vector) (Frame, error) {
	dn := dir.Norm()
	un := up.Norm()
	if !usableNorm(dn) || !usableNorm(un) {
		return Frame{}, fmt.Errorf("%w: dir %v up %v", ErrDegenerateFrame, dir, up)
	}
	y := dir.Mul(1 / dn)
	x := y.Cross(up.Mul(1 / un))
	xn := x.Norm()
	if !usableNorm(xn) {
		return Frame{}, fmt.Errorf("%w: dir %v parallel to up %v", ErrDegenerateFrame, dir, up)
	}
	x = x.Mul(1 / xn)
	return Frame{X: x, Y: y, Z: x.Cross(y)}, nil
}

// usableNorm reports whether n is finite and at least frameEpsilon. NaN fails
// both comparisons.
func usableNorm(n float64) bool {
	return n >= frameEpsilon && !math.IsInf(n, 1)
}

// WithOrigin returns a copy of f translated to p.
func (f Frame) WithOrigin(p r3.Vector) Frame {
	f.Origin = p
	return f
}

// Point transforms v from frame-local coordinates to world space (w = 1).
func (f Frame) Point(v r3.Vector) r3.Vector {
	return f.Normal(v).Add(f.Origin)
}

// Normal transforms a direction by the linear part of the frame only (w = 0).
func (f Frame) Normal(v r3.Vector) r3.Vector {
	return f.X.Mul(v.X).Add(f.Y.Mul(v.Y)).Add(f.Z.Mul(v.Z))
}

// Matrix returns the frame as a column-major 4x4 homogeneous matrix, the
// layout GPU uniform uploads expect.
func (f Frame) Matrix() [16]float64 {
	return [16]float64{
		f.X.X, f.X.Y, f.X.Z, 0,
		f.Y.X, f.Y.Y, f.Y.Z, 0,
		f.Z.X, f.Z.Y, f.Z.Z, 0,
		f.Origin.X, f.Origin.Y, f.Origin.Z, 1,
	}
}
