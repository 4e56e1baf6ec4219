package arbor

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Vertex counts of the emitted primitives.
const (
	cylinderVertices = 18
	leafVertices     = 9
	discVertices     = 3
)

// crossSection is the unit triangle swept along each segment, lying in the
// frame's XZ plane. Its corners double as the outward lateral normals.
var crossSection = func() [3]r3.Vector {
	a := math.Cos(math.Pi / 3)
	b := math.Sin(math.Pi / 3)
	return [3]r3.Vector{
		{X: 0, Y: 0, Z: -1},
		{X: -b, Y: 0, Z: a},
		{X: b, Y: 0, Z: a},
	}
}()

var worldUp = r3.Vector{X: 0, Y: 1, Z: 0}

// Emitter converts a Skeleton into a flat triangle list. It never mutates
// the skeleton.
type Emitter struct {
	cfg MeshConfig
}

// NewEmitter creates an emitter with the given geometry settings.
func NewEmitter(cfg MeshConfig) *Emitter {
	return &Emitter{cfg: cfg}
}

// Config returns a pointer to the emitter's config for live tuning.
func (m *Emitter) Config() *MeshConfig {
	return &m.cfg
}

// VertexCount returns the exact number of vertices Emit will produce for sk.
func (m *Emitter) VertexCount(sk *Skeleton) int {
	n := 0
	for i := range sk.segments {
		s := &sk.segments[i]
		if s.Parent != SegmentID(i) {
			n += cylinderVertices
		}
		if s.IsLeaf && m.cfg.Leaves {
			n += leafVertices
		}
	}
	if m.cfg.Shadows {
		n += discVertices * len(sk.trees)
	}
	if m.cfg.Ground {
		n += discVertices
	}
	return n
}

// Emit clears dst and refills it with the triangles for sk: one tapered
// three-sided tube per non-root segment, a leaf cluster per growing tip,
// then a contact shadow per tree and the ground plane. dst's capacity is
// reused and grown to a high-water mark.
func (m *Emitter) Emit(sk *Skeleton, dst []Vertex) ([]Vertex, error) {
	need := m.VertexCount(sk)
	if cap(dst) < need {
		dst = make([]Vertex, 0, need)
	}
	dst = dst[:0]

	segs := sk.segments
	for i := range segs {
		s := &segs[i]
		tip, err := s.Frame()
		if err != nil {
			return dst[:0], fmt.Errorf("emit segment %d: %w", i, err)
		}
		tip = tip.WithOrigin(s.End())

		if s.Parent != SegmentID(i) {
			p := &segs[s.Parent]
			base, err := p.Frame()
			if err != nil {
				return dst[:0], fmt.Errorf("emit segment %d parent %d: %w", i, s.Parent, err)
			}
			base = base.WithOrigin(s.Position)
			dst = appendCylinder(dst, base, p.Radius, tip, s.Radius, m.cfg.BarkColor)
		}
		if s.IsLeaf && m.cfg.Leaves {
			dst = appendLeaves(dst, tip, s.Radius, m.cfg.LeafSize, m.cfg.LeafColor)
		}
	}

	if m.cfg.Shadows {
		for i := range sk.trees {
			t := &sk.trees[i]
			origin := r3.Vector{X: t.Origin.X, Y: m.cfg.ShadowY, Z: t.Origin.Y}
			dst = appendDisc(dst, origin, t.CanopyRadius, m.cfg.ShadowColor)
		}
	}
	if m.cfg.Ground {
		dst = appendDisc(dst, r3.Vector{X: 0, Y: m.cfg.GroundY, Z: 0}, m.cfg.GroundRadius, m.cfg.GroundColor)
	}
	return dst, nil
}

// appendCylinder appends the six triangles joining the cross-section at f0
// (scaled by r0) to the one at f1 (scaled by r1). Normals are the unscaled
// cross-section corners, which is only approximate for a taper.
func appendCylinder(dst []Vertex, f0 Frame, r0 float64, f1 Frame, r1 float64, c Color) []Vertex {
	var lo, hi [3]Vertex
	for i, v := range crossSection {
		lo[i] = Vertex{Position: f0.Point(v.Mul(r0)), Normal: f0.Normal(v), Color: c}
		hi[i] = Vertex{Position: f1.Point(v.Mul(r1)), Normal: f1.Normal(v), Color: c}
	}
	return append(dst,
		lo[0], lo[1], hi[0],
		lo[1], hi[1], hi[0],
		lo[1], lo[2], hi[1],
		lo[2], hi[2], hi[1],
		lo[2], lo[0], hi[2],
		lo[0], hi[0], hi[2],
	)
}

// appendLeaves appends one small triangle outside each corner of the tip's
// cross-section. All three share the tip's axis as normal.
func appendLeaves(dst []Vertex, f Frame, radius, size float64, c Color) []Vertex {
	normal := f.Normal(worldUp)
	for _, corner := range crossSection {
		center := corner.Mul(radius + size*1.5)
		for _, v := range crossSection {
			dst = append(dst, Vertex{
				Position: f.Point(center.Add(v.Mul(size))),
				Normal:   normal,
				Color:    c,
			})
		}
	}
	return dst
}

// appendDisc appends a horizontal, upward-facing triangle of the given radius
// centered on origin.
func appendDisc(dst []Vertex, origin r3.Vector, radius float64, c Color) []Vertex {
	for _, v := range crossSection {
		dst = append(dst, Vertex{
			Position: origin.Add(v.Mul(radius)),
			Normal:   worldUp,
			Color:    c,
		})
	}
	return dst
}

// Bounds returns the axis-aligned bounding box of the given vertices. Both
// corners are zero for an empty slice.
func Bounds(verts []Vertex) (lo, hi r3.Vector) {
	if len(verts) == 0 {
		return r3.Vector{}, r3.Vector{}
	}
	lo = verts[0].Position
	hi = lo
	for i := 1; i < len(verts); i++ {
		p := verts[i].Position
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		lo.Z = math.Min(lo.Z, p.Z)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
		hi.Z = math.Max(hi.Z, p.Z)
	}
	return lo, hi
}
