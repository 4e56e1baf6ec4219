package arbor

import (
	"slices"
	"testing"

	"github.com/golang/geo/r3"
)

// grownSkeleton returns a small forest after ticks growth ticks.
func grownSkeleton(t testing.TB, ticks int) *Skeleton {
	t.Helper()
	e := newTestEngine(t, 31, Vec2{}, Vec2{X: 1, Y: -1})
	for range ticks {
		mustStep(t, e)
	}
	return e.Skeleton()
}

func TestEmitShootOnly(t *testing.T) {
	sk := NewSkeleton(0)
	sk.Plant(Vec2{})
	m := NewEmitter(DefaultMeshConfig())

	out, err := m.Emit(sk, nil)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	// Root segments have no tube: one leaf cluster, one shadow, the ground.
	if want := leafVertices + 2*discVertices; len(out) != want {
		t.Fatalf("len = %d, want %d", len(out), want)
	}
	if got := m.VertexCount(sk); got != len(out) {
		t.Errorf("VertexCount = %d, Emit produced %d", got, len(out))
	}
}

func TestEmitVertexCountFormula(t *testing.T) {
	for _, ticks := range []int{0, 1, 5, 20} {
		sk := grownSkeleton(t, ticks)
		st := sk.Stats()
		m := NewEmitter(DefaultMeshConfig())
		out, err := m.Emit(sk, nil)
		if err != nil {
			t.Fatalf("ticks %d: Emit: %v", ticks, err)
		}
		want := (st.Segments-st.Roots)*cylinderVertices + st.Leaves*leafVertices +
			discVertices*sk.NumTrees() + discVertices
		if len(out) != want {
			t.Errorf("ticks %d: len = %d, want %d", ticks, len(out), want)
		}
		if len(out)%3 != 0 {
			t.Errorf("ticks %d: len = %d is not a whole number of triangles", ticks, len(out))
		}
		if got := m.VertexCount(sk); got != len(out) {
			t.Errorf("ticks %d: VertexCount = %d, want %d", ticks, got, len(out))
		}
	}
}

func TestEmitCylinderCorners(t *testing.T) {
	sk := NewSkeleton(0)
	sk.Plant(Vec2{})
	sk.Segment(0).IsLeaf = false
	sk.Append(Segment{
		Position:  r3.Vector{X: 0, Y: 0.1, Z: 0},
		Direction: r3.Vector{X: 0, Y: 0.05, Z: 0},
		Up:        r3.Vector{X: 0, Y: 0, Z: 1},
		Radius:    0.02,
		IsLeaf:    false,
		Parent:    0,
		Tree:      0,
	})
	m := NewEmitter(MeshConfig{BarkColor: ColorBark})

	out, err := m.Emit(sk, nil)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(out) != cylinderVertices {
		t.Fatalf("len = %d, want %d", len(out), cylinderVertices)
	}

	tests := []struct {
		i      int
		pos    r3.Vector
		normal r3.Vector
	}{
		// Base ring uses the parent's radius, tip ring the segment's own.
		{0, r3.Vector{X: 0, Y: 0.1, Z: -0.01}, r3.Vector{X: 0, Y: 0, Z: -1}},
		{2, r3.Vector{X: 0, Y: 0.15, Z: -0.02}, r3.Vector{X: 0, Y: 0, Z: -1}},
		{3, r3.Vector{X: -0.01 * 0.8660254037844386, Y: 0.1, Z: 0.005}, r3.Vector{X: -0.8660254037844386, Y: 0, Z: 0.5}},
		{13, r3.Vector{X: 0, Y: 0.1, Z: -0.01}, r3.Vector{X: 0, Y: 0, Z: -1}},
	}
	for _, tt := range tests {
		v := out[tt.i]
		if !vecApproxEqual(v.Position, tt.pos, epsilon) {
			t.Errorf("out[%d].Position = %v, want %v", tt.i, v.Position, tt.pos)
		}
		if !vecApproxEqual(v.Normal, tt.normal, epsilon) {
			t.Errorf("out[%d].Normal = %v, want %v", tt.i, v.Normal, tt.normal)
		}
		if v.Color != ColorBark {
			t.Errorf("out[%d].Color = %v, want bark", tt.i, v.Color)
		}
	}

	// Every side normal is horizontal for an upright tube.
	for i, v := range out {
		if !approxEqual(v.Normal.Y, 0, epsilon) || !approxEqual(v.Normal.Norm(), 1, epsilon) {
			t.Errorf("out[%d].Normal = %v, want unit horizontal", i, v.Normal)
		}
	}
}

func TestEmitLeaves(t *testing.T) {
	sk := NewSkeleton(0)
	sk.Plant(Vec2{})
	m := NewEmitter(MeshConfig{Leaves: true, LeafSize: 0.1, LeafColor: ColorLeaf})

	out, err := m.Emit(sk, nil)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(out) != leafVertices {
		t.Fatalf("len = %d, want %d", len(out), leafVertices)
	}
	// The first leaf sits outside the first corner at radius + 1.5 × size.
	if want := (r3.Vector{X: 0, Y: 0.1, Z: -0.26}); !vecApproxEqual(out[0].Position, want, epsilon) {
		t.Errorf("out[0].Position = %v, want %v", out[0].Position, want)
	}
	for i, v := range out {
		if !vecApproxEqual(v.Normal, r3.Vector{X: 0, Y: 1, Z: 0}, epsilon) {
			t.Errorf("out[%d].Normal = %v, want the shoot axis", i, v.Normal)
		}
		if v.Color != ColorLeaf {
			t.Errorf("out[%d].Color = %v, want leaf", i, v.Color)
		}
		if !approxEqual(v.Position.Y, 0.1, epsilon) {
			t.Errorf("out[%d] off the tip plane: %v", i, v.Position)
		}
	}
}

func TestEmitLeavesFollowTipAxis(t *testing.T) {
	sk := grownSkeleton(t, 8)
	m := NewEmitter(MeshConfig{Leaves: true, LeafSize: 0.1})
	out, err := m.Emit(sk, nil)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	// Store order: each non-root segment's tube, then its leaves if it is a tip.
	idx := 0
	for i, s := range sk.Segments() {
		if !sk.IsRoot(SegmentID(i)) {
			idx += cylinderVertices
		}
		if !s.IsLeaf {
			continue
		}
		axis := s.Direction.Normalize()
		for j := idx; j < idx+leafVertices; j++ {
			if !vecApproxEqual(out[j].Normal, axis, 1e-9) {
				t.Fatalf("segment %d leaf vertex %d normal = %v, want %v", i, j, out[j].Normal, axis)
			}
		}
		idx += leafVertices
	}
	if idx != len(out) {
		t.Errorf("walked %d vertices, mesh has %d", idx, len(out))
	}
}

func TestEmitDiscs(t *testing.T) {
	sk := NewSkeleton(0)
	sk.Plant(Vec2{X: 1, Y: 2})
	sk.Segment(0).IsLeaf = false
	sk.Append(Segment{
		Position:  r3.Vector{X: 1, Y: 0.1, Z: 2},
		Direction: r3.Vector{X: 0.3, Y: 0, Z: 0.4},
		Up:        r3.Vector{X: 0, Y: 1, Z: 0},
		Radius:    0.01,
		Parent:    0,
	})
	cfg := MeshConfig{
		Shadows:      true,
		Ground:       true,
		ShadowY:      -0.05,
		GroundY:      -0.1,
		GroundRadius: 4,
		ShadowColor:  ColorShadow,
		GroundColor:  ColorGround,
	}
	out, err := NewEmitter(cfg).Emit(sk, nil)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if want := cylinderVertices + 2*discVertices; len(out) != want {
		t.Fatalf("len = %d, want %d", len(out), want)
	}

	shadow := out[cylinderVertices : cylinderVertices+discVertices]
	if want := (r3.Vector{X: 1, Y: -0.05, Z: 1.5}); !vecApproxEqual(shadow[0].Position, want, epsilon) {
		t.Errorf("shadow[0] = %v, want %v (canopy radius 0.5)", shadow[0].Position, want)
	}
	ground := out[len(out)-discVertices:]
	if want := (r3.Vector{X: 0, Y: -0.1, Z: -4}); !vecApproxEqual(ground[0].Position, want, epsilon) {
		t.Errorf("ground[0] = %v, want %v", ground[0].Position, want)
	}
	for i, v := range append(slices.Clone(shadow), ground...) {
		if v.Normal != worldUp {
			t.Errorf("disc vertex %d normal = %v, want up", i, v.Normal)
		}
	}
	if shadow[0].Color != ColorShadow || ground[0].Color != ColorGround {
		t.Errorf("disc colors = %v / %v", shadow[0].Color, ground[0].Color)
	}
}

func TestEmitDiscsFaceUp(t *testing.T) {
	// Counter-clockwise seen from above: (b-a)×(c-a) points up.
	out := appendDisc(nil, r3.Vector{}, 1, ColorGround)
	n := out[1].Position.Sub(out[0].Position).Cross(out[2].Position.Sub(out[0].Position))
	if n.Y <= 0 {
		t.Errorf("disc winding normal = %v, want +Y", n)
	}
}

func TestEmitDisabledParts(t *testing.T) {
	sk := grownSkeleton(t, 6)
	st := sk.Stats()
	out, err := NewEmitter(MeshConfig{}).Emit(sk, nil)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if want := (st.Segments - st.Roots) * cylinderVertices; len(out) != want {
		t.Errorf("bark-only len = %d, want %d", len(out), want)
	}
}

func TestEmitDoesNotMutateSkeleton(t *testing.T) {
	sk := grownSkeleton(t, 10)
	segs := slices.Clone(sk.Segments())
	trees := slices.Clone(sk.Trees())

	m := NewEmitter(DefaultMeshConfig())
	a, err := m.Emit(sk, nil)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	b, _ := m.Emit(sk, nil)

	if !slices.Equal(segs, sk.Segments()) || !slices.Equal(trees, sk.Trees()) {
		t.Error("Emit mutated the skeleton")
	}
	if !slices.Equal(a, b) {
		t.Error("two emissions of the same skeleton differ")
	}
}

func TestEmitReusesBuffer(t *testing.T) {
	sk := grownSkeleton(t, 4)
	m := NewEmitter(DefaultMeshConfig())
	buf := make([]Vertex, 7, 4096)
	out, err := m.Emit(sk, buf)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if &out[0] != &buf[0] {
		t.Error("Emit allocated despite enough capacity")
	}

	small := make([]Vertex, 0, 1)
	out, _ = m.Emit(sk, small)
	if cap(out) < m.VertexCount(sk) {
		t.Errorf("cap = %d, want at least %d", cap(out), m.VertexCount(sk))
	}
}

func TestEmitDegenerateSegment(t *testing.T) {
	sk := NewSkeleton(0)
	sk.Plant(Vec2{})
	sk.Append(Segment{Direction: r3.Vector{X: 0, Y: 1, Z: 0}, Up: r3.Vector{X: 0, Y: 2, Z: 0}, Parent: 0})
	if _, err := NewEmitter(DefaultMeshConfig()).Emit(sk, nil); err == nil {
		t.Error("Emit succeeded on a segment with up parallel to its direction")
	}
}

func TestBounds(t *testing.T) {
	if lo, hi := Bounds(nil); lo != (r3.Vector{}) || hi != (r3.Vector{}) {
		t.Errorf("Bounds(nil) = %v %v, want zero", lo, hi)
	}
	verts := []Vertex{
		{Position: r3.Vector{X: 1, Y: -2, Z: 3}},
		{Position: r3.Vector{X: -1, Y: 5, Z: 0}},
		{Position: r3.Vector{X: 0, Y: 0, Z: -4}},
	}
	lo, hi := Bounds(verts)
	if want := (r3.Vector{X: -1, Y: -2, Z: -4}); lo != want {
		t.Errorf("lo = %v, want %v", lo, want)
	}
	if want := (r3.Vector{X: 1, Y: 5, Z: 3}); hi != want {
		t.Errorf("hi = %v, want %v", hi, want)
	}
}
