package arbor

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// ErrCapacityExceeded is returned when a fixed-capacity Skeleton cannot take
// more segments.
var ErrCapacityExceeded = errors.New("arbor: skeleton capacity exceeded")

// Shoot defaults. Every tree starts from one upright segment at its origin.
const (
	shootLength = 0.1
	shootRadius = 0.01
)

// Segment is one directed edge of a tree skeleton. Position and Direction are
// fixed at creation; only Radius, IsLeaf and IsLeader change afterwards.
type Segment struct {
	// Position is the segment's start point.
	Position r3.Vector
	// Direction is not unit length; its magnitude is the segment length.
	Direction r3.Vector
	// Up orients the local frame around Direction. It is re-orthogonalized
	// on use.
	Up r3.Vector
	// Radius is the thickness at the segment's base. Never decreases.
	Radius float64
	// IsLeader marks the apical axis of the tree.
	IsLeader bool
	// IsLeaf is true until the segment spawns children.
	IsLeaf bool
	// Parent is the segment this one grew from. Roots reference themselves.
	Parent SegmentID
	// Tree is the owning tree.
	Tree TreeID
}

// End returns the segment's tip, Position + Direction.
func (s *Segment) End() r3.Vector {
	return s.Position.Add(s.Direction)
}

// Frame returns the segment's local frame, without translation.
func (s *Segment) Frame() (Frame, error) {
	return NewFrame(s.Direction, s.Up)
}

// Tree is the per-tree aggregate kept alongside the segments.
type Tree struct {
	// Origin is the planting position on the ground plane.
	Origin Vec2
	// Root is the tree's shoot segment.
	Root SegmentID
	// HasLeader is true until the apical axis dies. Never becomes true again.
	HasLeader bool
	// CanopyRadius is the largest horizontal distance from Origin to any
	// segment endpoint of this tree seen so far.
	CanopyRadius float64
	// LeaderLostAt is the growth tick at which the leader died, or -1.
	LeaderLostAt int
}

// observe widens the canopy to cover p.
func (t *Tree) observe(p r3.Vector) {
	if d := horizontal(p).Dist(t.Origin); d > t.CanopyRadius {
		t.CanopyRadius = d
	}
}

// Skeleton is an append-only arena of segments plus the trees they belong
// to. Segment references are indices, so they survive reallocation.
type Skeleton struct {
	segments    []Segment
	trees       []Tree
	maxSegments int
}

// NewSkeleton creates an empty skeleton. maxSegments <= 0 means unbounded.
func NewSkeleton(maxSegments int) *Skeleton {
	if maxSegments < 0 {
		maxSegments = 0
	}
	return &Skeleton{maxSegments: maxSegments}
}

// Plant adds a new tree at origin together with its shoot segment.
func (sk *Skeleton) Plant(origin Vec2) (TreeID, SegmentID, error) {
	if sk.full(1) {
		return 0, 0, fmt.Errorf("plant tree %d: %w", len(sk.trees), ErrCapacityExceeded)
	}
	tid := TreeID(len(sk.trees))
	sid := SegmentID(len(sk.segments))
	shoot := Segment{
		Position:  r3.Vector{X: origin.X, Y: 0, Z: origin.Y},
		Direction: r3.Vector{X: 0, Y: shootLength, Z: 0},
		Up:        r3.Vector{X: 0, Y: 0, Z: 1},
		Radius:    shootRadius,
		IsLeader:  true,
		IsLeaf:    true,
		Parent:    sid,
		Tree:      tid,
	}
	sk.segments = append(sk.segments, shoot)
	t := Tree{
		Origin:       origin,
		Root:         sid,
		HasLeader:    true,
		LeaderLostAt: -1,
	}
	t.observe(shoot.End())
	sk.trees = append(sk.trees, t)
	return tid, sid, nil
}

// Append adds a non-root segment. Its parent must already exist and the tree
// must match the parent's. The owning tree's canopy is widened to the new
// segment's endpoint.
func (sk *Skeleton) Append(s Segment) (SegmentID, error) {
	id := SegmentID(len(sk.segments))
	if s.Parent < 0 || s.Parent >= id {
		return 0, fmt.Errorf("append segment %d: parent %d does not exist", id, s.Parent)
	}
	if p := &sk.segments[s.Parent]; p.Tree != s.Tree {
		return 0, fmt.Errorf("append segment %d: tree %d differs from parent tree %d", id, s.Tree, p.Tree)
	}
	if sk.full(1) {
		return 0, fmt.Errorf("append segment %d: %w", id, ErrCapacityExceeded)
	}
	sk.segments = append(sk.segments, s)
	sk.trees[s.Tree].observe(s.End())
	return id, nil
}

// full reports whether adding n segments would exceed a fixed capacity.
func (sk *Skeleton) full(n int) bool {
	return sk.maxSegments > 0 && len(sk.segments)+n > sk.maxSegments
}

// Cap returns the fixed capacity, or 0 when unbounded.
func (sk *Skeleton) Cap() int {
	return sk.maxSegments
}

// Len returns the number of segments.
func (sk *Skeleton) Len() int {
	return len(sk.segments)
}

// Segment returns a pointer to the segment with the given id. The pointer is
// invalidated by the next Append.
func (sk *Skeleton) Segment(id SegmentID) *Segment {
	return &sk.segments[id]
}

// Segments returns the backing slice. Callers must not modify it.
func (sk *Skeleton) Segments() []Segment {
	return sk.segments
}

// IsRoot reports whether id is the shoot of its tree.
func (sk *Skeleton) IsRoot(id SegmentID) bool {
	return sk.segments[id].Parent == id
}

// NumTrees returns the number of planted trees.
func (sk *Skeleton) NumTrees() int {
	return len(sk.trees)
}

// Tree returns a pointer to the tree aggregate with the given id.
func (sk *Skeleton) Tree(id TreeID) *Tree {
	return &sk.trees[id]
}

// Trees returns the backing slice of tree aggregates. Callers must not modify it.
func (sk *Skeleton) Trees() []Tree {
	return sk.trees
}

// Children returns the ids of the direct children of id. It scans the store
// and is meant for reporting and tests, not the growth loop.
func (sk *Skeleton) Children(id SegmentID) []SegmentID {
	var out []SegmentID
	for i := int(id) + 1; i < len(sk.segments); i++ {
		if sk.segments[i].Parent == id {
			out = append(out, SegmentID(i))
		}
	}
	return out
}

// Depth returns the number of edges between id and its tree's root.
func (sk *Skeleton) Depth(id SegmentID) int {
	d := 0
	for !sk.IsRoot(id) {
		id = sk.segments[id].Parent
		d++
	}
	return d
}

// Bounds returns the axis-aligned box around every segment's start and end
// point, ignoring radii.
func (sk *Skeleton) Bounds() (lo, hi r3.Vector) {
	if len(sk.segments) == 0 {
		return r3.Vector{}, r3.Vector{}
	}
	lo = sk.segments[0].Position
	hi = lo
	for i := range sk.segments {
		s := &sk.segments[i]
		for _, p := range [2]r3.Vector{s.Position, s.End()} {
			lo = r3.Vector{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
			hi = r3.Vector{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
		}
	}
	return lo, hi
}

// SkeletonStats summarizes the store.
type SkeletonStats struct {
	Segments int
	Leaves   int
	Leaders  int
	Roots    int
}

// Stats counts segments by kind.
func (sk *Skeleton) Stats() SkeletonStats {
	st := SkeletonStats{Segments: len(sk.segments)}
	for i := range sk.segments {
		s := &sk.segments[i]
		if s.IsLeaf {
			st.Leaves++
		}
		if s.IsLeader {
			st.Leaders++
		}
		if s.Parent == SegmentID(i) {
			st.Roots++
		}
	}
	return st
}

// TreeStats summarizes one tree.
type TreeStats struct {
	Segments int
	Leaves   int
}

// TreeStats counts the segments belonging to each tree, indexed by TreeID.
func (sk *Skeleton) TreeStats() []TreeStats {
	out := make([]TreeStats, len(sk.trees))
	for i := range sk.segments {
		s := &sk.segments[i]
		out[s.Tree].Segments++
		if s.IsLeaf {
			out[s.Tree].Leaves++
		}
	}
	return out
}
