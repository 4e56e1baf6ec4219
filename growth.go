package arbor

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"
)

// Direction draws that land within minUpSine of the new up axis are redrawn
// up to maxDirectionDraws times before falling back to the parent's axis.
const (
	maxDirectionDraws = 8
	minUpSine         = 1e-3
)

// TickReport describes what one growth tick did.
type TickReport struct {
	// Tick is the zero-based growth tick number.
	Tick int
	// Added is the number of segments appended.
	Added int
	// Bifurcations counts tips that spawned two children.
	Bifurcations int
	// LeadersLost lists trees whose leader died this tick.
	LeadersLost []TreeID
}

// Engine grows a Skeleton one tick at a time. It owns the random source, so
// two engines built with the same seed and config grow identical forests.
type Engine struct {
	cfg  GrowthConfig
	sk   *Skeleton
	rng  *rand.Rand
	log  *zap.Logger
	tick int
}

// NewEngine creates an engine that mutates sk. A nil logger is replaced with
// a no-op logger.
func NewEngine(sk *Skeleton, cfg GrowthConfig, rng *rand.Rand, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cfg: cfg, sk: sk, rng: rng, log: log}
}

// Skeleton returns the store the engine grows.
func (e *Engine) Skeleton() *Skeleton {
	return e.sk
}

// Ticks returns the number of completed growth ticks.
func (e *Engine) Ticks() int {
	return e.tick
}

// KillLeader ends the apical axis of a tree, as if the mortality trial had
// fired. It is a no-op for trees that already lost their leader.
func (e *Engine) KillLeader(id TreeID) error {
	if id < 0 || int(id) >= e.sk.NumTrees() {
		return fmt.Errorf("kill leader: tree %d does not exist", id)
	}
	e.loseLeader(id)
	return nil
}

func (e *Engine) loseLeader(id TreeID) bool {
	t := e.sk.Tree(id)
	if !t.HasLeader {
		return false
	}
	t.HasLeader = false
	t.LeaderLostAt = e.tick
	e.log.Info("leader lost", zap.Int("tree", int(id)), zap.Int("tick", e.tick))
	return true
}

// Step runs one growth tick: thickening, leader mortality, then branching of
// every segment that was a leaf when the tick started. Segments appended
// during the tick are not visited until the next one.
//
// The tick is refused up front, with no mutation, when a tip has a degenerate
// frame or, on a fixed-capacity skeleton, when the worst case of two children
// per tip would not fit.
func (e *Engine) Step() (TickReport, error) {
	sk := e.sk
	n := sk.Len()
	rep := TickReport{Tick: e.tick}

	leaves := 0
	for i := 0; i < n; i++ {
		s := &sk.segments[i]
		if !s.IsLeaf {
			continue
		}
		leaves++
		if _, err := s.Frame(); err != nil {
			return rep, fmt.Errorf("growth tick %d: segment %d: %w", e.tick, i, err)
		}
	}
	if sk.Cap() > 0 && sk.full(2*leaves) {
		return rep, fmt.Errorf("growth tick %d: %d segments, %d tips, capacity %d: %w",
			e.tick, n, leaves, sk.Cap(), ErrCapacityExceeded)
	}

	e.thicken(n)

	for i := range sk.trees {
		if sk.trees[i].HasLeader && e.rng.Float64() < e.cfg.LeaderDeathChance {
			if e.loseLeader(TreeID(i)) {
				rep.LeadersLost = append(rep.LeadersLost, TreeID(i))
			}
		}
	}

	for i := 0; i < n; i++ {
		if !sk.segments[i].IsLeaf {
			continue
		}
		if err := e.branch(SegmentID(i), &rep); err != nil {
			return rep, fmt.Errorf("growth tick %d: %w", rep.Tick, err)
		}
	}
	e.tick++
	return rep, nil
}

// thicken applies secondary growth to the first n segments. The leader axis
// grows faster; once a tree has lost its leader every segment of that tree
// thickens at the leader rate.
func (e *Engine) thicken(n int) {
	sk := e.sk
	for i := 0; i < n; i++ {
		s := &sk.segments[i]
		if s.IsLeader || !sk.trees[s.Tree].HasLeader {
			s.Radius += e.cfg.LeaderThickening
		} else {
			s.Radius += e.cfg.LateralThickening
		}
	}
}

// branch turns the leaf id into an interior segment with one or two children.
func (e *Engine) branch(id SegmentID, rep *TickReport) error {
	sk := e.sk
	// Copy: Append may reallocate the backing array.
	parent := sk.segments[id]
	frame, err := parent.Frame()
	if err != nil {
		return fmt.Errorf("branch segment %d: %w", id, err)
	}
	sk.segments[id].IsLeaf = false
	hasLeader := sk.trees[parent.Tree].HasLeader

	chance := e.cfg.LateralSplitChance
	if parent.IsLeader {
		chance = e.cfg.LeaderSplitChance
	}
	count := 1
	if e.rng.Float64() < chance {
		count = 2
	}

	base := e.cfg.BaseRadius
	radii := [2]float64{base, base}
	childLeader := parent.IsLeader && hasLeader
	leaders := [2]bool{childLeader, false}
	if parent.IsLeader && !childLeader {
		e.log.Debug("leader axis ended", zap.Int("tree", int(parent.Tree)), zap.Int("segment", int(id)))
	}
	if count == 2 {
		if !parent.IsLeader {
			radii[0] = base * e.cfg.SplitRatio.Random(e.rng)
		}
		radii[1] = splitRadius(base, radii[0])
		rep.Bifurcations++
	}

	for j := 0; j < count; j++ {
		child := Segment{
			Position:  parent.End(),
			Direction: e.childDirection(frame, leaders[j], hasLeader),
			Up:        frame.Z,
			Radius:    radii[j],
			IsLeader:  leaders[j],
			IsLeaf:    true,
			Parent:    id,
			Tree:      parent.Tree,
		}
		if _, err := sk.Append(child); err != nil {
			return fmt.Errorf("branch segment %d: %w", id, err)
		}
		rep.Added++
	}
	return nil
}

// splitRadius returns the sibling radius that keeps the summed cross-section
// of a bifurcation equal to the area of a segment of radius base.
func splitRadius(base, r0 float64) float64 {
	return math.Sqrt(math.Max(0, base*base-r0*r0))
}

// childDirection picks the direction of a new segment growing out of the
// parent frame f: tropism plus the parent axis plus a random perturbation,
// scaled to the target length. The child's up axis is f.Z, so draws that
// end up parallel to it are rejected.
func (e *Engine) childDirection(f Frame, leader, hasLeader bool) r3.Vector {
	perturb := e.cfg.LateralPerturbation
	length := e.cfg.LateralLength
	switch {
	case leader:
		perturb = e.cfg.LeaderPerturbation
		length = e.cfg.LeaderLength
	case !hasLeader:
		length = e.cfg.LeaderlessLength
	}

	for range maxDirectionDraws {
		d := e.cfg.Tropism.Add(f.Y).Add(e.randVec(perturb))
		n := d.Norm()
		if !usableNorm(n) {
			continue
		}
		d = d.Mul(1 / n)
		if !(d.Cross(f.Z).Norm() >= minUpSine) {
			continue
		}
		return d.Mul(length)
	}
	return f.Y.Mul(length)
}

// randVec returns a vector with components uniform in [-scale, scale).
func (e *Engine) randVec(scale float64) r3.Vector {
	return r3.Vector{
		X: (e.rng.Float64()*2 - 1) * scale,
		Y: (e.rng.Float64()*2 - 1) * scale,
		Z: (e.rng.Float64()*2 - 1) * scale,
	}
}
