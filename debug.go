package arbor

import (
	"time"

	"go.uber.org/zap"
)

// debugStats holds per-tick timing and size metrics.
// Only logged when the simulation is in debug mode.
type debugStats struct {
	tick         int
	growTime     time.Duration
	meshTime     time.Duration
	segments     int
	added        int
	bifurcations int
	vertices     int
}

// SetDebugMode toggles per-tick statistics logging at debug level.
func (s *Simulation) SetDebugMode(enabled bool) {
	s.debug = enabled
}

// debugLog writes the stats of one growth tick.
func (s *Simulation) debugLog(stats debugStats) {
	if !s.debug {
		return
	}
	s.log.Debug("growth tick",
		zap.Int("tick", stats.tick),
		zap.Duration("grow", stats.growTime),
		zap.Duration("mesh", stats.meshTime),
		zap.Duration("total", stats.growTime+stats.meshTime),
		zap.Int("segments", stats.segments),
		zap.Int("added", stats.added),
		zap.Int("bifurcations", stats.bifurcations),
		zap.Int("vertices", stats.vertices),
	)
}

// debugMaxDepth is the tree depth past which debug mode warns once per tree.
const debugMaxDepth = 512

// debugCheckDepth warns when a tree grows deeper than debugMaxDepth, a sign
// that the time budget is too generous for the frame rate.
func (s *Simulation) debugCheckDepth() {
	if !s.debug {
		return
	}
	sk := s.skeleton
	for i := range sk.segments {
		seg := &sk.segments[i]
		if !seg.IsLeaf || s.depthWarned[seg.Tree] {
			continue
		}
		if d := sk.Depth(SegmentID(i)); d > debugMaxDepth {
			s.depthWarned[seg.Tree] = true
			s.log.Warn("tree depth exceeds threshold",
				zap.Int("tree", int(seg.Tree)), zap.Int("depth", d), zap.Int("threshold", debugMaxDepth))
		}
	}
}
