package arbor

import (
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// pcgStream decorrelates the second PCG word from the seed.
const pcgStream = 0x9e3779b97f4a7c15

// Simulation ties the growth engine, mesh emitter, scheduler and turntable
// together behind a per-frame Tick. It is single-threaded: all methods must
// be called from the loop that owns it.
type Simulation struct {
	cfg   Config
	log   *zap.Logger
	debug bool

	skeleton  *Skeleton
	engine    *Engine
	emitter   *Emitter
	scheduler *Scheduler
	turntable *Turntable
	dt        float32

	recycled    []Vertex
	vertices    int
	lastReport  TickReport
	pending     FinishReason
	depthWarned map[TreeID]bool

	onMeshReady      func([]Vertex)
	onGrowthFinished func(FinishReason)
}

// New validates cfg and plants cfg.Trees shoots at uniformly random points in
// cfg.Area, drawn from a generator seeded with cfg.Seed.
func New(cfg Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^pcgStream))
	sk := NewSkeleton(cfg.MaxSegments)
	for i := 0; i < cfg.Trees; i++ {
		if _, _, err := sk.Plant(cfg.Area.randomPoint(rng)); err != nil {
			return nil, fmt.Errorf("configure: %w", err)
		}
	}

	s := &Simulation{
		cfg:         cfg,
		log:         log,
		debug:       cfg.Debug,
		skeleton:    sk,
		engine:      NewEngine(sk, cfg.Growth, rng, log),
		emitter:     NewEmitter(cfg.Mesh),
		scheduler:   NewScheduler(cfg.Schedule),
		turntable:   NewTurntable(cfg.Turntable.RevolutionSeconds),
		dt:          1 / float32(cfg.Schedule.TicksPerSecond),
		depthWarned: make(map[TreeID]bool),
	}
	s.scheduler.OnFinished(func(r FinishReason) { s.pending = r })
	s.vertices = s.emitter.VertexCount(sk)
	return s, nil
}

// OnMeshReady registers the sink for rebuilt meshes. fn is called once per
// growth tick and receives ownership of the slice: the simulation keeps no
// reference to it. Pass a slice back through Recycle to reuse its storage.
func (s *Simulation) OnMeshReady(fn func([]Vertex)) {
	s.onMeshReady = fn
}

// OnGrowthFinished registers fn to be called once, the first time growth
// stops, after the final mesh has been delivered.
func (s *Simulation) OnGrowthFinished(fn func(FinishReason)) {
	s.onGrowthFinished = fn
}

// Recycle hands a slice previously received from OnMeshReady back for reuse.
// The caller must not touch buf afterwards.
func (s *Simulation) Recycle(buf []Vertex) {
	if cap(buf) > cap(s.recycled) {
		s.recycled = buf[:0]
	}
}

// Tick advances one frame. The turntable always moves; on growth frames the
// skeleton grows, the mesh is rebuilt and delivered.
func (s *Simulation) Tick(frame int) {
	s.turntable.Update(s.dt)

	var mesh []Vertex
	ran, err := s.scheduler.Tick(frame, func() error {
		var err error
		mesh, err = s.grow()
		return err
	})
	if err != nil {
		s.log.Warn("growth halted", zap.Int("frame", frame), zap.Error(err))
	}
	if ran && err == nil {
		s.debugCheckDepth()
	}
	if ran && err == nil && s.onMeshReady != nil {
		s.onMeshReady(mesh)
	} else if mesh != nil {
		s.Recycle(mesh)
	}

	if r := s.pending; r != FinishNone {
		s.pending = FinishNone
		s.log.Info("growth finished",
			zap.Stringer("reason", r),
			zap.Int("frame", frame),
			zap.Int("ticks", s.engine.Ticks()),
			zap.Int("segments", s.skeleton.Len()),
			zap.Duration("last_tick", s.scheduler.LastDuration()),
		)
		if s.onGrowthFinished != nil {
			s.onGrowthFinished(r)
		}
	}
}

// grow runs one growth tick and rebuilds the mesh.
func (s *Simulation) grow() ([]Vertex, error) {
	start := time.Now()
	rep, err := s.engine.Step()
	s.lastReport = rep
	if err != nil {
		return nil, err
	}
	growTime := time.Since(start)

	start = time.Now()
	mesh, err := s.emitter.Emit(s.skeleton, s.recycled)
	s.recycled = nil
	if err != nil {
		return nil, err
	}
	s.vertices = len(mesh)

	s.debugLog(debugStats{
		tick:         rep.Tick,
		growTime:     growTime,
		meshTime:     time.Since(start),
		segments:     s.skeleton.Len(),
		added:        rep.Added,
		bifurcations: rep.Bifurcations,
		vertices:     len(mesh),
	})
	return mesh, nil
}

// Emit builds a fresh mesh of the current skeleton outside the growth
// schedule, for sinks that need geometry before the first growth tick.
func (s *Simulation) Emit() ([]Vertex, error) {
	return s.emitter.Emit(s.skeleton, nil)
}

// Engine returns the growth engine.
func (s *Simulation) Engine() *Engine {
	return s.engine
}

// Skeleton returns the grown skeleton. It is only mutated during Tick.
func (s *Simulation) Skeleton() *Skeleton {
	return s.skeleton
}

// Scheduler returns the tick scheduler.
func (s *Simulation) Scheduler() *Scheduler {
	return s.scheduler
}

// Growing reports whether growth ticks still run.
func (s *Simulation) Growing() bool {
	return s.scheduler.Growing()
}

// Rotation returns the turntable angle in radians.
func (s *Simulation) Rotation() float64 {
	return s.turntable.Radians()
}

// LastReport returns the report of the most recent growth tick.
func (s *Simulation) LastReport() TickReport {
	return s.lastReport
}

// Stats is a snapshot of the simulation for HUDs and logs.
type Stats struct {
	Frame        int
	Ticks        int
	Trees        int
	Segments     int
	Leaves       int
	Vertices     int
	Growing      bool
	Reason       FinishReason
	LastDuration time.Duration
}

// Stats returns a snapshot of the simulation state.
func (s *Simulation) Stats() Stats {
	sk := s.skeleton.Stats()
	return Stats{
		Frame:        s.scheduler.Frame(),
		Ticks:        s.engine.Ticks(),
		Trees:        s.skeleton.NumTrees(),
		Segments:     sk.Segments,
		Leaves:       sk.Leaves,
		Vertices:     s.vertices,
		Growing:      s.scheduler.Growing(),
		Reason:       s.scheduler.Reason(),
		LastDuration: s.scheduler.LastDuration(),
	}
}
