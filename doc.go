// Package arbor grows forests of procedural trees one tick at a time and
// turns them into flat triangle lists for rendering.
//
// # Quick start
//
// The simplest way to get started is [New], which plants a forest from a
// [Config], and [Simulation.Tick], called once per rendered frame:
//
//	sim, err := arbor.New(arbor.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	sim.OnMeshReady(func(verts []arbor.Vertex) {
//		// upload verts; every three vertices form one triangle
//	})
//	for frame := 0; ; frame++ {
//		sim.Tick(frame)
//	}
//
// For a windowed viewer see the render package and examples/forest.
//
// # Skeleton
//
// A [Skeleton] is an append-only arena of [Segment] values. Each segment
// refers to its parent by [SegmentID], an index into the arena, so references
// stay valid as the arena grows. Roots refer to themselves. Next to the
// segments the skeleton keeps one [Tree] per planted shoot with its origin,
// canopy radius and whether its leader (the apical axis) is still alive.
//
// # Growth
//
// [Engine.Step] runs one growth tick. Every segment thickens, each tree's
// leader may die, and every segment that was a leaf at the start of the tick
// sprouts one or two children. Split radii conserve cross-sectional area:
// r0² + r1² equals the base radius squared. All random draws come from the
// engine's own seeded generator, so a seed reproduces a forest exactly.
//
// # Meshing
//
// [Emitter.Emit] rebuilds the triangle list from scratch: a tapered
// three-sided tube per non-root segment, a cluster of leaf triangles per
// growing tip, a contact shadow per tree sized to its canopy and one ground
// triangle. [Emitter.VertexCount] predicts the exact length.
//
// # Scheduling
//
// [Scheduler] runs growth on every Nth frame (60 by default) and measures how
// long growth plus meshing took. Once a tick overruns its budget (100ms by
// default) growth stops for good and the last mesh is final. A [Turntable]
// rotation advances on every frame regardless.
package arbor
