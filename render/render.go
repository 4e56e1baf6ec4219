// Package render draws arbor meshes with Ebitengine.
//
// Ebitengine is a 2D engine, so projection, flat Lambert shading, back-face
// culling and depth ordering happen on the CPU. Triangles are sorted far to
// near and submitted in a single DrawTriangles32 call.
package render

import (
	"image/color"
	"slices"

	"github.com/golang/geo/r3"
	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/phanxgames/arbor"
)

// Light is a directional light plus an ambient term, evaluated once per
// vertex when a mesh is uploaded. Normals are taken in model space, so the
// lighting turns with the turntable.
type Light struct {
	Dir     r3.Vector
	Color   r3.Vector
	Ambient r3.Vector
}

// DefaultLight returns a warm key light from above and a cool ambient fill.
func DefaultLight() Light {
	return Light{
		Dir:     r3.Vector{X: 0.5, Y: -0.5, Z: 0},
		Color:   r3.Vector{X: 0.9, Y: 0.9, Z: 0.7},
		Ambient: r3.Vector{X: 0.7, Y: 0.9, Z: 0.9},
	}
}

// Shade returns c lit by l for a surface with normal n, clamped to [0, 1].
func (l Light) Shade(n r3.Vector, c arbor.Color) (r, g, b float32) {
	lambert := l.Dir.Dot(n)
	lit := l.Color.Mul(lambert).Add(l.Ambient)
	return clamp01(c.R * lit.X), clamp01(c.G * lit.Y), clamp01(c.B * lit.Z)
}

func clamp01(v float64) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return float32(v)
}

// projected is a vertex in screen space.
type projected struct {
	x, y  float32
	depth float64
	ok    bool
}

// triRef points at the first vertex of a visible triangle.
type triRef struct {
	first int
	depth float64
}

// Renderer owns the most recently uploaded mesh and draws it each frame.
type Renderer struct {
	Camera *Camera
	Light  Light
	// CullBackFaces skips triangles wound clockwise on screen.
	CullBackFaces bool
	// ClearColor fills the screen before drawing. Zero alpha skips the fill.
	ClearColor arbor.Color
	// ScreenshotDir is where queued screenshots are written.
	ScreenshotDir string
	// Logger reports screenshot results. Nil discards them.
	Logger *zap.Logger

	screenshotQueue []string

	verts  []arbor.Vertex
	shaded [][3]float32
	proj   []projected
	order  []triRef
	out    []ebiten.Vertex
	inds   []uint32
}

// NewRenderer creates a renderer with the default camera and light.
func NewRenderer() *Renderer {
	return &Renderer{
		Camera:        NewCamera(),
		Light:         DefaultLight(),
		CullBackFaces: true,
		ClearColor:    arbor.Color{R: 0.55, G: 0.7, B: 0.8, A: 1},
		ScreenshotDir: "screenshots",
	}
}

// Upload takes ownership of verts and returns the previously uploaded slice,
// which the caller may recycle. len(verts) must be a multiple of 3; a
// trailing partial triangle is ignored.
func (r *Renderer) Upload(verts []arbor.Vertex) []arbor.Vertex {
	prev := r.verts
	r.verts = verts
	if cap(r.shaded) < len(verts) {
		r.shaded = make([][3]float32, len(verts))
	}
	r.shaded = r.shaded[:len(verts)]
	for i := range verts {
		v := &verts[i]
		cr, cg, cb := r.Light.Shade(v.Normal, v.Color)
		r.shaded[i] = [3]float32{cr, cg, cb}
	}
	return prev
}

// Len returns the number of uploaded vertices.
func (r *Renderer) Len() int {
	return len(r.verts)
}

// Bounds returns the bounding box of the uploaded mesh.
func (r *Renderer) Bounds() (lo, hi r3.Vector) {
	return arbor.Bounds(r.verts)
}

// Draw renders the uploaded mesh rotated by rotation radians about the
// vertical axis.
func (r *Renderer) Draw(screen *ebiten.Image, rotation float64) {
	if r.ClearColor.A > 0 {
		screen.Fill(color.RGBA{
			R: uint8(r.ClearColor.R * 255),
			G: uint8(r.ClearColor.G * 255),
			B: uint8(r.ClearColor.B * 255),
			A: uint8(r.ClearColor.A * 255),
		})
	}
	b := screen.Bounds()
	r.build(b.Dx(), b.Dy(), rotation)
	if len(r.inds) > 0 {
		var triOp ebiten.DrawTrianglesOptions
		screen.DrawTriangles32(r.out, r.inds, ensureWhitePixel(), &triOp)
	}
	r.flushScreenshots(screen)
}

// build projects, culls and depth-sorts the mesh into r.out and r.inds.
func (r *Renderer) build(w, h int, rotation float64) {
	r.out = r.out[:0]
	r.inds = r.inds[:0]
	r.order = r.order[:0]
	if w <= 0 || h <= 0 {
		return
	}

	n := len(r.verts) - len(r.verts)%3
	if cap(r.proj) < n {
		r.proj = make([]projected, n)
	}
	r.proj = r.proj[:n]
	for i := 0; i < n; i++ {
		x, y, d, ok := r.Camera.Project(r.verts[i].Position, rotation, w, h)
		r.proj[i] = projected{x: float32(x), y: float32(y), depth: d, ok: ok}
	}

	for i := 0; i < n; i += 3 {
		a, b, c := &r.proj[i], &r.proj[i+1], &r.proj[i+2]
		if !a.ok || !b.ok || !c.ok {
			continue
		}
		if r.CullBackFaces && screenArea(a, b, c) >= 0 {
			continue
		}
		r.order = append(r.order, triRef{first: i, depth: a.depth + b.depth + c.depth})
	}
	// Painter's order: farthest first.
	slices.SortFunc(r.order, func(p, q triRef) int {
		switch {
		case p.depth > q.depth:
			return -1
		case p.depth < q.depth:
			return 1
		}
		return 0
	})

	for _, t := range r.order {
		base := uint32(len(r.out))
		for k := t.first; k < t.first+3; k++ {
			p := &r.proj[k]
			c := r.shaded[k]
			r.out = append(r.out, ebiten.Vertex{
				DstX:   p.x,
				DstY:   p.y,
				SrcX:   0.5,
				SrcY:   0.5,
				ColorR: c[0],
				ColorG: c[1],
				ColorB: c[2],
				ColorA: 1,
			})
		}
		r.inds = append(r.inds, base, base+1, base+2)
	}
}

// screenArea returns twice the signed area of a screen-space triangle. With Y
// pointing down, triangles wound counter-clockwise in world space come out
// negative.
func screenArea(a, b, c *projected) float32 {
	return (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
}

// --- White pixel singleton (no sync.Once; drawing is single-threaded) ---

var whitePixelImage *ebiten.Image

// ensureWhitePixel returns a lazily-initialized 1x1 white source image.
func ensureWhitePixel() *ebiten.Image {
	if whitePixelImage == nil {
		whitePixelImage = ebiten.NewImage(1, 1)
		whitePixelImage.Fill(color.White)
	}
	return whitePixelImage
}
