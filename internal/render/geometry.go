package render

import (
	"fmt"
	"sync"

	"github.com/chewxy/math32"
)

// Sphere tessellation used by the viewers: coarse for grid previews, fine
// for full-screen and background layers.
const (
	SphereRadius = 500

	PreviewWidthSegments  = 60
	PreviewHeightSegments = 40
	FullWidthSegments     = 128
	FullHeightSegments    = 128
)

// SphereGeometry is a UV sphere: positions, texture coordinates and
// triangle indices laid out row by row from the north pole.
type SphereGeometry struct {
	radius         float32
	widthSegments  int
	heightSegments int

	mu        sync.Mutex
	positions []float32
	uvs       []float32
	indices   []uint32
	scale     Vec3
	disposed  bool
}

// NewSphereGeometry builds the vertex buffers of a sphere.
func NewSphereGeometry(radius float32, widthSegments, heightSegments int) (*SphereGeometry, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("sphere radius must be positive, got %v", radius)
	}
	if widthSegments < 3 || heightSegments < 2 {
		return nil, fmt.Errorf("sphere needs at least 3x2 segments, got %dx%d", widthSegments, heightSegments)
	}

	g := &SphereGeometry{
		radius:         radius,
		widthSegments:  widthSegments,
		heightSegments: heightSegments,
		scale:          Vec3{1, 1, 1},
	}

	cols := widthSegments + 1
	rows := heightSegments + 1
	g.positions = make([]float32, 0, cols*rows*3)
	g.uvs = make([]float32, 0, cols*rows*2)

	for iy := 0; iy < rows; iy++ {
		v := float32(iy) / float32(heightSegments)
		theta := v * math32.Pi
		for ix := 0; ix < cols; ix++ {
			u := float32(ix) / float32(widthSegments)
			phi := u * 2 * math32.Pi
			x := -radius * math32.Cos(phi) * math32.Sin(theta)
			y := radius * math32.Cos(theta)
			z := radius * math32.Sin(phi) * math32.Sin(theta)
			g.positions = append(g.positions, x, y, z)
			g.uvs = append(g.uvs, u, 1-v)
		}
	}

	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := uint32(iy*cols + ix + 1)
			b := uint32(iy*cols + ix)
			c := uint32((iy+1)*cols + ix)
			d := uint32((iy+1)*cols + ix + 1)
			if iy != 0 {
				g.indices = append(g.indices, a, b, d)
			}
			if iy != heightSegments-1 {
				g.indices = append(g.indices, b, c, d)
			}
		}
	}
	return g, nil
}

// Radius returns the unscaled sphere radius.
func (g *SphereGeometry) Radius() float32 { return g.radius }

// Segments returns the tessellation.
func (g *SphereGeometry) Segments() (width, height int) {
	return g.widthSegments, g.heightSegments
}

// Scale multiplies every vertex position.
func (g *SphereGeometry) Scale(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 0; i+2 < len(g.positions); i += 3 {
		g.positions[i] *= x
		g.positions[i+1] *= y
		g.positions[i+2] *= z
	}
	g.scale = Vec3{g.scale.X * x, g.scale.Y * y, g.scale.Z * z}
}

// Inverted reports whether the x axis is mirrored, which flips the winding
// so faces point inwards.
func (g *SphereGeometry) Inverted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale.X < 0
}

// VertexCount returns the number of vertices, zero after disposal.
func (g *SphereGeometry) VertexCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.positions) / 3
}

// TriangleCount returns the number of triangles, zero after disposal.
func (g *SphereGeometry) TriangleCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.indices) / 3
}

// Position returns vertex i.
func (g *SphereGeometry) Position(i int) Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Vec3{g.positions[i*3], g.positions[i*3+1], g.positions[i*3+2]}
}

// UV returns the texture coordinate of vertex i.
func (g *SphereGeometry) UV(i int) (u, v float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.uvs[i*2], g.uvs[i*2+1]
}

// Dispose releases the vertex buffers.
func (g *SphereGeometry) Dispose() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions, g.uvs, g.indices = nil, nil, nil
	g.disposed = true
}

// Disposed reports whether Dispose was called.
func (g *SphereGeometry) Disposed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disposed
}

// BasicMaterial is an unlit material: surface colour comes straight from
// the texture.
type BasicMaterial struct {
	texture Texture
	side    Side

	mu       sync.Mutex
	disposed bool
}

// NewBasicMaterial creates an unlit material. The material does not own tex.
func NewBasicMaterial(tex Texture, side Side) (*BasicMaterial, error) {
	if tex == nil {
		return nil, fmt.Errorf("material requires a texture")
	}
	return &BasicMaterial{texture: tex, side: side}, nil
}

func (m *BasicMaterial) Texture() Texture { return m.texture }
func (m *BasicMaterial) Side() Side       { return m.side }

// Dispose releases the material's shader state.
func (m *BasicMaterial) Dispose() {
	m.mu.Lock()
	m.disposed = true
	m.mu.Unlock()
}

// Disposed reports whether Dispose was called.
func (m *BasicMaterial) Disposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

// visibleFromInside reports whether a camera inside the sphere sees the
// material's faces.
func visibleFromInside(side Side, inverted bool) bool {
	switch side {
	case DoubleSide:
		return true
	case FrontSide:
		return inverted
	case BackSide:
		return !inverted
	default:
		return false
	}
}
