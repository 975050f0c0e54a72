package render

import (
	"fmt"
	"image"
	"sync"

	"github.com/chewxy/math32"
)

// maxPixelRatio bounds the surface scale so high-DPI displays don't
// quadruple the work per frame.
const maxPixelRatio = 2

// SoftRenderer draws textured spheres by ray casting. It is safe for use by
// one render loop plus concurrent Size/SetSize callers.
type SoftRenderer struct {
	mu         sync.Mutex
	width      int
	height     int
	pixelRatio float32
	surface    *image.RGBA
	frames     uint64
	disposed   bool
}

// NewSoftRenderer creates a renderer with a width x height drawing surface.
func NewSoftRenderer(width, height int) (*SoftRenderer, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("renderer size must not be negative, got %dx%d", width, height)
	}
	r := &SoftRenderer{pixelRatio: 1}
	r.SetSize(width, height)
	return r, nil
}

// SetSize resizes the drawing surface.
func (r *SoftRenderer) SetSize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	r.width, r.height = width, height
	r.allocate()
}

// Size returns the logical surface size.
func (r *SoftRenderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// SetPixelRatio scales the drawing surface, clamped to [1, 2].
func (r *SoftRenderer) SetPixelRatio(ratio float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	r.pixelRatio = clamp(ratio, 1, maxPixelRatio)
	r.allocate()
}

// DrawingBufferSize returns the physical surface size.
func (r *SoftRenderer) DrawingBufferSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.surface == nil {
		return 0, 0
	}
	b := r.surface.Bounds()
	return b.Dx(), b.Dy()
}

// Frames returns how many frames were rendered.
func (r *SoftRenderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// allocate (re)creates the surface; callers hold r.mu.
func (r *SoftRenderer) allocate() {
	w := int(float32(r.width)*r.pixelRatio + 0.5)
	h := int(float32(r.height)*r.pixelRatio + 0.5)
	if r.surface != nil && r.surface.Bounds().Dx() == w && r.surface.Bounds().Dy() == h {
		return
	}
	r.surface = image.NewRGBA(image.Rect(0, 0, w, h))
}

// Render draws scene from camera. Each pixel is cast into the first visible
// sphere mesh; pixels that hit nothing keep the scene background.
func (r *SoftRenderer) Render(scene *Scene, camera *PerspectiveCamera) (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return nil, ErrDisposed
	}
	if scene == nil || camera == nil {
		return nil, fmt.Errorf("render: scene and camera are required")
	}

	surface := r.surface
	b := surface.Bounds()
	w, h := b.Dx(), b.Dy()
	bg := scene.Background

	meshes := scene.Meshes()
	var target *Mesh
	var sampler Sampler
	for _, m := range meshes {
		if m.Geometry == nil || m.Material == nil {
			continue
		}
		if !visibleFromInside(m.Material.Side(), m.Geometry.Inverted()) {
			continue
		}
		if s, ok := m.Material.Texture().(Sampler); ok {
			target, sampler = m, s
			break
		}
	}

	if target == nil || w == 0 || h == 0 {
		fill(surface, bg.R, bg.G, bg.B, bg.A)
		r.frames++
		return surface, nil
	}

	radius := target.Geometry.Radius()
	mirror := float32(1)
	if target.Geometry.Inverted() {
		mirror = -1
	}
	origin := camera.Position
	forward, right, up := camera.basis()
	tx, ty := camera.prjn.tanHalfX, camera.prjn.tanHalfY

	for py := 0; py < h; py++ {
		ndcY := 1 - 2*(float32(py)+0.5)/float32(h)
		rowDir := forward.Add(up.MulScalar(ndcY * ty))
		for px := 0; px < w; px++ {
			ndcX := 2*(float32(px)+0.5)/float32(w) - 1
			dir := rowDir.Add(right.MulScalar(ndcX * tx)).Normal()

			hit, ok := intersectSphere(origin, dir, radius)
			i := py*surface.Stride + px*4
			if !ok {
				surface.Pix[i], surface.Pix[i+1], surface.Pix[i+2], surface.Pix[i+3] = bg.R, bg.G, bg.B, bg.A
				continue
			}
			u, v := sphereUV(hit, radius, mirror)
			c := sampler.Sample(u, v)
			surface.Pix[i], surface.Pix[i+1], surface.Pix[i+2], surface.Pix[i+3] = c.R, c.G, c.B, 0xff
		}
	}
	r.frames++
	return surface, nil
}

// Dispose releases the drawing surface.
func (r *SoftRenderer) Dispose() {
	r.mu.Lock()
	r.surface = nil
	r.disposed = true
	r.mu.Unlock()
}

// Disposed reports whether Dispose was called.
func (r *SoftRenderer) Disposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}

// intersectSphere returns the far intersection of the ray origin + t*dir
// with a sphere of the given radius centred on the origin.
func intersectSphere(origin, dir Vec3, radius float32) (Vec3, bool) {
	b := origin.Dot(dir)
	c := origin.Dot(origin) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return Vec3{}, false
	}
	t := -b + math32.Sqrt(disc)
	if t <= 0 {
		return Vec3{}, false
	}
	return origin.Add(dir.MulScalar(t)), true
}

// sphereUV inverts the sphere parameterisation of SphereGeometry for a point
// on its surface. mirror is the geometry's x scale sign.
func sphereUV(p Vec3, radius, mirror float32) (float32, float32) {
	x := p.X * mirror
	theta := math32.Acos(clamp(p.Y/radius, -1, 1))
	phi := math32.Atan2(p.Z, -x)
	if phi < 0 {
		phi += 2 * math32.Pi
	}
	return phi / (2 * math32.Pi), 1 - theta/math32.Pi
}

func fill(img *image.RGBA, r, g, b, a uint8) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, a
	}
}
