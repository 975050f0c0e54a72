package render

import (
	"github.com/chewxy/math32"
)

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X, Y, Z float32
}

func (a Vec3) Add(b Vec3) Vec3          { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3          { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) MulScalar(s float32) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float32       { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Length() float32          { return math32.Sqrt(a.Dot(a)) }

// Cross returns a x b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// Normal returns a unit vector in the direction of a, or a if it is zero.
func (a Vec3) Normal() Vec3 {
	l := a.Length()
	if l == 0 {
		return a
	}
	return a.MulScalar(1 / l)
}

// Vec3Y is the world up axis.
var Vec3Y = Vec3{0, 1, 0}

// Camera defaults used by every panorama viewer.
const (
	DefaultFOV  = 75
	DefaultNear = 0.1
	DefaultFar  = 1000
)

// projection is the cached frustum shape derived from FOV and Aspect.
type projection struct {
	tanHalfY float32
	tanHalfX float32
}

// PerspectiveCamera looks from Position towards Target. Changing FOV or
// Aspect has no effect on rendering until UpdateProjectionMatrix is called.
type PerspectiveCamera struct {
	FOV    float32 // vertical field of view in degrees
	Aspect float32 // width / height
	Near   float32
	Far    float32

	Position Vec3
	Target   Vec3
	Up       Vec3

	prjn projection
}

// NewPerspectiveCamera creates a camera at the origin looking down -Z.
func NewPerspectiveCamera(fov, aspect, near, far float32) *PerspectiveCamera {
	c := &PerspectiveCamera{
		FOV:      fov,
		Aspect:   aspect,
		Near:     near,
		Far:      far,
		Position: Vec3{0, 0, 0},
		Target:   Vec3{0, 0, -1},
		Up:       Vec3Y,
	}
	c.UpdateProjectionMatrix()
	return c
}

// AspectRatio returns width/height, guarding against empty containers.
func AspectRatio(width, height int) float32 {
	if width <= 0 || height <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}

// UpdateProjectionMatrix recomputes the frustum from FOV and Aspect.
func (c *PerspectiveCamera) UpdateProjectionMatrix() {
	c.prjn.tanHalfY = math32.Tan(degToRad(c.FOV) / 2)
	c.prjn.tanHalfX = c.prjn.tanHalfY * c.Aspect
}

// ProjectedAspect returns the aspect ratio the renderer currently uses.
func (c *PerspectiveCamera) ProjectedAspect() float32 {
	if c.prjn.tanHalfY == 0 {
		return 0
	}
	return c.prjn.tanHalfX / c.prjn.tanHalfY
}

// basis returns the camera's forward, right and up unit vectors.
func (c *PerspectiveCamera) basis() (forward, right, up Vec3) {
	forward = c.Target.Sub(c.Position).Normal()
	if forward.Length() == 0 {
		forward = Vec3{0, 0, -1}
	}
	right = forward.Cross(c.Up).Normal()
	if right.Length() == 0 {
		right = Vec3{1, 0, 0}
	}
	up = right.Cross(forward)
	return forward, right, up
}

// Ray returns the unit direction through normalised device coordinates
// (ndcX, ndcY in -1..1, +Y up).
func (c *PerspectiveCamera) Ray(ndcX, ndcY float32) Vec3 {
	forward, right, up := c.basis()
	return forward.
		Add(right.MulScalar(ndcX * c.prjn.tanHalfX)).
		Add(up.MulScalar(ndcY * c.prjn.tanHalfY)).
		Normal()
}

func degToRad(d float32) float32 {
	return d * math32.Pi / 180
}
