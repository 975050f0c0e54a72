package render

import (
	"sync"

	"github.com/chewxy/math32"
)

// Control defaults for panorama viewing.
const (
	DefaultRotateSpeed     = 0.5
	DefaultAutoRotateSpeed = 0.5
)

// phiEpsilon keeps the polar angle off the poles so the up vector stays valid.
const phiEpsilon = 1e-6

// ControlsOptions configures OrbitControls.
type ControlsOptions struct {
	EnableRotate bool
	EnableZoom   bool
	EnablePan    bool
	RotateSpeed  float32
	// AutoRotate turns the camera around the target on every Update;
	// AutoRotateSpeed 2.0 is one full turn per 30 seconds at 60 updates/s.
	AutoRotate      bool
	AutoRotateSpeed float32
}

// PanoramaControls returns the options every viewer uses: rotation only,
// plus a slow auto-rotation for background layers.
func PanoramaControls(background bool) ControlsOptions {
	opts := ControlsOptions{
		EnableRotate: true,
		RotateSpeed:  DefaultRotateSpeed,
	}
	if background {
		opts.AutoRotate = true
		opts.AutoRotateSpeed = DefaultAutoRotateSpeed
	}
	return opts
}

// OrbitControls orbits a camera around its target in response to drag
// input. Input may arrive from any goroutine; the camera is only modified
// inside Update, which the owner calls from its render loop.
type OrbitControls struct {
	camera *PerspectiveCamera
	opts   ControlsOptions

	mu         sync.Mutex
	deltaTheta float32
	deltaPhi   float32
	disposed   bool
}

// NewOrbitControls attaches controls to camera.
func NewOrbitControls(camera *PerspectiveCamera, opts ControlsOptions) *OrbitControls {
	return &OrbitControls{camera: camera, opts: opts}
}

// Options returns the controls configuration.
func (c *OrbitControls) Options() ControlsOptions {
	return c.opts
}

// Rotate applies a drag of (dx, dy) pixels on a surface viewHeight pixels
// tall. It reports whether the input was accepted.
func (c *OrbitControls) Rotate(dx, dy float32, viewHeight int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || !c.opts.EnableRotate || viewHeight <= 0 {
		return false
	}
	h := float32(viewHeight)
	c.deltaTheta -= 2 * math32.Pi * dx / h * c.opts.RotateSpeed
	c.deltaPhi -= 2 * math32.Pi * dy / h * c.opts.RotateSpeed
	return true
}

// Zoom reports whether zoom input was accepted. Panorama viewers disable it.
func (c *OrbitControls) Zoom(scale float32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disposed && c.opts.EnableZoom && scale > 0
}

// Pan reports whether pan input was accepted. Panorama viewers disable it.
func (c *OrbitControls) Pan(dx, dy float32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disposed && c.opts.EnablePan
}

// autoRotationAngle is the per-update turn for the configured speed.
func (c *OrbitControls) autoRotationAngle() float32 {
	return 2 * math32.Pi / 60 / 60 * c.opts.AutoRotateSpeed
}

// Update applies pending input and auto-rotation to the camera. It reports
// whether the camera moved.
func (c *OrbitControls) Update() bool {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return false
	}
	dTheta, dPhi := c.deltaTheta, c.deltaPhi
	c.deltaTheta, c.deltaPhi = 0, 0
	c.mu.Unlock()

	if c.opts.AutoRotate {
		dTheta -= c.autoRotationAngle()
	}
	if dTheta == 0 && dPhi == 0 {
		return false
	}

	cam := c.camera
	offset := cam.Position.Sub(cam.Target)
	radius := offset.Length()
	if radius == 0 {
		return false
	}
	theta := math32.Atan2(offset.X, offset.Z) + dTheta
	phi := math32.Acos(clamp(offset.Y/radius, -1, 1)) + dPhi
	phi = clamp(phi, phiEpsilon, math32.Pi-phiEpsilon)

	sinPhi := math32.Sin(phi)
	cam.Position = cam.Target.Add(Vec3{
		X: radius * sinPhi * math32.Sin(theta),
		Y: radius * math32.Cos(phi),
		Z: radius * sinPhi * math32.Cos(theta),
	})
	return true
}

// Azimuth returns the camera's horizontal angle around the target in radians.
func (c *OrbitControls) Azimuth() float32 {
	offset := c.camera.Position.Sub(c.camera.Target)
	return math32.Atan2(offset.X, offset.Z)
}

// Dispose detaches the controls; later input and updates are ignored.
func (c *OrbitControls) Dispose() {
	c.mu.Lock()
	c.disposed = true
	c.mu.Unlock()
}

// Disposed reports whether Dispose was called.
func (c *OrbitControls) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}
