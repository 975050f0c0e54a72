package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/fpang/skybox-viewer/internal/panorama"
	"github.com/fpang/skybox-viewer/internal/render"
)

// Phase is the externally visible state of a viewer slot.
type Phase string

const (
	PhaseLoading     Phase = "loading"
	PhaseReady       Phase = "ready"
	PhaseFailed      Phase = "failed"
	PhasePlaceholder Phase = "placeholder"
	PhaseUnmounted   Phase = "unmounted"
)

// State is a snapshot of one slot.
type State struct {
	SlotID     string
	Epoch      uint64
	Phase      Phase
	Descriptor panorama.Descriptor
	Background bool
	// Err is set in PhaseFailed and is a *panorama.TextureLoadError for
	// load failures.
	Err    error
	Frames uint64
	// Width and Height are the renderer output size.
	Width  int
	Height int
	// Aspect is the camera aspect ratio in effect for rendering.
	Aspect   float32
	LoadTime time.Duration
}

// releaser runs cleanup functions in reverse order of registration, once.
type releaser struct {
	fns []func()
}

func (r *releaser) add(fn func()) {
	r.fns = append(r.fns, fn)
}

func (r *releaser) run() {
	for i := len(r.fns) - 1; i >= 0; i-- {
		r.fns[i]()
	}
	r.fns = nil
}

func (r *releaser) len() int { return len(r.fns) }

// session owns every rendering resource of one mounted slot. Its handles
// are only touched with mu held, so the render loop, Resize and teardown
// never observe a half-built or half-released session.
type session struct {
	slotID     string
	epoch      uint64
	descriptor panorama.Descriptor
	background bool
	container  Container

	mu       sync.Mutex
	scene    *render.Scene
	camera   *render.PerspectiveCamera
	renderer render.Renderer
	controls *render.OrbitControls
	texture  render.Texture
	geometry render.Geometry
	material render.Material
	mesh     *render.Mesh
	res      releaser

	phase    Phase
	err      error
	frames   uint64
	closed   bool
	cancel   context.CancelFunc
	stop     chan struct{}
	done     chan struct{}
	loadTime time.Duration
}

func (s *session) snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *session) snapshotLocked() State {
	st := State{
		SlotID:     s.slotID,
		Epoch:      s.epoch,
		Phase:      s.phase,
		Descriptor: s.descriptor,
		Background: s.background,
		Err:        s.err,
		Frames:     s.frames,
		LoadTime:   s.loadTime,
	}
	if s.renderer != nil {
		st.Width, st.Height = s.renderer.Size()
	}
	if s.camera != nil {
		st.Aspect = s.camera.ProjectedAspect()
	}
	return st
}

// allocated reports how many resources are currently held.
func (s *session) allocated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res.len()
}

// releaseLocked disposes every resource and clears the handles.
func (s *session) releaseLocked() {
	s.res.run()
	s.scene, s.camera, s.renderer, s.controls = nil, nil, nil, nil
	s.texture, s.geometry, s.material, s.mesh = nil, nil, nil, nil
}

// renderLoop draws one frame per tick until stop is closed.
func (s *session) renderLoop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.renderFrame()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.renderFrame()
		}
	}
}

// renderFrame updates controls and renders once.
func (s *session) renderFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.renderer == nil || s.mesh == nil {
		return
	}
	s.controls.Update()
	frame, err := s.renderer.Render(s.scene, s.camera)
	if err != nil {
		logger(s).Warn().Err(err).Msg("Frame render failed")
		return
	}
	s.frames++
	s.container.Present(frame)
}

// teardown stops the render loop and releases everything. It is safe to
// call on sessions in any phase and more than once.
func (s *session) teardown() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	s.mu.Lock()
	s.releaseLocked()
	s.phase = PhaseUnmounted
	s.mu.Unlock()
	return true
}
