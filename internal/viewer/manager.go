// Package viewer manages the lifecycle of panorama viewer slots: per-slot
// allocation of scene, camera, renderer and controls, the asynchronous
// texture load, the render loop, resize handling and deterministic disposal.
//
// Every mount bumps the slot's epoch. An asynchronous texture load captures
// the epoch it was started under and is discarded, with its texture
// disposed, if the slot has moved on by the time it resolves.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fpang/skybox-viewer/internal/metrics"
	"github.com/fpang/skybox-viewer/internal/panorama"
	"github.com/fpang/skybox-viewer/internal/render"
)

var (
	// ErrClosed is returned by Mount after Close.
	ErrClosed = errors.New("viewer: manager closed")
	// ErrUnknownSlot is returned for slots that are not mounted.
	ErrUnknownSlot = errors.New("viewer: unknown slot")
)

const (
	// NoPreviewText is shown for descriptors without an image.
	NoPreviewText = "No image available"

	// DefaultFrameInterval renders at 30 frames per second.
	DefaultFrameInterval = time.Second / 30

	// cameraDistance puts the camera just off the sphere centre so the
	// orbit controls have a radius to rotate around.
	cameraDistance = 0.1
)

// Options configures a Manager.
type Options struct {
	// FrameInterval is the render loop period. Zero uses DefaultFrameInterval.
	FrameInterval time.Duration
	// PixelRatio is the device pixel ratio applied to every renderer.
	PixelRatio float32
	// OnState is called after every phase change, outside any lock.
	OnState func(State)
}

// MountOption adjusts a single Mount call.
type MountOption func(*mountConfig)

type mountConfig struct {
	preview bool
}

// AsPreview mounts with the coarse sphere tessellation used in grids.
func AsPreview() MountOption {
	return func(c *mountConfig) { c.preview = true }
}

// Manager owns the viewer sessions of every slot. It is safe for
// concurrent use.
type Manager struct {
	engine render.Engine
	opts   Options

	mu       sync.Mutex
	sessions map[string]*session
	epochs   map[string]uint64
	closed   bool
	loads    sync.WaitGroup
}

// NewManager creates a manager that allocates resources from engine.
func NewManager(engine render.Engine, opts Options) *Manager {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.PixelRatio <= 0 {
		opts.PixelRatio = 1
	}
	return &Manager{
		engine:   engine,
		opts:     opts,
		sessions: make(map[string]*session),
		epochs:   make(map[string]uint64),
	}
}

// Mount shows descriptor in slotID. A descriptor without an image only
// shows the placeholder. Otherwise the scene, camera, renderer and controls
// are allocated synchronously and the texture load starts in the
// background. Mounting an occupied slot replaces the previous session.
func (m *Manager) Mount(slotID string, container Container, descriptor panorama.Descriptor, background bool, opts ...MountOption) error {
	if container == nil {
		return fmt.Errorf("mount %s: container is required", slotID)
	}
	var cfg mountConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.epochs[slotID]++
	s := &session{
		slotID:     slotID,
		epoch:      m.epochs[slotID],
		descriptor: descriptor,
		background: background,
		container:  container,
	}
	prev := m.sessions[slotID]
	m.sessions[slotID] = s
	m.loads.Add(1)
	m.mu.Unlock()

	loading := false
	defer func() {
		if !loading {
			m.loads.Done()
		}
	}()

	if prev != nil {
		m.finish(prev)
	}

	if !descriptor.Renderable() {
		s.mu.Lock()
		s.phase = PhasePlaceholder
		st := s.snapshotLocked()
		s.mu.Unlock()
		container.ShowPlaceholder(NoPreviewText)
		m.notify(st)
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if err := m.allocateLocked(s); err != nil {
		s.releaseLocked()
		s.phase = PhaseFailed
		s.err = err
		st := s.snapshotLocked()
		s.mu.Unlock()
		m.notify(st)
		return fmt.Errorf("mount %s: %w", slotID, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.phase = PhaseLoading
	st := s.snapshotLocked()
	s.mu.Unlock()
	m.notify(st)

	logger(s).Debug().
		Str("url", descriptor.ImageURL).
		Bool("background", background).
		Bool("preview", cfg.preview).
		Msg("Viewer mounted, loading texture")

	loading = true
	go m.load(ctx, s, cfg)
	return nil
}

// allocateLocked creates the synchronous part of a session.
func (m *Manager) allocateLocked(s *session) error {
	w, h := s.container.Size()

	scene := render.NewScene()
	camera := render.NewPerspectiveCamera(render.DefaultFOV, render.AspectRatio(w, h), render.DefaultNear, render.DefaultFar)
	camera.Position = render.Vec3{Z: cameraDistance}
	camera.Target = render.Vec3{}

	renderer, err := m.engine.NewRenderer(w, h)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	renderer.SetPixelRatio(m.opts.PixelRatio)
	s.res.add(renderer.Dispose)

	controls := render.NewOrbitControls(camera, render.PanoramaControls(s.background))
	s.res.add(controls.Dispose)
	s.res.add(scene.Clear)

	s.scene, s.camera, s.renderer, s.controls = scene, camera, renderer, controls
	return nil
}

// load resolves the texture and, if the session is still current, builds
// the mesh and starts the render loop.
func (m *Manager) load(ctx context.Context, s *session, cfg mountConfig) {
	defer m.loads.Done()

	startTime := time.Now()
	tex, err := m.engine.LoadTexture(ctx, s.descriptor.ImageURL)
	elapsed := time.Since(startTime)

	if !m.current(s) {
		discard(s, tex)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		discard(s, tex)
		return
	}
	s.loadTime = elapsed

	if err == nil {
		err = m.buildLocked(s, tex, cfg)
	} else {
		err = &panorama.TextureLoadError{URL: s.descriptor.ImageURL, Err: err}
	}
	if err != nil {
		s.releaseLocked()
		s.phase = PhaseFailed
		s.err = err
		st := s.snapshotLocked()
		s.mu.Unlock()

		logger(s).Warn().Err(err).
			Str("url", s.descriptor.ImageURL).
			Dur("duration", elapsed).
			Msg("Panorama load failed")
		if !s.background {
			s.container.ShowFallback(s.descriptor.ImageURL)
		}
		m.notify(st)
		return
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.phase = PhaseReady
	st := s.snapshotLocked()
	go s.renderLoop(m.opts.FrameInterval, s.stop, s.done)
	s.mu.Unlock()

	logger(s).Debug().Dur("duration", elapsed).Msg("Panorama ready")
	m.notify(st)
}

// buildLocked turns a loaded texture into the inverted sphere mesh. The
// texture joins the release list first so it is disposed on any failure.
func (m *Manager) buildLocked(s *session, tex render.Texture, cfg mountConfig) error {
	s.texture = tex
	s.res.add(tex.Dispose)

	ws, hs := render.FullWidthSegments, render.FullHeightSegments
	if cfg.preview {
		ws, hs = render.PreviewWidthSegments, render.PreviewHeightSegments
	}
	geometry, err := m.engine.NewSphereGeometry(render.SphereRadius, ws, hs)
	if err != nil {
		return fmt.Errorf("create sphere: %w", err)
	}
	geometry.Scale(-1, 1, 1)
	s.res.add(geometry.Dispose)

	material, err := m.engine.NewMaterial(tex, render.DoubleSide)
	if err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	s.res.add(material.Dispose)

	scene := s.scene
	mesh := render.NewMesh(geometry, material)
	scene.Add(mesh)
	s.res.add(func() { scene.Remove(mesh) })

	s.geometry, s.material, s.mesh = geometry, material, mesh
	return nil
}

// Resize re-reads the container size and applies it to the camera and the
// renderer. It runs under the session lock, so no frame sees a camera and
// renderer that disagree.
func (m *Manager) Resize(slotID string) error {
	s := m.lookup(slotID)
	if s == nil {
		return ErrUnknownSlot
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.renderer == nil {
		return nil
	}
	w, h := s.container.Size()
	s.camera.Aspect = render.AspectRatio(w, h)
	s.camera.UpdateProjectionMatrix()
	s.renderer.SetSize(w, h)

	logger(s).Debug().Int("width", w).Int("height", h).Msg("Viewer resized")
	return nil
}

// Rotate forwards a drag of (dx, dy) pixels to the slot's controls. It
// reports whether the input was accepted.
func (m *Manager) Rotate(slotID string, dx, dy float32) bool {
	s := m.lookup(slotID)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.controls == nil {
		return false
	}
	_, h := s.renderer.Size()
	return s.controls.Rotate(dx, dy, h)
}

// Unmount stops and releases the slot. Unknown or already unmounted slots
// are ignored.
func (m *Manager) Unmount(slotID string) {
	m.mu.Lock()
	s := m.sessions[slotID]
	if s != nil {
		delete(m.sessions, slotID)
		m.epochs[slotID]++
	}
	m.mu.Unlock()

	if s != nil {
		m.finish(s)
	}
}

// State returns a snapshot of the slot.
func (m *Manager) State(slotID string) (State, bool) {
	s := m.lookup(slotID)
	if s == nil {
		return State{}, false
	}
	return s.snapshot(), true
}

// Slots returns the mounted slot ids in order.
func (m *Manager) Slots() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close unmounts every slot and waits for outstanding texture loads to
// return. Mount fails with ErrClosed afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := make([]*session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		m.epochs[id]++
	}
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, s := range sessions {
		m.finish(s)
	}
	m.loads.Wait()
}

func (m *Manager) lookup(slotID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[slotID]
}

// current reports whether s is still the live session of its slot.
func (m *Manager) current(s *session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && m.epochs[s.slotID] == s.epoch && m.sessions[s.slotID] == s
}

// finish tears s down and records its metrics.
func (m *Manager) finish(s *session) {
	before := s.snapshot()
	if !s.teardown() {
		return
	}

	if before.Phase != PhasePlaceholder {
		mode := "fullscreen"
		if s.background {
			mode = "background"
		}
		rec := metrics.New(metrics.DefaultNamespace).
			Dimension("component", "viewer").
			Dimension("mode", mode).
			Metric("FramesRendered", float64(before.Frames), metrics.UnitCount).
			Property("slotId", s.slotID).
			Property("phase", string(before.Phase))
		if before.LoadTime > 0 {
			rec.Metric("TextureLoadLatency", float64(before.LoadTime.Milliseconds()), metrics.UnitMilliseconds)
		}
		rec.Flush()
	}

	logger(s).Debug().Str("phase", string(before.Phase)).Uint64("frames", before.Frames).Msg("Viewer unmounted")
	m.notify(s.snapshot())
}

func (m *Manager) notify(st State) {
	if m.opts.OnState != nil {
		m.opts.OnState(st)
	}
}

// discard drops a load result that arrived for a superseded session.
func discard(s *session, tex render.Texture) {
	if tex != nil {
		tex.Dispose()
	}
	logger(s).Debug().Msg("Discarded stale texture load")
}

func logger(s *session) *zerolog.Logger {
	l := log.With().Str("slotId", s.slotID).Uint64("epoch", s.epoch).Logger()
	return &l
}
