package render

import (
	"image/color"
	"sync"
)

// Mesh pairs a geometry with the material used to draw it. The mesh does not
// own either; whoever created them disposes them.
type Mesh struct {
	Geometry Geometry
	Material Material
}

// NewMesh creates a mesh.
func NewMesh(g Geometry, m Material) *Mesh {
	return &Mesh{Geometry: g, Material: m}
}

// Scene is the set of meshes a renderer draws.
type Scene struct {
	mu         sync.RWMutex
	meshes     []*Mesh
	Background color.RGBA
}

// NewScene creates an empty scene with a black background.
func NewScene() *Scene {
	return &Scene{Background: color.RGBA{A: 0xff}}
}

// Add appends a mesh.
func (s *Scene) Add(m *Mesh) {
	s.mu.Lock()
	s.meshes = append(s.meshes, m)
	s.mu.Unlock()
}

// Remove drops a mesh if present.
func (s *Scene) Remove(m *Mesh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.meshes {
		if existing == m {
			s.meshes = append(s.meshes[:i], s.meshes[i+1:]...)
			return
		}
	}
}

// Clear removes every mesh.
func (s *Scene) Clear() {
	s.mu.Lock()
	s.meshes = nil
	s.mu.Unlock()
}

// Meshes returns a snapshot of the scene's meshes.
func (s *Scene) Meshes() []*Mesh {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Mesh, len(s.meshes))
	copy(out, s.meshes)
	return out
}
