// Package render defines the rendering operations the viewer needs from a
// real-time 3D engine (create a renderer, load a texture, build a sphere,
// build a material, render a frame, dispose) and ships a pure-Go software
// engine implementing them.
//
// The software engine ray-casts every output pixel through a perspective
// camera into the inside of a textured sphere, which is exactly the scene a
// panorama viewer draws. It needs no GPU, so sessions run headless in the
// CLI and in tests.
//
// Resource ownership: every value returned by an Engine that has a Dispose
// method is owned by the caller and must be disposed exactly once. Dispose is
// idempotent on all software resources.
package render

import (
	"context"
	"errors"
	"image"
	"image/color"
)

// ErrDisposed is returned when a disposed resource is used.
var ErrDisposed = errors.New("render: resource disposed")

// Side selects which faces of a mesh are drawn.
type Side int

const (
	FrontSide Side = iota
	BackSide
	DoubleSide
)

func (s Side) String() string {
	switch s {
	case FrontSide:
		return "front"
	case BackSide:
		return "back"
	case DoubleSide:
		return "double"
	default:
		return "unknown"
	}
}

// Engine creates the GPU-backed (or software) resources of a viewer session.
type Engine interface {
	// NewRenderer creates a renderer whose drawing surface is width x height.
	NewRenderer(width, height int) (Renderer, error)
	// LoadTexture fetches and decodes the image at url. It blocks until the
	// texture is ready, ctx is done, or loading fails.
	LoadTexture(ctx context.Context, url string) (Texture, error)
	// NewSphereGeometry builds a UV sphere centred on the origin.
	NewSphereGeometry(radius float32, widthSegments, heightSegments int) (Geometry, error)
	// NewMaterial builds an unlit material mapping tex onto a mesh.
	NewMaterial(tex Texture, side Side) (Material, error)
}

// Renderer draws a scene from a camera onto its drawing surface.
type Renderer interface {
	// SetSize resizes the drawing surface (logical pixels).
	SetSize(width, height int)
	// Size returns the logical surface size.
	Size() (width, height int)
	// SetPixelRatio sets the device pixel ratio applied to the surface.
	SetPixelRatio(ratio float32)
	// Render draws one frame and returns the drawing surface. The returned
	// image is reused by the next call.
	Render(scene *Scene, camera *PerspectiveCamera) (*image.RGBA, error)
	// Dispose releases the drawing surface.
	Dispose()
}

// Texture is decoded image data ready for sampling.
type Texture interface {
	Size() (width, height int)
	Dispose()
}

// Sampler is implemented by textures the software renderer can read.
// u wraps around, v is clamped; v = 1 is the top row.
type Sampler interface {
	Sample(u, v float32) color.RGBA
}

// Geometry is a mesh shape.
type Geometry interface {
	Radius() float32
	// Scale multiplies vertex positions; a negative x turns the sphere
	// inside out so its faces point at a camera placed at the centre.
	Scale(x, y, z float32)
	// Inverted reports whether faces point inwards.
	Inverted() bool
	VertexCount() int
	Dispose()
}

// Material describes how a mesh surface is shaded.
type Material interface {
	Texture() Texture
	Side() Side
	Dispose()
}
