package render

import (
	"context"
)

// SoftEngine is the pure-Go Engine. Resources it returns are safe to use
// from one render goroutine while other goroutines resize or dispose them.
type SoftEngine struct {
	loader *TextureLoader
}

// NewSoftEngine creates an engine that loads textures with loader. A nil
// loader uses NewTextureLoader.
func NewSoftEngine(loader *TextureLoader) *SoftEngine {
	if loader == nil {
		loader = NewTextureLoader()
	}
	return &SoftEngine{loader: loader}
}

// Loader returns the texture loader in use.
func (e *SoftEngine) Loader() *TextureLoader { return e.loader }

func (e *SoftEngine) NewRenderer(width, height int) (Renderer, error) {
	r, err := NewSoftRenderer(width, height)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (e *SoftEngine) LoadTexture(ctx context.Context, url string) (Texture, error) {
	tex, err := e.loader.Load(ctx, url)
	if err != nil {
		return nil, err
	}
	return tex, nil
}

func (e *SoftEngine) NewSphereGeometry(radius float32, widthSegments, heightSegments int) (Geometry, error) {
	g, err := NewSphereGeometry(radius, widthSegments, heightSegments)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (e *SoftEngine) NewMaterial(tex Texture, side Side) (Material, error) {
	m, err := NewBasicMaterial(tex, side)
	if err != nil {
		return nil, err
	}
	return m, nil
}

var _ Engine = (*SoftEngine)(nil)
