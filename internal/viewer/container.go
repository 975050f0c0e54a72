package viewer

import (
	"image"
	"image/draw"
	"sync"
)

// Container is the surface a viewer session draws into: a page element, a
// window, or an offscreen buffer.
//
// Present runs on the session's render goroutine while the session lock is
// held, so it must not call back into the Manager. The frame is reused by
// the next render; implementations copy what they keep.
type Container interface {
	// Size returns the current drawable size in logical pixels.
	Size() (width, height int)
	// Present receives every rendered frame.
	Present(frame *image.RGBA)
	// ShowFallback replaces the 3D view with the flat image at imageURL.
	ShowFallback(imageURL string)
	// ShowPlaceholder shows text instead of a panorama.
	ShowPlaceholder(text string)
}

// OffscreenContainer keeps the most recent frame in memory. It backs the
// CLI and tests.
type OffscreenContainer struct {
	mu          sync.Mutex
	width       int
	height      int
	frame       *image.RGBA
	presented   int
	fallback    string
	placeholder string
}

// NewOffscreenContainer creates a container of the given size.
func NewOffscreenContainer(width, height int) *OffscreenContainer {
	return &OffscreenContainer{width: width, height: height}
}

// SetSize changes the container dimensions. Callers follow it with
// Manager.Resize, just as a page reacts to a resize observer.
func (c *OffscreenContainer) SetSize(width, height int) {
	c.mu.Lock()
	c.width, c.height = width, height
	c.mu.Unlock()
}

func (c *OffscreenContainer) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *OffscreenContainer) Present(frame *image.RGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame == nil || c.frame.Bounds() != frame.Bounds() {
		c.frame = image.NewRGBA(frame.Bounds())
	}
	draw.Draw(c.frame, c.frame.Bounds(), frame, frame.Bounds().Min, draw.Src)
	c.presented++
}

func (c *OffscreenContainer) ShowFallback(imageURL string) {
	c.mu.Lock()
	c.fallback = imageURL
	c.mu.Unlock()
}

func (c *OffscreenContainer) ShowPlaceholder(text string) {
	c.mu.Lock()
	c.placeholder = text
	c.mu.Unlock()
}

// Frame returns a copy of the last presented frame, or nil.
func (c *OffscreenContainer) Frame() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame == nil {
		return nil
	}
	out := image.NewRGBA(c.frame.Bounds())
	copy(out.Pix, c.frame.Pix)
	return out
}

// Presented returns how many frames the container received.
func (c *OffscreenContainer) Presented() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presented
}

// Fallback returns the image shown in place of the 3D view, if any.
func (c *OffscreenContainer) Fallback() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fallback
}

// Placeholder returns the placeholder text, if any.
func (c *OffscreenContainer) Placeholder() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.placeholder
}
