// Package gallery lays out the style catalog as a grid of live panorama
// previews, one viewer session per style with an image and a placeholder
// for the rest.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fpang/skybox-viewer/internal/panorama"
	"github.com/fpang/skybox-viewer/internal/render"
	"github.com/fpang/skybox-viewer/internal/viewer"
)

// ErrUnknownStyle is returned by Select for ids outside the catalog.
var ErrUnknownStyle = errors.New("gallery: unknown style")

// ContainerFactory creates the grid cell for the style at index.
type ContainerFactory func(index int, style panorama.Style) viewer.Container

// LookupFunc fetches the full entry of a style by id.
type LookupFunc func(ctx context.Context, id int) (panorama.Style, error)

// Options configures a Gallery.
type Options struct {
	// LoadRate limits how many preview loads start per second. Zero starts
	// them all at once.
	LoadRate float64
	Burst    int
	// FrameInterval is passed to the preview viewers.
	FrameInterval time.Duration
	// Lookup, when set, is used by Select to fetch the selected entry.
	Lookup LookupFunc
}

// Slot is one grid cell.
type Slot struct {
	ID        string
	Index     int
	Style     panorama.Style
	Container viewer.Container
	// Live is set when a viewer session was mounted for the cell.
	Live bool
}

// Gallery owns the preview sessions of one catalog listing.
type Gallery struct {
	manager *viewer.Manager
	lookup  LookupFunc
	slots   []*Slot

	mu      sync.Mutex
	pending map[string]chan struct{}
}

// SlotID names the grid cell at index.
func SlotID(index int) string {
	return "skybox-" + strconv.Itoa(index)
}

// Open mounts a preview for every style that has an image and shows the
// no-preview placeholder for every style that does not.
func Open(ctx context.Context, engine render.Engine, styles []panorama.Style, newContainer ContainerFactory, opts Options) (*Gallery, error) {
	g := &Gallery{
		lookup:  opts.Lookup,
		pending: make(map[string]chan struct{}),
	}
	g.manager = viewer.NewManager(engine, viewer.Options{
		FrameInterval: opts.FrameInterval,
		OnState:       g.onState,
	})

	var limiter *rate.Limiter
	if opts.LoadRate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.LoadRate), burst)
	}

	for i, style := range styles {
		slot := &Slot{ID: SlotID(i), Index: i, Style: style, Container: newContainer(i, style)}
		g.slots = append(g.slots, slot)

		if !style.HasPreview() {
			slot.Container.ShowPlaceholder(viewer.NoPreviewText)
			continue
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				g.Close()
				return nil, fmt.Errorf("open gallery: %w", err)
			}
		}

		g.mu.Lock()
		g.pending[slot.ID] = make(chan struct{})
		g.mu.Unlock()

		if err := g.manager.Mount(slot.ID, slot.Container, style.Descriptor(), false, viewer.AsPreview()); err != nil {
			log.Warn().Err(err).Str("slotId", slot.ID).Int("styleId", style.ID).Msg("Preview mount failed")
			g.settle(slot.ID)
			continue
		}
		slot.Live = true
	}

	log.Info().
		Int("styles", len(styles)).
		Int("previews", g.LiveSessions()).
		Int("placeholders", g.Placeholders()).
		Msg("Gallery opened")
	return g, nil
}

// onState releases WaitLoaded once a preview settles.
func (g *Gallery) onState(st viewer.State) {
	switch st.Phase {
	case viewer.PhaseReady, viewer.PhaseFailed, viewer.PhaseUnmounted:
	default:
		return
	}
	g.settle(st.SlotID)
}

// settle releases the WaitLoaded entry of slotID, if still pending.
func (g *Gallery) settle(slotID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, ok := g.pending[slotID]; ok {
		close(ch)
		delete(g.pending, slotID)
	}
}

// Slots returns the grid cells in catalog order.
func (g *Gallery) Slots() []Slot {
	out := make([]Slot, len(g.slots))
	for i, s := range g.slots {
		out[i] = *s
	}
	return out
}

// LiveSessions returns how many preview sessions are mounted.
func (g *Gallery) LiveSessions() int {
	return len(g.manager.Slots())
}

// Placeholders returns how many cells show the no-preview placeholder.
func (g *Gallery) Placeholders() int {
	n := 0
	for _, s := range g.slots {
		if !s.Style.HasPreview() {
			n++
		}
	}
	return n
}

// State returns the viewer state of the cell at index.
func (g *Gallery) State(index int) (viewer.State, bool) {
	return g.manager.State(SlotID(index))
}

// Resize forwards a cell size change to its viewer.
func (g *Gallery) Resize(index int) error {
	return g.manager.Resize(SlotID(index))
}

// Rotate forwards drag input to the cell at index.
func (g *Gallery) Rotate(index int, dx, dy float32) bool {
	return g.manager.Rotate(SlotID(index), dx, dy)
}

// WaitLoaded blocks until every mounted preview is ready or has failed.
func (g *Gallery) WaitLoaded(ctx context.Context) error {
	g.mu.Lock()
	waits := make([]chan struct{}, 0, len(g.pending))
	for _, ch := range g.pending {
		waits = append(waits, ch)
	}
	g.mu.Unlock()

	eg, ctx := errgroup.WithContext(ctx)
	for _, ch := range waits {
		ch := ch
		eg.Go(func() error {
			select {
			case <-ch:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return eg.Wait()
}

// Select resolves the descriptor of a catalog entry for the full-screen or
// background view. With a Lookup configured the entry is fetched fresh;
// otherwise the catalog copy is used.
func (g *Gallery) Select(ctx context.Context, styleID int) (panorama.Descriptor, error) {
	var style panorama.Style
	found := false
	for _, s := range g.slots {
		if s.Style.ID == styleID {
			style, found = s.Style, true
			break
		}
	}
	if !found {
		return panorama.Descriptor{}, fmt.Errorf("select %d: %w", styleID, ErrUnknownStyle)
	}

	if g.lookup != nil {
		fresh, err := g.lookup(ctx, styleID)
		if err != nil {
			return panorama.Descriptor{}, fmt.Errorf("select %d: %w", styleID, err)
		}
		style = fresh
	}
	return style.Descriptor(), nil
}

// Close unmounts every preview, including ones still loading.
func (g *Gallery) Close() {
	g.manager.Close()
}
