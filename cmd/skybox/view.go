package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/skybox-viewer/internal/cli"
	"github.com/fpang/skybox-viewer/internal/panorama"
	"github.com/fpang/skybox-viewer/internal/viewer"
)

const (
	defaultViewWidth  = 1280
	defaultViewHeight = 720

	mainSlot = "main"
)

// view flags
var (
	urlFlag        string
	idFlag         int
	pickFlag       bool
	backgroundFlag bool
	widthFlag      int
	heightFlag     int
	framesFlag     int
	dragFlag       float32
	viewOutFlag    string
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Render a panorama full-screen or as a background",
	Long: `Mount a viewer session for one panorama, render it for a number of frames
and save the last frame. The panorama comes from a URL or local path, a
catalog id, or a native file picker.

In background mode the camera auto-rotates and load failures are only
reported; full-screen mode falls back to the flat image instead.`,
	Run: runView,
}

func init() {
	viewCmd.Flags().StringVarP(&urlFlag, "url", "u", "", "Panorama image URL or local path")
	viewCmd.Flags().IntVar(&idFlag, "id", 0, "Catalog entry to view")
	viewCmd.Flags().BoolVar(&pickFlag, "pick", false, "Choose a local panorama with a file dialog")
	viewCmd.Flags().BoolVar(&backgroundFlag, "background", false, "Render as an auto-rotating background layer")
	viewCmd.Flags().IntVar(&widthFlag, "width", defaultViewWidth, "Output width in pixels")
	viewCmd.Flags().IntVar(&heightFlag, "height", defaultViewHeight, "Output height in pixels")
	viewCmd.Flags().IntVar(&framesFlag, "frames", 1, "Frames to render before saving")
	viewCmd.Flags().Float32Var(&dragFlag, "drag", 0, "Horizontal drag in pixels applied before each frame")
	viewCmd.Flags().StringVarP(&viewOutFlag, "out", "o", "skybox.png", "Where to save the last frame (.png, .jpg or .webp)")
	viewCmd.MarkFlagsMutuallyExclusive("url", "id", "pick")
	viewCmd.MarkFlagsOneRequired("url", "id", "pick")
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	descriptor, ok := resolveDescriptor(ctx)
	if !ok {
		return
	}

	st, err := renderToFile(ctx, descriptor, viewOptions{
		background: backgroundFlag,
		width:      widthFlag,
		height:     heightFlag,
		frames:     framesFlag,
		drag:       dragFlag,
		out:        viewOutFlag,
	})
	if err != nil {
		log.Fatal().Err(err).Str("url", descriptor.ImageURL).Msg("Failed to view skybox")
	}
	if st.Phase == viewer.PhasePlaceholder {
		return
	}
	fmt.Printf("Rendered %d frames at %dx%d, saved to %s\n", st.Frames, st.Width, st.Height, viewOutFlag)
}

// resolveDescriptor turns the source flags into a descriptor. It returns
// false if the user cancelled the file picker.
func resolveDescriptor(ctx context.Context) (panorama.Descriptor, bool) {
	switch {
	case urlFlag != "":
		return panorama.Descriptor{ImageURL: urlFlag}, true

	case idFlag != 0:
		style, err := cli.InitClient(cfg).Style(ctx, idFlag)
		if err != nil {
			log.Fatal().Err(err).Int("id", idFlag).Msg("Failed to fetch skybox")
		}
		return style.Descriptor(), true

	default:
		path, err := zenity.SelectFile(
			zenity.Title("Select a panorama"),
			zenity.FileFilters{
				{Name: "Panoramas", Patterns: []string{"*.jpg", "*.jpeg", "*.png", "*.webp", "*.gif", "*.bmp", "*.tif", "*.tiff"}},
			},
		)
		if errors.Is(err, zenity.ErrCanceled) {
			log.Info().Msg("No panorama selected")
			return panorama.Descriptor{}, false
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open file picker")
		}
		return panorama.Descriptor{ImageURL: path, Title: path}, true
	}
}

type viewOptions struct {
	background bool
	width      int
	height     int
	frames     int
	drag       float32
	out        string
}

// renderToFile mounts descriptor in an offscreen viewer, waits for the
// requested frames and saves the last one.
func renderToFile(ctx context.Context, descriptor panorama.Descriptor, opts viewOptions) (viewer.State, error) {
	states := make(chan viewer.State, 8)
	manager := viewer.NewManager(cli.InitEngine(cfg), viewer.Options{
		FrameInterval: cfg.FrameInterval(),
		OnState: func(st viewer.State) {
			select {
			case states <- st:
			default:
			}
		},
	})
	defer manager.Close()

	container := viewer.NewOffscreenContainer(opts.width, opts.height)
	if err := manager.Mount(mainSlot, container, descriptor, opts.background); err != nil {
		return viewer.State{}, err
	}

	st, err := waitSettled(ctx, states)
	if err != nil {
		return st, err
	}
	switch st.Phase {
	case viewer.PhasePlaceholder:
		fmt.Println(container.Placeholder())
		return st, nil
	case viewer.PhaseFailed:
		if fallback := container.Fallback(); fallback != "" {
			fmt.Printf("3D view unavailable, showing flat image: %s\n", fallback)
		}
		return st, st.Err
	}

	frames := opts.frames
	if frames < 1 {
		frames = 1
	}
	ticker := time.NewTicker(cfg.FrameInterval())
	defer ticker.Stop()
	for container.Presented() < frames {
		if opts.drag != 0 {
			manager.Rotate(mainSlot, opts.drag, 0)
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}

	if err := cli.SaveFrame(opts.out, container.Frame()); err != nil {
		return st, err
	}
	st, _ = manager.State(mainSlot)
	return st, nil
}

// waitSettled returns the first state past loading.
func waitSettled(ctx context.Context, states <-chan viewer.State) (viewer.State, error) {
	for {
		select {
		case <-ctx.Done():
			return viewer.State{}, ctx.Err()
		case st := <-states:
			if st.Phase != viewer.PhaseLoading {
				return st, nil
			}
		}
	}
}
