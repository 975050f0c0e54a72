package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/skybox-viewer/internal/cli"
	"github.com/fpang/skybox-viewer/internal/gallery"
	"github.com/fpang/skybox-viewer/internal/panorama"
	"github.com/fpang/skybox-viewer/internal/viewer"
)

// explore flags
var (
	outDirFlag     string
	cellWidthFlag  int
	cellHeightFlag int
	selectFlag     int
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Render a preview of every catalog style",
	Long: `Open the style catalog as a gallery: one live preview per style that has
an image, a placeholder for the rest. Each preview is saved to the output
directory once loaded. With --select, the chosen entry's full descriptor is
printed as it would be handed to the full-screen view.`,
	Run: runExplore,
}

func init() {
	exploreCmd.Flags().StringVar(&outDirFlag, "out-dir", "previews", "Directory for preview frames")
	exploreCmd.Flags().IntVar(&cellWidthFlag, "cell-width", 320, "Preview width in pixels")
	exploreCmd.Flags().IntVar(&cellHeightFlag, "cell-height", 180, "Preview height in pixels")
	exploreCmd.Flags().IntVar(&selectFlag, "select", 0, "Style id to select after loading")
	rootCmd.AddCommand(exploreCmd)
}

func runExplore(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	client := cli.InitClient(cfg)
	styles, err := client.Styles(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch skybox styles")
	}
	dir := cli.ResolveOutputDirectory(outDirFlag)

	cells := make(map[int]*viewer.OffscreenContainer, len(styles))
	g, err := gallery.Open(ctx, cli.InitEngine(cfg), styles,
		func(index int, _ panorama.Style) viewer.Container {
			c := viewer.NewOffscreenContainer(cellWidthFlag, cellHeightFlag)
			cells[index] = c
			return c
		},
		gallery.Options{
			LoadRate:      cfg.LoadRate,
			Burst:         1,
			FrameInterval: cfg.FrameInterval(),
			Lookup:        client.Style,
		})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open gallery")
	}
	defer g.Close()

	startTime := time.Now()
	if err := g.WaitLoaded(ctx); err != nil {
		log.Warn().Err(err).Msg("Gallery did not finish loading")
		return
	}

	saved := 0
	for _, slot := range g.Slots() {
		cell := cells[slot.Index]
		st, live := g.State(slot.Index)
		switch {
		case !live:
			fmt.Printf("%-12s %s: %s\n", slot.ID, slot.Style.Label(), cell.Placeholder())
		case st.Phase == viewer.PhaseFailed:
			fmt.Printf("%-12s %s: failed (%v)\n", slot.ID, slot.Style.Label(), st.Err)
		default:
			if !waitFirstFrame(cell) {
				fmt.Printf("%-12s %s: no frame rendered yet\n", slot.ID, slot.Style.Label())
				continue
			}
			path := filepath.Join(dir, slot.ID+".png")
			if err := cli.SaveFrame(path, cell.Frame()); err != nil {
				log.Error().Err(err).Str("slotId", slot.ID).Msg("Failed to save preview")
				continue
			}
			saved++
			fmt.Printf("%-12s %s: %s\n", slot.ID, slot.Style.Label(), path)
		}
	}
	fmt.Printf("Saved %d previews (%d placeholders) in %s\n", saved, g.Placeholders(), cli.FormatDurationShort(time.Since(startTime)))

	if selectFlag != 0 {
		d, err := g.Select(ctx, selectFlag)
		if err != nil {
			log.Fatal().Err(err).Int("id", selectFlag).Msg("Failed to select skybox")
		}
		fmt.Print(cli.FormatDescriptor(d))
	}
}

// waitFirstFrame gives a freshly ready preview a moment to present. It
// reports whether a frame arrived.
func waitFirstFrame(cell *viewer.OffscreenContainer) bool {
	deadline := time.Now().Add(2 * time.Second)
	for cell.Presented() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	return cell.Presented() > 0
}
