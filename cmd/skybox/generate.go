package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/skybox-viewer/internal/cli"
	"github.com/fpang/skybox-viewer/internal/generation"
	"github.com/fpang/skybox-viewer/internal/panorama"
)

// generate flags
var (
	promptFlag   string
	styleFlag    int
	negativeFlag string
	genOutFlag   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a skybox from a prompt",
	Long: `Submit a prompt and a catalog style, poll the service until the panorama
is ready, and print the result. With --out, the finished panorama is also
rendered full-screen and saved as an image.

Omitting --prompt or --style prompts for them interactively.`,
	Run: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Describe the skybox (up to 600 characters)")
	generateCmd.Flags().IntVarP(&styleFlag, "style", "s", 0, "Catalog style id (see 'skybox styles')")
	generateCmd.Flags().StringVar(&negativeFlag, "negative", "", "Things the panorama should avoid")
	generateCmd.Flags().StringVarP(&genOutFlag, "out", "o", "", "Render the result and save a frame (.png, .jpg or .webp)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) {
	prompt := promptFlag
	if prompt == "" {
		prompt = cli.PromptForText("Prompt", "")
	}
	styleID := styleFlag
	if styleID == 0 {
		styleID = cli.PromptForStyle()
	}
	var negative *string
	if cmd.Flags().Changed("negative") {
		negative = &negativeFlag
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := cli.InitClient(cfg)
	controller := generation.New(client, generation.Config{
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.MaxPollAttempts,
		MaxPollDuration: cfg.MaxPollDuration,
	}, generation.Callbacks{
		OnComplete: func(job panorama.Job, result panorama.Descriptor) {
			log.Info().Str("imageUrl", result.ImageURL).Int("polls", job.Polls).Msg("Skybox ready")
		},
	})
	defer controller.Close()

	startTime := time.Now()
	if _, err := controller.Submit(ctx, prompt, styleID, negative); err != nil {
		cli.HandleGenerationError(err)
	}
	fmt.Println("Generating skybox...")

	stopProgress := showProgress(startTime)
	job, err := controller.Wait(ctx)
	stopProgress()

	if err != nil {
		if errors.Is(err, generation.ErrSuperseded) || ctx.Err() != nil {
			log.Warn().Msg("Generation cancelled")
			return
		}
		cli.HandleGenerationError(err)
	}

	fmt.Printf("Generated in %s\n", cli.FormatDurationShort(time.Since(startTime)))
	fmt.Print(cli.FormatDescriptor(*job.Result))

	if genOutFlag != "" {
		st, err := renderToFile(ctx, *job.Result, viewOptions{
			width:  defaultViewWidth,
			height: defaultViewHeight,
			frames: 1,
			out:    genOutFlag,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to render skybox")
		}
		fmt.Printf("Saved %dx%d frame to %s\n", st.Width, st.Height, genOutFlag)
	}
}

// showProgress prints the elapsed time every few seconds until stopped.
func showProgress(startTime time.Time) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Printf("  still generating (%s elapsed)\n", cli.FormatDurationShort(time.Since(startTime)))
			}
		}
	}()
	return func() { close(done) }
}
