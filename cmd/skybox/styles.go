package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/skybox-viewer/internal/cli"
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List the skybox style catalog",
	Run:   runStyles,
}

func init() {
	rootCmd.AddCommand(stylesCmd)
}

func runStyles(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	client := cli.InitClient(cfg)
	styles, err := client.Styles(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch skybox styles")
	}

	if len(styles) == 0 {
		fmt.Println("The catalog is empty.")
		return
	}
	for _, s := range styles {
		fmt.Println(cli.FormatStyle(s))
	}
}
