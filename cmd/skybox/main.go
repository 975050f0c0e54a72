package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fpang/skybox-viewer/internal/cli"
	"github.com/fpang/skybox-viewer/internal/config"
	"github.com/fpang/skybox-viewer/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// Global flags
var (
	envFileFlag string
	apiURLFlag  string
)

// cfg is loaded once per invocation in setup.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "skybox",
	Short: "Generate and view 360° skybox panoramas",
	Long: `Skybox generates 360° panoramas from a text prompt and a catalog style,
and renders them as an orbit-navigable sphere without a GPU.

Configuration comes from SKYBOX_* environment variables, optionally loaded
from a .env file.

Examples:
  skybox styles
  skybox generate --prompt "a quiet forest" --style 3 --out forest.png
  skybox view --url https://example.com/pano.jpg --frames 30 --out view.webp
  skybox view --pick --background
  skybox explore --out-dir ./previews`,
	PersistentPreRun: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", config.DefaultEnvFile, "Optional .env file with SKYBOX_* settings")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "Generation service URL (overrides SKYBOX_API_URL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup initialises logging and configuration for every subcommand.
func setup(cmd *cobra.Command, args []string) {
	startTime := time.Now()
	logging.Init()

	cfg = cli.InitConfig(envFileFlag)
	if apiURLFlag != "" {
		cfg.APIURL = apiURLFlag
	}

	logging.NewStartupLogger("skybox "+cmd.Name()).
		Version(version).
		Endpoint("api", cfg.APIURL).
		Feature("pollBound", cfg.MaxPollAttempts > 0 || cfg.MaxPollDuration > 0).
		Config("pollInterval", cfg.PollInterval.String()).
		Config("fps", strconv.Itoa(cfg.FPS)).
		Config("textureMaxWidth", strconv.Itoa(cfg.TextureMaxWidth)).
		InitDuration(time.Since(startTime)).
		Log()
}

// signalContext is cancelled on Ctrl-C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
