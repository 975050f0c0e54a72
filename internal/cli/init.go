package cli

import (
	"github.com/rs/zerolog/log"

	"github.com/fpang/skybox-viewer/internal/config"
	"github.com/fpang/skybox-viewer/internal/render"
	"github.com/fpang/skybox-viewer/internal/skyboxapi"
)

// InitConfig loads configuration from envFile and the environment.
// Exits fatally if any value is invalid.
func InitConfig(envFile string) config.Config {
	cfg, err := config.Load(envFile)
	if err != nil {
		log.Fatal().Err(err).Str("envFile", envFile).Msg("Failed to load configuration")
	}
	return cfg
}

// InitClient creates the generation service client for cfg.
func InitClient(cfg config.Config) *skyboxapi.Client {
	client := skyboxapi.NewClient(cfg.APIURL,
		skyboxapi.WithTimeout(cfg.HTTPTimeout),
		skyboxapi.WithStyleCacheTTL(cfg.StyleCacheTTL),
	)
	log.Debug().Str("apiUrl", client.BaseURL()).Msg("Skybox API client initialized")
	return client
}

// InitEngine creates the software render engine for cfg.
func InitEngine(cfg config.Config) *render.SoftEngine {
	loader := render.NewTextureLoader()
	loader.MaxWidth = cfg.TextureMaxWidth
	return render.NewSoftEngine(loader)
}
