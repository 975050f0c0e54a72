package cli

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/fpang/skybox-viewer/internal/panorama"
	"github.com/fpang/skybox-viewer/internal/skyboxapi"
)

// ResolveOutputDirectory makes sure dirPath exists and is a directory, then
// returns the absolute path. Exits fatally on failure.
func ResolveOutputDirectory(dirPath string) string {
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		log.Fatal().Err(err).Str("path", dirPath).Msg("Failed to create output directory")
	}
	info, err := os.Stat(dirPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dirPath).Msg("Failed to access directory")
	}
	if !info.IsDir() {
		log.Fatal().Str("path", dirPath).Msg("Path is not a directory")
	}

	absPath, err := filepath.Abs(dirPath)
	if err == nil {
		dirPath = absPath
	}
	return dirPath
}

// HandleGenerationError logs err with the message a user should see and
// exits.
func HandleGenerationError(err error) {
	var (
		validationErr *panorama.ValidationError
		submitErr     *panorama.SubmissionError
		pollErr       *panorama.PollTransportError
		failedErr     *panorama.GenerationFailedError
		statusErr     *skyboxapi.StatusError
	)
	switch {
	case errors.As(err, &validationErr):
		log.Fatal().Str("field", validationErr.Field).Msg(validationErr.Error())
	case errors.As(err, &statusErr) && statusErr.StatusCode >= 500:
		log.Fatal().Err(err).Msg("The generation service is unavailable. Please try again later")
	case errors.As(err, &submitErr):
		log.Fatal().Err(submitErr.Err).Msg("Failed to generate skybox")
	case errors.As(err, &pollErr):
		log.Fatal().Err(pollErr.Err).Str("handle", pollErr.Handle).Msg("Failed to check generation status")
	case errors.As(err, &failedErr):
		log.Fatal().Str("handle", failedErr.Handle).Msg(failedErr.Error())
	default:
		log.Fatal().Err(err).Msg("Generation failed")
	}
	os.Exit(1)
}
