// Package config loads runtime settings for the skybox tools from the
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Defaults mirror the reference web client.
const (
	DefaultAPIURL          = "http://localhost:5002"
	DefaultPollInterval    = 2 * time.Second
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultStyleCacheTTL   = 5 * time.Minute
	DefaultFPS             = 30
	DefaultTextureMaxWidth = 8192
	DefaultLoadRate        = 4.0
	DefaultEnvFile         = ".env"
)

// Config holds every tunable the core packages read.
type Config struct {
	APIURL string

	PollInterval time.Duration
	// MaxPollAttempts and MaxPollDuration bound a pending job; zero means
	// poll until the service reports a terminal status.
	MaxPollAttempts int
	MaxPollDuration time.Duration

	HTTPTimeout   time.Duration
	StyleCacheTTL time.Duration

	FPS             int
	TextureMaxWidth int
	// LoadRate paces gallery texture loads, in loads per second.
	LoadRate float64
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		APIURL:          DefaultAPIURL,
		PollInterval:    DefaultPollInterval,
		HTTPTimeout:     DefaultHTTPTimeout,
		StyleCacheTTL:   DefaultStyleCacheTTL,
		FPS:             DefaultFPS,
		TextureMaxWidth: DefaultTextureMaxWidth,
		LoadRate:        DefaultLoadRate,
	}
}

// Load reads envFile (if it exists) into the process environment without
// overriding variables that are already set, then builds a Config.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("load %s: %w", envFile, err)
			}
		} else {
			log.Debug().Str("file", envFile).Msg("Loaded environment file")
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from SKYBOX_* environment variables.
func FromEnv() (Config, error) {
	cfg := Default()
	cfg.APIURL = getEnv("SKYBOX_API_URL", cfg.APIURL)

	var err error
	if cfg.PollInterval, err = getEnvDuration("SKYBOX_POLL_INTERVAL", cfg.PollInterval); err != nil {
		return Config{}, err
	}
	if cfg.MaxPollAttempts, err = getEnvInt("SKYBOX_MAX_POLL_ATTEMPTS", cfg.MaxPollAttempts); err != nil {
		return Config{}, err
	}
	if cfg.MaxPollDuration, err = getEnvDuration("SKYBOX_MAX_POLL_DURATION", cfg.MaxPollDuration); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = getEnvDuration("SKYBOX_HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return Config{}, err
	}
	if cfg.StyleCacheTTL, err = getEnvDuration("SKYBOX_STYLE_CACHE_TTL", cfg.StyleCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.FPS, err = getEnvInt("SKYBOX_FPS", cfg.FPS); err != nil {
		return Config{}, err
	}
	if cfg.TextureMaxWidth, err = getEnvInt("SKYBOX_TEXTURE_MAX_WIDTH", cfg.TextureMaxWidth); err != nil {
		return Config{}, err
	}
	if cfg.LoadRate, err = getEnvFloat("SKYBOX_LOAD_RATE", cfg.LoadRate); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the core packages cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SKYBOX_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("SKYBOX_POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.MaxPollAttempts < 0 {
		return fmt.Errorf("SKYBOX_MAX_POLL_ATTEMPTS must not be negative, got %d", c.MaxPollAttempts)
	}
	if c.MaxPollDuration < 0 {
		return fmt.Errorf("SKYBOX_MAX_POLL_DURATION must not be negative, got %s", c.MaxPollDuration)
	}
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("SKYBOX_FPS must be in 1..240, got %d", c.FPS)
	}
	if c.TextureMaxWidth < 0 {
		return fmt.Errorf("SKYBOX_TEXTURE_MAX_WIDTH must not be negative, got %d", c.TextureMaxWidth)
	}
	if c.LoadRate <= 0 {
		return fmt.Errorf("SKYBOX_LOAD_RATE must be positive, got %v", c.LoadRate)
	}
	return nil
}

// FrameInterval is the render loop tick derived from FPS.
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
