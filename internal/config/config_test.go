package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"SKYBOX_API_URL", "SKYBOX_POLL_INTERVAL", "SKYBOX_MAX_POLL_ATTEMPTS",
		"SKYBOX_MAX_POLL_DURATION", "SKYBOX_HTTP_TIMEOUT", "SKYBOX_STYLE_CACHE_TTL",
		"SKYBOX_FPS", "SKYBOX_TEXTURE_MAX_WIDTH", "SKYBOX_LOAD_RATE",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q, want %q", cfg.APIURL, DefaultAPIURL)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %s, want 2s", cfg.PollInterval)
	}
	if cfg.MaxPollAttempts != 0 || cfg.MaxPollDuration != 0 {
		t.Errorf("poll bounds should default to unbounded, got %d / %s", cfg.MaxPollAttempts, cfg.MaxPollDuration)
	}
	if cfg.FrameInterval() != time.Second/30 {
		t.Errorf("FrameInterval = %s", cfg.FrameInterval())
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SKYBOX_API_URL", "https://skybox.example.com")
	t.Setenv("SKYBOX_POLL_INTERVAL", "500ms")
	t.Setenv("SKYBOX_MAX_POLL_ATTEMPTS", "20")
	t.Setenv("SKYBOX_LOAD_RATE", "1.5")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}
	if cfg.APIURL != "https://skybox.example.com" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %s", cfg.PollInterval)
	}
	if cfg.MaxPollAttempts != 20 {
		t.Errorf("MaxPollAttempts = %d", cfg.MaxPollAttempts)
	}
	if cfg.LoadRate != 1.5 {
		t.Errorf("LoadRate = %v", cfg.LoadRate)
	}
}

func TestFromEnvRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "SKYBOX_POLL_INTERVAL", "soon"},
		{"zero interval", "SKYBOX_POLL_INTERVAL", "0s"},
		{"negative attempts", "SKYBOX_MAX_POLL_ATTEMPTS", "-1"},
		{"relative url", "SKYBOX_API_URL", "localhost"},
		{"fps too high", "SKYBOX_FPS", "1000"},
		{"bad rate", "SKYBOX_LOAD_RATE", "fast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := FromEnv(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("SKYBOX_API_URL")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SKYBOX_API_URL=http://skybox.test:9000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("SKYBOX_API_URL") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://skybox.test:9000" {
		t.Errorf("APIURL = %q, want value from env file", cfg.APIURL)
	}
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing env file should be ignored, got %v", err)
	}
}
