package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reelsmith.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[speech]
api_key = "speech-key"

[footage]
api_key = "footage-key"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Video.Width != 720 || cfg.Video.Height != 1280 {
		t.Fatalf("unexpected video defaults: %dx%d", cfg.Video.Width, cfg.Video.Height)
	}
	if cfg.Workflow.MaxConcurrent != 2 {
		t.Fatalf("unexpected max_concurrent: %d", cfg.Workflow.MaxConcurrent)
	}
	if cfg.Footage.MinClips != 2 || cfg.Footage.MaxClips != 5 {
		t.Fatalf("unexpected clip bounds: %d..%d", cfg.Footage.MinClips, cfg.Footage.MaxClips)
	}
	if !filepath.IsAbs(cfg.Paths.WorkDir) {
		t.Fatalf("work dir not expanded: %s", cfg.Paths.WorkDir)
	}
}

func TestLoadRequiresAPIKeys(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "")
	t.Setenv("PEXELS_API_KEY", "")
	path := writeConfig(t, "")

	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "speech.api_key") {
		t.Fatalf("expected speech.api_key error, got %v", err)
	}
}

func TestLoadReadsAPIKeysFromEnv(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "env-speech")
	t.Setenv("PEXELS_API_KEY", "env-footage")
	path := writeConfig(t, "")

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Speech.APIKey != "env-speech" || cfg.Footage.APIKey != "env-footage" {
		t.Fatalf("env keys not applied: %+v", cfg.Speech)
	}
}

func TestLoadRejectsHorizontalGeometry(t *testing.T) {
	path := writeConfig(t, `
[speech]
api_key = "k"

[footage]
api_key = "k"

[video]
width = 1920
height = 1080
`)

	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "vertical") {
		t.Fatalf("expected vertical geometry error, got %v", err)
	}
}

func TestLoadRejectsInvalidClipBounds(t *testing.T) {
	path := writeConfig(t, `
[speech]
api_key = "k"

[footage]
api_key = "k"
min_clips = 6
max_clips = 3
`)

	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "max_clips") {
		t.Fatalf("expected clip bound error, got %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "k1")
	t.Setenv("PEXELS_API_KEY", "k2")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config did not load: exists=%v err=%v", exists, err)
	}
}
