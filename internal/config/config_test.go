package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadTunables_Defaults(t *testing.T) {
	t.Setenv("CLAODEX_POLL_SECONDS", "")
	t.Setenv("CLAODEX_TURN_TIMEOUT_SECONDS", "")
	t.Setenv("CLAODEX_COLLAB_TURNS", "")

	tun := LoadTunables()
	if tun.PollInterval != 500*time.Millisecond {
		t.Fatalf("PollInterval = %v, want 500ms", tun.PollInterval)
	}
	if tun.CollabTurnsDefault != 500 {
		t.Fatalf("CollabTurnsDefault = %d, want 500", tun.CollabTurnsDefault)
	}
	if tun.StuckSkipAttempts != 3 {
		t.Fatalf("StuckSkipAttempts = %d, want 3", tun.StuckSkipAttempts)
	}
}

func TestLoadTunables_EnvOverrides(t *testing.T) {
	t.Setenv("CLAODEX_POLL_SECONDS", "2.5")
	t.Setenv("CLAODEX_TURN_TIMEOUT_SECONDS", "60")
	t.Setenv("CLAODEX_COLLAB_TURNS", "10")

	tun := LoadTunables()
	if tun.PollInterval != 2500*time.Millisecond {
		t.Fatalf("PollInterval = %v, want 2.5s", tun.PollInterval)
	}
	if tun.TurnTimeout != 60*time.Second {
		t.Fatalf("TurnTimeout = %v, want 60s", tun.TurnTimeout)
	}
	if tun.CollabTurnsDefault != 10 {
		t.Fatalf("CollabTurnsDefault = %d, want 10", tun.CollabTurnsDefault)
	}
}

func TestLoadTunables_InvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("CLAODEX_COLLAB_TURNS", "not-a-number")
	tun := LoadTunables()
	if tun.CollabTurnsDefault != 500 {
		t.Fatalf("CollabTurnsDefault = %d, want default 500 on invalid env", tun.CollabTurnsDefault)
	}
}

func TestDir_IsUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if dir != filepath.Join(home, ".claodex") {
		t.Fatalf("Dir() = %q, want %q", dir, filepath.Join(home, ".claodex"))
	}
}

func TestLoadGlobalConfig_MissingFilesReturnsZeroValue(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig: %v", err)
	}
	if cfg != (GlobalConfig{}) {
		t.Fatalf("expected zero-value GlobalConfig, got %+v", cfg)
	}
}

func TestSaveAndLoadGlobalConfig_RoundTripsViaJSON(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	want := GlobalConfig{
		DefaultStartAgent:  "A",
		CollabTurnsOverride: 25,
		PushoverUserKey:    "uKey",
		PushoverAPIToken:   "tKey",
	}
	if err := SaveGlobalConfig(want); err != nil {
		t.Fatalf("SaveGlobalConfig: %v", err)
	}
	got, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig: %v", err)
	}
	if got != want {
		t.Fatalf("LoadGlobalConfig = %+v, want %+v", got, want)
	}
}

func TestLoadGlobalConfig_PrefersYAMLOverJSON(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".claodex")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("default_start_agent: B\n"), 0o644); err != nil {
		t.Fatalf("writing config.yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"default_start_agent":"A"}`), 0o644); err != nil {
		t.Fatalf("writing config.json: %v", err)
	}
	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig: %v", err)
	}
	if cfg.DefaultStartAgent != "B" {
		t.Fatalf("DefaultStartAgent = %q, want %q (YAML should win)", cfg.DefaultStartAgent, "B")
	}
}
