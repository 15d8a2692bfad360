// Package config reads the router's tunables (spec §6) from the
// environment, and persists small operator preferences the way the
// teacher's internal/config/global.go persists ~/.adaf/config.json —
// adapted to ~/.claodex/config.json, with a YAML-first read for
// hand-editing (gopkg.in/yaml.v3) and a JSON write for
// machine-written updates.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joshuavictorchen/claodex/internal/debug"
)

// Tunables are the poll/timeout/collab knobs from spec §6.
type Tunables struct {
	PollInterval       time.Duration
	TurnTimeout        time.Duration
	CollabTurnsDefault int

	// Spec-mandated constants (not operator-tunable) but carried here
	// so callers have one place to read them from.
	StuckSkipAttempts int
	StuckSkipAfter    time.Duration

	PasteSettleBase     time.Duration
	PasteSettlePerKChar time.Duration
	PasteSettleCap      time.Duration
}

// LoadTunables reads environment variables with defensive parsing:
// invalid values fall back to defaults with a debug-log warning rather
// than a hard failure, mirroring the teacher's config loading style.
func LoadTunables() Tunables {
	t := Tunables{
		PollInterval:        durationFromSeconds(500 * time.Millisecond),
		TurnTimeout:         18000 * time.Second,
		CollabTurnsDefault:  500,
		StuckSkipAttempts:   3,
		StuckSkipAfter:      10 * time.Second,
		PasteSettleBase:     300 * time.Millisecond,
		PasteSettlePerKChar: 100 * time.Millisecond,
		PasteSettleCap:      2 * time.Second,
	}

	if v, ok := floatEnv("CLAODEX_POLL_SECONDS"); ok {
		t.PollInterval = durationFromSeconds(time.Duration(v * float64(time.Second)))
	}
	if v, ok := floatEnv("CLAODEX_TURN_TIMEOUT_SECONDS"); ok {
		t.TurnTimeout = time.Duration(v * float64(time.Second))
	}
	if v, ok := intEnv("CLAODEX_COLLAB_TURNS"); ok {
		t.CollabTurnsDefault = v
	}
	return t
}

func durationFromSeconds(d time.Duration) time.Duration { return d }

func floatEnv(name string) (float64, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		debug.Logf("config", "invalid %s=%q, using default: %v", name, raw, err)
		return 0, false
	}
	return v, true
}

func intEnv(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		debug.Logf("config", "invalid %s=%q, using default: %v", name, raw, err)
		return 0, false
	}
	return v, true
}

// GlobalConfig holds persisted operator preferences: a default start
// agent, a collab-turns override, and Pushover-style push
// credentials for long-running collab notifications.
type GlobalConfig struct {
	DefaultStartAgent string `json:"default_start_agent,omitempty" yaml:"default_start_agent,omitempty"`
	CollabTurnsOverride int  `json:"collab_turns_override,omitempty" yaml:"collab_turns_override,omitempty"`
	PushoverUserKey   string `json:"pushover_user_key,omitempty" yaml:"pushover_user_key,omitempty"`
	PushoverAPIToken  string `json:"pushover_api_token,omitempty" yaml:"pushover_api_token,omitempty"`
}

// Dir returns ~/.claodex.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".claodex"), nil
}
