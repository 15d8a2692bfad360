// Package paneinject is the external Pane Injector collaborator
// (spec §6): it delivers content to a tmux pane as if pasted and
// submitted, exactly once, without wrapping it in bracketed-paste
// escapes, and reports whether the pane is still alive. Grounded on
// the teacher's internal/agent/claude.go process-exec conventions
// (exec.Command, debug-log instrumentation around every external
// call).
package paneinject

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/joshuavictorchen/claodex/internal/debug"
)

// Injector shells out to tmux for pane delivery and liveness checks.
type Injector struct {
	SettleBase     time.Duration
	SettlePerKChar time.Duration
	SettleCap      time.Duration
	Runner         func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New returns an Injector using the spec's default settling-delay
// formula (≈0.3s base + 0.1s per 1000 chars beyond 2000, capped at 2s).
func New(settleBase, settlePerKChar, settleCap time.Duration) *Injector {
	return &Injector{
		SettleBase:     settleBase,
		SettlePerKChar: settlePerKChar,
		SettleCap:      settleCap,
		Runner:         runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Paste delivers content to paneID via `tmux load-buffer` (from a
// temporary file holding content) + `tmux paste-buffer`, then submits
// with an Enter keystroke. load-buffer accepts arbitrarily large
// payloads (well past the 64 KiB floor the contract requires) without
// the escaping hazards of `send-keys -l` on multi-megabyte strings.
func (in *Injector) Paste(paneID, content string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	debug.LogKV("paneinject", "pasting", "pane", paneID, "bytes", len(content))

	tmp, err := os.CreateTemp("", "claodex-paste-*")
	if err != nil {
		return fmt.Errorf("paneinject: staging paste buffer: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("paneinject: staging paste buffer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("paneinject: staging paste buffer: %w", err)
	}
	if _, err := in.Runner(ctx, "tmux", "load-buffer", "-b", "claodex", tmp.Name()); err != nil {
		return fmt.Errorf("paneinject: tmux load-buffer: %w", err)
	}
	if _, err := in.Runner(ctx, "tmux", "paste-buffer", "-b", "claodex", "-t", paneID, "-d"); err != nil {
		return fmt.Errorf("paneinject: tmux paste-buffer: %w", err)
	}

	time.Sleep(in.settleDelay(len(content)))

	if _, err := in.Runner(ctx, "tmux", "send-keys", "-t", paneID, "Enter"); err != nil {
		return fmt.Errorf("paneinject: tmux send-keys Enter: %w", err)
	}
	return nil
}

// settleDelay implements the spec §6 settling-delay formula.
func (in *Injector) settleDelay(chars int) time.Duration {
	d := in.SettleBase
	if chars > 2000 {
		extraK := float64(chars-2000) / 1000.0
		d += time.Duration(extraK * float64(in.SettlePerKChar))
	}
	if d > in.SettleCap {
		return in.SettleCap
	}
	return d
}

// Alive reports whether tmux still knows about paneID.
func (in *Injector) Alive(paneID string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	out, err := in.Runner(ctx, "tmux", "list-panes", "-a", "-F", "#{pane_id}")
	if err != nil {
		return false, fmt.Errorf("paneinject: tmux list-panes: %w", err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == paneID {
			return true, nil
		}
	}
	return false, nil
}
