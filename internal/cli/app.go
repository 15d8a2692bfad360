package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joshuavictorchen/claodex/internal/config"
	"github.com/joshuavictorchen/claodex/internal/cursorstore"
	"github.com/joshuavictorchen/claodex/internal/domain"
	"github.com/joshuavictorchen/claodex/internal/eventbus"
	"github.com/joshuavictorchen/claodex/internal/paneinject"
	"github.com/joshuavictorchen/claodex/internal/router"
)

// app bundles the workspace-scoped collaborators a command needs: the
// cursor store, a router wired to the real tmux pane injector, and an
// event bus writing ui/events.jsonl + ui/metrics.json.
type app struct {
	Store  *cursorstore.Store
	Router *router.Router
	Bus    *eventbus.Bus
}

func workspaceDir(cmd *cobra.Command) (string, error) {
	ws, _ := cmd.Flags().GetString("workspace")
	if ws == "" {
		ws = "."
	}
	return filepath.Abs(ws)
}

// openApp lays out .claodex (idempotent) and wires a Router with the
// registered participants loaded, the way every command except
// `register` on a brand-new workspace needs.
func openApp(cmd *cobra.Command) (*app, error) {
	dir, err := workspaceDir(cmd)
	if err != nil {
		return nil, err
	}
	store := cursorstore.New(dir)
	if err := store.EnsureLayout(); err != nil {
		return nil, fmt.Errorf("laying out .claodex: %w", err)
	}

	tun := config.LoadTunables()
	pane := paneinject.New(tun.PasteSettleBase, tun.PasteSettlePerKChar, tun.PasteSettleCap)
	r := router.New(store, pane, router.Tunables{
		PollInterval:      tun.PollInterval,
		StuckSkipAttempts: tun.StuckSkipAttempts,
		StuckSkipAfter:    tun.StuckSkipAfter,
	})

	bus := eventbus.New(store.Root)
	r.Warn = func(msg string) {
		_ = bus.Log("warn", msg, "", "", nil)
		warnf("%s", msg)
	}

	for _, a := range []domain.Agent{domain.AgentA, domain.AgentB} {
		if p, perr := store.ReadParticipant(a); perr == nil {
			r.Participants[a] = p
		}
	}

	return &app{Store: store, Router: r, Bus: bus}, nil
}

func parseAgentArg(raw string) (domain.Agent, error) {
	a, ok := domain.ParseAgent(raw)
	if !ok {
		return "", fmt.Errorf("agent must be \"A\" or \"B\", got %q", raw)
	}
	return a, nil
}

func collabTurnsDefault() int {
	tun := config.LoadTunables()
	if gcfg, err := config.LoadGlobalConfig(); err == nil && gcfg.CollabTurnsOverride > 0 {
		return gcfg.CollabTurnsOverride
	}
	return tun.CollabTurnsDefault
}
