package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuavictorchen/claodex/internal/domain"
	"github.com/joshuavictorchen/claodex/internal/window"
)

var (
	registerSessionFile string
	registerSessionID   string
	registerPane        string
	registerCwd         string
)

var registerCmd = &cobra.Command{
	Use:   "register <A|B>",
	Short: "Register one agent's session file, tmux pane, and working directory",
	Long: `Write participants/<agent>.json (§6 of the spec) so the router knows
which session file to tail and which tmux pane to paste into.

Registering both agents for the first time initializes all four
cursors from each file's current line count, so neither agent's
existing transcript is treated as backlog.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerSessionFile, "session-file", "", "Path to the agent's JSONL session/transcript file (required)")
	registerCmd.Flags().StringVar(&registerSessionID, "session-id", "", "The agent CLI's own session identifier (required)")
	registerCmd.Flags().StringVar(&registerPane, "pane", "", "tmux pane id, e.g. %1 (required)")
	registerCmd.Flags().StringVar(&registerCwd, "cwd", "", "Agent's working directory (defaults to --workspace)")
	_ = registerCmd.MarkFlagRequired("session-file")
	_ = registerCmd.MarkFlagRequired("session-id")
	_ = registerCmd.MarkFlagRequired("pane")
}

func runRegister(cmd *cobra.Command, args []string) error {
	agent, err := parseAgentArg(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}

	cwd := registerCwd
	if cwd == "" {
		cwd, err = workspaceDir(cmd)
		if err != nil {
			return err
		}
	}

	p := domain.Participant{
		Agent:        string(agent),
		SessionFile:  registerSessionFile,
		SessionID:    registerSessionID,
		TmuxPane:     registerPane,
		Cwd:          cwd,
		RegisteredAt: time.Now().Format(time.RFC3339),
	}
	if err := a.Store.WriteParticipant(agent, p); err != nil {
		return fmt.Errorf("writing participant record: %w", err)
	}

	fmt.Printf("%sRegistered agent %s%s: pane %s, session %s\n", styleBoldCyan, agent, colorReset, registerPane, registerSessionID)
	_ = a.Bus.Log("system", fmt.Sprintf("agent %s registered", agent), string(agent), "", nil)

	if err := maybeInitializeCursors(a); err != nil {
		return err
	}
	return nil
}

// maybeInitializeCursors implements spec §4.1: on the first occasion
// both participant records exist and no cursor files exist yet,
// initialize every cursor from each file's current line count so
// pre-existing transcript content is never treated as a backlog to
// deliver.
func maybeInitializeCursors(a *app) error {
	if a.Store.CursorsExist() {
		return nil
	}
	pa, errA := a.Store.ReadParticipant(domain.AgentA)
	pb, errB := a.Store.ReadParticipant(domain.AgentB)
	if errA != nil || errB != nil {
		return nil // waiting on the other agent to register
	}
	aLines, err := window.CountLines(pa.SessionFile)
	if err != nil {
		return fmt.Errorf("counting lines for agent A: %w", err)
	}
	bLines, err := window.CountLines(pb.SessionFile)
	if err != nil {
		return fmt.Errorf("counting lines for agent B: %w", err)
	}
	if err := a.Store.InitializeCursorsFromLineCounts(aLines, bLines); err != nil {
		return fmt.Errorf("initializing cursors: %w", err)
	}
	fmt.Printf("%sBoth agents registered — cursors initialized (A=%d lines, B=%d lines).%s\n", colorGreen, aLines, bLines, colorReset)
	return nil
}
