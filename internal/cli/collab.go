package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuavictorchen/claodex/internal/collab"
	"github.com/joshuavictorchen/claodex/internal/config"
	"github.com/joshuavictorchen/claodex/internal/domain"
	"github.com/joshuavictorchen/claodex/internal/exchangelog"
)

var collabTurns int

var collabCmd = &cobra.Command{
	Use:   "collab <A|B> <message...>",
	Short: "Start a multi-turn auto-exchange between the two agents",
	Long: `Sends the message to the given agent, then routes each completed turn
onward to its peer automatically until both agents converge
([CONVERGED] twice in a row), --turns is reached, or the process
receives a halt. Use Ctrl-C to send a halt at the next turn boundary.

Every turn is appended to a Markdown log under .claodex/exchanges/.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCollab,
}

func init() {
	collabCmd.Flags().IntVar(&collabTurns, "turns", 0, "Maximum turns (default: collab_turns_override from the global config, else CLAODEX_COLLAB_TURNS, else 500)")
}

type cliSink struct {
	bus interface {
		Log(kind, message, agent, target string, meta map[string]any) error
	}
}

func (s cliSink) Collab(message string, meta map[string]any) {
	fmt.Printf("%s%s%s\n", styleBoldCyan, message, colorReset)
	_ = s.bus.Log("collab", message, "", "", meta)
}

func (s cliSink) Recv(agent domain.Agent, body string) {
	printTranscriptLine(agent, body)
	_ = s.bus.Log("recv", body, string(agent), "", nil)
}

func (s cliSink) Error(err error) {
	fmt.Printf("%sError:%s %s\n", colorRed, colorReset, err)
	_ = s.bus.Log("error", err.Error(), "", "", nil)
}

func (s cliSink) Warn(msg string) {
	warnf("%s", msg)
	_ = s.bus.Log("warn", msg, "", "", nil)
}

// installHaltOnInterrupt pushes collab.HaltSignal onto ctrl the first
// time the process receives SIGINT, so Ctrl-C stops a running collab
// at the next turn boundary instead of killing the process outright.
func installHaltOnInterrupt(ctrl *collab.Control) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		ctrl.Push(collab.HaltSignal)
		fmt.Printf("\n%shalt requested — stopping at next turn boundary%s\n", colorYellow, colorReset)
	}()
}

func runCollab(cmd *cobra.Command, args []string) error {
	agent, err := parseAgentArg(args[0])
	if err != nil {
		return err
	}
	text := strings.Join(args[1:], " ")

	a, err := openApp(cmd)
	if err != nil {
		return err
	}

	turns := collabTurns
	if turns <= 0 {
		turns = collabTurnsDefault()
	}
	tun := config.LoadTunables()

	log, err := exchangelog.New(filepath.Join(a.Store.Root, "exchanges"), agent, text, time.Now())
	if err != nil {
		return fmt.Errorf("opening exchange log: %w", err)
	}

	ctrl := collab.NewControl(8)
	installHaltOnInterrupt(ctrl)

	req := collab.Request{
		Turns:       turns,
		StartAgent:  agent,
		Message:     text,
		TurnTimeout: tun.TurnTimeout,
	}

	sink := cliSink{bus: a.Bus}
	outcome, err := collab.Run(a.Router, ctrl, req, sink)
	if err != nil {
		return err
	}

	for _, turn := range outcome.Transcript {
		_ = log.AppendTurn(turn.Agent, turn.Body, turn.ReceivedAt)
	}
	_ = log.AppendStop(outcome.StopReason, outcome.TurnsCompleted)

	fmt.Printf("\n%sCollab stopped:%s %s after %d turn(s)\n", styleBoldCyan, colorReset, outcome.StopReason, outcome.TurnsCompleted)
	return nil
}
