package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuavictorchen/claodex/internal/claoderr"
	"github.com/joshuavictorchen/claodex/internal/collab"
	"github.com/joshuavictorchen/claodex/internal/config"
	"github.com/joshuavictorchen/claodex/internal/domain"
	"github.com/joshuavictorchen/claodex/internal/editor"
	"github.com/joshuavictorchen/claodex/internal/exchangelog"
	"github.com/joshuavictorchen/claodex/internal/reregister"
)

const replIdleInterval = 500 * time.Millisecond

var replCmd = &cobra.Command{
	Use:     "repl",
	Aliases: []string{"shell"},
	Short:   "Interactive shell: send to the active target, or run /collab, /status, /halt",
	Long: `A single persistent prompt (spec §6, SPEC_FULL.md §C.2) built on the
external Editor collaborator:

  <message>          send to the active target agent and print the reply
  /a, /b              switch the active target
  /collab <message>   start a multi-turn auto-exchange on the active target
  /halt               report that no collab is running
  /status             print the current cursor table
  /quit               exit

The prompt is not read while a /collab runs; Ctrl-C during a running
/collab halts it at the next turn boundary.`,
	RunE: runRepl,
}

func runRepl(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}

	ed, err := editor.New("claodex")
	if err != nil {
		return fmt.Errorf("starting editor: %w", err)
	}
	defer ed.Close()

	active := domain.AgentA
	fmt.Printf("%sclaodex repl%s — active target %s. Type /quit to exit; run \"claodex repl --help\" for the command list.\n", styleBoldCyan, colorReset, colorTargetTag(active))

	rn := reregister.NewRunner(a.Store, a.Router)
	onIdle := func() *editor.Event {
		tick := rn.IdleTick(time.Now())
		for agent := range tick.ReregisteredFrom {
			fmt.Printf("\n%s%s reattached — cursors reinitialized%s\n", colorYellow, agent, colorReset)
		}
		for _, w := range tick.Warnings {
			warnf("%s", w)
		}
		return nil // the repl has no pending send to watch; only reattach detection matters here
	}

	for {
		ev := ed.Read(onIdle, replIdleInterval, "")
		if ev.Kind == editor.Quit {
			fmt.Println("bye")
			return nil
		}
		line := strings.TrimSpace(ev.Text)
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			fmt.Println("bye")
			return nil
		case line == "/a":
			active = domain.AgentA
			fmt.Printf("active target: %s\n", colorTargetTag(active))
		case line == "/b":
			active = domain.AgentB
			fmt.Printf("active target: %s\n", colorTargetTag(active))
		case line == "/status":
			_ = runStatusFull(a)
		case line == "/halt":
			fmt.Printf("%snothing to halt (no collab running in this shell)%s\n", colorDim, colorReset)
		case strings.HasPrefix(line, "/collab "):
			text := strings.TrimSpace(strings.TrimPrefix(line, "/collab "))
			if text == "" {
				fmt.Println("usage: /collab <message>")
				continue
			}
			if err := replCollab(a, active, text); err != nil {
				fmt.Printf("%sError:%s %v\n", colorRed, colorReset, err)
			}
		default:
			if err := replSend(a, active, line); err != nil {
				fmt.Printf("%sError:%s %v\n", colorRed, colorReset, err)
			}
		}
	}
}

func colorTargetTag(agent domain.Agent) string {
	return speakerColor(string(agent)).Sprintf("%s", agent)
}

func replSend(a *app, agent domain.Agent, text string) error {
	pending, err := a.Router.SendUserMessage(agent, text)
	if err != nil {
		return err
	}
	_ = a.Bus.Log("sent", text, "user", string(agent), nil)

	tun := config.LoadTunables()
	turn, err := a.Router.WaitForResponse(pending, tun.TurnTimeout)
	if err != nil {
		_ = a.Bus.Log("error", err.Error(), string(agent), "", nil)
		if claoderr.IsSmokeSignal(err) {
			return fmt.Errorf("SMOKE SIGNAL: %w", err)
		}
		return err
	}
	_ = a.Bus.Log("recv", turn.Body, string(agent), "", nil)
	printTranscriptLine(agent, turn.Body)
	return nil
}

func replCollab(a *app, agent domain.Agent, text string) error {
	log, logErr := exchangelog.New(filepath.Join(a.Store.Root, "exchanges"), agent, text, time.Now())

	ctrl := collab.NewControl(8)
	installHaltOnInterrupt(ctrl)
	tun := config.LoadTunables()
	req := collab.Request{
		Turns:       collabTurnsDefault(),
		StartAgent:  agent,
		Message:     text,
		TurnTimeout: tun.TurnTimeout,
	}
	sink := cliSink{bus: a.Bus}
	outcome, err := collab.Run(a.Router, ctrl, req, sink)
	if err != nil {
		return err
	}

	if logErr == nil {
		for _, turn := range outcome.Transcript {
			_ = log.AppendTurn(turn.Agent, turn.Body, turn.ReceivedAt)
		}
		_ = log.AppendStop(outcome.StopReason, outcome.TurnsCompleted)
	}

	fmt.Printf("\n%sCollab stopped:%s %s after %d turn(s) (%s)\n",
		styleBoldCyan, colorReset, outcome.StopReason, outcome.TurnsCompleted, time.Now().Format("15:04:05"))
	return nil
}
