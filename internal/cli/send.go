package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuavictorchen/claodex/internal/claoderr"
	"github.com/joshuavictorchen/claodex/internal/config"
)

var sendNoWait bool

var sendCmd = &cobra.Command{
	Use:   "send <A|B> <message...>",
	Short: "Send a message to one agent and wait for its reply",
	Long: `Composes the undelivered peer delta plus your message (§4.8), pastes it
into the target's tmux pane, and blocks until a completed turn is
extracted (or --no-wait is given to just fire-and-forget).`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().BoolVar(&sendNoWait, "no-wait", false, "Send without waiting for a reply")
}

func runSend(cmd *cobra.Command, args []string) error {
	agent, err := parseAgentArg(args[0])
	if err != nil {
		return err
	}
	text := strings.Join(args[1:], " ")

	a, err := openApp(cmd)
	if err != nil {
		return err
	}

	pending, err := a.Router.SendUserMessage(agent, text)
	if err != nil {
		return fmt.Errorf("sending to agent %s: %w", agent, err)
	}
	_ = a.Bus.Log("sent", text, "user", string(agent), nil)
	fmt.Printf("%sSent to %s%s (%d chars)\n", colorGreen, agent, colorReset, len(pending.Payload))

	if sendNoWait {
		return nil
	}

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
