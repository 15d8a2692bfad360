package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuavictorchen/claodex/internal/domain"
	"github.com/joshuavictorchen/claodex/internal/tui"
	"github.com/skip2/go-qrcode"
)

var (
	statusWeb     bool
	statusWebPort int
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"info", "st"},
	Short:   "Show the four cursors and both participants' registration info",
	Long: `Prints read_cursor[A], read_cursor[B], delivery_cursor[A], and
delivery_cursor[B] alongside each registered participant, per §C.1 of
SPEC_FULL.md. With --web, also serves a localhost websocket viewer
(see internal/eventbus) and prints a QR code to its URL.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusWeb, "web", false, "Serve a localhost websocket status viewer")
	statusCmd.Flags().IntVar(&statusWebPort, "web-port", 8787, "Port for --web")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}

	if statusWeb {
		url, err := tui.ServeWeb(a.Bus, statusWebPort)
		if err != nil {
			return fmt.Errorf("starting --web viewer: %w", err)
		}
		fmt.Printf("%sWeb viewer:%s %s\n\n", styleBoldCyan, colorReset, url)
		qr, err := qrcode.New(url, qrcode.Medium)
		if err == nil {
			fmt.Println(qr.ToSmallString(false))
		}
	}

	return runStatusFull(a)
}

func runStatusBrief(a *app) error {
	return runStatusFull(a)
}

func runStatusFull(a *app) error {
	printHeader("Cursors")
	rows := [][]string{}
	for _, agent := range []domain.Agent{domain.AgentA, domain.AgentB} {
		rc, _ := a.Store.ReadCursor(agent)
		dc, _ := a.Store.DeliveryCursor(agent)
		rows = append(rows, []string{
			string(agent),
			fmt.Sprintf("%d", rc),
			fmt.Sprintf("%d", dc),
		})
	}
	printTable([]string{"AGENT", "READ_CURSOR", "DELIVERY_CURSOR"}, rows)

	printHeader("Participants")
	for _, agent := range []domain.Agent{domain.AgentA, domain.AgentB} {
		p, err := a.Store.ReadParticipant(agent)
		if err != nil {
			fmt.Printf("  %s%s: not registered%s\n", colorDim, agent, colorReset)
			continue
		}
		printField(string(agent)+" session", p.SessionFile)
		printField(string(agent)+" pane", p.TmuxPane)
		printField(string(agent)+" cwd", p.Cwd)
		printField(string(agent)+" registered", p.RegisteredAt)
	}
	fmt.Println()
	return nil
}
