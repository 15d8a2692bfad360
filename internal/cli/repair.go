package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuavictorchen/claodex/internal/cursorstore"
)

var repairCmd = &cobra.Command{
	Use:   "repair <A|B> <read|delivery> <value>",
	Short: "Overwrite a cursor file with an operator-confirmed value",
	Long: `Applies the fix an operator chose after reviewing "claodex doctor"'s
diff. This is the only supported way to recover from a CorruptCursor
(spec §7): claodex never guesses and silently rewrites a cursor on its
own.`,
	Args: cobra.ExactArgs(3),
	RunE: runRepair,
}

func runRepair(cmd *cobra.Command, args []string) error {
	agent, err := parseAgentArg(args[0])
	if err != nil {
		return err
	}
	kind := args[1]
	if kind != "read" && kind != "delivery" {
		return fmt.Errorf("cursor kind must be \"read\" or \"delivery\", got %q", kind)
	}
	value, err := strconv.Atoi(args[2])
	if err != nil || value < 0 {
		return fmt.Errorf("value must be a non-negative integer, got %q", args[2])
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}

	var path string
	if kind == "read" {
		path = a.Store.ReadCursorPath(agent)
	} else {
		path = a.Store.DeliveryCursorPath(agent)
	}
	if err := cursorstore.WriteCursor(path, value); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Printf("%sRepaired%s %s_cursor[%s] = %d\n", colorGreen, colorReset, kind, agent, value)
	_ = a.Bus.Log("system", fmt.Sprintf("repaired %s_cursor[%s] = %d", kind, agent, value), string(agent), "", nil)
	return nil
}
