// Package cli wires the claodex command surface with cobra, following
// the teacher's internal/cli/root.go conventions: a colored ASCII
// banner in the root command's Long description, a --debug persistent
// flag gated by debug.ShouldEnableFromEnv, and SilenceUsage/
// SilenceErrors so errors are printed once in a single style.
package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/joshuavictorchen/claodex/internal/buildinfo"
	"github.com/joshuavictorchen/claodex/internal/debug"
	"github.com/joshuavictorchen/claodex/internal/tui"
)

const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"

	styleBoldCyan  = "\033[1;36m"
	styleBoldWhite = "\033[1;37m"
)

var rootCmd = &cobra.Command{
	Use:   "claodex",
	Short: "Route exchanges between two coding-agent panes",
	Long: colorBold + `
   ___ _                 _
  / __| |__ _ ___ __| |_____ __
 | (__| / _` + "`" + ` / _ \/ _` + "`" + ` / -_) \ /
  \___|_\__,_\___\__,_\___/_\_\` + colorReset + `

  ` + styleBoldCyan + `claodex` + colorReset + ` v` + buildinfo.Current().Version + `

  Route messages between two black-box coding-agent panes (Claude Code,
  Codex CLI) so they can exchange turns like a group chat, with you able
  to send to either agent, broker multi-turn auto-exchanges, or
  interject mid-collab.

` + colorBold + `Getting Started:` + colorReset + `
  claodex register A --session-file ... --session-id ... --pane %1   Register agent A
  claodex register B --session-file ... --session-id ... --pane %2   Register agent B
  claodex send A "please review"                    Send to one agent
  claodex collab A "let's pair on this" --turns 10   Start a collab run
  claodex status                                     Show cursor state
  claodex repl                                        Interactive shell`,

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		if isInteractive() {
			return tui.RunApp(a.Store, a.Bus)
		}
		return runStatusBrief(a)
	},

	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.PersistentFlags().Bool("debug", false, "Enable verbose debug logging to ~/.claodex/debug/")
	rootCmd.PersistentFlags().String("workspace", ".", "Workspace root directory")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		debugFlag, _ := cmd.Flags().GetBool("debug")
		if !debugFlag && !debug.ShouldEnableFromEnv() {
			return nil
		}
		logPath, err := debug.Init()
		if err != nil {
			return fmt.Errorf("initializing debug logger: %w", err)
		}
		fmt.Fprintf(os.Stderr, "%s[debug]%s logging to %s\n", colorDim, colorReset, logPath)
		bi := buildinfo.Current()
		debug.LogKV("cli", "claodex starting",
			"version", bi.Version,
			"commit", bi.CommitHash,
			"pid", os.Getpid(),
			"command", cmd.Name(),
			"args", args,
		)
		return nil
	}

	rootCmd.AddCommand(registerCmd, sendCmd, collabCmd, statusCmd, doctorCmd, repairCmd, replCmd)
}

func isInteractive() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// Execute runs the root command.
func Execute() {
	defer debug.Close()
	if err := rootCmd.Execute(); err != nil {
		debug.Logf("cli", "exit with error: %v", err)
		fmt.Fprintf(os.Stderr, "%sError: %s%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	debug.Log("cli", "exit success")
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s[warn]%s %s\n", colorYellow, colorReset, fmt.Sprintf(format, args...))
}
