package cli

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/joshuavictorchen/claodex/internal/claoderr"
	"github.com/joshuavictorchen/claodex/internal/domain"
	"github.com/joshuavictorchen/claodex/internal/paneinject"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose corrupt cursors and malformed participant records",
	Long: `Reads every cursor and participant file directly (bypassing the
normal Router startup path, which would abort on the first
CorruptCursor/MalformedParticipant per spec §7) and reports what is
wrong with each, including a readable diff against the value doctor
would suggest for "repair". Run "claodex repair" to apply a fix.`,
	RunE: runDoctor,
}

var cursorDigits = regexp.MustCompile(`[0-9]+`)

// suggestedCursorValue extracts the longest run of digits from a
// corrupt cursor file's content, which is a reasonable recovery guess
// for the common corruption modes (trailing garbage, missing newline,
// an accidental duplicate write).
func suggestedCursorValue(raw string) string {
	matches := cursorDigits.FindAllString(raw, -1)
	if len(matches) == 0 {
		return "0"
	}
	best := matches[0]
	for _, m := range matches {
		if len(m) > len(best) {
			best = m
		}
	}
	return best
}

func diagnoseCursor(label, path, agent, kind string) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Printf("  %s%-28s%s %sabsent (will initialize to 0 on next use)%s\n", colorBold, label, colorReset, colorDim, colorReset)
		return
	}
	if err != nil {
		fmt.Printf("  %s%-28s%s %sunreadable: %v%s\n", colorBold, label, colorReset, colorRed, err, colorReset)
		return
	}
	raw := string(data)
	if cursorPatternMatches(raw) {
		fmt.Printf("  %s%-28s%s %sok (%s)%s\n", colorBold, label, colorReset, colorGreen, strings.TrimSpace(raw), colorReset)
		return
	}

	suggested := suggestedCursorValue(raw)
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(raw, suggested+"\n", false)
	fmt.Printf("  %s%-28s%s %scorrupt%s\n", colorBold, label, colorReset, colorRed, colorReset)
	fmt.Printf("    current : %q\n", raw)
	fmt.Printf("    suggest : %q\n", suggested+"\n")
	fmt.Printf("    diff    : %s\n", dmp.DiffPrettyText(diffs))
	fmt.Printf("    fix with: claodex repair %s %s %s\n", agent, kind, suggested)
}

func cursorPatternMatches(raw string) bool {
	matched, _ := regexp.MatchString(`^[0-9]+\n$`, raw)
	return matched
}

func runDoctor(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}

	printHeader("Cursors")
	for _, agent := range []domain.Agent{domain.AgentA, domain.AgentB} {
		diagnoseCursor(fmt.Sprintf("read_cursor[%s]", agent), a.Store.ReadCursorPath(agent), string(agent), "read")
		diagnoseCursor(fmt.Sprintf("delivery_cursor[%s]", agent), a.Store.DeliveryCursorPath(agent), string(agent), "delivery")
	}

	printHeader("Participants")
	for _, agent := range []domain.Agent{domain.AgentA, domain.AgentB} {
		_, perr := a.Store.ReadParticipant(agent)
		if perr == nil {
			fmt.Printf("  %s%-28s%s %sok%s\n", colorBold, agent, colorReset, colorGreen, colorReset)
			continue
		}
		if claoderr.Is(perr, claoderr.MalformedParticipant) {
			fmt.Printf("  %s%-28s%s %smalformed: %v%s\n", colorBold, agent, colorReset, colorRed, perr, colorReset)
			fmt.Printf("    fix with: claodex register %s --session-file ... --session-id ... --pane ...\n", agent)
			continue
		}
		fmt.Printf("  %s%-28s%s %s%v%s\n", colorBold, agent, colorReset, colorRed, perr, colorReset)
	}

	printHeader("Environment")
	if perr := paneinject.ProbeEnvironment(); perr != nil {
		fmt.Printf("  %s%-28s%s %scannot open a pty: %v%s\n", colorBold, "pty", colorReset, colorRed, perr, colorReset)
	} else {
		fmt.Printf("  %s%-28s%s %sok%s\n", colorBold, "pty", colorReset, colorGreen, colorReset)
	}
	fmt.Println()
	return nil
}
