package cli

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/joshuavictorchen/claodex/internal/domain"
)

// Per-speaker transcript coloring: agent A, agent B, and the user each
// get a distinct color so a multi-turn collab transcript scrolling
// past in a terminal stays readable at a glance. The teacher's own CLI
// never needed this (it has no two-party transcript to color); grounded
// on fatih/color's Sprintf-style helpers.
var (
	speakerA    = color.New(color.FgCyan, color.Bold)
	speakerB    = color.New(color.FgMagenta, color.Bold)
	speakerUser = color.New(color.FgYellow, color.Bold)
)

func speakerColor(sender string) *color.Color {
	switch sender {
	case string(domain.AgentA):
		return speakerA
	case string(domain.AgentB):
		return speakerB
	default:
		return speakerUser
	}
}

func printTranscriptLine(agent domain.Agent, body string) {
	fmt.Printf("\n%s\n%s\n", speakerColor(string(agent)).Sprintf("%s:", agent), body)
}
