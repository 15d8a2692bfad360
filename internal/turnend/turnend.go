// Package turnend implements the Turn-End Scanner (C4): detecting the
// dialect-specific marker that means "agent has finished speaking"
// within a window of raw JSONL lines.
package turnend

import (
	"encoding/json"
	"strings"

	"github.com/joshuavictorchen/claodex/internal/domain"
)

// Result is the scanner's verdict over one window.
type Result struct {
	MarkerLine int  // absolute line of the marker, 0 if none found
	SawStarted bool // dialect-B-specific hint: was task_started seen in this window?
}

// Found reports whether a marker was located.
func (r Result) Found() bool { return r.MarkerLine > 0 }

func parseLine(line string) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &m); err != nil {
		return nil
	}
	return m
}

func str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func obj(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

// Scan searches lines (taken from windowStart+1..windowStart+len(lines))
// for agent's turn-end marker.
func Scan(agent domain.Agent, lines []string, windowStart int) Result {
	if agent == domain.AgentA {
		return scanClaude(lines, windowStart)
	}
	return scanCodex(lines, windowStart)
}

// scanClaude: the first "system" entry with subtype "turn_duration".
func scanClaude(lines []string, windowStart int) Result {
	for i, line := range lines {
		m := parseLine(line)
		if m == nil {
			continue
		}
		if str(m, "type") == "system" && str(m, "subtype") == "turn_duration" {
			return Result{MarkerLine: windowStart + i + 1}
		}
	}
	return Result{}
}

// scanCodex implements the subtle task_started/task_complete logic of
// spec §4.5: a task_complete occurring before any task_started in this
// window is only a tentative candidate, accepted solely if no
// task_started shows up anywhere in the window (it would otherwise be
// a stale marker left over from the turn that preceded our send).
func scanCodex(lines []string, windowStart int) Result {
	sawStarted := false
	staleCompleteLine := 0
	var confirmedLine int

	for i, line := range lines {
		m := parseLine(line)
		if m == nil {
			continue
		}
		if str(m, "type") != "event_msg" {
			continue
		}
		payload := obj(m, "payload")
		if payload == nil {
			continue
		}
		pos := windowStart + i + 1
		switch str(payload, "type") {
		case "task_started":
			sawStarted = true
		case "task_complete":
			if sawStarted {
				if confirmedLine == 0 {
					confirmedLine = pos
				}
			} else if staleCompleteLine == 0 {
				staleCompleteLine = pos
			}
		}
	}

	if confirmedLine > 0 {
		return Result{MarkerLine: confirmedLine, SawStarted: sawStarted}
	}
	if !sawStarted && staleCompleteLine > 0 {
		return Result{MarkerLine: staleCompleteLine, SawStarted: sawStarted}
	}
	return Result{SawStarted: sawStarted}
}
