// Package extract implements the Event Extractor (C3): normalizing
// Claude ("dialect A") and Codex ("dialect B") JSONL windows into a
// canonical (sender, body) event stream.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joshuavictorchen/claodex/internal/domain"
	"github.com/joshuavictorchen/claodex/internal/protocol"
)

// Result is the output of one extraction pass over a window.
type Result struct {
	Events          []domain.Event
	LastSuccessLine int // absolute position of the last successfully parsed entry, 0 if none
	Warnings        []string
}

// State carries the tiny bit of cross-call memory the extractor needs
// that the spec does not model as part of the window itself: the
// codex ambiguous-user-payload warning fires only on first occurrence
// (spec §7). It is owned by the Router, not a package-level global
// (spec §9: "the Router owns all mutable runtime state").
type State struct {
	AmbiguousCodexWarned bool
}

// Extract parses lines (raw JSONL text, no trailing newlines) taken
// from a session file starting at absolute line windowStart+1, and
// produces events per the dialect rules for agent. state may be nil,
// in which case the ambiguous-payload warning is not deduplicated.
func Extract(agent domain.Agent, lines []string, windowStart int, state *State) Result {
	if agent == domain.AgentA {
		return extractClaude(lines, windowStart)
	}
	return extractCodex(lines, windowStart, state)
}

// commonParse runs the shared parse loop (spec §4.3 steps 1-3):
// malformed entries don't abort, last_success_line tracks the last
// entry that parsed, and a failure strictly after last_success_line
// means the tail is still being written and everything past it is
// excluded.
func commonParse(lines []string, windowStart int) (entries []rawEntry, positions []int, lastSuccess int, warnings []string) {
	type slot struct {
		entry rawEntry
		ok    bool
		pos   int
	}
	var slots []slot
	lastSuccess = 0
	for i, line := range lines {
		pos := windowStart + i + 1
		e, ok := parseEntry(line)
		slots = append(slots, slot{entry: e, ok: ok, pos: pos})
		if ok {
			lastSuccess = pos
		}
	}
	for _, s := range slots {
		if s.pos > lastSuccess {
			break // tail still being written; stop considering further lines entirely
		}
		if !s.ok {
			warnings = append(warnings, fmt.Sprintf("malformed JSONL entry at line %d", s.pos))
			continue
		}
		entries = append(entries, s.entry)
		positions = append(positions, s.pos)
	}
	return entries, positions, lastSuccess, warnings
}

var groupChatPrefix = regexp.MustCompile(`^[/$]group(-chat)?\b\s*`)

func stripGroupChatPrefix(s string) string {
	return groupChatPrefix.ReplaceAllString(s, "")
}

var (
	commandMessageTag = regexp.MustCompile(`(?s)<command-message>(.*?)</command-message>`)
	commandNameTag    = regexp.MustCompile(`(?s)<command-name>(.*?)</command-name>`)
	commandArgsTag    = regexp.MustCompile(`(?s)<command-args>(.*?)</command-args>`)
	anyCommandTag     = regexp.MustCompile(`(?s)<command-(message|name|args)>.*?</command-(message|name|args)>`)
)

// normalizeClaudeUserText applies the command-tag normalization rule:
// when the message consists entirely of command-* tags, the effective
// text is args, then name, then message, in that priority.
func normalizeClaudeUserText(text string) string {
	stripped := anyCommandTag.ReplaceAllString(text, "")
	if strings.TrimSpace(stripped) != "" {
		return stripGroupChatPrefix(strings.TrimSpace(text))
	}
	if m := commandArgsTag.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		return stripGroupChatPrefix(strings.TrimSpace(m[1]))
	}
	if m := commandNameTag.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		return stripGroupChatPrefix(strings.TrimSpace(m[1]))
	}
	if m := commandMessageTag.FindStringSubmatch(text); m != nil {
		return stripGroupChatPrefix(strings.TrimSpace(m[1]))
	}
	return stripGroupChatPrefix(strings.TrimSpace(text))
}

func extractClaude(lines []string, windowStart int) Result {
	entries, positions, lastSuccess, warnings := commonParse(lines, windowStart)

	var events []domain.Event
	var pendingAssistant string
	haveAssistant := false

	flushAssistant := func() {
		if haveAssistant {
			body := strings.TrimSpace(pendingAssistant)
			if body != "" {
				events = append(events, domain.Event{Sender: "A", Body: body})
			}
		}
		pendingAssistant = ""
		haveAssistant = false
	}

	for i, e := range entries {
		_ = positions[i]
		if e.boolv("isSidechain") || e.boolv("isMeta") {
			continue
		}
		if !e.validTimestamp() {
			// Still counted toward last_success_line by commonParse;
			// just excluded from event construction (spec §4.3).
			continue
		}
		typ := e.str("type")
		msg := e.obj("message")

		switch typ {
		case "user":
			role := ""
			var content any
			if msg != nil {
				role = msg.str("role")
				content = msg["content"]
			}
			if role != "" && role != "user" {
				continue
			}
			if isPureToolResultList(content) {
				// Tool plumbing, not a real user turn boundary — but per
				// spec §4.8.d the assistant frame preceding this tool
				// round-trip is no longer eligible as the turn's final
				// answer. Discard it; only assistant text appearing
				// after this point can be flushed as the turn's output.
				pendingAssistant = ""
				haveAssistant = false
				continue
			}
			flushAssistant()
			text := flattenContentText(content)
			if text == "" {
				continue
			}
			normalized := normalizeClaudeUserText(text)
			if normalized == "" {
				continue
			}
			events = append(events, domain.Event{Sender: "user-A", Body: normalized})
		case "assistant":
			if msg == nil {
				continue
			}
			text := flattenContentText(msg["content"])
			if text == "" {
				continue
			}
			// last non-empty frame within the turn wins.
			pendingAssistant = text
			haveAssistant = true
		default:
			// system/other entries are not user/assistant speech.
		}
	}
	flushAssistant()

	events, warnings = postProcess(events, warnings)
	return Result{Events: events, LastSuccessLine: lastSuccess, Warnings: warnings}
}

func extractCodex(lines []string, windowStart int, state *State) Result {
	entries, positions, lastSuccess, warnings := commonParse(lines, windowStart)

	var events []domain.Event
	var pendingAssistant string
	haveAssistant := false

	flushAssistant := func() {
		if haveAssistant {
			body := strings.TrimSpace(pendingAssistant)
			if body != "" {
				events = append(events, domain.Event{Sender: "B", Body: body})
			}
		}
		pendingAssistant = ""
		haveAssistant = false
	}

	for i, e := range entries {
		_ = positions[i]
		if !e.validTimestamp() {
			// Still counted toward last_success_line by commonParse;
			// just excluded from event construction (spec §4.3).
			continue
		}
		typ := e.str("type")
		switch typ {
		case "session_meta":
			// metadata only.
		case "event_msg":
			payload := e.obj("payload")
			if payload == nil || payload.str("type") != "user_message" {
				continue
			}
			flushAssistant()
			msgField, hasMsg := payload["message"].(string)
			content, hasContent := payload["content"]
			var text string
			switch {
			case hasMsg && hasContent:
				text = msgField
				if state == nil || !state.AmbiguousCodexWarned {
					warnings = append(warnings, "ambiguous codex user_message payload: both message and content present")
					if state != nil {
						state.AmbiguousCodexWarned = true
					}
				}
			case hasMsg:
				text = msgField
			case hasContent:
				text = flattenContentText(content)
			}
			text = strings.TrimSpace(stripGroupChatPrefix(strings.TrimSpace(text)))
			if text == "" {
				continue
			}
			events = append(events, domain.Event{Sender: "user-B", Body: text})
		case "response_item":
			payload := e.obj("payload")
			if payload == nil || payload.str("type") != "message" || payload.str("role") != "assistant" {
				continue
			}
			text := flattenContentText(payload["content"])
			if text == "" {
				text = payload.str("text")
			}
			if text == "" {
				continue
			}
			pendingAssistant = text
			haveAssistant = true
		default:
		}
	}
	flushAssistant()

	events, warnings = postProcess(events, warnings)
	return Result{Events: events, LastSuccessLine: lastSuccess, Warnings: warnings}
}

// postProcess rewrites user-* senders to "user" and runs their body
// through the block-codec's strip-injected-context filter so nested
// protocol blocks collapse to the most recent user block (spec §4.3).
func postProcess(events []domain.Event, warnings []string) ([]domain.Event, []string) {
	out := make([]domain.Event, 0, len(events))
	for _, ev := range events {
		if strings.HasPrefix(ev.Sender, "user-") {
			ev.Sender = "user"
			ev.Body = protocol.StripInjectedContext(ev.Body)
		}
		ev.Body = strings.TrimSpace(ev.Body)
		if ev.Body == "" {
			continue
		}
		out = append(out, ev)
	}
	return out, warnings
}
