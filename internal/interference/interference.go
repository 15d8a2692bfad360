// Package interference implements the Interference Detector (C5,
// dialect A / Claude only): flagging out-of-band user input injected
// into a pane while the router is awaiting that pane's response.
package interference

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/joshuavictorchen/claodex/internal/claoderr"
)

// metaPatterns are known non-speech wrapper tags/phrases that never
// count as genuine interference (spec §4.7).
var metaPatterns = []string{
	"<command-name>",
	"<command-message>",
	"<local-command-caveat>",
	"<local-command-stdout>",
	"<task-notification>",
	"<system-reminder>",
	"This session is being continued",
}

func isMeta(text string) bool {
	for _, p := range metaPatterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

var wsRun = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(wsRun.ReplaceAllString(s, " "))
}

// matches implements the anchor match rule: normalize whitespace on
// both sides, accept exact equality or either-way substring
// containment (the agent runtime may wrap the injected payload).
func matches(a, b string) bool {
	na, nb := collapseWhitespace(a), collapseWhitespace(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}

func parseLine(line string) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &m); err != nil {
		return nil
	}
	return m
}

func flatten(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var parts []string
		for _, item := range v {
			block, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if t, _ := block["type"].(string); t == "text" || t == "" {
				if text, ok := block["text"].(string); ok {
					parts = append(parts, text)
				}
			}
		}
		return strings.Join(parts, "")
	}
	return ""
}

func isPureToolResult(content any) bool {
	list, ok := content.([]any)
	if !ok || len(list) == 0 {
		return false
	}
	for _, item := range list {
		block, ok := item.(map[string]any)
		if !ok {
			return false
		}
		if t, _ := block["type"].(string); t != "tool_result" {
			return false
		}
	}
	return true
}

// Detect scans newly appended raw lines for user-typed rows that are
// neither pure tool-result plumbing nor a known meta pattern. The
// first such row is the anchor and must match injectedText; any
// further non-meta user row after the anchor is itself interference.
// Returns nil if no interference is found.
func Detect(lines []string, injectedText string) error {
	anchorSeen := false
	for _, line := range lines {
		m := parseLine(line)
		if m == nil {
			continue
		}
		typ, _ := m["type"].(string)
		if typ != "user" {
			continue
		}
		msg, _ := m["message"].(map[string]any)
		var role string
		var content any
		if msg != nil {
			role, _ = msg["role"].(string)
			content = msg["content"]
		}
		if role != "" && role != "user" {
			continue
		}
		if isPureToolResult(content) {
			continue
		}
		text := flatten(content)
		if isMeta(text) {
			continue
		}
		if !anchorSeen {
			anchorSeen = true
			if !matches(text, injectedText) {
				return claoderr.New(claoderr.Interference, "%s", snippet(text))
			}
			continue
		}
		return claoderr.New(claoderr.Interference, "%s", snippet(text))
	}
	return nil
}

func snippet(text string) string {
	if len(text) > 120 {
		return text[:120]
	}
	return text
}
