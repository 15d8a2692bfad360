package extract

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// rawEntry is a loosely-typed view over one parsed JSONL line, shared
// by both dialects. Session transcripts are dynamic discriminated
// unions on "type" (and, for Codex, "payload.type") — spec §9 calls
// for representing these as tagged variants rather than fixed structs,
// so we keep the decoded line as a generic map and pull fields on
// demand.
type rawEntry map[string]any

func parseEntry(line string) (rawEntry, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
		return nil, false
	}
	return rawEntry(m), true
}

func (e rawEntry) str(key string) string {
	if v, ok := e[key].(string); ok {
		return v
	}
	return ""
}

func (e rawEntry) boolv(key string) bool {
	if v, ok := e[key].(bool); ok {
		return v
	}
	return false
}

func (e rawEntry) obj(key string) rawEntry {
	if v, ok := e[key].(map[string]any); ok {
		return rawEntry(v)
	}
	return nil
}

var strictRFC3339Z = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)

// validTimestamp reports whether the entry's "timestamp" field is
// strict RFC3339 with a Z suffix. Only used to gate whether the entry
// contributes an event; it still counts toward last_success_line
// regardless (spec §4.3).
func (e rawEntry) validTimestamp() bool {
	ts := e.str("timestamp")
	if ts == "" {
		return false
	}
	if !strictRFC3339Z.MatchString(ts) {
		return false
	}
	_, err := time.Parse(time.RFC3339Nano, ts)
	return err == nil
}

// flattenContentText extracts and concatenates text from a content
// value that may be a bare string or a list of typed blocks
// ({"type":"text","text":...} / {"type":"tool_result",...} / etc).
func flattenContentText(content any) string {
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
				if text, ok := block["text"].(string); ok && text != "" {
					parts = append(parts, text)
				}
			}
		}
		return strings.Join(parts, "")
	default:
		return ""
	}
}

// isPureToolResultList reports whether content is a list containing
// only tool_result blocks (no other block types), per spec §4.3's
// "tool plumbing, not user speech" rule.
func isPureToolResultList(content any) bool {
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
