// Package protocol implements the Protocol Block Codec (C10): the
// "--- <sender> ---" wire format agents see on their panes, and its
// inverse used by the Event Extractor to collapse nested blocks.
package protocol

import (
	"regexp"
	"strings"
)

// Block is one rendered unit: a sender label and its trimmed body.
type Block struct {
	Sender string
	Body   string
}

// RenderBlock renders a single block: "--- <sender> ---\n<body>".
// body must be non-empty after trimming.
func RenderBlock(sender, body string) string {
	trimmed := strings.TrimSpace(body)
	return "--- " + sender + " ---\n" + trimmed
}

// RenderBlocks joins blocks with exactly one blank line between them,
// skipping any block whose body is empty after trimming.
func RenderBlocks(blocks []Block) string {
	var parts []string
	for _, b := range blocks {
		if strings.TrimSpace(b.Body) == "" {
			continue
		}
		parts = append(parts, RenderBlock(b.Sender, b.Body))
	}
	return strings.Join(parts, "\n\n")
}

var headerLinePattern = regexp.MustCompile(`^---\s*(A|B|user)\s*---$`)

// StripInjectedContext walks message line by line. If message starts
// with "---" and the entire text partitions cleanly into well-formed
// header+body blocks with no stray text outside them, it returns the
// trimmed body of the LAST "user" block. If no user block carries
// non-empty content, or the text doesn't match that shape, it returns
// the original message unchanged.
func StripInjectedContext(message string) string {
	trimmed := strings.TrimSpace(message)
	if !strings.HasPrefix(trimmed, "---") {
		return message
	}

	lines := strings.Split(message, "\n")
	type parsed struct {
		sender string
		body   []string
	}
	var blocks []parsed
	var cur *parsed
	sawHeader := false

	for _, line := range lines {
		if m := headerLinePattern.FindStringSubmatch(strings.TrimRight(line, " \t")); m != nil {
			blocks = append(blocks, parsed{sender: m[1]})
			cur = &blocks[len(blocks)-1]
			sawHeader = true
			continue
		}
		if cur == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			// stray text before any header: not a clean block shape.
			return message
		}
		cur.body = append(cur.body, line)
	}
	if !sawHeader {
		return message
	}

	for i := len(blocks) - 1; i >= 0; i-- {
		if blocks[i].sender != "user" {
			continue
		}
		body := strings.TrimSpace(strings.Join(blocks[i].body, "\n"))
		if body != "" {
			return body
		}
	}
	return message
}

// StripRoutingSignals iteratively strips trailing lines equal to
// domain.SignalCollab or domain.SignalConverged until stable. Used by
// the exchange logger (external collaborator) to keep transcripts
// readable.
func StripRoutingSignals(message string) string {
	for {
		trimmed := strings.TrimRight(message, "\n")
		idx := strings.LastIndexByte(trimmed, '\n')
		var lastLine string
		if idx == -1 {
			lastLine = trimmed
		} else {
			lastLine = trimmed[idx+1:]
		}
		if strings.TrimSpace(lastLine) == "[COLLAB]" || strings.TrimSpace(lastLine) == "[CONVERGED]" {
			if idx == -1 {
				return ""
			}
			message = strings.TrimRight(trimmed[:idx], " \t\r\n")
			continue
		}
		return message
	}
}
