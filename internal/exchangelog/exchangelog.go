// Package exchangelog is the external exchange-log writer (spec §1,
// §3): an append-only Markdown transcript per collab run, grounded on
// the teacher's recorder.go JSONL-append idiom (open-append-close per
// write) but rendered as Markdown, and de-collided with a short UUID
// suffix (github.com/google/uuid) for runs that start within the same
// second.
package exchangelog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshuavictorchen/claodex/internal/domain"
	"github.com/joshuavictorchen/claodex/internal/protocol"
)

// Log appends to a single Markdown file for one collab run.
type Log struct {
	path string
}

// New creates exchanges/<timestamp>-<uuid8>.md under dir and writes
// its header.
func New(exchangesDir string, startAgent domain.Agent, message string, now time.Time) (*Log, error) {
	name := fmt.Sprintf("%s-%s.md", now.Format("060102-150405"), uuid.NewString()[:8])
	path := filepath.Join(exchangesDir, name)
	l := &Log{path: path}
	header := fmt.Sprintf("# Exchange %s\n\nStarted: %s\nFirst message to: %s\n\n---\n\n%s\n\n",
		name, now.Format(time.RFC3339), startAgent, protocol.StripRoutingSignals(message))
	if err := l.append(header); err != nil {
		return nil, err
	}
	return l, nil
}

// AppendTurn records one completed agent turn.
func (l *Log) AppendTurn(agent domain.Agent, body string, at time.Time) error {
	text := fmt.Sprintf("**%s** (%s):\n\n%s\n\n---\n\n", agent, at.Format(time.RFC3339), protocol.StripRoutingSignals(strings.TrimSpace(body)))
	return l.append(text)
}

// AppendStop records the collab's final stop reason.
func (l *Log) AppendStop(reason string, turns int) error {
	text := fmt.Sprintf("_Stopped: %s after %d turn(s)._\n", reason, turns)
	return l.append(text)
}

func (l *Log) append(text string) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(text)
	return err
}
