// Package eventbus implements the external Event bus sink (spec §6):
// an append-only JSONL event log and an atomically-replaced metrics
// snapshot, optionally mirrored to a localhost websocket for a
// browser-based viewer (github.com/coder/websocket), the way the
// teacher's internal/webserver broadcasts JSON frames to connected
// dashboard clients.
package eventbus

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Event is one line appended to ui/events.jsonl.
type Event struct {
	Time    time.Time      `json:"time"`
	Kind    string         `json:"kind"` // sent, recv, collab, watch, error, system, status, warn
	Message string         `json:"message"`
	Agent   string         `json:"agent,omitempty"`
	Target  string         `json:"target,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Bus writes to ui/events.jsonl and ui/metrics.json under a workspace's
// .claodex directory, and fans each event out to any connected
// websocket viewers.
type Bus struct {
	mu         sync.Mutex
	eventsPath string
	metricsPath string
	now        func() time.Time

	connMu sync.Mutex
	conns  []*websocket.Conn
}

// New returns a Bus rooted at workspaceClaodexDir (the ".claodex" dir).
func New(workspaceClaodexDir string) *Bus {
	return &Bus{
		eventsPath:  filepath.Join(workspaceClaodexDir, "ui", "events.jsonl"),
		metricsPath: filepath.Join(workspaceClaodexDir, "ui", "metrics.json"),
		now:         time.Now,
	}
}

// Log appends one event (spec §6 contract: "log(kind, message, agent?,
// target?, meta?)").
func (b *Bus) Log(kind, message string, agent, target string, meta map[string]any) error {
	ev := Event{Time: b.now(), Kind: kind, Message: message, Agent: agent, Target: target, Meta: meta}
	line, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	b.mu.Lock()
	f, err := os.OpenFile(b.eventsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err == nil {
		_, err = f.Write(line)
		f.Close()
	}
	b.mu.Unlock()
	if err != nil {
		return err
	}

	b.broadcast(line)
	return nil
}

// UpdateMetrics atomically replaces ui/metrics.json by merging partial
// into the last-known snapshot.
func (b *Bus) UpdateMetrics(partial map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := map[string]any{}
	if data, err := os.ReadFile(b.metricsPath); err == nil {
		_ = json.Unmarshal(data, &current)
	}
	for k, v := range partial {
		current[k] = v
	}
	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return err
	}
	tmp := b.metricsPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, b.metricsPath)
}

// ServeHTTP upgrades a connection to a websocket and registers it to
// receive every future Log call's JSON line, for the optional --web
// status viewer.
func (b *Bus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	b.connMu.Lock()
	b.conns = append(b.conns, conn)
	b.connMu.Unlock()

	ctx := r.Context()
	<-ctx.Done()
	conn.Close(websocket.StatusNormalClosure, "closing")
}

func (b *Bus) broadcast(line []byte) {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	alive := b.conns[:0]
	for _, c := range b.conns {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := c.Write(ctx, websocket.MessageText, line); err == nil {
			alive = append(alive, c)
		}
		cancel()
	}
	b.conns = alive
}
