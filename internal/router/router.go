// Package router implements the Router (C7): composing, delivering,
// awaiting, and refreshing messages between the two agent panes. It is
// the sole owner of the Cursor Store, StuckState, the poll-stop latch,
// and live participant records (spec §3 "Ownership").
package router

import (
	"fmt"
	"time"

	"github.com/joshuavictorchen/claodex/internal/claoderr"
	"github.com/joshuavictorchen/claodex/internal/cursorstore"
	"github.com/joshuavictorchen/claodex/internal/domain"
	"github.com/joshuavictorchen/claodex/internal/extract"
	"github.com/joshuavictorchen/claodex/internal/interference"
	"github.com/joshuavictorchen/claodex/internal/protocol"
	"github.com/joshuavictorchen/claodex/internal/stopwatch"
	"github.com/joshuavictorchen/claodex/internal/window"
)

const (
	DefaultStuckSkipAttempts = 3
	DefaultStuckSkipSeconds  = 10 * time.Second
)

// Tunables are the poll/timeout knobs from spec §6. Stuck-skip
// settings are spec-mandated constants, not operator tunable, but are
// carried here so tests can shrink them.
type Tunables struct {
	PollInterval      time.Duration
	StuckSkipAttempts int
	StuckSkipAfter    time.Duration
}

// WarningFunc receives non-fatal warnings for the event bus to log
// (spec §7: "warning_callback").
type WarningFunc func(warning string)

// Router owns all mutable runtime state for one workspace.
type Router struct {
	Store        *cursorstore.Store
	Pane         PaneInjector
	Tunables     Tunables
	Participants map[domain.Agent]domain.Participant
	Now          func() time.Time
	Warn         WarningFunc
	StopWatchers map[domain.Agent]*stopwatch.Watcher // dialect A only; keyed defensively

	stuck     map[domain.Agent]*stuckState
	pollLatch map[latchKey]bool
	extractSt map[domain.Agent]*extract.State
}

// New builds a Router over an already-laid-out workspace.
func New(store *cursorstore.Store, pane PaneInjector, tunables Tunables) *Router {
	return &Router{
		Store:        store,
		Pane:         pane,
		Tunables:     tunables,
		Participants: map[domain.Agent]domain.Participant{},
		Now:          time.Now,
		Warn:         func(string) {},
		StopWatchers: map[domain.Agent]*stopwatch.Watcher{},
		stuck:        map[domain.Agent]*stuckState{},
		pollLatch:    map[latchKey]bool{},
		extractSt:    map[domain.Agent]*extract.State{domain.AgentA: {}, domain.AgentB: {}},
	}
}

func (r *Router) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.Warn != nil {
		r.Warn(msg)
	}
}

func (r *Router) sessionPath(x domain.Agent) (string, error) {
	p, ok := r.Participants[x]
	if !ok || p.SessionFile == "" {
		return "", claoderr.New(claoderr.MalformedParticipant, "no registered session file for agent %s", x)
	}
	return p.SessionFile, nil
}

// RefreshResult is the outcome of RefreshSource: the agent's own
// up-to-date read cursor plus whatever events/warnings came along for
// the ride.
type RefreshResult struct {
	Cursor   int
	Events   []domain.Event
	Warnings []string
}

// RefreshSource implements spec §4.4: read read_cursor[X], count
// lines, validate cursor <= total, extract the new window, advance
// the cursor to last_success_line (applying the stuck-cursor policy
// when no progress was made), and record warnings.
func (r *Router) RefreshSource(x domain.Agent) (RefreshResult, error) {
	path, err := r.sessionPath(x)
	if err != nil {
		return RefreshResult{}, err
	}
	cursor, err := r.Store.ReadCursor(x)
	if err != nil {
		return RefreshResult{}, err
	}
	total, err := window.CountLines(path)
	if err != nil {
		return RefreshResult{}, err
	}
	if cursor > total {
		return RefreshResult{}, claoderr.New(claoderr.CursorInvariant, "read_cursor[%s]=%d exceeds line count %d of %s", x, cursor, total, path)
	}
	if cursor == total {
		return RefreshResult{Cursor: cursor}, nil
	}

	lines, err := window.ReadLinesBetween(path, cursor, total)
	if err != nil {
		return RefreshResult{}, err
	}
	result := extract.Extract(x, lines, cursor, r.extractSt[x])

	newCursor := result.LastSuccessLine
	if newCursor <= cursor {
		// Tail unparseable: apply the bounded stuck-cursor policy
		// (spec §4.4) rather than stalling the channel forever.
		newCursor = r.applyStuckPolicy(x, cursor)
	} else {
		delete(r.stuck, x)
	}

	if err := r.Store.WriteReadCursor(x, newCursor); err != nil {
		return RefreshResult{}, err
	}
	for _, w := range result.Warnings {
		r.warn("%s: %s", x, w)
	}
	return RefreshResult{Cursor: newCursor, Events: result.Events, Warnings: result.Warnings}, nil
}

// applyStuckPolicy advances cursor by exactly one line once the same
// stalled line has failed STUCK_SKIP_ATTEMPTS times or
// STUCK_SKIP_SECONDS have elapsed; otherwise it leaves the cursor
// unchanged.
func (r *Router) applyStuckPolicy(x domain.Agent, cursor int) int {
	attempts := r.Tunables.StuckSkipAttempts
	if attempts <= 0 {
		attempts = DefaultStuckSkipAttempts
	}
	after := r.Tunables.StuckSkipAfter
	if after <= 0 {
		after = DefaultStuckSkipSeconds
	}

	now := r.Now()
	st, ok := r.stuck[x]
	if !ok || st.line != cursor {
		st = &stuckState{line: cursor, attempts: 1, startedAt: now}
		r.stuck[x] = st
		return cursor
	}
	st.attempts++
	if st.attempts >= attempts || now.Sub(st.startedAt) >= after {
		delete(r.stuck, x)
		r.warn("%s: stuck cursor at line %d skipped after %d attempts", x, cursor+1, st.attempts)
		return cursor + 1
	}
	return cursor
}

// BuildDeltaForTarget implements spec §4.8: the undelivered events
// from X's peer, plus the peer's freshly-refreshed read cursor.
func (r *Router) BuildDeltaForTarget(x domain.Agent) ([]domain.Event, int, error) {
	peer := x.Peer()
	peerRefresh, err := r.RefreshSource(peer)
	if err != nil {
		return nil, 0, err
	}
	deliveryCursor, err := r.Store.DeliveryCursor(x)
	if err != nil {
		return nil, 0, err
	}
	if deliveryCursor > peerRefresh.Cursor {
		return nil, 0, claoderr.New(claoderr.CursorInvariant, "delivery_cursor[%s]=%d exceeds read_cursor[%s]=%d", x, deliveryCursor, peer, peerRefresh.Cursor)
	}
	if deliveryCursor == peerRefresh.Cursor {
		return nil, peerRefresh.Cursor, nil
	}
	path, err := r.sessionPath(peer)
	if err != nil {
		return nil, 0, err
	}
	lines, err := window.ReadLinesBetween(path, deliveryCursor, peerRefresh.Cursor)
	if err != nil {
		return nil, 0, err
	}
	result := extract.Extract(peer, lines, deliveryCursor, r.extractSt[peer])
	return result.Events, peerRefresh.Cursor, nil
}

// ComposeUserMessage implements spec §4.8: undelivered peer events in
// source order, followed by ("user", user_text).
func (r *Router) ComposeUserMessage(x domain.Agent, userText string) ([]Block, string, int, error) {
	if trimmedEmpty(userText) {
		return nil, "", 0, claoderr.New(claoderr.Validation, "user message is empty")
	}
	events, peerRead, err := r.BuildDeltaForTarget(x)
	if err != nil {
		return nil, "", 0, err
	}
	blocks := eventsToBlocks(events)
	blocks = append(blocks, Block{Sender: "user", Body: userText})
	return blocks, renderBlocks(blocks), peerRead, nil
}

func trimmedEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

func eventsToBlocks(events []domain.Event) []Block {
	out := make([]Block, 0, len(events))
	for _, e := range events {
		out = append(out, Block{Sender: e.Sender, Body: e.Body})
	}
	return out
}

func renderBlocks(blocks []Block) string {
	pbs := make([]protocol.Block, 0, len(blocks))
	for _, b := range blocks {
		pbs = append(pbs, protocol.Block{Sender: b.Sender, Body: b.Body})
	}
	return protocol.RenderBlocks(pbs)
}

// SendUserMessage implements spec §4.8 send_user_message.
func (r *Router) SendUserMessage(x domain.Agent, text string) (*PendingSend, error) {
	beforeRefresh, err := r.RefreshSource(x)
	if err != nil {
		return nil, err
	}
	blocks, payload, peerRead, err := r.ComposeUserMessage(x, text)
	if err != nil {
		return nil, err
	}
	sentAt := r.Now()
	pane, err := r.participantPane(x)
	if err != nil {
		return nil, err
	}
	if err := r.Pane.Paste(pane, payload); err != nil {
		return nil, err
	}
	if err := r.Store.WriteDeliveryCursor(x, peerRead); err != nil {
		return nil, err
	}
	return &PendingSend{Target: x, BeforeCursor: beforeRefresh.Cursor, Payload: payload, Blocks: blocks, SentAt: sentAt}, nil
}

// SendRoutedMessage implements spec §4.8 send_routed_message: routes a
// peer's completed turn (plus any queued user interjections) onward to
// x, dropping the peer's own assistant rows from the delta (peerText
// already carries that response) and optionally suppressing a user
// row that echoes echoedAnchor.
func (r *Router) SendRoutedMessage(x domain.Agent, from domain.Agent, peerText string, interjections []string, echoedAnchor *string) (*PendingSend, error) {
	beforeRefresh, err := r.RefreshSource(x)
	if err != nil {
		return nil, err
	}
	events, peerRead, err := r.BuildDeltaForTarget(x)
	if err != nil {
		return nil, err
	}

	var blocks []Block
	for _, e := range events {
		if e.Sender == string(from) {
			continue
		}
		if e.Sender == "user" && echoedAnchor != nil && collapsedEqual(e.Body, *echoedAnchor) {
			continue
		}
		blocks = append(blocks, Block{Sender: e.Sender, Body: e.Body})
	}
	blocks = append(blocks, Block{Sender: string(from), Body: peerText})
	for _, in := range interjections {
		if trimmedEmpty(in) {
			continue
		}
		blocks = append(blocks, Block{Sender: "user", Body: in})
	}

	payload := renderBlocks(blocks)
	sentAt := r.Now()
	pane, err := r.participantPane(x)
	if err != nil {
		return nil, err
	}
	if err := r.Pane.Paste(pane, payload); err != nil {
		return nil, err
	}
	if err := r.Store.WriteDeliveryCursor(x, peerRead); err != nil {
		return nil, err
	}
	return &PendingSend{Target: x, BeforeCursor: beforeRefresh.Cursor, Payload: payload, Blocks: blocks, SentAt: sentAt}, nil
}

func collapsedEqual(a, b string) bool {
	na, nb := collapseWhitespace(a), collapseWhitespace(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb
}

func (r *Router) participantPane(x domain.Agent) (string, error) {
	p, ok := r.Participants[x]
	if !ok || p.TmuxPane == "" {
		return "", claoderr.New(claoderr.MalformedParticipant, "no registered pane for agent %s", x)
	}
	return p.TmuxPane, nil
}

// SyncDeliveryCursors implements spec §4.8: sets delivery_cursor[X] =
// read_cursor[peer(X)] for every X not in exclude.
func (r *Router) SyncDeliveryCursors(exclude map[domain.Agent]bool) error {
	for _, x := range []domain.Agent{domain.AgentA, domain.AgentB} {
		if exclude[x] {
			continue
		}
		peerRefresh, err := r.RefreshSource(x.Peer())
		if err != nil {
			return err
		}
		if err := r.Store.WriteDeliveryCursor(x, peerRefresh.Cursor); err != nil {
			return err
		}
	}
	return nil
}

// ClearPollLatch removes the poll-stop latch for one (target,
// before_cursor) wait.
func (r *Router) ClearPollLatch(target domain.Agent, beforeCursor int) {
	delete(r.pollLatch, latchKey{target, beforeCursor})
}

func (r *Router) interferenceInjected(p *PendingSend) string {
	// The anchor we expect to see echoed is the user-authored block we
	// just sent, i.e. the last block's body.
	if len(p.Blocks) == 0 {
		return ""
	}
	return p.Blocks[len(p.Blocks)-1].Body
}

// runInterferenceCheck runs the Claude-only Interference Detector over
// newly appended lines of the target's own file.
func (r *Router) runInterferenceCheck(x domain.Agent, pending *PendingSend, fromLine, toLine int) error {
	if x != domain.AgentA {
		return nil
	}
	path, err := r.sessionPath(x)
	if err != nil {
		return err
	}
	lines, err := window.ReadLinesBetween(path, fromLine, toLine)
	if err != nil {
		return err
	}
	return interference.Detect(lines, r.interferenceInjected(pending))
}

func collapseWhitespace(s string) string {
	out := make([]rune, 0, len(s))
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace && len(out) > 0 {
				out = append(out, ' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false
		out = append(out, r)
	}
	for len(out) > 0 && out[len(out)-1] == ' ' {
		out = out[:len(out)-1]
	}
	return string(out)
}
