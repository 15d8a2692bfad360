package router

import (
	"time"

	"github.com/joshuavictorchen/claodex/internal/domain"
)

// PaneInjector is the external Pane Injector collaborator (spec §6):
// it delivers content to a tmux-style pane as if pasted and submitted,
// and reports whether the pane still exists.
type PaneInjector interface {
	Paste(paneID, content string) error
	Alive(paneID string) (bool, error)
}

// PendingSend is the in-memory record of a just-sent message awaiting
// a response (spec §3).
type PendingSend struct {
	Target       domain.Agent
	BeforeCursor int    // target's own read cursor at send time
	Payload      string // rendered payload handed to the pane
	Blocks       []Block
	SentAt       time.Time
}

// Block mirrors protocol.Block but keeps the router decoupled from the
// wire-format package's exact type name.
type Block struct {
	Sender string
	Body   string
}

// ResponseTurn is an extracted completed agent utterance.
type ResponseTurn struct {
	Agent      domain.Agent
	Body       string
	MarkerLine int
	ReceivedAt time.Time
}

// stuckState tracks a single agent's stalled-cursor bookkeeping (spec
// §4.4).
type stuckState struct {
	line      int
	attempts  int
	startedAt time.Time
}

// latchKey identifies one (target, before_cursor) wait for the
// poll-stop latch (spec §3 "Poll-stop latch").
type latchKey struct {
	target       domain.Agent
	beforeCursor int
}
