// Package reregister implements the Re-registration Watcher (C9) and
// the idle-poll tick that drives it (spec §4.11). It is invoked by the
// external Editor's on-idle hook whenever no keystroke has arrived.
package reregister

import (
	"time"

	"github.com/joshuavictorchen/claodex/internal/claoderr"
	"github.com/joshuavictorchen/claodex/internal/cursorstore"
	"github.com/joshuavictorchen/claodex/internal/domain"
	"github.com/joshuavictorchen/claodex/internal/router"
	"github.com/joshuavictorchen/claodex/internal/window"
)

// Watch is a pending single-message watch the idle tick polls
// non-blockingly.
type Watch struct {
	Agent   domain.Agent
	Pending *router.PendingSend
	SentAt  time.Time
	Timeout time.Duration
}

// Tick is one idle-poll pass's outcome.
type Tick struct {
	Expired          []domain.Agent
	Responses        []TickResponse
	ReregisteredFrom map[domain.Agent]bool
	Warnings         []string
}

// TickResponse is a completed watch, possibly an agent-initiated
// collab seed.
type TickResponse struct {
	Agent           domain.Agent
	Response        *router.ResponseTurn
	CollabInitiated bool
}

// Runner drives re-registration + idle-poll against a Router, owning
// the set of currently-pending watches.
type Runner struct {
	Store  *cursorstore.Store
	Router *router.Router
	Watch  map[domain.Agent]*Watch
}

// NewRunner returns a Runner with no pending watches.
func NewRunner(store *cursorstore.Store, r *router.Router) *Runner {
	return &Runner{Store: store, Router: r, Watch: map[domain.Agent]*Watch{}}
}

// AddWatch registers a newly-sent message for idle-poll tracking.
func (rn *Runner) AddWatch(agent domain.Agent, pending *router.PendingSend, timeout time.Duration) {
	rn.Watch[agent] = &Watch{Agent: agent, Pending: pending, SentAt: pending.SentAt, Timeout: timeout}
}

// IdleTick implements spec §4.11 steps 1-3.
func (rn *Runner) IdleTick(now time.Time) Tick {
	tick := Tick{ReregisteredFrom: map[domain.Agent]bool{}}

	for _, agent := range []domain.Agent{domain.AgentA, domain.AgentB} {
		p, err := rn.Store.ReadParticipant(agent)
		if err != nil {
			// MalformedParticipant is tolerated during idle
			// re-registration polling (spec §7): try again next tick.
			if !claoderr.Is(err, claoderr.MalformedParticipant) {
				tick.Warnings = append(tick.Warnings, err.Error())
			}
			continue
		}
		existing, tracked := rn.Router.Participants[agent]
		if tracked && existing.SessionFile == p.SessionFile {
			rn.Router.Participants[agent] = p // refresh other fields (pane, cwd) even without a swap
			continue
		}

		// Session file changed (or first sighting): hot-swap and
		// reinitialize cursors for this agent (spec §4.11.1).
		if tracked {
			p.TmuxPane = existing.TmuxPane // preserve the live pane id
		}
		rn.Router.Participants[agent] = p

		ownLines, err := window.CountLines(p.SessionFile)
		if err != nil {
			tick.Warnings = append(tick.Warnings, err.Error())
			continue
		}
		if err := rn.Store.WriteReadCursor(agent, ownLines); err != nil {
			tick.Warnings = append(tick.Warnings, err.Error())
			continue
		}
		if err := rn.Store.WriteDeliveryCursor(agent.Peer(), ownLines); err != nil {
			tick.Warnings = append(tick.Warnings, err.Error())
			continue
		}
		if w, ok := rn.Watch[agent]; ok {
			rn.Router.ClearPollLatch(agent, w.Pending.BeforeCursor)
		}
		delete(rn.Watch, agent)
		tick.ReregisteredFrom[agent] = true
	}

	for agent, w := range rn.Watch {
		if now.Sub(w.SentAt) > w.Timeout {
			delete(rn.Watch, agent)
			tick.Expired = append(tick.Expired, agent)
			tick.Warnings = append(tick.Warnings, "watch for "+string(agent)+" expired without a response")
		}
	}

	for agent, w := range rn.Watch {
		turn, err := rn.Router.PollForResponse(w.Pending)
		if err != nil {
			tick.Warnings = append(tick.Warnings, err.Error())
			continue
		}
		if turn == nil {
			continue
		}
		delete(rn.Watch, agent)
		rn.Router.ClearPollLatch(w.Pending.Target, w.Pending.BeforeCursor)

		resp := TickResponse{Agent: agent, Response: turn}
		if last := domain.LastNonEmptyLine(turn.Body); last == domain.SignalCollab {
			withoutSignal := stripTrailingSignal(turn.Body)
			if withoutSignal != "" {
				resp.CollabInitiated = true
			}
		}
		tick.Responses = append(tick.Responses, resp)
	}

	return tick
}

func stripTrailingSignal(body string) string {
	idx := lastNonEmptyLineIndex(body)
	if idx < 0 {
		return "" // the signal line is the whole body
	}
	return trimRight(body[:idx])
}

func lastNonEmptyLineIndex(body string) int {
	// returns the byte index where the last non-empty line begins is
	// not needed; we only need the text preceding it.
	trimmed := trimRight(body)
	idx := -1
	for i := len(trimmed) - 1; i >= 0; i-- {
		if trimmed[i] == '\n' {
			idx = i
			break
		}
	}
	return idx
}

func trimRight(s string) string {
	i := len(s)
	for i > 0 && (s[i-1] == '\n' || s[i-1] == ' ' || s[i-1] == '\t' || s[i-1] == '\r') {
		i--
	}
	return s[:i]
}
