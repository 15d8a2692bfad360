// Package collab implements the Collab Orchestrator (C8): the
// multi-turn routing loop with convergence detection, halt, and
// interjection threading, driving a router.Router.
package collab

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshuavictorchen/claodex/internal/domain"
	"github.com/joshuavictorchen/claodex/internal/eventq"
	"github.com/joshuavictorchen/claodex/internal/router"
)

// Request is a collab run's input (spec §4.9).
type Request struct {
	Turns       int
	StartAgent  domain.Agent
	Message     string
	TurnTimeout time.Duration

	// Seed, when non-nil, is an agent-initiated collab (§4.11): the
	// first turn is already complete and must be routed onward rather
	// than sent fresh.
	Seed *SeedTurn
}

// SeedTurn carries an agent-volunteered [COLLAB] turn into the loop.
type SeedTurn struct {
	Pending  *router.PendingSend
	Response *router.ResponseTurn // Body includes the trailing [COLLAB] line
}

// HaltSignal is the sentinel interjection value meaning "stop the
// collab at the next turn boundary" (spec §9).
const HaltSignal = "/halt"

// Control is the single-producer, single-consumer queue the external
// Editor's halt-listener thread feeds (spec §5, §9). Built on
// eventq.Offer so a full queue never blocks the listener thread.
type Control struct {
	ch chan string
}

// NewControl returns a Control with the given buffer depth.
func NewControl(buffer int) *Control {
	return &Control{ch: make(chan string, buffer)}
}

// Push offers an interjection or HaltSignal without blocking. Returns
// false if the queue is full.
func (c *Control) Push(line string) bool {
	return eventq.Offer(c.ch, line)
}

// drain removes every currently-queued item without blocking.
func (c *Control) drain() (halted bool, interjections []string) {
	for {
		select {
		case v := <-c.ch:
			if v == HaltSignal {
				halted = true
				interjections = nil // a halt drops any queued interjections (spec §4.9.3)
				continue
			}
			if strings.TrimSpace(v) != "" {
				interjections = append(interjections, v)
			}
		default:
			return halted, interjections
		}
	}
}

// Outcome summarizes a finished collab run.
type Outcome struct {
	TurnsCompleted int
	StopReason     string // "converged", "user_halt", "turns_reached", or an error's message
	LastResponse   *router.ResponseTurn
	Transcript     []router.ResponseTurn
	// HaltedByUser reports that the run stopped with reason
	// "user_halt".
	HaltedByUser bool
}

// HaltPrefix is the prefix text for the next normal-mode user message
// after a user-halted collab. Nothing in this repository prepends it:
// the CLI sends the next message unchanged.
const HaltPrefix = "(collab halted by user)\n\n"

// EventSink receives collab progress for the external event bus
// (spec §6 kinds: "collab", "recv", "error").
type EventSink interface {
	Collab(message string, meta map[string]any)
	Recv(agent domain.Agent, body string)
	Error(err error)
	Warn(msg string)
}

// Run drives the multi-turn collab loop described in spec §4.9.
func Run(r *router.Router, ctrl *Control, req Request, sink EventSink) (Outcome, error) {
	sink.Collab("collab started", map[string]any{"turns": req.Turns})

	var pending *router.PendingSend
	var lastResponse *router.ResponseTurn
	var transcript []router.ResponseTurn
	turnsCompleted := 0
	lastTwoConverged := []bool{}
	replay := []string(nil)

	// pendingWasRouted tracks whether `pending` was itself produced by
	// SendRoutedMessage, per spec §4.9.f: echoed_anchor only applies
	// when the in-flight send is a routed message, never the original
	// SendUserMessage call (whose composed blocks always end with a
	// ("user", M) block that must NOT be mistaken for an echo target).
	pendingWasRouted := false

	if req.Seed != nil {
		transcript = append(transcript, *req.Seed.Response)
		turnsCompleted = 1
		lastTwoConverged = append(lastTwoConverged, endsWithConverged(req.Seed.Response.Body))
		target := req.Seed.Response.Agent.Peer()
		p, err := r.SendRoutedMessage(target, req.Seed.Response.Agent, req.Seed.Response.Body, nil, nil)
		if err != nil {
			// The seed turn was received but the routing attempt
			// itself failed: it was never delivered to target.
			return finish(r, turnsCompleted, err.Error(), lastResponse, transcript, true, target)
		}
		pending = p
		pendingWasRouted = true
		lastResponse = req.Seed.Response
	} else {
		p, err := r.SendUserMessage(req.StartAgent, req.Message)
		if err != nil {
			// No response has been received yet; nothing to exclude.
			return finish(r, turnsCompleted, err.Error(), lastResponse, transcript, false, domain.Agent(""))
		}
		pending = p
	}

	for turnsCompleted < req.Turns {
		response, err := r.WaitForResponse(pending, req.TurnTimeout)
		if err != nil {
			sink.Error(err)
			// The wait itself failed: no new response exists to exclude.
			return finish(r, turnsCompleted, err.Error(), lastResponse, transcript, false, domain.Agent(""))
		}
		turnsCompleted++
		transcript = append(transcript, *response)
		lastResponse = response
		sink.Recv(response.Agent, response.Body)

		// response was received but not yet routed onward to its
		// peer; any stop below this point must exclude that peer from
		// the delivery-cursor sync so the response is delivered as a
		// normal undelivered delta on the next send instead of being
		// silently marked "already delivered" (spec §4.9 step 5).
		unrouted := response.Agent.Peer()

		lastTwoConverged = append(lastTwoConverged, endsWithConverged(response.Body))
		if len(lastTwoConverged) > 2 {
			lastTwoConverged = lastTwoConverged[len(lastTwoConverged)-2:]
		}
		if len(lastTwoConverged) == 2 && lastTwoConverged[0] && lastTwoConverged[1] {
			warnDroppedInterjections(sink, replay)
			return finish(r, turnsCompleted, "converged", lastResponse, transcript, true, unrouted)
		}

		halted, fresh := ctrl.drain()
		if halted {
			warnDroppedInterjections(sink, replay)
			return finish(r, turnsCompleted, "user_halt", lastResponse, transcript, true, unrouted)
		}
		if turnsCompleted >= req.Turns {
			warnDroppedInterjections(sink, append(replay, fresh...))
			return finish(r, turnsCompleted, "turns_reached", lastResponse, transcript, true, unrouted)
		}

		allInterjections := append(append([]string{}, replay...), fresh...)
		replay = fresh

		target := response.Agent.Peer()
		var echoed *string
		if pendingWasRouted && len(pending.Blocks) > 0 && pending.Blocks[len(pending.Blocks)-1].Sender == "user" {
			anchor := pending.Blocks[len(pending.Blocks)-1].Body
			echoed = &anchor
		}
		p, err := r.SendRoutedMessage(target, response.Agent, response.Body, allInterjections, echoed)
		if err != nil {
			sink.Error(err)
			return finish(r, turnsCompleted, err.Error(), lastResponse, transcript, true, target)
		}
		pending = p
		pendingWasRouted = true
	}

	return finish(r, turnsCompleted, "turns_reached", lastResponse, transcript, false, domain.Agent(""))
}

func warnDroppedInterjections(sink EventSink, pending []string) {
	if len(pending) == 0 {
		return
	}
	sink.Warn(fmt.Sprintf("dropping %d queued interjection(s) at collab stop", len(pending)))
}

func endsWithConverged(body string) bool {
	return domain.LastNonEmptyLine(body) == domain.SignalConverged
}

// finish implements spec §4.9 step 5: sync delivery cursors (excluding
// the peer of a response that was received but never routed onward)
// and report. Warnings about dropped interjections are emitted by Run
// before it calls finish.
func finish(r *router.Router, turns int, reason string, last *router.ResponseTurn, transcript []router.ResponseTurn, excludeOne bool, excluded domain.Agent) (Outcome, error) {
	exclude := map[domain.Agent]bool{}
	if excludeOne && excluded.Valid() {
		exclude[excluded] = true
	}
	_ = r.SyncDeliveryCursors(exclude)
	return Outcome{
		TurnsCompleted: turns,
		StopReason:     reason,
		LastResponse:   last,
		Transcript:     transcript,
		HaltedByUser:   reason == "user_halt",
	}, nil
}
