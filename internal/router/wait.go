package router

import (
	"time"

	"github.com/joshuavictorchen/claodex/internal/claoderr"
	"github.com/joshuavictorchen/claodex/internal/domain"
	"github.com/joshuavictorchen/claodex/internal/extract"
	"github.com/joshuavictorchen/claodex/internal/turnend"
	"github.com/joshuavictorchen/claodex/internal/window"
)

// waitCursors tracks the moving parts of one wait (spec §4.8).
type waitCursors struct {
	markerScan int
	sawStarted bool
}

// WaitForResponse implements spec §4.8's blocking wait: poll until a
// completed turn is extracted, a fatal condition is raised, or the
// deadline (sent_at + timeout) passes.
func (r *Router) WaitForResponse(pending *PendingSend, timeout time.Duration) (*ResponseTurn, error) {
	pane, err := r.participantPane(pending.Target)
	if err != nil {
		return nil, err
	}
	alive, err := r.Pane.Alive(pane)
	if err != nil {
		return nil, err
	}
	if !alive {
		return nil, claoderr.New(claoderr.PaneDead, "pane %s for agent %s is no longer alive", pane, pending.Target)
	}

	deadline := pending.SentAt.Add(timeout)
	wc := waitCursors{markerScan: pending.BeforeCursor}
	sawAssistantSinceBefore := false

	for {
		turn, saw, err := r.pollOnce(pending, &wc)
		if saw {
			sawAssistantSinceBefore = true
		}
		if err != nil {
			return nil, err
		}
		if turn != nil {
			return turn, nil
		}
		if r.Now().After(deadline) {
			return nil, r.timeoutError(pending.Target, wc, sawAssistantSinceBefore)
		}
		time.Sleep(r.pollInterval())
	}
}

// PollForResponse implements spec §4.8's non-blocking single pass. The
// poll-stop latch persists across calls keyed by (target,
// before_cursor); the caller may clear it with ClearPollLatch.
func (r *Router) PollForResponse(pending *PendingSend) (*ResponseTurn, error) {
	wc := waitCursors{markerScan: pending.BeforeCursor}
	turn, _, err := r.pollOnce(pending, &wc)
	return turn, err
}

func (r *Router) pollInterval() time.Duration {
	if r.Tunables.PollInterval > 0 {
		return r.Tunables.PollInterval
	}
	return 500 * time.Millisecond
}

// pollOnce runs steps (a)-(d) of spec §4.8's wait loop exactly once.
func (r *Router) pollOnce(pending *PendingSend, wc *waitCursors) (*ResponseTurn, bool, error) {
	x := pending.Target
	refresh, err := r.RefreshSource(x)
	if err != nil {
		return nil, false, err
	}
	cur := refresh.Cursor
	sawAssistant := false

	if cur > wc.markerScan {
		scan := turnend.Scan(x, mustLines(r, x, wc.markerScan, cur), wc.markerScan)
		if x == domain.AgentB && scan.SawStarted {
			wc.sawStarted = true
		}
		markerLine := scan.MarkerLine
		wc.markerScan = cur

		if markerLine > 0 {
			turn, terr := r.latestAssistantEvent(x, pending.BeforeCursor, markerLine)
			if terr != nil {
				return nil, false, terr
			}
			if turn == nil {
				return nil, false, claoderr.New(claoderr.TurnMarkerWithoutText, "turn-end marker at line %d for %s has no extractable assistant event", markerLine, x)
			}
			return turn, true, nil
		}
	}

	if x == domain.AgentA && cur > pending.BeforeCursor {
		if ierr := r.runInterferenceCheck(x, pending, pending.BeforeCursor, cur); ierr != nil {
			return nil, false, ierr
		}
	}

	if lastEvt, _ := r.latestAssistantEvent(x, pending.BeforeCursor, cur); lastEvt != nil {
		sawAssistant = true
	}

	if x == domain.AgentA {
		key := latchKey{target: x, beforeCursor: pending.BeforeCursor}
		if !r.pollLatch[key] {
			watcher := r.StopWatchers[x]
			if watcher != nil {
				ok, werr := watcher.SawStopAt(pending.SentAt)
				if werr == nil && ok {
					r.pollLatch[key] = true
				}
			}
		}
		if r.pollLatch[key] {
			turn, terr := r.latestAssistantEvent(x, pending.BeforeCursor, cur)
			if terr != nil {
				return nil, sawAssistant, terr
			}
			if turn != nil {
				return turn, true, nil
			}
		}
	}

	return nil, sawAssistant, nil
}

func mustLines(r *Router, x domain.Agent, from, to int) []string {
	path, err := r.sessionPath(x)
	if err != nil {
		return nil
	}
	lines, err := window.ReadLinesBetween(path, from, to)
	if err != nil {
		return nil
	}
	return lines
}

// latestAssistantEvent extracts the window (fromLine, toLine] with a
// throwaway extractor state (so the ambiguous-payload warning
// dedup used for real cursor advancement is not disturbed) and
// returns the last event attributed to x, implementing the
// tool-chain-boundary rule of spec §4.8.d via the extractor's own
// last-frame-wins/flush-on-real-user-turn behavior.
func (r *Router) latestAssistantEvent(x domain.Agent, fromLine, toLine int) (*ResponseTurn, error) {
	if toLine <= fromLine {
		return nil, nil
	}
	lines := mustLines(r, x, fromLine, toLine)
	result := extract.Extract(x, lines, fromLine, &extract.State{})
	var last *domain.Event
	for i := range result.Events {
		if result.Events[i].Sender == string(x) {
			last = &result.Events[i]
		}
	}
	if last == nil {
		return nil, nil
	}
	return &ResponseTurn{Agent: x, Body: last.Body, MarkerLine: toLine, ReceivedAt: r.Now()}, nil
}

// timeoutError implements spec §4.8 step 3: distinguish "marker never
// arrived" from "no output at all".
func (r *Router) timeoutError(target domain.Agent, wc waitCursors, sawAssistant bool) error {
	if target == domain.AgentB && wc.sawStarted {
		return claoderr.Smoke(claoderr.SmokeCodexStartedNoComplete, "codex task_started but never task_complete for agent %s", target)
	}
	if sawAssistant {
		return claoderr.Smoke(claoderr.SmokeAssistantWithoutMarker, "assistant output observed for %s but no turn-end marker arrived", target)
	}
	return claoderr.Smoke(claoderr.SmokeMarkerMissing, "no turn-end marker or output observed for %s before timeout", target)
}
