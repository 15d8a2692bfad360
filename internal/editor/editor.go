// Package editor implements the external Editor collaborator (spec
// §6): a line-reading prompt that invokes an idle callback at a fixed
// interval while waiting for input. It classifies only "/quit"; every
// other line (including /collab, /halt, and /status) is returned as a
// Submit for the caller to interpret, and no key (Tab included) is
// bound to toggle the send target. Grounded on the teacher's terminal-input
// conventions but built on github.com/chzyer/readline, which natively
// supports idle/listener hooks the teacher's own line reader does not.
package editor

import (
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
)

// EventKind discriminates the Event union from spec §6.
type EventKind int

const (
	Submit EventKind = iota
	Toggle
	CollabInitiated
	Quit
)

// Event is the result of one Read call.
type Event struct {
	Kind  EventKind
	Text  string // Submit: the submitted line. CollabInitiated: the draft at time of idle-event.
	Draft string // the prefill passed to Read; text typed at the prompt is not included
}

// IdleFunc is called roughly every idle_interval while Read is
// blocked on input. Returning a non-nil *Event yields that event
// immediately, with its Draft field set to Read's prefill argument.
type IdleFunc func() *Event

// Editor wraps a readline instance.
type Editor struct {
	rl           *readline.Instance
	idleInterval time.Duration
}

// New constructs an Editor with the given prompt label.
func New(promptLabel string) (*Editor, error) {
	rl, err := readline.New(promptLabel + "> ")
	if err != nil {
		return nil, err
	}
	return &Editor{rl: rl, idleInterval: 200 * time.Millisecond}, nil
}

// Close releases the underlying terminal.
func (e *Editor) Close() error { return e.rl.Close() }

// Read blocks for one line of input, invoking onIdle at idleInterval
// granularity while waiting. A non-empty prefill is shown in the prompt
// (readline's public surface has no portable buffer-seeding hook) and
// becomes the Draft of any event onIdle yields.
func (e *Editor) Read(onIdle IdleFunc, idleInterval time.Duration, prefill string) Event {
	if idleInterval <= 0 {
		idleInterval = e.idleInterval
	}
	if prefill != "" {
		e.rl.SetPrompt(e.rl.Config.Prompt + "[" + truncate(prefill, 24) + "] ")
		defer e.rl.SetPrompt(e.rl.Config.Prompt)
	}

	lineCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		line, err := e.rl.Readline()
		if err != nil {
			errCh <- err
			return
		}
		lineCh <- line
	}()

	ticker := time.NewTicker(idleInterval)
	defer ticker.Stop()

	for {
		select {
		case line := <-lineCh:
			return classify(line)
		case err := <-errCh:
			if err == readline.ErrInterrupt || err == io.EOF {
				return Event{Kind: Quit}
			}
			return Event{Kind: Quit}
		case <-ticker.C:
			if onIdle == nil {
				continue
			}
			if ev := onIdle(); ev != nil {
				ev.Draft = prefill
				return *ev
			}
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func classify(line string) Event {
	trimmed := strings.TrimSpace(line)
	switch trimmed {
	case "/quit":
		return Event{Kind: Quit, Text: line}
	default:
		return Event{Kind: Submit, Text: line}
	}
}
