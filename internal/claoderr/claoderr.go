// Package claoderr defines the router's error taxonomy. It mirrors the
// teacher's flat fmt.Errorf style but attaches a Kind so callers can
// distinguish a refuse-to-guess SMOKE SIGNAL from an ordinary warning
// without string matching.
package claoderr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error. See spec §7 for the full taxonomy.
type Kind string

const (
	Validation               Kind = "validation"
	CorruptCursor             Kind = "corrupt_cursor"
	CursorInvariant           Kind = "cursor_invariant"
	MalformedParticipant      Kind = "malformed_participant"
	PaneDead                  Kind = "pane_dead"
	Interference              Kind = "interference"
	TurnMarkerWithoutText     Kind = "turn_marker_without_text"
	SmokeSignal               Kind = "smoke_signal"
	StuckCursorSkipped        Kind = "stuck_cursor_skipped"
	AmbiguousCodexUserPayload Kind = "ambiguous_codex_user_payload"
)

// SmokeVariant further distinguishes the SmokeSignal family.
type SmokeVariant string

const (
	SmokeCodexStartedNoComplete SmokeVariant = "codex-started-no-complete"
	SmokeAssistantWithoutMarker SmokeVariant = "assistant-without-marker"
	SmokeMarkerMissing          SmokeVariant = "marker-missing"
)

// Error is the router's single error type. Kind selects the taxonomy
// bucket; Variant is only meaningful when Kind == SmokeSignal.
type Error struct {
	Kind    Kind
	Variant SmokeVariant
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Variant != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Variant, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind.
func New(kind Kind, msg string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(msg, args...)}
}

// Wrap builds an Error of the given kind around an existing cause.
func Wrap(kind Kind, cause error, msg string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(msg, args...), Cause: cause}
}

// Smoke builds a SmokeSignal error with the given variant. The router
// MUST surface this verbatim rather than rewriting it as a successful
// response — see spec §7's "refuse heuristic fallback" contract.
func Smoke(variant SmokeVariant, msg string, args ...any) *Error {
	return &Error{Kind: SmokeSignal, Variant: variant, Message: fmt.Sprintf(msg, args...)}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsSmokeSignal reports whether err is any variant of the SmokeSignal
// family. The CLI and orchestrator use this as the one predicate that
// must never be papered over.
func IsSmokeSignal(err error) bool {
	return Is(err, SmokeSignal)
}

// IsFatal reports whether err's kind is fatal-for-the-current-operation
// per spec §7: CursorInvariant, TurnMarkerWithoutText, or SmokeSignal.
// Every other kind, MalformedParticipant included, reports false.
func IsFatal(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case CursorInvariant, TurnMarkerWithoutText, SmokeSignal:
		return true
	default:
		return false
	}
}
