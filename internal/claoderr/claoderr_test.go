package claoderr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew_FormatsMessageAndKind(t *testing.T) {
	err := New(Validation, "bad value %d", 7)
	if err.Kind != Validation {
		t.Fatalf("Kind = %v, want %v", err.Kind, Validation)
	}
	want := "validation: bad value 7"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap_PreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CorruptCursor, cause, "writing cursor: %v", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
}

func TestSmoke_IncludesVariantInMessage(t *testing.T) {
	err := Smoke(SmokeCodexStartedNoComplete, "waited past timeout")
	want := "smoke_signal[codex-started-no-complete]: waited past timeout"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs_MatchesKindThroughWrapping(t *testing.T) {
	inner := New(CorruptCursor, "bad format")
	outer := fmt.Errorf("reading: %w", inner)
	if !Is(outer, CorruptCursor) {
		t.Fatalf("expected Is to match through fmt.Errorf wrapping")
	}
	if Is(outer, Validation) {
		t.Fatalf("expected Is to not match a different kind")
	}
}

func TestIs_NonClaoderrErrorIsFalse(t *testing.T) {
	if Is(errors.New("plain"), Validation) {
		t.Fatalf("expected Is to return false for a non-claoderr error")
	}
}

func TestIsSmokeSignal(t *testing.T) {
	if !IsSmokeSignal(Smoke(SmokeMarkerMissing, "x")) {
		t.Fatalf("expected IsSmokeSignal true for a Smoke error")
	}
	if IsSmokeSignal(New(Validation, "x")) {
		t.Fatalf("expected IsSmokeSignal false for a Validation error")
	}
}

func TestIsFatal(t *testing.T) {
	fatalKinds := []Kind{CursorInvariant, TurnMarkerWithoutText, SmokeSignal}
	for _, k := range fatalKinds {
		if !IsFatal(New(k, "x")) {
			t.Fatalf("expected %v to be fatal", k)
		}
	}
	nonFatalKinds := []Kind{Validation, CorruptCursor, MalformedParticipant, PaneDead, Interference, StuckCursorSkipped, AmbiguousCodexUserPayload}
	for _, k := range nonFatalKinds {
		if IsFatal(New(k, "x")) {
			t.Fatalf("expected %v to not be fatal", k)
		}
	}
	if IsFatal(errors.New("plain")) {
		t.Fatalf("expected IsFatal false for a non-claoderr error")
	}
}
