package turnend

import (
	"testing"

	"github.com/joshuavictorchen/claodex/internal/domain"
)

func TestScan_Claude_FindsTurnDuration(t *testing.T) {
	lines := []string{
		`{"type":"assistant","message":{"content":[{"type":"text","text":"done"}]}}`,
		`{"type":"system","subtype":"turn_duration","duration_ms":120}`,
	}
	res := Scan(domain.AgentA, lines, 10)
	if !res.Found() {
		t.Fatalf("expected marker found")
	}
	if res.MarkerLine != 12 {
		t.Fatalf("MarkerLine = %d, want 12", res.MarkerLine)
	}
}

func TestScan_Claude_NoMarkerYieldsNotFound(t *testing.T) {
	lines := []string{
		`{"type":"assistant","message":{"content":[{"type":"text","text":"still working"}]}}`,
	}
	res := Scan(domain.AgentA, lines, 0)
	if res.Found() {
		t.Fatalf("expected no marker, got %d", res.MarkerLine)
	}
}

func TestScan_Claude_SkipsMalformedJSON(t *testing.T) {
	lines := []string{
		`not json at all`,
		`{"type":"system","subtype":"turn_duration"}`,
	}
	res := Scan(domain.AgentA, lines, 0)
	if !res.Found() || res.MarkerLine != 2 {
		t.Fatalf("expected marker at line 2, got %+v", res)
	}
}

// Normal case: task_started then task_complete is a confirmed marker.
func TestScan_Codex_ConfirmedAfterStarted(t *testing.T) {
	lines := []string{
		`{"type":"event_msg","payload":{"type":"task_started"}}`,
		`{"type":"event_msg","payload":{"type":"agent_message","text":"working"}}`,
		`{"type":"event_msg","payload":{"type":"task_complete"}}`,
	}
	res := Scan(domain.AgentB, lines, 0)
	if !res.Found() {
		t.Fatalf("expected confirmed marker")
	}
	if res.MarkerLine != 3 {
		t.Fatalf("MarkerLine = %d, want 3", res.MarkerLine)
	}
	if !res.SawStarted {
		t.Fatalf("expected SawStarted true")
	}
}

// Pure-stale case: a task_complete with no task_started anywhere in the window is a
// stale candidate and IS accepted as the marker (it's the only evidence
// we have that the turn ended, and no task_started ever showed up to
// contradict it).
func TestScan_Codex_StaleCompleteAcceptedWhenNoStartedAnywhere(t *testing.T) {
	lines := []string{
		`{"type":"event_msg","payload":{"type":"task_complete"}}`,
	}
	res := Scan(domain.AgentB, lines, 5)
	if !res.Found() {
		t.Fatalf("expected stale complete accepted as marker")
	}
	if res.MarkerLine != 6 {
		t.Fatalf("MarkerLine = %d, want 6", res.MarkerLine)
	}
	if res.SawStarted {
		t.Fatalf("expected SawStarted false")
	}
}

// S3 core assertion: if task_complete appears before task_started, but
// task_started DOES show up later in the same window, the early complete
// is a stale leftover from the previous turn and must be ignored —
// leaving no marker found (the caller must keep waiting, eventually
// raising codex-started-no-complete on timeout).
func TestScan_Codex_StaleCompleteIgnoredWhenStartedArrivesLater(t *testing.T) {
	lines := []string{
		`{"type":"event_msg","payload":{"type":"task_complete"}}`,
		`{"type":"event_msg","payload":{"type":"task_started"}}`,
	}
	res := Scan(domain.AgentB, lines, 0)
	if res.Found() {
		t.Fatalf("expected stale complete to be ignored, got marker at line %d", res.MarkerLine)
	}
	if !res.SawStarted {
		t.Fatalf("expected SawStarted true")
	}
}

func TestScan_Codex_IgnoresNonEventMsgEntries(t *testing.T) {
	lines := []string{
		`{"type":"session_meta","payload":{"type":"task_complete"}}`,
	}
	res := Scan(domain.AgentB, lines, 0)
	if res.Found() {
		t.Fatalf("expected non event_msg entries to be ignored")
	}
}

func TestScan_Codex_SkipsMalformedJSON(t *testing.T) {
	lines := []string{
		`{broken`,
		`{"type":"event_msg","payload":{"type":"task_started"}}`,
		`{"type":"event_msg","payload":{"type":"task_complete"}}`,
	}
	res := Scan(domain.AgentB, lines, 0)
	if !res.Found() || res.MarkerLine != 3 {
		t.Fatalf("expected confirmed marker at line 3, got %+v", res)
	}
}
