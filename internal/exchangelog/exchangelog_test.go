package exchangelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joshuavictorchen/claodex/internal/domain"
)

func setupDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "exchanges")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return dir
}

func TestNew_WritesHeaderAndStripsRoutingSignals(t *testing.T) {
	dir := setupDir(t)
	now := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	log, err := New(dir, domain.AgentA, "please investigate\n\n[COLLAB]", now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected exactly one file in %s, got %v, err=%v", dir, entries, err)
	}
	data, err := os.ReadFile(log.path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "Started: "+now.Format(time.RFC3339)) {
		t.Fatalf("expected header to contain start time, got %q", content)
	}
	if !strings.Contains(content, "First message to: A") {
		t.Fatalf("expected header to name the start agent, got %q", content)
	}
	if strings.Contains(content, "[COLLAB]") {
		t.Fatalf("expected routing signal stripped from header message, got %q", content)
	}
	if !strings.Contains(content, "please investigate") {
		t.Fatalf("expected original message text preserved, got %q", content)
	}
}

func TestNew_FileNameIsUnderExchangesDir(t *testing.T) {
	dir := setupDir(t)
	log, err := New(dir, domain.AgentB, "hi", time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if filepath.Dir(log.path) != dir {
		t.Fatalf("log path %q not under %q", log.path, dir)
	}
	if !strings.HasSuffix(log.path, ".md") {
		t.Fatalf("expected .md extension, got %q", log.path)
	}
}

func TestAppendTurn_AppendsAgentAndBody(t *testing.T) {
	dir := setupDir(t)
	log, err := New(dir, domain.AgentA, "start", time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	at := time.Date(2026, 7, 31, 9, 5, 0, 0, time.UTC)
	if err := log.AppendTurn(domain.AgentB, "here is my answer", at); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	data, err := os.ReadFile(log.path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "**B** ("+at.Format(time.RFC3339)+"):") {
		t.Fatalf("expected turn header for B, got %q", content)
	}
	if !strings.Contains(content, "here is my answer") {
		t.Fatalf("expected turn body, got %q", content)
	}
}

func TestAppendStop_RecordsReasonAndTurnCount(t *testing.T) {
	dir := setupDir(t)
	log, err := New(dir, domain.AgentA, "start", time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := log.AppendStop("converged", 4); err != nil {
		t.Fatalf("AppendStop: %v", err)
	}
	data, err := os.ReadFile(log.path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	want := "_Stopped: converged after 4 turn(s)._\n"
	if !strings.HasSuffix(string(data), want) {
		t.Fatalf("expected log to end with %q, got %q", want, data)
	}
}

func TestAppendTurn_PreservesOrderAcrossMultipleWrites(t *testing.T) {
	dir := setupDir(t)
	log, err := New(dir, domain.AgentA, "start", time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	now := time.Now()
	if err := log.AppendTurn(domain.AgentA, "first", now); err != nil {
		t.Fatalf("AppendTurn 1: %v", err)
	}
	if err := log.AppendTurn(domain.AgentB, "second", now); err != nil {
		t.Fatalf("AppendTurn 2: %v", err)
	}
	data, err := os.ReadFile(log.path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	content := string(data)
	firstIdx := strings.Index(content, "first")
	secondIdx := strings.Index(content, "second")
	if firstIdx < 0 || secondIdx < 0 || firstIdx > secondIdx {
		t.Fatalf("expected turn ordering preserved, got %q", content)
	}
}
