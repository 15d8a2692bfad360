package cursorstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joshuavictorchen/claodex/internal/claoderr"
	"github.com/joshuavictorchen/claodex/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	if err := s.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}
	return s
}

func TestEnsureLayout_CreatesSubdirsAndGitignore(t *testing.T) {
	s := newTestStore(t)
	for _, sub := range []string{"participants", "cursors", "delivery", "exchanges", "ui"} {
		if fi, err := os.Stat(filepath.Join(s.Root, sub)); err != nil || !fi.IsDir() {
			t.Fatalf("expected directory %s to exist", sub)
		}
	}
	data, err := os.ReadFile(filepath.Join(s.Root, ".gitignore"))
	if err != nil || string(data) != "*\n" {
		t.Fatalf(".claodex/.gitignore = %q, %v; want \"*\\n\"", data, err)
	}
	workspaceGitignore, err := os.ReadFile(filepath.Join(filepath.Dir(s.Root), ".gitignore"))
	if err != nil {
		t.Fatalf("reading workspace .gitignore: %v", err)
	}
	if string(workspaceGitignore) != ".claodex/\n" {
		t.Fatalf("workspace .gitignore = %q, want %q", workspaceGitignore, ".claodex/\n")
	}
}

func TestEnsureLayout_AppendsToExistingWorkspaceGitignore(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("node_modules/"), 0o644); err != nil {
		t.Fatalf("seeding .gitignore: %v", err)
	}
	s := New(dir)
	if err := s.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatalf("reading .gitignore: %v", err)
	}
	want := "node_modules/\n.claodex/\n"
	if string(data) != want {
		t.Fatalf(".gitignore = %q, want %q", data, want)
	}
}

func TestEnsureLayout_IsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.EnsureLayout(); err != nil {
		t.Fatalf("second EnsureLayout: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(filepath.Dir(s.Root), ".gitignore"))
	if err != nil {
		t.Fatalf("reading .gitignore: %v", err)
	}
	if string(data) != ".claodex/\n" {
		t.Fatalf("expected no duplicate entries, got %q", data)
	}
}

// Invariant: an absent cursor file reads as 0 and is initialized on disk.
func TestReadCursor_AbsentInitializesToZero(t *testing.T) {
	s := newTestStore(t)
	n, err := s.ReadCursor(domain.AgentA)
	if err != nil {
		t.Fatalf("ReadCursor: %v", err)
	}
	if n != 0 {
		t.Fatalf("ReadCursor = %d, want 0", n)
	}
	data, err := os.ReadFile(s.ReadCursorPath(domain.AgentA))
	if err != nil || string(data) != "0\n" {
		t.Fatalf("expected cursor file initialized to \"0\\n\", got %q, %v", data, err)
	}
}

func TestWriteReadCursor_RoundTrips(t *testing.T) {
	s := newTestStore(t)
	if err := s.WriteReadCursor(domain.AgentB, 42); err != nil {
		t.Fatalf("WriteReadCursor: %v", err)
	}
	n, err := s.ReadCursor(domain.AgentB)
	if err != nil {
		t.Fatalf("ReadCursor: %v", err)
	}
	if n != 42 {
		t.Fatalf("ReadCursor = %d, want 42", n)
	}
}

func TestWriteCursor_RejectsNegative(t *testing.T) {
	s := newTestStore(t)
	err := s.WriteReadCursor(domain.AgentA, -1)
	if !claoderr.Is(err, claoderr.Validation) {
		t.Fatalf("expected Validation error, got %v", err)
	}
}

// Cursor files not matching ^[0-9]+\n$ are CorruptCursor (spec §7/§6).
func TestReadCursor_CorruptContentIsCorruptCursor(t *testing.T) {
	s := newTestStore(t)
	path := s.ReadCursorPath(domain.AgentA)
	if err := os.WriteFile(path, []byte("not-a-number\n"), 0o644); err != nil {
		t.Fatalf("seeding corrupt cursor: %v", err)
	}
	_, err := s.ReadCursor(domain.AgentA)
	if !claoderr.Is(err, claoderr.CorruptCursor) {
		t.Fatalf("expected CorruptCursor, got %v", err)
	}
}

func TestReadCursor_MissingTrailingNewlineIsCorruptCursor(t *testing.T) {
	s := newTestStore(t)
	path := s.ReadCursorPath(domain.AgentB)
	if err := os.WriteFile(path, []byte("7"), 0o644); err != nil {
		t.Fatalf("seeding cursor: %v", err)
	}
	_, err := s.ReadCursor(domain.AgentB)
	if !claoderr.Is(err, claoderr.CorruptCursor) {
		t.Fatalf("expected CorruptCursor for missing newline, got %v", err)
	}
}

// InitializeCursorsFromLineCounts starts clean: no backlog delivered on
// a fresh attach (spec §4.1).
func TestInitializeCursorsFromLineCounts(t *testing.T) {
	s := newTestStore(t)
	if err := s.InitializeCursorsFromLineCounts(10, 20); err != nil {
		t.Fatalf("InitializeCursorsFromLineCounts: %v", err)
	}
	cases := []struct {
		name string
		got  func() (int, error)
		want int
	}{
		{"read[A]", func() (int, error) { return s.ReadCursor(domain.AgentA) }, 10},
		{"read[B]", func() (int, error) { return s.ReadCursor(domain.AgentB) }, 20},
		{"delivery[A]", func() (int, error) { return s.DeliveryCursor(domain.AgentA) }, 20},
		{"delivery[B]", func() (int, error) { return s.DeliveryCursor(domain.AgentB) }, 10},
	}
	for _, c := range cases {
		n, err := c.got()
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if n != c.want {
			t.Fatalf("%s = %d, want %d", c.name, n, c.want)
		}
	}
}

func TestCursorsExist(t *testing.T) {
	s := newTestStore(t)
	if s.CursorsExist() {
		t.Fatalf("expected CursorsExist false before any cursor is written")
	}
	if err := s.InitializeCursorsFromLineCounts(0, 0); err != nil {
		t.Fatalf("InitializeCursorsFromLineCounts: %v", err)
	}
	if !s.CursorsExist() {
		t.Fatalf("expected CursorsExist true after initialization")
	}
}

func validParticipant(agent domain.Agent) domain.Participant {
	return domain.Participant{
		Agent:        string(agent),
		SessionFile:  "/tmp/session.jsonl",
		SessionID:    "sess-1",
		TmuxPane:     "%1",
		Cwd:          "/workspace",
		RegisteredAt: time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}
}

func TestReadParticipant_RoundTrips(t *testing.T) {
	s := newTestStore(t)
	want := validParticipant(domain.AgentA)
	if err := s.WriteParticipant(domain.AgentA, want); err != nil {
		t.Fatalf("WriteParticipant: %v", err)
	}
	got, err := s.ReadParticipant(domain.AgentA)
	if err != nil {
		t.Fatalf("ReadParticipant: %v", err)
	}
	if got != want {
		t.Fatalf("ReadParticipant = %+v, want %+v", got, want)
	}
}

func TestReadParticipant_MissingFileIsMalformed(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ReadParticipant(domain.AgentB)
	if !claoderr.Is(err, claoderr.MalformedParticipant) {
		t.Fatalf("expected MalformedParticipant, got %v", err)
	}
}

func TestReadParticipant_AgentFieldMismatchIsMalformed(t *testing.T) {
	s := newTestStore(t)
	wrong := validParticipant(domain.AgentB)
	if err := s.WriteParticipant(domain.AgentA, wrong); err != nil {
		t.Fatalf("WriteParticipant: %v", err)
	}
	_, err := s.ReadParticipant(domain.AgentA)
	if !claoderr.Is(err, claoderr.MalformedParticipant) {
		t.Fatalf("expected MalformedParticipant for agent/filename mismatch, got %v", err)
	}
}

func TestReadParticipant_MissingRequiredFieldIsMalformed(t *testing.T) {
	s := newTestStore(t)
	p := validParticipant(domain.AgentA)
	p.Cwd = ""
	if err := s.WriteParticipant(domain.AgentA, p); err != nil {
		t.Fatalf("WriteParticipant: %v", err)
	}
	_, err := s.ReadParticipant(domain.AgentA)
	if !claoderr.Is(err, claoderr.MalformedParticipant) {
		t.Fatalf("expected MalformedParticipant for missing cwd, got %v", err)
	}
}

func TestReadParticipant_NonISO8601TimestampIsMalformed(t *testing.T) {
	s := newTestStore(t)
	p := validParticipant(domain.AgentA)
	p.RegisteredAt = "2026-07-31 12:00:00"
	if err := s.WriteParticipant(domain.AgentA, p); err != nil {
		t.Fatalf("WriteParticipant: %v", err)
	}
	_, err := s.ReadParticipant(domain.AgentA)
	if !claoderr.Is(err, claoderr.MalformedParticipant) {
		t.Fatalf("expected MalformedParticipant for non-RFC3339 timestamp, got %v", err)
	}
}
