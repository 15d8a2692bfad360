// Package cursorstore implements the durable on-disk cursor and
// participant records (C1). Writes follow the teacher's atomic
// temp-file-then-rename pattern (see profilescore.Store in the example
// pack this was grounded on); reads enforce the strict
// "^[0-9]+\n$" cursor format from spec §6.
package cursorstore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joshuavictorchen/claodex/internal/claoderr"
	"github.com/joshuavictorchen/claodex/internal/domain"
)

var cursorPattern = regexp.MustCompile(`^[0-9]+\n$`)

// Store owns every cursor and participant file under a workspace's
// .claodex directory.
type Store struct {
	Root string // workspace-root-relative ".claodex" directory, absolute
}

// New returns a Store rooted at workspaceDir/.claodex.
func New(workspaceDir string) *Store {
	return &Store{Root: filepath.Join(workspaceDir, ".claodex")}
}

// EnsureLayout creates the required subdirectories and the fixed
// .gitignore file (spec §6), and appends a ".claodex/" entry to the
// workspace's own .gitignore (supplemental, grounded on
// state.py's ensure_gitignore_entry).
func (s *Store) EnsureLayout() error {
	for _, sub := range []string{"participants", "cursors", "delivery", "exchanges", "ui"} {
		if err := os.MkdirAll(filepath.Join(s.Root, sub), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", sub, err)
		}
	}
	gi := filepath.Join(s.Root, ".gitignore")
	if _, err := os.Stat(gi); os.IsNotExist(err) {
		if err := atomicWrite(gi, []byte("*\n")); err != nil {
			return fmt.Errorf("writing .claodex/.gitignore: %w", err)
		}
	}
	return s.ensureWorkspaceGitignoreEntry()
}

func (s *Store) ensureWorkspaceGitignoreEntry() error {
	path := filepath.Join(filepath.Dir(s.Root), ".gitignore")
	const entry = ".claodex/"
	existing, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return atomicWrite(path, []byte(entry+"\n"))
		}
		return err
	}
	lines := strings.Split(string(existing), "\n")
	for _, l := range lines {
		if strings.TrimSpace(l) == entry || strings.TrimSpace(l) == ".claodex" {
			return nil
		}
	}
	content := string(existing)
	if !strings.HasSuffix(content, "\n") && content != "" {
		content += "\n"
	}
	content += entry + "\n"
	return atomicWrite(path, []byte(content))
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) readCursorPath(agent domain.Agent) string {
	return filepath.Join(s.Root, "cursors", "read-"+strings.ToLower(string(agent))+".cursor")
}

func (s *Store) deliveryCursorPath(agent domain.Agent) string {
	return filepath.Join(s.Root, "delivery", "to-"+strings.ToLower(string(agent))+".cursor")
}

func (s *Store) participantPath(agent domain.Agent) string {
	return filepath.Join(s.Root, "participants", strings.ToLower(string(agent))+".json")
}

// ReadCursorPath exposes an agent's read-cursor file path, for tools
// (doctor, repair) that need to inspect or rewrite it directly.
func (s *Store) ReadCursorPath(agent domain.Agent) string { return s.readCursorPath(agent) }

// DeliveryCursorPath exposes an agent's delivery-cursor file path.
func (s *Store) DeliveryCursorPath(agent domain.Agent) string { return s.deliveryCursorPath(agent) }

// ParticipantPath exposes an agent's participant record path.
func (s *Store) ParticipantPath(agent domain.Agent) string { return s.participantPath(agent) }

// ReadCursor reads a cursor file. Absent files are initialized to 0.
// Any content not matching ^[0-9]+\n$ is CorruptCursor.
func ReadCursor(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if werr := atomicWrite(path, []byte("0\n")); werr != nil {
				return 0, fmt.Errorf("initializing cursor %s: %w", path, werr)
			}
			return 0, nil
		}
		return 0, fmt.Errorf("reading cursor %s: %w", path, err)
	}
	if !cursorPattern.Match(data) {
		return 0, claoderr.New(claoderr.CorruptCursor, "cursor file %s does not match ^[0-9]+\\n$: %q", path, string(data))
	}
	n, err := strconv.Atoi(strings.TrimSuffix(string(data), "\n"))
	if err != nil {
		return 0, claoderr.Wrap(claoderr.CorruptCursor, err, "cursor file %s: %v", path, err)
	}
	return n, nil
}

// WriteCursor atomically writes value to path. value must be >= 0.
func WriteCursor(path string, value int) error {
	if value < 0 {
		return claoderr.New(claoderr.Validation, "cursor value %d is negative", value)
	}
	return atomicWrite(path, []byte(strconv.Itoa(value)+"\n"))
}

// ReadCursor reads an agent's read cursor (how far its own file has
// been ingested).
func (s *Store) ReadCursor(agent domain.Agent) (int, error) {
	return ReadCursor(s.readCursorPath(agent))
}

// WriteReadCursor writes an agent's read cursor.
func (s *Store) WriteReadCursor(agent domain.Agent, value int) error {
	return WriteCursor(s.readCursorPath(agent), value)
}

// DeliveryCursor reads how far the peer's transcript has been
// forwarded to agent.
func (s *Store) DeliveryCursor(agent domain.Agent) (int, error) {
	return ReadCursor(s.deliveryCursorPath(agent))
}

// WriteDeliveryCursor writes agent's delivery cursor.
func (s *Store) WriteDeliveryCursor(agent domain.Agent, value int) error {
	return WriteCursor(s.deliveryCursorPath(agent), value)
}

// ReadParticipant loads a participant record. Missing or invalid JSON
// is MalformedParticipant.
func (s *Store) ReadParticipant(agent domain.Agent) (domain.Participant, error) {
	path := s.participantPath(agent)
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Participant{}, claoderr.Wrap(claoderr.MalformedParticipant, err, "reading participant %s", path)
	}
	p, perr := parseParticipant(data)
	if perr != nil {
		return domain.Participant{}, claoderr.Wrap(claoderr.MalformedParticipant, perr, "parsing participant %s", path)
	}
	if p.Agent == "" || !strings.EqualFold(p.Agent, string(agent)) {
		return domain.Participant{}, claoderr.New(claoderr.MalformedParticipant, "participant %s: agent field %q does not match filename", path, p.Agent)
	}
	if p.SessionFile == "" || p.SessionID == "" || p.TmuxPane == "" || p.Cwd == "" || p.RegisteredAt == "" {
		return domain.Participant{}, claoderr.New(claoderr.MalformedParticipant, "participant %s: missing required field", path)
	}
	if _, terr := time.Parse(time.RFC3339, p.RegisteredAt); terr != nil {
		return domain.Participant{}, claoderr.New(claoderr.MalformedParticipant, "participant %s: registered_at not ISO 8601 with offset: %v", path, terr)
	}
	return p, nil
}

// InitializeCursorsFromLineCounts sets, for each agent X,
// read_cursor[X] = lines(X's file) and delivery_cursor[X] =
// lines(peer(X)'s file) — i.e. start clean, no backlog. Called on
// fresh attach only (spec §4.1).
func (s *Store) InitializeCursorsFromLineCounts(aLines, bLines int) error {
	if err := s.WriteReadCursor(domain.AgentA, aLines); err != nil {
		return err
	}
	if err := s.WriteReadCursor(domain.AgentB, bLines); err != nil {
		return err
	}
	if err := s.WriteDeliveryCursor(domain.AgentA, bLines); err != nil {
		return err
	}
	return s.WriteDeliveryCursor(domain.AgentB, aLines)
}

// CursorsExist reports whether both read cursor files already exist,
// used to distinguish a fresh attach from a reattach (spec §4.1: on
// reattach, cursor files must already exist or startup fails).
func (s *Store) CursorsExist() bool {
	for _, a := range []domain.Agent{domain.AgentA, domain.AgentB} {
		if _, err := os.Stat(s.readCursorPath(a)); err != nil {
			return false
		}
	}
	return true
}
