package tui

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/joshuavictorchen/claodex/internal/cursorstore"
	"github.com/joshuavictorchen/claodex/internal/domain"
)

const tickInterval = 700 * time.Millisecond

// keyMap is the sidebar's minimal key binding set: there is nothing to
// navigate between, only a single live view and quit.
type keyMap struct {
	Quit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

// eventRecord mirrors eventbus.Event for JSONL decoding without a
// dependency cycle (eventbus has no reason to know about the TUI).
type eventRecord struct {
	Time    time.Time      `json:"time"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Agent   string         `json:"agent,omitempty"`
	Target  string         `json:"target,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Model is the bubbletea model for the status sidebar.
type Model struct {
	store *cursorstore.Store
	keys  keyMap

	width, height int

	readA, readB int
	deliverA, deliverB int
	participants map[domain.Agent]domain.Participant
	events       []eventRecord
	metrics      map[string]any
	err          error
}

// New constructs a Model reading from store.
func New(store *cursorstore.Store) Model {
	return Model{store: store, keys: defaultKeyMap(), participants: map[domain.Agent]domain.Participant{}}
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("claodex status"), m.refresh(), tickCmd())
}

// refresh re-reads cursors, participants, events, and metrics as a
// tea.Cmd so it never blocks the Update loop on disk I/O directly.
func (m Model) refresh() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		snap := refreshMsg{participants: map[domain.Agent]domain.Participant{}}
		snap.readA, _ = store.ReadCursor(domain.AgentA)
		snap.readB, _ = store.ReadCursor(domain.AgentB)
		snap.deliverA, _ = store.DeliveryCursor(domain.AgentA)
		snap.deliverB, _ = store.DeliveryCursor(domain.AgentB)
		for _, a := range []domain.Agent{domain.AgentA, domain.AgentB} {
			if p, err := store.ReadParticipant(a); err == nil {
				snap.participants[a] = p
			}
		}
		snap.events = tailEvents(store.Root+"/ui/events.jsonl", 12)
		snap.metrics = readMetrics(store.Root + "/ui/metrics.json")
		return snap
	}
}

type refreshMsg struct {
	readA, readB       int
	deliverA, deliverB int
	participants       map[domain.Agent]domain.Participant
	events             []eventRecord
	metrics            map[string]any
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.refresh(), tickCmd())
	case refreshMsg:
		m.readA, m.readB = msg.readA, msg.readB
		m.deliverA, m.deliverB = msg.deliverA, msg.deliverB
		m.participants = msg.participants
		m.events = msg.events
		m.metrics = msg.metrics
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	sections := []string{
		m.renderHeader(),
		CardStyle.Render(m.renderCursors()),
		CardStyle.Render(m.renderEvents()),
		m.renderStatusBar(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	return HeaderStyle.Width(m.width).Render(" claodex status")
}

func (m Model) renderCursors() string {
	var b strings.Builder
	b.WriteString(CardTitleStyle.Render("Cursors"))
	b.WriteString("\n")
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("%-8s %-12s %-16s %s", "AGENT", "READ", "DELIVER", "PANE")))
	b.WriteString("\n")
	for _, a := range []domain.Agent{domain.AgentA, domain.AgentB} {
		read, deliver := m.readA, m.deliverA
		if a == domain.AgentB {
			read, deliver = m.readB, m.deliverB
		}
		p, ok := m.participants[a]
		pane := "-"
		live := DeadStyle.Render("unregistered")
		if ok {
			pane = p.TmuxPane
			live = AliveStyle.Render("registered")
		}
		b.WriteString(fmt.Sprintf("%-8s %-12d %-16d %s (%s)\n", agentStyle(string(a)).Render(string(a)), read, deliver, pane, live))
	}
	return b.String()
}

func (m Model) renderEvents() string {
	var b strings.Builder
	b.WriteString(CardTitleStyle.Render("Recent activity"))
	b.WriteString("\n")
	if len(m.events) == 0 {
		return b.String() + EmptyStateStyle.Render("(no events yet)")
	}
	for _, e := range m.events {
		line := fmt.Sprintf("%s %s %s", e.Time.Format("15:04:05"), strings.ToUpper(e.Kind), truncateLine(e.Message, m.width-20))
		if e.Agent != "" {
			line = agentStyle(e.Agent).Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderStatusBar() string {
	left := StatusKeyStyle.Render(" claodex ")
	right := HelpTextStyle.Render("q: quit")
	gap := m.width - ansi.StringWidth(left) - ansi.StringWidth(right) - 1
	if gap < 0 {
		gap = 0
	}
	return StatusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func truncateLine(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func tailEvents(path string, n int) []eventRecord {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var all []eventRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev eventRecord
		if err := json.Unmarshal(scanner.Bytes(), &ev); err == nil {
			all = append(all, ev)
		}
	}
	if len(all) > n {
		return all[len(all)-n:]
	}
	return all
}

func readMetrics(path string) map[string]any {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var m map[string]any
	_ = json.Unmarshal(data, &m)
	return m
}

// Run starts the sidebar against store without the events websocket.
func Run(store *cursorstore.Store) error {
	p := tea.NewProgram(New(store), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
