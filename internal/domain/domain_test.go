package domain

import "testing"

func TestAgent_Peer(t *testing.T) {
	if AgentA.Peer() != AgentB {
		t.Fatalf("AgentA.Peer() = %v, want %v", AgentA.Peer(), AgentB)
	}
	if AgentB.Peer() != AgentA {
		t.Fatalf("AgentB.Peer() = %v, want %v", AgentB.Peer(), AgentA)
	}
}

func TestAgent_Valid(t *testing.T) {
	if !AgentA.Valid() || !AgentB.Valid() {
		t.Fatalf("expected both known agents to be valid")
	}
	if Agent("C").Valid() {
		t.Fatalf("expected unknown agent to be invalid")
	}
}

func TestParseAgent(t *testing.T) {
	cases := []struct {
		in    string
		want  Agent
		valid bool
	}{
		{"A", AgentA, true},
		{"a", AgentA, true},
		{" b ", AgentB, true},
		{"B", AgentB, true},
		{"C", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParseAgent(c.in)
		if ok != c.valid || got != c.want {
			t.Fatalf("ParseAgent(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.valid)
		}
	}
}

func TestLastNonEmptyLine(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hello\nworld\n\n", "world"},
		{"only one line", "only one line"},
		{"\n\n  \n", ""},
		{"first\n\nlast  ", "last"},
	}
	for _, c := range cases {
		if got := LastNonEmptyLine(c.in); got != c.want {
			t.Fatalf("LastNonEmptyLine(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
