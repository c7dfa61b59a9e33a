package history

import (
	"testing"

	"github.com/matzehuels/flowsync/pkg/flow"
)

func seedModel(t *testing.T) *flow.Model {
	t.Helper()
	m := flow.New()
	for _, id := range []string{"A", "B", "C"} {
		if err := m.AddNode(flow.Node{ID: id}); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	if _, err := m.AddEdge(flow.Edge{Source: "A", Target: "B", ArrowEnd: flow.ArrowPoint}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if _, err := m.AddEdge(flow.Edge{Source: "B", Target: "C", ArrowEnd: flow.ArrowPoint}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	return m
}

func TestExecuteUndoRedo(t *testing.T) {
	tests := []struct {
		name    string
		command func(t *testing.T, m *flow.Model) Command
		applied func(t *testing.T, m *flow.Model)
	}{
		{
			name: "add node",
			command: func(t *testing.T, m *flow.Model) Command {
				return &AddNode{Node: flow.Node{ID: "D", Text: "Delta"}}
			},
			applied: func(t *testing.T, m *flow.Model) {
				n, ok := m.Node("D")
				if !ok || n.Text != "Delta" {
					t.Fatalf("node D missing or wrong text after apply")
				}
			},
		},
		{
			name: "remove node cascades and restores",
			command: func(t *testing.T, m *flow.Model) Command {
				c, ok := NewRemoveNode(m, "B")
				if !ok {
					t.Fatalf("NewRemoveNode: node B not found")
				}
				return c
			},
			applied: func(t *testing.T, m *flow.Model) {
				if m.HasNode("B") {
					t.Fatalf("node B still present after apply")
				}
				if got := m.EdgeCount(); got != 0 {
					t.Fatalf("expected cascade to remove both edges, %d left", got)
				}
			},
		},
		{
			name: "update node text",
			command: func(t *testing.T, m *flow.Model) Command {
				text := "Alpha"
				c, ok := NewUpdateNode(m, "A", flow.NodePatch{Text: &text})
				if !ok {
					t.Fatalf("NewUpdateNode: node A not found")
				}
				return c
			},
			applied: func(t *testing.T, m *flow.Model) {
				n, _ := m.Node("A")
				if n.Text != "Alpha" {
					t.Fatalf("expected text Alpha, got %q", n.Text)
				}
			},
		},
		{
			name: "remove edge",
			command: func(t *testing.T, m *flow.Model) Command {
				c, ok := NewRemoveEdge(m, "A_B_0")
				if !ok {
					t.Fatalf("NewRemoveEdge: edge A_B_0 not found")
				}
				return c
			},
			applied: func(t *testing.T, m *flow.Model) {
				if _, ok := m.Edge("A_B_0"); ok {
					t.Fatalf("edge A_B_0 still present after apply")
				}
			},
		},
		{
			name: "update edge stroke",
			command: func(t *testing.T, m *flow.Model) Command {
				stroke := flow.StrokeThick
				c, ok := NewUpdateEdge(m, "A_B_0", flow.EdgePatch{Stroke: &stroke})
				if !ok {
					t.Fatalf("NewUpdateEdge: edge A_B_0 not found")
				}
				return c
			},
			applied: func(t *testing.T, m *flow.Model) {
				e, _ := m.Edge("A_B_0")
				if e.Stroke != flow.StrokeThick {
					t.Fatalf("expected thick stroke, got %v", e.Stroke)
				}
			},
		},
		{
			name: "move nodes",
			command: func(t *testing.T, m *flow.Model) Command {
				return NewMoveNodes(m, map[string]flow.Point{"A": {X: 10, Y: 20}})
			},
			applied: func(t *testing.T, m *flow.Model) {
				n, _ := m.Node("A")
				if n.Position == nil || n.Position.X != 10 || n.Position.Y != 20 {
					t.Fatalf("expected position (10,20), got %+v", n.Position)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := seedModel(t)
			before := snapshot(m)
			h := New(DefaultLimit)

			cmd := tc.command(t, m)
			if err := h.Execute(m, cmd); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			tc.applied(t, m)

			if !h.Undo(m) {
				t.Fatalf("Undo returned false")
			}
			if got := snapshot(m); got != before {
				t.Fatalf("undo did not restore model:\n got %q\nwant %q", got, before)
			}

			if !h.Redo(m) {
				t.Fatalf("Redo returned false")
			}
			tc.applied(t, m)
		})
	}
}

// snapshot renders the structural state of a model for equality checks.
func snapshot(m *flow.Model) string {
	out := "dir=" + string(m.Direction())
	for _, n := range m.Nodes() {
		out += ";n:" + n.ID + "/" + n.Text
		if n.Position != nil {
			out += "@set"
		}
	}
	for _, e := range m.Edges() {
		out += ";e:" + e.ID + "/" + e.Text
	}
	return out
}

func TestExecuteClearsRedo(t *testing.T) {
	m := seedModel(t)
	h := New(DefaultLimit)

	if err := h.Execute(m, &AddNode{Node: flow.Node{ID: "D"}}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !h.Undo(m) {
		t.Fatalf("Undo returned false")
	}
	if !h.CanRedo() {
		t.Fatalf("expected redoable command after undo")
	}

	if err := h.Execute(m, &AddNode{Node: flow.Node{ID: "E"}}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if h.CanRedo() {
		t.Fatalf("new command must invalidate the redo stack")
	}
}

func TestExecuteFailureLeavesHistoryUntouched(t *testing.T) {
	m := seedModel(t)
	h := New(DefaultLimit)

	if err := h.Execute(m, &AddNode{Node: flow.Node{ID: "A"}}); err == nil {
		t.Fatalf("expected duplicate node error")
	}
	if h.CanUndo() {
		t.Fatalf("failed command must not land on the undo stack")
	}
}

func TestRedoKeepsAssignedEdgeID(t *testing.T) {
	m := seedModel(t)
	h := New(DefaultLimit)

	cmd := &AddEdge{Edge: flow.Edge{Source: "A", Target: "C", ArrowEnd: flow.ArrowPoint}}
	if err := h.Execute(m, cmd); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	id := cmd.Edge.ID
	if id == "" {
		t.Fatalf("apply did not record the assigned edge ID")
	}

	if !h.Undo(m) {
		t.Fatalf("Undo returned false")
	}
	if !h.Redo(m) {
		t.Fatalf("Redo returned false")
	}
	if _, ok := m.Edge(id); !ok {
		t.Fatalf("redo recreated the edge under a different ID than %q", id)
	}
}

func TestUndoLimit(t *testing.T) {
	m := flow.New()
	h := New(2)

	for _, id := range []string{"A", "B", "C"} {
		if err := h.Execute(m, &AddNode{Node: flow.Node{ID: id}}); err != nil {
			t.Fatalf("Execute(%s): %v", id, err)
		}
	}

	if !h.Undo(m) || !h.Undo(m) {
		t.Fatalf("expected two undoable commands")
	}
	if h.Undo(m) {
		t.Fatalf("limit of 2 must drop the oldest command")
	}
	if !m.HasNode("A") {
		t.Fatalf("node A from the evicted command must survive undo")
	}
}

func TestRemoveNodeRestoresMembership(t *testing.T) {
	m := seedModel(t)
	if err := m.AddSubGraph(flow.SubGraph{ID: "grp", Title: "Group"}); err != nil {
		t.Fatalf("AddSubGraph: %v", err)
	}
	m.AssignToSubGraph("grp", "B")

	h := New(DefaultLimit)
	cmd, ok := NewRemoveNode(m, "B")
	if !ok {
		t.Fatalf("NewRemoveNode: node B not found")
	}
	if err := h.Execute(m, cmd); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !h.Undo(m) {
		t.Fatalf("Undo returned false")
	}
	if got := m.MemberOf("B"); got != "grp" {
		t.Fatalf("expected B restored into grp, got %q", got)
	}
}
