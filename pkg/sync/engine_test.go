package sync

import (
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/flowsync/pkg/flow"
)

const testDebounce = 10 * time.Millisecond

// waitNotify blocks until one event arrives or the deadline passes.
func waitNotify(t *testing.T, ch <-chan ChangeEvent) ChangeEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(20 * testDebounce):
		t.Fatalf("timed out waiting for change notification")
		return ChangeEvent{}
	}
}

// expectSilence fails when an event arrives within a few debounce
// windows.
func expectSilence(t *testing.T, ch <-chan ChangeEvent) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected notification: %+v", ev)
	case <-time.After(5 * testDebounce):
	}
}

func newTestEngine(t *testing.T, code string) (*Engine, <-chan ChangeEvent) {
	t.Helper()
	eng, err := New(Options{Code: code, Debounce: testDebounce})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(eng.Destroy)

	ch := make(chan ChangeEvent, 16)
	eng.Subscribe(func(ev ChangeEvent) { ch <- ev })
	return eng, ch
}

func TestNewParsesInitialCode(t *testing.T) {
	eng, _ := newTestEngine(t, "flowchart LR\n    A --> B\n")
	m := eng.Model()
	if m.NodeCount() != 2 || m.EdgeCount() != 1 {
		t.Fatalf("expected 2 nodes and 1 edge, got %d/%d", m.NodeCount(), m.EdgeCount())
	}
	if m.Direction() != flow.DirectionLR {
		t.Fatalf("expected LR direction, got %s", m.Direction())
	}
}

func TestNewRejectsBadCode(t *testing.T) {
	if _, err := New(Options{Code: "sequenceDiagram\n    A->>B: hi\n"}); err == nil {
		t.Fatalf("expected error for unsupported dialect")
	}
}

func TestGraphEditRegeneratesCode(t *testing.T) {
	eng, ch := newTestEngine(t, "flowchart TB\n    A --> B\n")

	if err := eng.AddNode(flow.Node{ID: "C", Text: "Third"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	ev := waitNotify(t, ch)
	if ev.Source != SourceCanvas {
		t.Fatalf("expected canvas source, got %s", ev.Source)
	}
	if !strings.Contains(ev.Code, "C[Third]") {
		t.Fatalf("regenerated code missing node C:\n%s", ev.Code)
	}
	if ev.Code != eng.Code() {
		t.Fatalf("notification code diverges from Code()")
	}
}

func TestDebounceCollapsesBurst(t *testing.T) {
	eng, ch := newTestEngine(t, "flowchart TB\n    A --> B\n")

	for _, id := range []string{"C", "D", "E"} {
		if err := eng.AddNode(flow.Node{ID: id}); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}

	ev := waitNotify(t, ch)
	for _, id := range []string{"C", "D", "E"} {
		if !strings.Contains(ev.Code, id) {
			t.Fatalf("collapsed notification missing %s:\n%s", id, ev.Code)
		}
	}
	expectSilence(t, ch)
}

func TestUpdateFromCodeNotifiesWithCodeSource(t *testing.T) {
	eng, ch := newTestEngine(t, "flowchart TB\n    A --> B\n")

	text := "flowchart TB\n    A --> B\n    B --> C\n"
	if err := eng.UpdateFromCode(text); err != nil {
		t.Fatalf("UpdateFromCode: %v", err)
	}

	ev := waitNotify(t, ch)
	if ev.Source != SourceCode {
		t.Fatalf("expected code source, got %s", ev.Source)
	}
	if ev.Code != text {
		t.Fatalf("code notification must carry the text verbatim")
	}
	if eng.Model().EdgeCount() != 2 {
		t.Fatalf("model not rebuilt from text")
	}
}

func TestParseFailureKeepsLastGoodState(t *testing.T) {
	eng, ch := newTestEngine(t, "flowchart TB\n    A --> B\n")
	before := eng.Code()

	if err := eng.UpdateFromCode("flowchart TB\n    subgraph broken\n    A --> B\n"); err == nil {
		t.Fatalf("expected parse error for unterminated subgraph")
	}

	if eng.Code() != before {
		t.Fatalf("failed parse must not replace the code")
	}
	if eng.Model().NodeCount() != 2 {
		t.Fatalf("failed parse must not replace the model")
	}
	expectSilence(t, ch)
}

func TestPositionChangesStayOutOfCode(t *testing.T) {
	eng, ch := newTestEngine(t, "flowchart TB\n    A --> B\n")
	before := eng.Code()

	eng.UpdateNodePosition("A", 120, 80)

	if eng.Code() != before {
		t.Fatalf("position change leaked into the code")
	}
	expectSilence(t, ch)

	n, _ := eng.Model().Node("A")
	if n.Position == nil || n.Position.X != 120 || n.Position.Y != 80 {
		t.Fatalf("position not applied to the node: %+v", n.Position)
	}
}

func TestPositionsSurviveReparse(t *testing.T) {
	eng, _ := newTestEngine(t, "flowchart TB\n    A --> B\n")
	eng.UpdateNodePosition("A", 10, 20)
	eng.UpdateNodePosition("B", 30, 40)

	// B disappears, A survives, C is new.
	if err := eng.UpdateFromCode("flowchart TB\n    A --> C\n"); err != nil {
		t.Fatalf("UpdateFromCode: %v", err)
	}

	positions := eng.ExportPositions()
	if pt, ok := positions["A"]; !ok || pt.X != 10 || pt.Y != 20 {
		t.Fatalf("position of surviving node lost: %+v", positions)
	}
	if _, ok := positions["B"]; ok {
		t.Fatalf("position of removed node must be pruned")
	}
	n, _ := eng.Model().Node("A")
	if n.Position == nil || n.Position.X != 10 {
		t.Fatalf("position not re-attached after reparse")
	}
}

func TestConnectNodes(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target string
		wantOK bool
	}{
		{"valid pair", "B", "C", true},
		{"self connection", "A", "A", false},
		{"missing source", "Z", "B", false},
		{"missing target", "A", "Z", false},
		{"duplicate of existing edge", "A", "B", false},
		{"reverse of existing edge", "B", "A", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			eng, _ := newTestEngine(t, "flowchart TB\n    A --> B\n    C\n")
			id, ok := eng.ConnectNodes(tc.source, tc.target)
			if ok != tc.wantOK {
				t.Fatalf("ConnectNodes(%s, %s) ok = %v, want %v", tc.source, tc.target, ok, tc.wantOK)
			}
			if ok {
				edge, exists := eng.Model().Edge(id)
				if !exists {
					t.Fatalf("returned edge ID %q not in model", id)
				}
				if edge.ArrowEnd != flow.ArrowPoint {
					t.Fatalf("connection must be a pointed edge")
				}
			}
		})
	}
}

func TestUndoRedoRegeneratesCode(t *testing.T) {
	eng, _ := newTestEngine(t, "flowchart TB\n    A --> B\n")

	if err := eng.AddNode(flow.Node{ID: "C"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if !strings.Contains(eng.Code(), "C") {
		t.Fatalf("code missing added node")
	}

	if !eng.Undo() {
		t.Fatalf("Undo returned false")
	}
	if strings.Contains(eng.Code(), "C") {
		t.Fatalf("undo must drop node C from the code")
	}

	if !eng.Redo() {
		t.Fatalf("Redo returned false")
	}
	if !strings.Contains(eng.Code(), "C") {
		t.Fatalf("redo must restore node C in the code")
	}
}

func TestTextEditPreservesHistory(t *testing.T) {
	eng, _ := newTestEngine(t, "flowchart TB\n    A --> B\n")
	if err := eng.AddNode(flow.Node{ID: "C"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	// A code-origin change is an external edit, not a reversible UI
	// action: the graph-side action before it must stay undoable.
	if err := eng.UpdateFromCode("flowchart TB\n    A --> B\n    C\n    D\n"); err != nil {
		t.Fatalf("UpdateFromCode: %v", err)
	}
	if !eng.CanUndo() {
		t.Fatalf("text replacement must not clear the undo stack")
	}

	// Undo applies against the replacement model: C goes away, the
	// node only the text edit introduced stays.
	if !eng.Undo() {
		t.Fatalf("Undo returned false")
	}
	if eng.Model().HasNode("C") {
		t.Fatalf("undone node still present after text edit")
	}
	if !eng.Model().HasNode("D") {
		t.Fatalf("text-introduced node lost by undo")
	}

	if !eng.Redo() {
		t.Fatalf("Redo returned false")
	}
	if !eng.Model().HasNode("C") {
		t.Fatalf("redo did not restore the node")
	}
}

func TestUndoDegradesWhenSubjectRemovedByTextEdit(t *testing.T) {
	eng, _ := newTestEngine(t, "flowchart TB\n    A --> B\n")
	if err := eng.AddNode(flow.Node{ID: "C"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	// The text edit drops C entirely; undoing the add must not fail.
	if err := eng.UpdateFromCode("flowchart TB\n    A --> B\n"); err != nil {
		t.Fatalf("UpdateFromCode: %v", err)
	}
	if !eng.Undo() {
		t.Fatalf("Undo returned false")
	}
	if eng.Model().HasNode("C") {
		t.Fatalf("node reappeared from a stale undo")
	}
}

func TestParallelEdgeLabelsSurviveReposition(t *testing.T) {
	eng, _ := newTestEngine(t, "flowchart TB\n    A -->|Yes| B\n    A -->|No| B\n")

	// Repositioning and retargeting one of two parallel edges must not
	// shuffle labels between them: each label belongs to an edge ID,
	// never to whichever statement mentions the pair first.
	eng.MoveNodes(map[string]flow.Point{"A": {X: 10, Y: 20}, "B": {X: 30, Y: 40}})
	if !eng.UpdateEdge("A_B_1", flow.EdgePatch{Stroke: strokePtr(flow.StrokeThick)}) {
		t.Fatalf("UpdateEdge(A_B_1) returned false")
	}

	code := eng.Code()
	yesAt := strings.Index(code, "A -->|Yes| B")
	noAt := strings.Index(code, "A ==>|No| B")
	if yesAt < 0 || noAt < 0 {
		t.Fatalf("labels not on their own edges:\n%s", code)
	}
	if yesAt > noAt {
		t.Fatalf("parallel edge order changed:\n%s", code)
	}

	yes, _ := eng.Model().Edge("A_B_0")
	no, _ := eng.Model().Edge("A_B_1")
	if yes.Text != "Yes" || no.Text != "No" {
		t.Fatalf("labels moved between edges: %q / %q", yes.Text, no.Text)
	}
}

func strokePtr(s flow.Stroke) *flow.Stroke { return &s }

func TestMoveNodesIsUndoable(t *testing.T) {
	eng, ch := newTestEngine(t, "flowchart TB\n    A --> B\n")

	eng.MoveNodes(map[string]flow.Point{"A": {X: 50, Y: 60}})
	ev := waitNotify(t, ch)
	if ev.Source != SourceCanvas {
		t.Fatalf("expected canvas source, got %s", ev.Source)
	}

	if !eng.Undo() {
		t.Fatalf("Undo returned false")
	}
	if _, ok := eng.ExportPositions()["A"]; ok {
		t.Fatalf("undo must clear the recorded position")
	}

	if !eng.Redo() {
		t.Fatalf("Redo returned false")
	}
	if pt := eng.ExportPositions()["A"]; pt.X != 50 || pt.Y != 60 {
		t.Fatalf("redo must restore the position, got %+v", pt)
	}
}

func TestDestroyCancelsPendingNotification(t *testing.T) {
	eng, ch := newTestEngine(t, "flowchart TB\n    A --> B\n")

	if err := eng.AddNode(flow.Node{ID: "C"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	eng.Destroy()
	expectSilence(t, ch)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	eng, err := New(Options{Code: "flowchart TB\n    A\n", Debounce: testDebounce})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Destroy()

	got := make(chan ChangeEvent, 16)
	cancel := eng.Subscribe(func(ev ChangeEvent) { got <- ev })
	cancel()

	if err := eng.AddNode(flow.Node{ID: "B"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	expectSilence(t, got)
}
