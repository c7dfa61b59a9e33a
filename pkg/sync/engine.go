// Package sync keeps the textual and graph representations of a diagram
// consistent with each other.
//
// The engine owns one [flow.Model], one undo/redo [history.History] and a
// position side-table. Text edits replace the model wholesale; graph
// edits run through undoable commands and schedule a debounced
// regeneration of the canonical text. Subscribers receive one
// notification per debounce window, tagged with the side that caused it.
//
// # Usage
//
//	eng, err := sync.New(sync.Options{Code: text})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Destroy()
//
//	cancel := eng.Subscribe(func(ev sync.ChangeEvent) {
//	    editor.SetText(ev.Code)
//	})
//	defer cancel()
//
//	eng.AddNode(flow.Node{ID: "D", Text: "Deploy"})
package sync

import (
	"context"
	"io"
	stdsync "sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowsync/pkg/flow"
	"github.com/matzehuels/flowsync/pkg/history"
	"github.com/matzehuels/flowsync/pkg/observability"
	"github.com/matzehuels/flowsync/pkg/parser"
	"github.com/matzehuels/flowsync/pkg/serializer"
)

// Source identifies which representation caused a change notification.
type Source string

const (
	// SourceCode marks changes that originated in the text editor.
	SourceCode Source = "code"

	// SourceCanvas marks changes that originated in graph manipulation.
	SourceCanvas Source = "canvas"
)

// ChangeEvent is delivered to subscribers after the debounce window
// closes. Code is the canonical text at delivery time.
type ChangeEvent struct {
	Code   string
	Source Source
}

// DefaultDebounce is the window during which successive changes collapse
// into a single notification.
const DefaultDebounce = 250 * time.Millisecond

// Options configures a sync engine.
type Options struct {
	// Code is the initial diagram text. Empty starts with a blank model.
	Code string

	// Debounce overrides the notification window. Zero means
	// DefaultDebounce; negative disables debouncing (flush on a
	// zero-duration timer).
	Debounce time.Duration

	// UndoLimit bounds the undo stack. Zero means history.DefaultLimit.
	UndoLimit int

	// Logger receives engine diagnostics. Defaults to a discard logger.
	Logger *log.Logger
}

type subscriber struct {
	id int
	fn func(ChangeEvent)
}

// Engine is the bidirectional synchronizer. All methods are safe for
// concurrent use.
type Engine struct {
	mu        stdsync.Mutex
	model     *flow.Model
	hist      *history.History
	positions map[string]flow.Point
	code      string
	dirty     bool

	subs    []subscriber
	nextSub int

	debounce time.Duration
	timer    *time.Timer
	pending  Source

	destroyed bool
	logger    *log.Logger
}

// New builds an engine, parsing the initial code when given.
func New(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	debounce := opts.Debounce
	if debounce == 0 {
		debounce = DefaultDebounce
	} else if debounce < 0 {
		debounce = 0
	}
	undoLimit := opts.UndoLimit
	if undoLimit == 0 {
		undoLimit = history.DefaultLimit
	}

	e := &Engine{
		model:     flow.New(),
		hist:      history.New(undoLimit),
		positions: make(map[string]flow.Point),
		debounce:  debounce,
		logger:    opts.Logger,
	}

	if opts.Code != "" {
		m, err := e.parse(opts.Code)
		if err != nil {
			return nil, err
		}
		e.model = m
		e.code = opts.Code
	}
	return e, nil
}

// =============================================================================
// Text Side
// =============================================================================

// UpdateFromCode replaces the model with the result of parsing text. On
// a parse error the previous model, code and positions stay untouched
// and the error is returned, so a half-typed edit never destroys state.
//
// The undo history is preserved: a code-origin change is an external
// edit, not a reversible UI action. Commands receive the model as a
// parameter when applied, so earlier graph-side actions stay undoable
// against the replacement model; an undo whose subject no longer exists
// degrades to a no-op. Position data is re-attached by node ID and
// pruned for nodes that no longer exist.
func (e *Engine) UpdateFromCode(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return nil
	}

	m, err := e.parse(text)
	if err != nil {
		e.logger.Debug("parse failed, keeping last good state", "err", err)
		return err
	}

	for id := range e.positions {
		if !m.HasNode(id) {
			delete(e.positions, id)
		}
	}
	for id, pt := range e.positions {
		applyPosition(m, id, pt)
	}

	e.model = m
	e.code = text
	e.dirty = false
	e.schedule(SourceCode)
	return nil
}

func (e *Engine) parse(text string) (*flow.Model, error) {
	ctx := context.Background()
	observability.Sync().OnParseStart(ctx, len(text))
	start := time.Now()
	m, err := parser.Parse(text)
	if err != nil {
		observability.Sync().OnParseComplete(ctx, 0, 0, time.Since(start), err)
		return nil, err
	}
	observability.Sync().OnParseComplete(ctx, m.NodeCount(), m.EdgeCount(), time.Since(start), nil)
	return m, nil
}

// Code returns the canonical text. After graph-side changes the text is
// regenerated from the model; otherwise the last value is returned
// verbatim.
func (e *Engine) Code() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.codeLocked()
}

func (e *Engine) codeLocked() string {
	if e.dirty {
		start := time.Now()
		e.code = serializer.Serialize(e.model)
		e.dirty = false
		observability.Sync().OnSerialize(context.Background(), e.model.NodeCount(), e.model.EdgeCount(), time.Since(start))
	}
	return e.code
}

// =============================================================================
// Graph Side
// =============================================================================

// AddNode adds a node through an undoable command.
func (e *Engine) AddNode(n flow.Node) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.hist.Execute(e.model, &history.AddNode{Node: n}); err != nil {
		return err
	}
	e.markSemanticChange()
	return nil
}

// RemoveNode removes a node and its edges through an undoable command.
// It reports false when the node does not exist.
func (e *Engine) RemoveNode(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cmd, ok := history.NewRemoveNode(e.model, id)
	if !ok {
		return false
	}
	if err := e.hist.Execute(e.model, cmd); err != nil {
		return false
	}
	delete(e.positions, id)
	e.markSemanticChange()
	return true
}

// UpdateNode patches node fields through an undoable command. It reports
// false when the node does not exist.
func (e *Engine) UpdateNode(id string, patch flow.NodePatch) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cmd, ok := history.NewUpdateNode(e.model, id, patch)
	if !ok {
		return false
	}
	if err := e.hist.Execute(e.model, cmd); err != nil {
		return false
	}
	e.markSemanticChange()
	return true
}

// AddEdge adds an edge through an undoable command and returns the
// assigned edge ID.
func (e *Engine) AddEdge(edge flow.Edge) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cmd := &history.AddEdge{Edge: edge}
	if err := e.hist.Execute(e.model, cmd); err != nil {
		return "", err
	}
	e.markSemanticChange()
	return cmd.Edge.ID, nil
}

// RemoveEdge removes an edge through an undoable command. It reports
// false when the edge does not exist.
func (e *Engine) RemoveEdge(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cmd, ok := history.NewRemoveEdge(e.model, id)
	if !ok {
		return false
	}
	if err := e.hist.Execute(e.model, cmd); err != nil {
		return false
	}
	e.markSemanticChange()
	return true
}

// UpdateEdge patches edge fields through an undoable command. It reports
// false when the edge does not exist.
func (e *Engine) UpdateEdge(id string, patch flow.EdgePatch) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cmd, ok := history.NewUpdateEdge(e.model, id, patch)
	if !ok {
		return false
	}
	if err := e.hist.Execute(e.model, cmd); err != nil {
		return false
	}
	e.markSemanticChange()
	return true
}

// ConnectNodes creates a pointed edge from source to target, as produced
// by dragging between node ports. Self connections, missing endpoints
// and exact duplicates (same pair, default configuration) are refused
// without error; ok reports whether the edge was created.
func (e *Engine) ConnectNodes(source, target string) (id string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if source == target {
		e.logger.Debug("refusing self connection", "node", source)
		return "", false
	}
	if !e.model.HasNode(source) || !e.model.HasNode(target) {
		return "", false
	}
	for _, existing := range e.model.EdgesBetween(source, target) {
		if existing.Stroke == flow.StrokeNormal && existing.ArrowStart == flow.ArrowNone && existing.ArrowEnd == flow.ArrowPoint {
			e.logger.Debug("refusing duplicate connection", "source", source, "target", target)
			return "", false
		}
	}
	cmd := &history.AddEdge{Edge: flow.Edge{Source: source, Target: target, ArrowEnd: flow.ArrowPoint}}
	if err := e.hist.Execute(e.model, cmd); err != nil {
		return "", false
	}
	e.markSemanticChange()
	return cmd.Edge.ID, true
}

// MoveNodes records a finished drag of one or more nodes as a single
// undoable command and schedules a canvas notification. Layout-only
// position tracking during the drag should go through
// UpdateNodePosition instead.
func (e *Engine) MoveNodes(moves map[string]flow.Point) {
	if len(moves) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cmd := history.NewMoveNodes(e.model, moves)
	if err := e.hist.Execute(e.model, cmd); err != nil {
		return
	}
	e.refreshPositions()
	e.schedule(SourceCanvas)
}

// UpdateNodePosition records a transient position change (mid-drag). It
// updates the side-table and the node's layout fields but does not touch
// the canonical text, the history or subscribers.
func (e *Engine) UpdateNodePosition(id string, x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.model.HasNode(id) {
		return
	}
	pt := flow.Point{X: x, Y: y}
	e.positions[id] = pt
	applyPosition(e.model, id, pt)
}

// =============================================================================
// History
// =============================================================================

// Undo reverts the most recent graph command. It reports false when
// there is nothing to undo.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hist.Undo(e.model) {
		return false
	}
	e.refreshPositions()
	e.markSemanticChange()
	return true
}

// Redo re-applies the most recently undone graph command. It reports
// false when there is nothing to redo.
func (e *Engine) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hist.Redo(e.model) {
		return false
	}
	e.refreshPositions()
	e.markSemanticChange()
	return true
}

// CanUndo reports whether an undoable command exists.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.CanUndo()
}

// CanRedo reports whether a redoable command exists.
func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.CanRedo()
}

// =============================================================================
// Positions
// =============================================================================

// ExportPositions returns a copy of the position side-table.
func (e *Engine) ExportPositions() map[string]flow.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]flow.Point, len(e.positions))
	for id, pt := range e.positions {
		out[id] = pt
	}
	return out
}

// ImportPositions merges saved positions into the side-table and onto
// the matching nodes. Entries for unknown nodes are kept; they attach
// when the node reappears through a text edit.
func (e *Engine) ImportPositions(positions map[string]flow.Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, pt := range positions {
		e.positions[id] = pt
		if e.model.HasNode(id) {
			applyPosition(e.model, id, pt)
		}
	}
}

// refreshPositions rebuilds the side-table from node state after a
// command ran, so undone moves are reflected.
func (e *Engine) refreshPositions() {
	for _, n := range e.model.Nodes() {
		if n.Position != nil {
			e.positions[n.ID] = *n.Position
		} else {
			delete(e.positions, n.ID)
		}
	}
}

func applyPosition(m *flow.Model, id string, pt flow.Point) {
	node, ok := m.Node(id)
	if !ok {
		return
	}
	p := pt
	node.Position = &p
	if node.Bounds != nil {
		node.Bounds.X = p.X
		node.Bounds.Y = p.Y
	}
}

// =============================================================================
// Model Access
// =============================================================================

// Model exposes the live model for layout and rendering. Callers must
// not mutate it; all mutations go through the engine so they are
// undoable and trigger notifications.
func (e *Engine) Model() *flow.Model {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}

// =============================================================================
// Subscription and Debounce
// =============================================================================

// Subscribe registers a listener for change notifications and returns
// its unsubscribe function. Listeners run outside the engine lock, in
// registration order.
func (e *Engine) Subscribe(fn func(ChangeEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSub++
	id := e.nextSub
	e.subs = append(e.subs, subscriber{id: id, fn: fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

// markSemanticChange flags the text as stale and schedules a canvas
// notification. Callers hold the lock.
func (e *Engine) markSemanticChange() {
	e.dirty = true
	e.schedule(SourceCanvas)
}

// schedule arms (or re-arms) the debounce timer. Successive calls within
// the window collapse into one flush; the last source wins. Callers hold
// the lock.
func (e *Engine) schedule(src Source) {
	if e.destroyed {
		return
	}
	e.pending = src
	if e.timer != nil {
		e.timer.Reset(e.debounce)
		return
	}
	e.timer = time.AfterFunc(e.debounce, e.flush)
}

// flush regenerates the text if needed and delivers one notification to
// every subscriber. It runs on the timer goroutine.
func (e *Engine) flush() {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	code := e.codeLocked()
	src := e.pending
	subs := make([]subscriber, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	observability.Sync().OnFlush(context.Background(), string(src), len(code))
	ev := ChangeEvent{Code: code, Source: src}
	for _, s := range subs {
		s.fn(ev)
	}
}

// Destroy cancels any pending notification and detaches all
// subscribers. The engine must not be used afterwards.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.subs = nil
}
