// Package history encapsulates model mutations as undoable commands.
//
// Each command is a data-carrying struct holding exactly the state needed
// to apply and exactly reverse one logical mutation. Commands receive the
// target model as a parameter rather than capturing it, so a sync engine
// that replaces its model after an external text edit keeps a working
// history.
package history

import "github.com/matzehuels/flowsync/pkg/flow"

// Command is one reversible mutation. Apply must leave the model
// unchanged when it returns an error.
type Command interface {
	Apply(m *flow.Model) error
	Revert(m *flow.Model) error
	Name() string
}

// =============================================================================
// Node Commands
// =============================================================================

// AddNode inserts a node.
type AddNode struct {
	Node flow.Node
}

func (c *AddNode) Name() string { return "add-node" }

func (c *AddNode) Apply(m *flow.Model) error {
	return m.AddNode(c.Node.Clone())
}

func (c *AddNode) Revert(m *flow.Model) error {
	m.RemoveNode(c.Node.ID)
	return nil
}

// RemoveNode deletes a node together with its cascaded edges and
// subgraph membership, and can restore all of them.
type RemoveNode struct {
	Node       flow.Node
	Edges      []flow.Edge // cascaded removals, in model order
	SubGraphID string      // block membership at removal time, "" if none
}

// NewRemoveNode captures the state needed to undo removing the node.
// ok is false when the node does not exist.
func NewRemoveNode(m *flow.Model, id string) (*RemoveNode, bool) {
	node, exists := m.Node(id)
	if !exists {
		return nil, false
	}
	c := &RemoveNode{Node: node.Clone(), SubGraphID: m.MemberOf(id)}
	for _, e := range m.EdgesFor(id) {
		c.Edges = append(c.Edges, e.Clone())
	}
	return c, true
}

func (c *RemoveNode) Name() string { return "remove-node" }

func (c *RemoveNode) Apply(m *flow.Model) error {
	m.RemoveNode(c.Node.ID)
	return nil
}

func (c *RemoveNode) Revert(m *flow.Model) error {
	if err := m.AddNode(c.Node.Clone()); err != nil {
		return err
	}
	if c.SubGraphID != "" {
		m.AssignToSubGraph(c.SubGraphID, c.Node.ID)
	}
	for _, e := range c.Edges {
		if _, err := m.AddEdge(e.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// UpdateNode patches node fields and remembers the prior values of the
// fields it touches.
type UpdateNode struct {
	ID     string
	Before flow.NodePatch
	After  flow.NodePatch
}

// NewUpdateNode captures the before-state for every field set in patch.
// ok is false when the node does not exist.
func NewUpdateNode(m *flow.Model, id string, patch flow.NodePatch) (*UpdateNode, bool) {
	node, exists := m.Node(id)
	if !exists {
		return nil, false
	}
	c := &UpdateNode{ID: id, After: patch}
	if patch.Text != nil {
		text := node.Text
		c.Before.Text = &text
	}
	if patch.Shape != nil {
		shape := node.Shape
		c.Before.Shape = &shape
	}
	if patch.Style != nil {
		style := node.Style.Clone()
		c.Before.Style = &style
	}
	if patch.CSSClasses != nil {
		classes := append([]string(nil), node.CSSClasses...)
		c.Before.CSSClasses = &classes
	}
	return c, true
}

func (c *UpdateNode) Name() string { return "update-node" }

func (c *UpdateNode) Apply(m *flow.Model) error {
	m.UpdateNode(c.ID, c.After)
	return nil
}

func (c *UpdateNode) Revert(m *flow.Model) error {
	m.UpdateNode(c.ID, c.Before)
	return nil
}

// =============================================================================
// Edge Commands
// =============================================================================

// AddEdge inserts an edge. When the edge carries no explicit ID the one
// assigned by the model on first apply is remembered, so redo recreates
// the edge under the same identity.
type AddEdge struct {
	Edge flow.Edge
}

func (c *AddEdge) Name() string { return "add-edge" }

func (c *AddEdge) Apply(m *flow.Model) error {
	id, err := m.AddEdge(c.Edge.Clone())
	if err != nil {
		return err
	}
	c.Edge.ID = id
	return nil
}

func (c *AddEdge) Revert(m *flow.Model) error {
	m.RemoveEdge(c.Edge.ID)
	return nil
}

// RemoveEdge deletes an edge and can restore it under its original ID.
type RemoveEdge struct {
	Edge flow.Edge
}

// NewRemoveEdge captures the edge for undo. ok is false when the edge
// does not exist.
func NewRemoveEdge(m *flow.Model, id string) (*RemoveEdge, bool) {
	edge, exists := m.Edge(id)
	if !exists {
		return nil, false
	}
	return &RemoveEdge{Edge: edge.Clone()}, true
}

func (c *RemoveEdge) Name() string { return "remove-edge" }

func (c *RemoveEdge) Apply(m *flow.Model) error {
	m.RemoveEdge(c.Edge.ID)
	return nil
}

func (c *RemoveEdge) Revert(m *flow.Model) error {
	_, err := m.AddEdge(c.Edge.Clone())
	return err
}

// UpdateEdge patches edge fields and remembers the prior values of the
// fields it touches.
type UpdateEdge struct {
	ID     string
	Before flow.EdgePatch
	After  flow.EdgePatch
}

// NewUpdateEdge captures the before-state for every field set in patch.
// ok is false when the edge does not exist.
func NewUpdateEdge(m *flow.Model, id string, patch flow.EdgePatch) (*UpdateEdge, bool) {
	edge, exists := m.Edge(id)
	if !exists {
		return nil, false
	}
	c := &UpdateEdge{ID: id, After: patch}
	if patch.Text != nil {
		text := edge.Text
		c.Before.Text = &text
	}
	if patch.Stroke != nil {
		stroke := edge.Stroke
		c.Before.Stroke = &stroke
	}
	if patch.ArrowStart != nil {
		a := edge.ArrowStart
		c.Before.ArrowStart = &a
	}
	if patch.ArrowEnd != nil {
		a := edge.ArrowEnd
		c.Before.ArrowEnd = &a
	}
	if patch.Animate != nil {
		an := edge.Animate
		c.Before.Animate = &an
	}
	return c, true
}

func (c *UpdateEdge) Name() string { return "update-edge" }

func (c *UpdateEdge) Apply(m *flow.Model) error {
	m.UpdateEdge(c.ID, c.After)
	return nil
}

func (c *UpdateEdge) Revert(m *flow.Model) error {
	m.UpdateEdge(c.ID, c.Before)
	return nil
}

// =============================================================================
// Move Command
// =============================================================================

// MoveNodes records a batch position change, typically one finished drag
// of a selection. Before holds the prior position per node, nil when the
// node had none.
type MoveNodes struct {
	Before map[string]*flow.Point
	After  map[string]flow.Point
}

// NewMoveNodes captures the current positions of the nodes in after.
func NewMoveNodes(m *flow.Model, after map[string]flow.Point) *MoveNodes {
	c := &MoveNodes{Before: make(map[string]*flow.Point, len(after)), After: after}
	for id := range after {
		if node, ok := m.Node(id); ok && node.Position != nil {
			p := *node.Position
			c.Before[id] = &p
		} else {
			c.Before[id] = nil
		}
	}
	return c
}

func (c *MoveNodes) Name() string { return "move-nodes" }

func (c *MoveNodes) Apply(m *flow.Model) error {
	for id, pt := range c.After {
		setPosition(m, id, &pt)
	}
	return nil
}

func (c *MoveNodes) Revert(m *flow.Model) error {
	for id, pt := range c.Before {
		setPosition(m, id, pt)
	}
	return nil
}

func setPosition(m *flow.Model, id string, pt *flow.Point) {
	node, ok := m.Node(id)
	if !ok {
		return
	}
	if pt == nil {
		node.Position = nil
		return
	}
	p := *pt
	node.Position = &p
	if node.Bounds != nil {
		node.Bounds.X = p.X
		node.Bounds.Y = p.Y
	}
}
