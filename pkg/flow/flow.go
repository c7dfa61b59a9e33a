// Package flow provides the in-memory graph model behind a flowchart
// document: nodes, edges, subgraphs and class definitions, together with
// mutation primitives and fine-grained change notification.
//
// The model enforces referential integrity: node IDs are unique, edges
// may only reference existing nodes, and removing a node cascades to
// every edge touching it. It has no knowledge of the text grammar -
// parsing and serialization live in their own packages and treat the
// model as plain data.
//
// The zero value is not usable - use New. Model is not safe for
// concurrent use without external synchronization.
package flow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidNodeID is returned by [Model.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Model.AddNode] when a node with
	// the same ID already exists. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Model.AddEdge] when the source
	// node does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Model.AddEdge] when the target
	// node does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrDuplicateEdgeID is returned by [Model.AddEdge] when an explicit
	// edge ID is already in use.
	ErrDuplicateEdgeID = errors.New("duplicate edge ID")

	// ErrInvalidSubGraphID is returned by [Model.AddSubGraph] when the
	// subgraph ID is empty.
	ErrInvalidSubGraphID = errors.New("subgraph ID must not be empty")

	// ErrDuplicateSubGraphID is returned by [Model.AddSubGraph] when a
	// subgraph with the same ID already exists.
	ErrDuplicateSubGraphID = errors.New("duplicate subgraph ID")
)

// Model is the authoritative graph for one editing session. Nodes, edges,
// subgraphs and class definitions keep their insertion order so that
// serialization is deterministic.
type Model struct {
	direction Direction

	nodes     map[string]*Node
	nodeOrder []string

	edges     []*Edge
	edgeIndex map[string]*Edge

	subgraphs []*SubGraph
	sgIndex   map[string]*SubGraph

	classDefs  []*ClassDef
	classIndex map[string]*ClassDef

	listeners  []listener
	nextListID int
	batchDepth int
	pending    []Event
}

// New creates an empty model with the default direction.
func New() *Model {
	return &Model{
		direction:  DefaultDirection,
		nodes:      make(map[string]*Node),
		edgeIndex:  make(map[string]*Edge),
		sgIndex:    make(map[string]*SubGraph),
		classIndex: make(map[string]*ClassDef),
	}
}

// Direction returns the document-level layout direction.
func (m *Model) Direction() Direction { return m.direction }

// SetDirection sets the document-level layout direction.
func (m *Model) SetDirection(d Direction) { m.direction = d }

// =============================================================================
// Node Operations
// =============================================================================

// AddNode adds a node to the model. Text defaults to the ID when empty.
// Returns ErrInvalidNodeID for an empty ID or ErrDuplicateNodeID when the
// ID is already taken; the model is unchanged on error.
func (m *Model) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := m.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Text == "" {
		n.Text = n.ID
	}
	node := &n
	m.nodes[node.ID] = node
	m.nodeOrder = append(m.nodeOrder, node.ID)
	m.emit(Event{Kind: EventNodeAdd, Node: copyOf(node)})
	return nil
}

// RemoveNode removes the node and cascades removal of every edge that
// references it as source or target. Removing an absent ID is a no-op,
// which keeps undo and redo idempotent. Subgraph memberships referring to
// the node are dropped as well.
func (m *Model) RemoveNode(id string) {
	node, ok := m.nodes[id]
	if !ok {
		return
	}

	// Cascade before the node itself so listeners never observe a
	// dangling edge.
	for _, e := range m.EdgesFor(id) {
		m.RemoveEdge(e.ID)
	}

	for _, sg := range m.subgraphs {
		sg.Nodes = deleteString(sg.Nodes, id)
	}

	delete(m.nodes, id)
	m.nodeOrder = deleteString(m.nodeOrder, id)
	m.emit(Event{Kind: EventNodeRemove, Node: copyOf(node)})
}

// UpdateNode merges the patch into the node. Updating an absent ID is a
// silent no-op; the return value reports whether an update was applied.
// The emitted event carries before and after copies sufficient for undo
// capture.
func (m *Model) UpdateNode(id string, patch NodePatch) bool {
	node, ok := m.nodes[id]
	if !ok {
		return false
	}
	before := copyOf(node)
	if patch.Text != nil {
		node.Text = *patch.Text
	}
	if patch.Shape != nil {
		node.Shape = *patch.Shape
	}
	if patch.Style != nil {
		node.Style = patch.Style.Clone()
	}
	if patch.CSSClasses != nil {
		node.CSSClasses = append([]string(nil), *patch.CSSClasses...)
	}
	m.emit(Event{Kind: EventNodeUpdate, Node: copyOf(node), PrevNode: before})
	return true
}

// Node returns the node with the given ID, or nil and false if not found.
// The pointer refers to the live node, so layout code may write Bounds
// and Position directly.
func (m *Model) Node(id string) (*Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// HasNode reports whether a node with the given ID exists.
func (m *Model) HasNode(id string) bool {
	_, ok := m.nodes[id]
	return ok
}

// Nodes returns all nodes in insertion order. The slice is freshly
// allocated but the pointers refer to the live nodes.
func (m *Model) Nodes() []*Node {
	out := make([]*Node, 0, len(m.nodeOrder))
	for _, id := range m.nodeOrder {
		out = append(out, m.nodes[id])
	}
	return out
}

// NodeCount returns the number of nodes.
func (m *Model) NodeCount() int { return len(m.nodes) }

// =============================================================================
// Edge Operations
// =============================================================================

// AddEdge adds a directed edge between two existing nodes and returns the
// edge ID. Returns ErrUnknownSourceNode or ErrUnknownTargetNode for a
// dangling endpoint; the model is unchanged on error.
//
// When the edge carries no explicit ID one is derived from source, target
// and an ordinal. The ordinal is re-derived from the highest one currently
// in use for the pair, so IDs stay unique even after deletions.
func (m *Model) AddEdge(e Edge) (string, error) {
	if _, ok := m.nodes[e.Source]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSourceNode, e.Source)
	}
	if _, ok := m.nodes[e.Target]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTargetNode, e.Target)
	}
	if e.ID == "" {
		e.ID = m.nextEdgeID(e.Source, e.Target)
	} else if _, exists := m.edgeIndex[e.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateEdgeID, e.ID)
	}
	edge := &e
	m.edges = append(m.edges, edge)
	m.edgeIndex[edge.ID] = edge
	m.emit(Event{Kind: EventEdgeAdd, Edge: edgeCopy(edge)})
	return edge.ID, nil
}

// RemoveEdge removes the edge with the given ID. Removing an absent ID is
// a no-op.
func (m *Model) RemoveEdge(id string) {
	edge, ok := m.edgeIndex[id]
	if !ok {
		return
	}
	delete(m.edgeIndex, id)
	for i, e := range m.edges {
		if e.ID == id {
			m.edges = append(m.edges[:i], m.edges[i+1:]...)
			break
		}
	}
	m.emit(Event{Kind: EventEdgeRemove, Edge: edgeCopy(edge)})
}

// UpdateEdge merges the patch into the edge. Updating an absent ID is a
// silent no-op; the return value reports whether an update was applied.
func (m *Model) UpdateEdge(id string, patch EdgePatch) bool {
	edge, ok := m.edgeIndex[id]
	if !ok {
		return false
	}
	before := edgeCopy(edge)
	if patch.Text != nil {
		edge.Text = *patch.Text
	}
	if patch.Stroke != nil {
		edge.Stroke = *patch.Stroke
	}
	if patch.ArrowStart != nil {
		edge.ArrowStart = *patch.ArrowStart
	}
	if patch.ArrowEnd != nil {
		edge.ArrowEnd = *patch.ArrowEnd
	}
	if patch.Animate != nil {
		edge.Animate = *patch.Animate
	}
	m.emit(Event{Kind: EventEdgeUpdate, Edge: edgeCopy(edge), PrevEdge: before})
	return true
}

// Edge returns the edge with the given ID, or nil and false if not found.
func (m *Model) Edge(id string) (*Edge, bool) {
	e, ok := m.edgeIndex[id]
	return e, ok
}

// Edges returns all edges in insertion order. The slice is freshly
// allocated but the pointers refer to the live edges.
func (m *Model) Edges() []*Edge {
	out := make([]*Edge, len(m.edges))
	copy(out, m.edges)
	return out
}

// EdgesFor returns every edge that references the node as source or
// target, in insertion order.
func (m *Model) EdgesFor(id string) []*Edge {
	var out []*Edge
	for _, e := range m.edges {
		if e.Source == id || e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// EdgesBetween returns every edge from source to target, in insertion
// order. Reverse edges are not included.
func (m *Model) EdgesBetween(source, target string) []*Edge {
	var out []*Edge
	for _, e := range m.edges {
		if e.Source == source && e.Target == target {
			out = append(out, e)
		}
	}
	return out
}

// EdgeCount returns the number of edges.
func (m *Model) EdgeCount() int { return len(m.edges) }

// nextEdgeID derives a fresh edge ID for the pair. IDs have the form
// source_target_N; N is one past the highest ordinal currently in use so
// that deleting and re-adding edges never collides.
func (m *Model) nextEdgeID(source, target string) string {
	prefix := source + "_" + target + "_"
	max := -1
	for id := range m.edgeIndex {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if n, err := strconv.Atoi(id[len(prefix):]); err == nil && n > max {
			max = n
		}
	}
	return prefix + strconv.Itoa(max+1)
}

// =============================================================================
// SubGraph Operations
// =============================================================================

// AddSubGraph adds a subgraph block. Title defaults to the ID when empty.
// Returns ErrInvalidSubGraphID when the ID is empty and
// ErrDuplicateSubGraphID when the ID is already taken.
func (m *Model) AddSubGraph(sg SubGraph) error {
	if sg.ID == "" {
		return ErrInvalidSubGraphID
	}
	if _, exists := m.sgIndex[sg.ID]; exists {
		return ErrDuplicateSubGraphID
	}
	if sg.Title == "" {
		sg.Title = sg.ID
	}
	s := &sg
	m.subgraphs = append(m.subgraphs, s)
	m.sgIndex[s.ID] = s
	return nil
}

// SubGraph returns the subgraph with the given ID, or nil and false.
func (m *Model) SubGraph(id string) (*SubGraph, bool) {
	sg, ok := m.sgIndex[id]
	return sg, ok
}

// SubGraphs returns all subgraphs in insertion order.
func (m *Model) SubGraphs() []*SubGraph {
	out := make([]*SubGraph, len(m.subgraphs))
	copy(out, m.subgraphs)
	return out
}

// AssignToSubGraph appends the node to the subgraph's member list if it
// is not already a member. Unknown subgraph IDs are ignored.
func (m *Model) AssignToSubGraph(sgID, nodeID string) {
	sg, ok := m.sgIndex[sgID]
	if !ok {
		return
	}
	for _, id := range sg.Nodes {
		if id == nodeID {
			return
		}
	}
	sg.Nodes = append(sg.Nodes, nodeID)
}

// MemberOf returns the ID of the subgraph containing the node, or "" when
// the node belongs to no block.
func (m *Model) MemberOf(nodeID string) string {
	for _, sg := range m.subgraphs {
		for _, id := range sg.Nodes {
			if id == nodeID {
				return sg.ID
			}
		}
	}
	return ""
}

// =============================================================================
// Class Definitions
// =============================================================================

// AddClassDef registers a named style bundle. Re-defining a name replaces
// its style, matching the grammar's last-definition-wins rule.
func (m *Model) AddClassDef(cd ClassDef) {
	if existing, ok := m.classIndex[cd.Name]; ok {
		existing.Style = cd.Style.Clone()
		return
	}
	c := &cd
	c.Style = cd.Style.Clone()
	m.classDefs = append(m.classDefs, c)
	m.classIndex[c.Name] = c
}

// ClassDef returns the class definition with the given name, or nil and
// false.
func (m *Model) ClassDef(name string) (*ClassDef, bool) {
	cd, ok := m.classIndex[name]
	return cd, ok
}

// ClassDefs returns all class definitions in insertion order.
func (m *Model) ClassDefs() []*ClassDef {
	out := make([]*ClassDef, len(m.classDefs))
	copy(out, m.classDefs)
	return out
}

// AssignClass appends the class name to the node's class list if not
// already present. Unknown node IDs are ignored.
func (m *Model) AssignClass(nodeID, class string) {
	node, ok := m.nodes[nodeID]
	if !ok {
		return
	}
	for _, c := range node.CSSClasses {
		if c == class {
			return
		}
	}
	node.CSSClasses = append(node.CSSClasses, class)
}

// =============================================================================
// Helpers
// =============================================================================

func deleteString(s []string, v string) []string {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func copyOf(n *Node) *Node {
	c := n.Clone()
	return &c
}

func edgeCopy(e *Edge) *Edge {
	c := e.Clone()
	return &c
}
