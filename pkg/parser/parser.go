// Package parser converts flowchart text into a [flow.Model].
//
// Parsing is statement oriented: the document is split into lines (and
// semicolon-separated statements within a line), each of which is a
// direction header, a node or edge declaration, a subgraph delimiter, or
// a class/style statement. Nodes may be referenced before their explicit
// declaration; the parser creates implicit nodes on first mention and
// lets a later declaration overwrite text and shape (last definition
// wins).
//
// Unrecoverable syntax (an unterminated subgraph, a malformed attribute
// object) fails with a [*ParseError] carrying the offending line.
// Recoverable oddities such as an unknown shape keyword degrade to a
// default instead of aborting the parse.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matzehuels/flowsync/pkg/flow"
)

// ErrUnsupportedDialect is wrapped by the ParseError returned when the
// document header names a diagram family outside the flowchart grammar.
// Such documents are treated as opaque by callers.
var ErrUnsupportedDialect = errors.New("unsupported diagram dialect")

// ParseError reports malformed input with enough context to surface in a
// text editor: the 1-based line number and the offending statement.
type ParseError struct {
	Line int
	Stmt string
	Msg  string
	err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Stmt != "" {
		return fmt.Sprintf("line %d: %s: %q", e.Line, e.Msg, e.Stmt)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Unwrap returns the underlying sentinel, if any.
func (e *ParseError) Unwrap() error { return e.err }

// dialects lists diagram-family headers we recognize but do not model.
var dialects = map[string]bool{
	"sequenceDiagram": true,
	"classDiagram":    true,
	"stateDiagram":    true,
	"stateDiagram-v2": true,
	"erDiagram":       true,
	"gantt":           true,
	"pie":             true,
	"journey":         true,
	"gitGraph":        true,
	"mindmap":         true,
	"timeline":        true,
	"quadrantChart":   true,
	"sankey-beta":     true,
	"xychart-beta":    true,
	"block-beta":      true,
}

// statements the grammar defines but this model does not carry; they are
// skipped rather than rejected so documents using them still load.
var skippedKeywords = map[string]bool{
	"linkStyle": true,
	"click":     true,
	"accTitle":  true,
	"accDescr":  true,
}

// Parse converts a complete document into a fresh model. The input must
// start with a flowchart/graph header; the detected overall direction is
// available via [flow.Model.Direction].
func Parse(text string) (*flow.Model, error) {
	p := &parser{
		model:  flow.New(),
		member: make(map[string]bool),
	}
	for i, raw := range strings.Split(text, "\n") {
		p.line = i + 1
		for _, stmt := range splitStatements(raw) {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if err := p.statement(stmt); err != nil {
				return nil, err
			}
		}
	}
	if len(p.blocks) > 0 {
		open := p.blocks[len(p.blocks)-1]
		return nil, &ParseError{
			Line: open.line,
			Msg:  fmt.Sprintf("unterminated subgraph %q", open.sg.ID),
		}
	}
	if !p.headerSeen {
		return nil, &ParseError{Line: 1, Msg: "empty document: expected flowchart header"}
	}
	return p.model, nil
}

type openBlock struct {
	sg   *flow.SubGraph
	line int
}

type parser struct {
	model      *flow.Model
	blocks     []openBlock
	member     map[string]bool // node ID -> already assigned to a block
	headerSeen bool
	line       int
}

func (p *parser) errf(stmt, format string, args ...any) error {
	return &ParseError{Line: p.line, Stmt: stmt, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) statement(stmt string) error {
	if !p.headerSeen {
		return p.header(stmt)
	}

	kw := stmt
	if i := strings.IndexAny(stmt, " \t:"); i >= 0 {
		kw = stmt[:i]
	}

	switch kw {
	case "subgraph":
		return p.subgraph(strings.TrimSpace(stmt[len("subgraph"):]))
	case "end":
		if strings.TrimSpace(stmt) == "end" {
			if len(p.blocks) == 0 {
				return p.errf(stmt, "end without matching subgraph")
			}
			p.blocks = p.blocks[:len(p.blocks)-1]
			return nil
		}
	case "direction":
		return p.direction(stmt)
	case "classDef":
		return p.classDef(stmt)
	case "class":
		return p.classAssign(stmt)
	case "style":
		return p.styleStmt(stmt)
	}
	if skippedKeywords[kw] {
		return nil
	}
	return p.nodesAndLinks(stmt)
}

func (p *parser) header(stmt string) error {
	fields := strings.Fields(stmt)
	switch fields[0] {
	case "flowchart", "graph":
		p.headerSeen = true
		if len(fields) > 1 {
			d, ok := flow.ParseDirection(fields[1])
			if !ok {
				return p.errf(stmt, "unknown direction %q", fields[1])
			}
			p.model.SetDirection(d)
		}
		return nil
	}
	if dialects[fields[0]] {
		return &ParseError{
			Line: p.line,
			Stmt: stmt,
			Msg:  fmt.Sprintf("unsupported diagram dialect %q", fields[0]),
			err:  ErrUnsupportedDialect,
		}
	}
	return p.errf(stmt, "expected flowchart header, found %q", fields[0])
}

func (p *parser) subgraph(rest string) error {
	if rest == "" {
		return p.errf("subgraph", "subgraph requires an identifier")
	}
	s := &scanner{src: rest}
	id := s.scanID()
	if id == "" {
		return p.errf(rest, "subgraph requires an identifier")
	}
	title := ""
	s.skipSpaces()
	switch {
	case s.peek() == '[':
		s.next()
		inner, ok := s.scanUntil("]")
		if !ok {
			return p.errf(rest, "unterminated subgraph title")
		}
		title = cleanText(inner)
	case !s.eof():
		title = cleanText(s.rest())
	}

	sg, exists := p.model.SubGraph(id)
	if !exists {
		_ = p.model.AddSubGraph(flow.SubGraph{ID: id, Title: title})
		sg, _ = p.model.SubGraph(id)
	} else if title != "" {
		sg.Title = title
	}
	p.blocks = append(p.blocks, openBlock{sg: sg, line: p.line})
	return nil
}

func (p *parser) direction(stmt string) error {
	fields := strings.Fields(stmt)
	if len(fields) != 2 {
		return p.errf(stmt, "direction requires exactly one token")
	}
	d, ok := flow.ParseDirection(fields[1])
	if !ok {
		return p.errf(stmt, "unknown direction %q", fields[1])
	}
	if len(p.blocks) > 0 {
		p.blocks[len(p.blocks)-1].sg.Direction = d
	} else {
		p.model.SetDirection(d)
	}
	return nil
}

func (p *parser) classDef(stmt string) error {
	fields := strings.Fields(stmt)
	if len(fields) < 3 {
		return p.errf(stmt, "classDef requires a name and a style list")
	}
	style := parseStyle(strings.Join(fields[2:], " "))
	for _, name := range strings.Split(fields[1], ",") {
		if name = strings.TrimSpace(name); name != "" {
			p.model.AddClassDef(flow.ClassDef{Name: name, Style: style.Clone()})
		}
	}
	return nil
}

func (p *parser) classAssign(stmt string) error {
	fields := strings.Fields(stmt)
	if len(fields) != 3 {
		return p.errf(stmt, "class requires a node list and a class name")
	}
	for _, id := range strings.Split(fields[1], ",") {
		if id = strings.TrimSpace(id); id == "" {
			continue
		}
		p.ensureNode(id)
		p.model.AssignClass(id, fields[2])
	}
	return nil
}

func (p *parser) styleStmt(stmt string) error {
	fields := strings.Fields(stmt)
	if len(fields) < 3 {
		return p.errf(stmt, "style requires a node and a style list")
	}
	id := fields[1]
	p.ensureNode(id)
	node, _ := p.model.Node(id)
	style := parseStyle(strings.Join(fields[2:], " "))
	if node.Style == nil {
		node.Style = flow.Style{}
	}
	for k, v := range style {
		node.Style[k] = v
	}
	return nil
}

// nodesAndLinks parses a statement of alternating node groups and edge
// operators: A[Start] --> B & C --> D. Every (source, target) pair of
// adjacent groups produces one discrete edge sharing the operator's
// stroke and arrow configuration.
func (p *parser) nodesAndLinks(stmt string) error {
	s := &scanner{src: stmt}
	group, err := p.nodeGroup(s, stmt)
	if err != nil {
		return err
	}
	for {
		s.skipSpaces()
		if s.eof() {
			return nil
		}
		lnk, err := parseLink(s)
		if err != nil {
			return p.errf(stmt, "%v", err)
		}
		next, err := p.nodeGroup(s, stmt)
		if err != nil {
			return err
		}
		for _, src := range group {
			for _, dst := range next {
				_, _ = p.model.AddEdge(flow.Edge{
					Source:     src,
					Target:     dst,
					Text:       lnk.label,
					Stroke:     lnk.stroke,
					ArrowStart: lnk.start,
					ArrowEnd:   lnk.end,
				})
			}
		}
		group = next
	}
}

func (p *parser) nodeGroup(s *scanner, stmt string) ([]string, error) {
	var ids []string
	for {
		id, err := p.nodeTerm(s, stmt)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		s.skipSpaces()
		if s.peek() != '&' {
			return ids, nil
		}
		s.next()
		s.skipSpaces()
	}
}

// nodeTerm parses one node mention: an identifier with optional shape
// brackets or an @{...} attribute object, and registers it in the model.
func (p *parser) nodeTerm(s *scanner, stmt string) (string, error) {
	s.skipSpaces()
	id := s.scanID()
	if id == "" {
		return "", p.errf(stmt, "expected node identifier at column %d", s.pos+1)
	}

	hasDecl := false
	text := ""
	shape := flow.ShapeRect

	switch {
	case s.hasPrefix("@{"):
		s.pos += 2
		inner, ok := s.scanUntil("}")
		if !ok {
			return "", p.errf(stmt, "unterminated attribute object for %q", id)
		}
		text, shape = parseAttrObject(inner)
		if text == "" {
			text = id
		}
		hasDecl = true
	default:
		for _, bs := range bracketShapes {
			if !s.hasPrefix(bs.open) {
				continue
			}
			s.pos += len(bs.open)
			inner, ok := s.scanUntil(bs.close)
			if !ok {
				return "", p.errf(stmt, "unterminated %q shape for %q", bs.open, id)
			}
			text = cleanText(inner)
			shape = bs.shape
			hasDecl = true
			break
		}
	}

	if !p.model.HasNode(id) {
		n := flow.Node{ID: id}
		if hasDecl {
			n.Text = text
			n.Shape = shape
		}
		if err := p.model.AddNode(n); err != nil {
			return "", p.errf(stmt, "node %q: %v", id, err)
		}
	} else if hasDecl {
		// Last definition wins for text and shape.
		p.model.UpdateNode(id, flow.NodePatch{Text: &text, Shape: &shape})
	}

	p.assignMembership(id)
	return id, nil
}

func (p *parser) ensureNode(id string) {
	if !p.model.HasNode(id) {
		_ = p.model.AddNode(flow.Node{ID: id})
	}
	p.assignMembership(id)
}

// assignMembership adds the node to the innermost open subgraph block.
// A node joins at most one block; the first mention wins.
func (p *parser) assignMembership(id string) {
	if len(p.blocks) == 0 || p.member[id] {
		return
	}
	p.model.AssignToSubGraph(p.blocks[len(p.blocks)-1].sg.ID, id)
	p.member[id] = true
}

// =============================================================================
// Statement Splitting
// =============================================================================

// splitStatements splits a raw line on semicolons and strips %% comments,
// both quote-aware.
func splitStatements(raw string) []string {
	var (
		out     []string
		start   int
		inQuote bool
	)
	for i := 0; i < len(raw); i++ {
		switch {
		case raw[i] == '"':
			inQuote = !inQuote
		case !inQuote && raw[i] == ';':
			out = append(out, raw[start:i])
			start = i + 1
		case !inQuote && raw[i] == '%' && i+1 < len(raw) && raw[i+1] == '%':
			return append(out, raw[start:i])
		}
	}
	return append(out, raw[start:])
}

// parseStyle parses a comma-separated key:value list. Malformed entries
// are dropped rather than rejected.
func parseStyle(s string) flow.Style {
	style := flow.Style{}
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		k := strings.TrimSpace(kv[0])
		v := strings.TrimSpace(kv[1])
		if k != "" && v != "" {
			style[k] = v
		}
	}
	return style
}
