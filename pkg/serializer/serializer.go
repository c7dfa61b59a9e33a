// Package serializer projects a [flow.Model] back into canonical
// flowchart text.
//
// The projection is deterministic: statements follow insertion order, so
// serializing an unchanged model twice produces byte-identical output.
// Re-parsing the output reproduces an equivalent model (same nodes,
// edges, attributes and subgraph membership); layout positions are not
// expressible in the text form and are carried separately by the sync
// engine.
package serializer

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/flowsync/pkg/flow"
)

const indent = "    "

// Serialize emits the canonical text form of the model: a direction
// header, one statement per node, one statement per edge, subgraph
// blocks, then classDef, class and style statements.
func Serialize(m *flow.Model) string {
	var b strings.Builder

	dir := m.Direction()
	if dir == "" {
		dir = flow.DefaultDirection
	}
	fmt.Fprintf(&b, "flowchart %s\n", dir)

	for _, n := range m.Nodes() {
		b.WriteString(indent)
		b.WriteString(nodeStatement(n))
		b.WriteByte('\n')
	}

	for _, e := range m.Edges() {
		b.WriteString(indent)
		b.WriteString(edgeStatement(e))
		b.WriteByte('\n')
	}

	for _, sg := range m.SubGraphs() {
		writeSubGraph(&b, sg)
	}

	writeClasses(&b, m)
	writeStyles(&b, m)

	return b.String()
}

// nodeStatement emits the minimal syntax for a node: the bare identifier
// when text and shape carry no information, otherwise the shape brackets
// around the text.
func nodeStatement(n *flow.Node) string {
	if n.Shape == flow.ShapeRect && n.Text == n.ID {
		return n.ID
	}
	open, closer := shapeBrackets(n.Shape)
	return n.ID + open + quoteText(n.Text) + closer
}

// shapeBrackets returns the canonical bracket pair for each shape. The
// switch is total over the enumeration; the compiler default is never
// reached for valid models.
func shapeBrackets(s flow.Shape) (string, string) {
	switch s {
	case flow.ShapeRect:
		return "[", "]"
	case flow.ShapeRounded:
		return "(", ")"
	case flow.ShapeStadium:
		return "([", "])"
	case flow.ShapeCircle:
		return "((", "))"
	case flow.ShapeDoubleCircle:
		return "(((", ")))"
	case flow.ShapeDiamond:
		return "{", "}"
	case flow.ShapeHexagon:
		return "{{", "}}"
	case flow.ShapeCylinder:
		return "[(", ")]"
	case flow.ShapeSubroutine:
		return "[[", "]]"
	case flow.ShapeParallelogram:
		return "[/", "/]"
	case flow.ShapeOdd:
		return ">", "]"
	}
	return "[", "]"
}

// edgeStatement encodes stroke, start arrowhead and end arrowhead back
// into the single correct operator token. A truly symmetric edge gets the
// bidirectional operator; a pair of reverse unidirectional edges was
// never collapsed into one Edge by the parser, so each keeps its own
// statement here.
func edgeStatement(e *flow.Edge) string {
	op := operator(e)
	if e.Text != "" {
		return fmt.Sprintf("%s %s|%s| %s", e.Source, op, quoteText(e.Text), e.Target)
	}
	return fmt.Sprintf("%s %s %s", e.Source, op, e.Target)
}

// operator builds the edge operator token. Invisible edges cannot carry
// arrowheads in the grammar; their arrow configuration is dropped.
func operator(e *flow.Edge) string {
	if e.Stroke == flow.StrokeInvisible {
		return "~~~"
	}

	var body string
	switch e.Stroke {
	case flow.StrokeThick:
		body = "=="
	case flow.StrokeDotted:
		body = "-.-"
	default:
		body = "--"
	}

	start := startToken(e.ArrowStart)
	end := endToken(e.ArrowEnd)
	if start == "" && end == "" && e.Stroke != flow.StrokeDotted {
		// Open links need the three-character body (---, ===).
		body += string(body[0])
	}
	return start + body + end
}

func startToken(a flow.ArrowType) string {
	switch a {
	case flow.ArrowPoint:
		return "<"
	case flow.ArrowCircle:
		return "o"
	case flow.ArrowCross:
		return "x"
	}
	return ""
}

func endToken(a flow.ArrowType) string {
	switch a {
	case flow.ArrowPoint:
		return ">"
	case flow.ArrowCircle:
		return "o"
	case flow.ArrowCross:
		return "x"
	}
	return ""
}

func writeSubGraph(b *strings.Builder, sg *flow.SubGraph) {
	b.WriteString(indent)
	if sg.Title != "" && sg.Title != sg.ID {
		fmt.Fprintf(b, "subgraph %s [%s]\n", sg.ID, quoteText(sg.Title))
	} else {
		fmt.Fprintf(b, "subgraph %s\n", sg.ID)
	}
	if sg.Direction != "" {
		fmt.Fprintf(b, "%s%sdirection %s\n", indent, indent, sg.Direction)
	}
	for _, id := range sg.Nodes {
		fmt.Fprintf(b, "%s%s%s\n", indent, indent, id)
	}
	b.WriteString(indent)
	b.WriteString("end\n")
}

// writeClasses emits classDef statements in definition order, then class
// assignments grouped by class name in first-assignment order.
func writeClasses(b *strings.Builder, m *flow.Model) {
	for _, cd := range m.ClassDefs() {
		fmt.Fprintf(b, "%sclassDef %s %s\n", indent, cd.Name, styleList(cd.Style))
	}

	var order []string
	members := map[string][]string{}
	for _, n := range m.Nodes() {
		for _, c := range n.CSSClasses {
			if _, seen := members[c]; !seen {
				order = append(order, c)
			}
			members[c] = append(members[c], n.ID)
		}
	}
	for _, c := range order {
		fmt.Fprintf(b, "%sclass %s %s\n", indent, strings.Join(members[c], ","), c)
	}
}

func writeStyles(b *strings.Builder, m *flow.Model) {
	for _, n := range m.Nodes() {
		if len(n.Style) == 0 {
			continue
		}
		fmt.Fprintf(b, "%sstyle %s %s\n", indent, n.ID, styleList(n.Style))
	}
}

// styleList renders a style map as a comma-separated key:value list with
// sorted keys for determinism.
func styleList(s flow.Style) string {
	keys := slices.Sorted(maps.Keys(s))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + s[k]
	}
	return strings.Join(parts, ",")
}

// quoteText emits display text, quoting and escaping when it contains
// characters the surrounding syntax would otherwise swallow.
func quoteText(s string) string {
	escaped := encodeEntities(s)
	if needsQuotes(escaped) {
		return `"` + escaped + `"`
	}
	return escaped
}

func needsQuotes(s string) bool {
	if s == "" {
		return false
	}
	if strings.ContainsAny(s, `[](){}|/\<>&`) {
		return true
	}
	return s[0] == ' ' || s[len(s)-1] == ' '
}

// encodeEntities escapes the characters the grammar cannot carry
// literally, mirroring the parser's decoder.
func encodeEntities(s string) string {
	if !strings.ContainsAny(s, "\";|#\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString("#quot;")
		case ';':
			b.WriteString("#59;")
		case '|':
			b.WriteString("#124;")
		case '#':
			b.WriteString("#35;")
		case '\n':
			b.WriteString("#10;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
