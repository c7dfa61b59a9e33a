// Package layout computes node bounds and edge routes for a diagram by
// delegating to Graphviz.
//
// The model itself never computes layout: this package reads the node
// and edge collections, runs the dot engine, and writes the resulting
// bounds and spline points back onto the model. The sync engine's
// position side-table then takes over for interactive moves.
package layout

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/flowsync/pkg/flow"
)

// ToDOT converts a diagram model to Graphviz DOT format. The resulting
// DOT string can be laid out with [Compute] or rendered with
// [RenderSVG].
//
// Subgraphs become Graphviz clusters; interior directions are emitted as
// cluster rankdir attributes (honored by newer dot engines, ignored
// otherwise).
func ToDOT(m *flow.Model) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir(m.Direction()))
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	clustered := map[string]bool{}
	for _, sg := range m.SubGraphs() {
		fmt.Fprintf(&buf, "  subgraph \"cluster_%s\" {\n", sg.ID)
		fmt.Fprintf(&buf, "    label=%q;\n", sg.Title)
		if sg.Direction != "" {
			fmt.Fprintf(&buf, "    rankdir=%s;\n", rankdir(sg.Direction))
		}
		for _, id := range sg.Nodes {
			n, ok := m.Node(id)
			if !ok {
				continue
			}
			clustered[id] = true
			fmt.Fprintf(&buf, "    %q [%s];\n", n.ID, strings.Join(nodeAttrs(n), ", "))
		}
		buf.WriteString("  }\n")
	}

	for _, n := range m.Nodes() {
		if clustered[n.ID] {
			continue
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n), ", "))
	}

	buf.WriteString("\n")
	for _, e := range m.Edges() {
		attrs := edgeAttrs(e)
		if len(attrs) > 0 {
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func rankdir(d flow.Direction) string {
	switch d {
	case flow.DirectionBT:
		return "BT"
	case flow.DirectionLR:
		return "LR"
	case flow.DirectionRL:
		return "RL"
	default:
		return "TB"
	}
}

func nodeAttrs(n *flow.Node) []string {
	attrs := []string{fmt.Sprintf("label=%q", n.Text)}

	switch n.Shape {
	case flow.ShapeRounded:
		attrs = append(attrs, "style=rounded")
	case flow.ShapeStadium:
		attrs = append(attrs, "shape=oval")
	case flow.ShapeCircle:
		attrs = append(attrs, "shape=circle")
	case flow.ShapeDoubleCircle:
		attrs = append(attrs, "shape=doublecircle")
	case flow.ShapeDiamond:
		attrs = append(attrs, "shape=diamond")
	case flow.ShapeHexagon:
		attrs = append(attrs, "shape=hexagon")
	case flow.ShapeCylinder:
		attrs = append(attrs, "shape=cylinder")
	case flow.ShapeSubroutine:
		attrs = append(attrs, "peripheries=2")
	case flow.ShapeParallelogram:
		attrs = append(attrs, "shape=parallelogram")
	case flow.ShapeOdd:
		attrs = append(attrs, "shape=cds")
	}

	if fill, ok := n.Style["fill"]; ok {
		attrs = append(attrs, "style=filled", fmt.Sprintf("fillcolor=%q", fill))
	}
	return attrs
}

func edgeAttrs(e *flow.Edge) []string {
	var attrs []string
	if e.Text != "" {
		attrs = append(attrs, fmt.Sprintf("label=%q", e.Text))
	}

	switch e.Stroke {
	case flow.StrokeThick:
		attrs = append(attrs, "penwidth=2")
	case flow.StrokeDotted:
		attrs = append(attrs, "style=dashed")
	case flow.StrokeInvisible:
		attrs = append(attrs, "style=invis")
	}

	switch {
	case e.ArrowStart != flow.ArrowNone && e.ArrowEnd != flow.ArrowNone:
		attrs = append(attrs, "dir=both")
	case e.ArrowStart != flow.ArrowNone:
		attrs = append(attrs, "dir=back")
	case e.ArrowEnd == flow.ArrowNone:
		attrs = append(attrs, "dir=none")
	}

	if head := arrowShape(e.ArrowEnd); head != "" && head != "normal" {
		attrs = append(attrs, "arrowhead="+head)
	}
	if tail := arrowShape(e.ArrowStart); tail != "" && tail != "normal" {
		attrs = append(attrs, "arrowtail="+tail)
	}
	return attrs
}

func arrowShape(a flow.ArrowType) string {
	switch a {
	case flow.ArrowPoint:
		return "normal"
	case flow.ArrowCircle:
		return "odot"
	case flow.ArrowCross:
		return "tee"
	}
	return ""
}
