package layout

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flowsync/pkg/flow"
)

// Compute runs the dot engine over the model and writes the results
// back: node Bounds (top-left origin, points) and edge route Points.
// Existing interactive positions are overwritten; callers that want to
// keep user-moved nodes re-apply the side-table afterwards.
func Compute(ctx context.Context, m *flow.Model) error {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(ToDOT(m)))
	if err != nil {
		return fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.XDOT, &buf); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	return applyPositions(buf.String(), m)
}

var (
	// Graphviz wraps long attribute lines with backslash-newline.
	continuationRe = regexp.MustCompile(`\\\s*\n\s*`)

	stmtRe   = regexp.MustCompile(`(?s)([^;{}\[]+)\[(.*?)\];`)
	bbRe     = regexp.MustCompile(`bb="0,0,([0-9.]+),([0-9.]+)"`)
	posRe    = regexp.MustCompile(`\bpos="([^"]+)"`)
	widthRe  = regexp.MustCompile(`\bwidth="?([0-9.]+)"?`)
	heightRe = regexp.MustCompile(`\bheight="?([0-9.]+)"?`)
	edgeRe   = regexp.MustCompile(`"?([\w.-]+)"?\s*->\s*"?([\w.-]+)"?\s*$`)
)

// applyPositions parses the xdot output and writes bounds and points
// onto the model. Graphviz reports node centers in a y-up coordinate
// system in points; we convert to top-left origin with y growing down.
func applyPositions(xdot string, m *flow.Model) error {
	src := continuationRe.ReplaceAllString(xdot, "")

	bb := bbRe.FindStringSubmatch(src)
	if bb == nil {
		return fmt.Errorf("layout output missing bounding box")
	}
	canvasH, _ := strconv.ParseFloat(bb[2], 64)

	// Parallel edges between a pair come back in input order, which is
	// the model's edge order. Count occurrences to pair them up.
	pairSeen := map[string]int{}

	for _, stmt := range stmtRe.FindAllStringSubmatch(src, -1) {
		head := strings.TrimSpace(stmt[1])
		attrs := stmt[2]

		if em := edgeRe.FindStringSubmatch(head); em != nil {
			applyEdge(m, em[1], em[2], attrs, canvasH, pairSeen)
			continue
		}

		name := strings.Trim(head, `" `)
		if name == "graph" || name == "node" || name == "edge" || strings.HasPrefix(name, "cluster_") {
			continue
		}
		applyNode(m, name, attrs, canvasH)
	}
	return nil
}

func applyNode(m *flow.Model, id, attrs string, canvasH float64) {
	node, ok := m.Node(id)
	if !ok {
		return
	}
	pos := posRe.FindStringSubmatch(attrs)
	w := widthRe.FindStringSubmatch(attrs)
	h := heightRe.FindStringSubmatch(attrs)
	if pos == nil || w == nil || h == nil {
		return
	}

	center := strings.SplitN(pos[1], ",", 2)
	if len(center) != 2 {
		return
	}
	cx, _ := strconv.ParseFloat(center[0], 64)
	cy, _ := strconv.ParseFloat(center[1], 64)
	// Width and height are reported in inches; positions in points.
	wf, _ := strconv.ParseFloat(w[1], 64)
	hf, _ := strconv.ParseFloat(h[1], 64)
	wpt, hpt := wf*72, hf*72

	node.Bounds = &flow.Bounds{
		X:      cx - wpt/2,
		Y:      canvasH - cy - hpt/2,
		Width:  wpt,
		Height: hpt,
	}
	if node.Position == nil {
		node.Position = &flow.Point{X: node.Bounds.X, Y: node.Bounds.Y}
	}
}

func applyEdge(m *flow.Model, source, target, attrs string, canvasH float64, pairSeen map[string]int) {
	pair := source + "\x00" + target
	idx := pairSeen[pair]
	pairSeen[pair]++

	candidates := m.EdgesBetween(source, target)
	if idx >= len(candidates) {
		return
	}
	edge := candidates[idx]

	pos := posRe.FindStringSubmatch(attrs)
	if pos == nil {
		return
	}
	edge.Points = parseSpline(pos[1], canvasH)
}

// parseSpline decodes an edge pos attribute: optional e,x,y / s,x,y
// endpoint markers followed by spline control points.
func parseSpline(pos string, canvasH float64) []flow.Point {
	var points []flow.Point
	for _, tok := range strings.Fields(pos) {
		tok = strings.TrimPrefix(tok, "e,")
		tok = strings.TrimPrefix(tok, "s,")
		xy := strings.SplitN(tok, ",", 2)
		if len(xy) != 2 {
			continue
		}
		x, errX := strconv.ParseFloat(xy[0], 64)
		y, errY := strconv.ParseFloat(xy[1], 64)
		if errX != nil || errY != nil {
			continue
		}
		points = append(points, flow.Point{X: x, Y: canvasH - y})
	}
	return points
}
