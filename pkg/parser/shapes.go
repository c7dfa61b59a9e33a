package parser

import (
	"strconv"
	"strings"

	"github.com/matzehuels/flowsync/pkg/flow"
)

// bracketShapes maps the legacy bracket syntax to the shape enumeration.
// Openers are matched in order, so longer tokens must come before their
// prefixes ((( before (( before ().
var bracketShapes = []struct {
	open  string
	close string
	shape flow.Shape
}{
	{"(((", ")))", flow.ShapeDoubleCircle},
	{"([", "])", flow.ShapeStadium},
	{"((", "))", flow.ShapeCircle},
	{"(", ")", flow.ShapeRounded},
	{"[[", "]]", flow.ShapeSubroutine},
	{"[(", ")]", flow.ShapeCylinder},
	{"[/", "/]", flow.ShapeParallelogram},
	{"[\\", "\\]", flow.ShapeParallelogram},
	{"[", "]", flow.ShapeRect},
	{"{{", "}}", flow.ShapeHexagon},
	{"{", "}", flow.ShapeDiamond},
	{">", "]", flow.ShapeOdd},
}

// shapeFromName maps attribute-object shape keywords onto the same
// enumeration the bracket syntax produces. Unknown keywords degrade to
// the default rectangle; the second return value reports recognition.
func shapeFromName(name string) (flow.Shape, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rect", "rectangle", "proc", "process":
		return flow.ShapeRect, true
	case "rounded", "event":
		return flow.ShapeRounded, true
	case "stadium", "pill", "terminal":
		return flow.ShapeStadium, true
	case "circle", "circ":
		return flow.ShapeCircle, true
	case "dbl-circ", "double-circle":
		return flow.ShapeDoubleCircle, true
	case "diamond", "diam", "decision", "question":
		return flow.ShapeDiamond, true
	case "hex", "hexagon", "prepare":
		return flow.ShapeHexagon, true
	case "cyl", "cylinder", "database", "db":
		return flow.ShapeCylinder, true
	case "subroutine", "subproc", "subprocess", "framed-rectangle":
		return flow.ShapeSubroutine, true
	case "lean-r", "lean-l", "parallelogram", "in-out", "out-in":
		return flow.ShapeParallelogram, true
	case "odd":
		return flow.ShapeOdd, true
	}
	return flow.ShapeRect, false
}

// parseAttrObject decodes the body of an id@{...} attribute object. Only
// shape and label keys are modeled; unknown keys and unknown shape names
// degrade gracefully.
func parseAttrObject(inner string) (label string, shape flow.Shape) {
	shape = flow.ShapeRect
	for _, part := range splitTopLevel(inner, ',') {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		switch key {
		case "shape":
			shape, _ = shapeFromName(stripQuotes(val))
		case "label":
			label = cleanText(val)
		}
	}
	return label, shape
}

// splitTopLevel splits on sep outside double quotes.
func splitTopLevel(s string, sep byte) []string {
	var (
		out     []string
		start   int
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"':
			inQuote = !inQuote
		case !inQuote && s[i] == sep:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

// cleanText normalizes display text from the grammar: trims whitespace,
// strips one layer of surrounding quotes and decodes entity escapes.
func cleanText(s string) string {
	return decodeEntities(stripQuotes(strings.TrimSpace(s)))
}

func stripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// decodeEntities resolves the entity escapes the serializer emits for
// characters the grammar cannot carry literally: #quot; and numeric
// #NN; escapes.
func decodeEntities(s string) string {
	if !strings.ContainsRune(s, '#') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != '#' {
			b.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			b.WriteByte(s[i])
			i++
			continue
		}
		name := s[i+1 : i+end]
		switch {
		case name == "quot":
			b.WriteByte('"')
			i += end + 1
		default:
			if n, err := strconv.Atoi(name); err == nil && n > 0 {
				b.WriteRune(rune(n))
				i += end + 1
			} else {
				b.WriteByte(s[i])
				i++
			}
		}
	}
	return b.String()
}
