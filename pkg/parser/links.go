package parser

import (
	"fmt"
	"strings"

	"github.com/matzehuels/flowsync/pkg/flow"
)

// link is the decoded form of one edge operator token. The token encodes
// three independent dimensions: stroke, start arrowhead and end
// arrowhead. A token with arrows at both ends (e.g. <-->) is one
// bidirectional edge; two reverse unidirectional statements stay two
// edges.
type link struct {
	stroke flow.Stroke
	start  flow.ArrowType
	end    flow.ArrowType
	label  string
}

func isLinkChar(c byte) bool {
	return c == '-' || c == '=' || c == '.' || c == '~'
}

func isBoundary(c byte) bool {
	return c == 0 || c == ' ' || c == '\t' || c == '|'
}

func arrowFor(c byte) flow.ArrowType {
	switch c {
	case '<', '>':
		return flow.ArrowPoint
	case 'o':
		return flow.ArrowCircle
	case 'x':
		return flow.ArrowCross
	}
	return flow.ArrowNone
}

// parseLink decodes one edge operator at the scanner position, including
// inline (-- text -->) and pipe (-->|text|) label forms.
func parseLink(s *scanner) (link, error) {
	var l link

	switch c := s.peek(); {
	case c == '<' && isLinkChar(s.peekAt(1)):
		l.start = flow.ArrowPoint
		s.next()
	case (c == 'x' || c == 'o') && isLinkChar(s.peekAt(1)):
		l.start = arrowFor(c)
		s.next()
	}

	body := s.scanRun(isLinkChar)
	if body == "" {
		return l, fmt.Errorf("expected edge operator at column %d", s.pos+1)
	}
	l.end = s.scanEndArrow()

	stroke, standalone, err := classifyBody(body)
	if err != nil {
		return l, err
	}
	l.stroke = stroke

	if !standalone && l.start == flow.ArrowNone && l.end == flow.ArrowNone {
		// Minimal opener (--, ==, -.) with no arrowhead at either end:
		// inline label form. A start arrowhead (<--, o==) already makes
		// the operator complete.
		label, end, err := s.scanInlineLabel(stroke)
		if err != nil {
			return l, err
		}
		l.label = label
		l.end = end
	}

	s.skipSpaces()
	if s.peek() == '|' {
		s.next()
		text, ok := s.scanUntil("|")
		if !ok {
			return l, fmt.Errorf("unterminated edge label")
		}
		l.label = cleanText(text)
	}
	return l, nil
}

// classifyBody maps the operator's run of link characters to a stroke.
// standalone reports whether the run is a complete operator by itself
// (---, ===, -.-, ~~~); the two-character openers --, == and -. need an
// arrowhead or an inline label to be complete.
func classifyBody(body string) (stroke flow.Stroke, standalone bool, err error) {
	switch {
	case allOf(body, '-'):
		return flow.StrokeNormal, len(body) >= 3, nil
	case allOf(body, '='):
		return flow.StrokeThick, len(body) >= 3, nil
	case allOf(body, '~'):
		if len(body) < 3 {
			return 0, false, fmt.Errorf("malformed edge operator %q", body)
		}
		return flow.StrokeInvisible, true, nil
	case body[0] == '-' && strings.ContainsRune(body, '.'):
		// -.- / -..- are complete; -. opens an inline label.
		trimmed := strings.TrimLeft(body[1:], ".")
		switch trimmed {
		case "-":
			return flow.StrokeDotted, true, nil
		case "":
			return flow.StrokeDotted, false, nil
		}
	}
	return 0, false, fmt.Errorf("malformed edge operator %q", body)
}

func allOf(s string, c byte) bool {
	if len(s) < 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			return false
		}
	}
	return true
}

// =============================================================================
// Scanner
// =============================================================================

type scanner struct {
	src string
	pos int
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) peekAt(off int) byte {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) next() byte {
	c := s.peek()
	s.pos++
	return c
}

func (s *scanner) skipSpaces() {
	for !s.eof() && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
}

func (s *scanner) hasPrefix(p string) bool {
	return strings.HasPrefix(s.src[s.pos:], p)
}

func (s *scanner) rest() string { return s.src[s.pos:] }

// scanID reads a node identifier: letters, digits, underscore, dot and
// dash. A dash is only part of the identifier when it does not open an
// edge operator (A-b is an identifier, A--> is not).
func (s *scanner) scanID() string {
	start := s.pos
	for !s.eof() {
		c := s.src[s.pos]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '.':
			s.pos++
		case c == '-':
			if n := s.peekAt(1); n == '-' || n == '.' {
				return s.src[start:s.pos]
			}
			s.pos++
		default:
			return s.src[start:s.pos]
		}
	}
	return s.src[start:s.pos]
}

// scanRun consumes the longest run of characters accepted by pred.
func (s *scanner) scanRun(pred func(byte) bool) string {
	start := s.pos
	for !s.eof() && pred(s.src[s.pos]) {
		s.pos++
	}
	return s.src[start:s.pos]
}

// scanUntil consumes text up to the closing token, respecting double
// quotes, and positions the scanner past it. ok is false when the closer
// is missing.
func (s *scanner) scanUntil(closer string) (text string, ok bool) {
	start := s.pos
	inQuote := false
	for !s.eof() {
		if s.src[s.pos] == '"' {
			inQuote = !inQuote
			s.pos++
			continue
		}
		if !inQuote && s.hasPrefix(closer) {
			text = s.src[start:s.pos]
			s.pos += len(closer)
			return text, true
		}
		s.pos++
	}
	return "", false
}

func (s *scanner) scanEndArrow() flow.ArrowType {
	switch c := s.peek(); {
	case c == '>':
		s.next()
		return flow.ArrowPoint
	case (c == 'x' || c == 'o') && isBoundary(s.peekAt(1)):
		s.next()
		return arrowFor(c)
	}
	return flow.ArrowNone
}

// scanInlineLabel reads the text of an inline label form and the closing
// operator: A -- label --> B, A == label ==> B, A -. label .-> B.
func (s *scanner) scanInlineLabel(stroke flow.Stroke) (string, flow.ArrowType, error) {
	start := s.pos
	inQuote := false
	for !s.eof() {
		c := s.src[s.pos]
		if c == '"' {
			inQuote = !inQuote
			s.pos++
			continue
		}
		if !inQuote && s.closesInline(stroke) {
			label := cleanText(s.src[start:s.pos])
			end, err := s.consumeInlineCloser(stroke)
			return label, end, err
		}
		s.pos++
	}
	return "", flow.ArrowNone, fmt.Errorf("unterminated edge label")
}

func (s *scanner) closesInline(stroke flow.Stroke) bool {
	switch stroke {
	case flow.StrokeNormal:
		return s.hasPrefix("--")
	case flow.StrokeThick:
		return s.hasPrefix("==")
	case flow.StrokeDotted:
		return s.peek() == '.' && (s.peekAt(1) == '-' || s.peekAt(1) == '.')
	}
	return false
}

func (s *scanner) consumeInlineCloser(stroke flow.Stroke) (flow.ArrowType, error) {
	switch stroke {
	case flow.StrokeNormal:
		s.scanRun(func(c byte) bool { return c == '-' })
	case flow.StrokeThick:
		s.scanRun(func(c byte) bool { return c == '=' })
	case flow.StrokeDotted:
		s.scanRun(func(c byte) bool { return c == '.' })
		if s.scanRun(func(c byte) bool { return c == '-' }) == "" {
			return flow.ArrowNone, fmt.Errorf("malformed dotted edge operator")
		}
	}
	return s.scanEndArrow(), nil
}
