package flow

// Direction controls the overall layout flow of a diagram or the interior
// of a subgraph block.
type Direction string

// Supported layout directions. TD is accepted as a synonym for TB at the
// grammar level but preserved as written for round-trip stability.
const (
	DirectionTB Direction = "TB"
	DirectionTD Direction = "TD"
	DirectionBT Direction = "BT"
	DirectionLR Direction = "LR"
	DirectionRL Direction = "RL"
)

// DefaultDirection is used when a document omits the direction token.
const DefaultDirection = DirectionTB

// ParseDirection maps a direction token to a Direction.
// The second return value is false for unknown tokens.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirectionTB, DirectionTD, DirectionBT, DirectionLR, DirectionRL:
		return Direction(s), true
	}
	return "", false
}

// Shape identifies the visual outline of a node. The zero value is
// ShapeRect, which is also the default when a declaration carries no
// shape syntax.
type Shape int

const (
	ShapeRect Shape = iota
	ShapeRounded
	ShapeStadium
	ShapeCircle
	ShapeDoubleCircle
	ShapeDiamond
	ShapeHexagon
	ShapeCylinder
	ShapeSubroutine
	ShapeParallelogram
	ShapeOdd
)

// String returns the canonical shape name as used in attribute objects.
func (s Shape) String() string {
	switch s {
	case ShapeRect:
		return "rect"
	case ShapeRounded:
		return "rounded"
	case ShapeStadium:
		return "stadium"
	case ShapeCircle:
		return "circle"
	case ShapeDoubleCircle:
		return "dbl-circ"
	case ShapeDiamond:
		return "diamond"
	case ShapeHexagon:
		return "hexagon"
	case ShapeCylinder:
		return "cylinder"
	case ShapeSubroutine:
		return "subroutine"
	case ShapeParallelogram:
		return "lean-r"
	case ShapeOdd:
		return "odd"
	}
	return "rect"
}

// ParseShape maps a canonical shape name back to a Shape. The second
// return value is false for unknown names.
func ParseShape(s string) (Shape, bool) {
	for sh := ShapeRect; sh <= ShapeOdd; sh++ {
		if sh.String() == s {
			return sh, true
		}
	}
	return ShapeRect, false
}

// Stroke is the line style of an edge.
type Stroke int

const (
	StrokeNormal Stroke = iota
	StrokeThick
	StrokeDotted
	StrokeInvisible
)

// ArrowType is the decoration at one end of an edge. Start and end are
// independently settable, which is what makes true bidirectional edges
// expressible as a single edge.
type ArrowType int

const (
	ArrowNone ArrowType = iota
	ArrowPoint
	ArrowCircle
	ArrowCross
)

// Point is a 2D coordinate. Positions are owned by the sync engine's
// side-table rather than the text form, which cannot express them.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Bounds is a node's laid-out box. It is written by the layout
// collaborator and never derived from text.
type Bounds struct {
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Style holds free-form presentation attributes (fill, stroke,
// stroke-width, color, ...). Keys and values are passed through verbatim.
type Style map[string]string

// Clone returns a copy of the style map, or nil for a nil map.
func (s Style) Clone() Style {
	if s == nil {
		return nil
	}
	out := make(Style, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Node is a vertex of the diagram. ID is the grammar token and must be
// unique within a Model. Text defaults to the ID for implicit nodes.
//
// Bounds and Position are layout concerns: Bounds is computed by the
// layout collaborator, Position is the persisted drag position merged in
// by the sync engine after every reparse.
type Node struct {
	ID         string   `json:"id" bson:"id"`
	Text       string   `json:"text" bson:"text"`
	Shape      Shape    `json:"shape" bson:"shape"`
	Style      Style    `json:"style,omitempty" bson:"style,omitempty"`
	CSSClasses []string `json:"css_classes,omitempty" bson:"css_classes,omitempty"`
	Bounds     *Bounds  `json:"bounds,omitempty" bson:"bounds,omitempty"`
	Position   *Point   `json:"position,omitempty" bson:"position,omitempty"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	out.Style = n.Style.Clone()
	if n.CSSClasses != nil {
		out.CSSClasses = append([]string(nil), n.CSSClasses...)
	}
	if n.Bounds != nil {
		b := *n.Bounds
		out.Bounds = &b
	}
	if n.Position != nil {
		p := *n.Position
		out.Position = &p
	}
	return out
}

// Edge is a directed connection between two existing nodes. An edge with
// arrows at both ends is a single bidirectional edge, which is distinct
// from two reverse unidirectional edges between the same pair.
//
// Points is the routing polyline written by the layout collaborator.
type Edge struct {
	ID             string    `json:"id" bson:"id"`
	Source         string    `json:"source" bson:"source"`
	Target         string    `json:"target" bson:"target"`
	Text           string    `json:"text,omitempty" bson:"text,omitempty"`
	Stroke         Stroke    `json:"stroke" bson:"stroke"`
	ArrowStart     ArrowType `json:"arrow_start" bson:"arrow_start"`
	ArrowEnd       ArrowType `json:"arrow_end" bson:"arrow_end"`
	Animate        bool      `json:"animate,omitempty" bson:"animate,omitempty"`
	AnimationSpeed string    `json:"animation_speed,omitempty" bson:"animation_speed,omitempty"`
	Points         []Point   `json:"points,omitempty" bson:"points,omitempty"`
}

// Clone returns a deep copy of the edge.
func (e Edge) Clone() Edge {
	out := e
	if e.Points != nil {
		out.Points = append([]Point(nil), e.Points...)
	}
	return out
}

// SubGraph groups member nodes for clustering during layout. Membership
// does not affect edge validity; nodes inside a block remain globally
// addressable. Direction, when set, applies only to the block's interior.
type SubGraph struct {
	ID        string    `json:"id" bson:"id"`
	Title     string    `json:"title" bson:"title"`
	Direction Direction `json:"direction,omitempty" bson:"direction,omitempty"`
	Nodes     []string  `json:"nodes" bson:"nodes"`
}

// ClassDef is a named style bundle applied to nodes by reference.
type ClassDef struct {
	Name  string `json:"name" bson:"name"`
	Style Style  `json:"style" bson:"style"`
}

// NodePatch describes a partial node update. Nil fields are left
// untouched; non-nil fields replace the current value.
type NodePatch struct {
	Text       *string
	Shape      *Shape
	Style      *Style
	CSSClasses *[]string
}

// EdgePatch describes a partial edge update. Nil fields are left
// untouched; non-nil fields replace the current value.
type EdgePatch struct {
	Text       *string
	Stroke     *Stroke
	ArrowStart *ArrowType
	ArrowEnd   *ArrowType
	Animate    *bool
}
