package pathway

// NodeHeight is the fixed visual height of a node on the canvas, used when
// stacking nodes in a column. Layouts are only reproducible across tools if
// this constant matches everywhere, so treat it as part of the format.
const NodeHeight = 120

// columnIndex maps each node type to its layout column. Problems start the
// flow on the left, actions end it on the right.
var columnIndex = map[NodeType]int{
	TypeProblem:   0,
	TypeCheck:     1,
	TypeCondition: 2,
	TypeAction:    3,
}

// columnOrder lists node types left to right, for full re-layouts.
var columnOrder = []NodeType{TypeProblem, TypeCheck, TypeCondition, TypeAction}

// LayoutSettings holds the geometry for columnar placement. The defaults
// are fixed; override individual fields only when the caller renders at a
// different scale.
type LayoutSettings struct {
	ColumnWidth  int `json:"column_width" bson:"column_width" toml:"column_width"`
	NodeMargin   int `json:"node_margin" bson:"node_margin" toml:"node_margin"`
	ColumnMargin int `json:"column_margin" bson:"column_margin" toml:"column_margin"`
	InitialX     int `json:"initial_x" bson:"initial_x" toml:"initial_x"`
	InitialY     int `json:"initial_y" bson:"initial_y" toml:"initial_y"`
}

// DefaultLayoutSettings returns the standard canvas geometry.
func DefaultLayoutSettings() LayoutSettings {
	return LayoutSettings{
		ColumnWidth:  250,
		NodeMargin:   20,
		ColumnMargin: 50,
		InitialX:     50,
		InitialY:     50,
	}
}

// columnX returns the x coordinate of the column for the given type.
func (s LayoutSettings) columnX(t NodeType) int {
	return s.InitialX + columnIndex[t]*(s.ColumnWidth+s.ColumnMargin)
}

// CalculatePosition computes where a new node of the given type should be
// placed: at its type's column, below the lowest existing node of the same
// type (bottom edge plus the node margin), or at the initial y when the
// column is empty.
func (p *Pathway) CalculatePosition(t NodeType) Position {
	maxY := p.Layout.InitialY
	for _, n := range p.nodes {
		if n.Type == t {
			bottom := n.Position.Y + NodeHeight
			if bottom+p.Layout.NodeMargin > maxY {
				maxY = bottom + p.Layout.NodeMargin
			}
		}
	}
	return Position{X: p.Layout.columnX(t), Y: maxY}
}

// AutoLayout repositions every node into its type's column, stacking nodes
// top to bottom in insertion order. Each column's y cursor starts at the
// initial y and advances by the node height plus the node margin.
func (p *Pathway) AutoLayout() {
	for _, t := range columnOrder {
		x := p.Layout.columnX(t)
		y := p.Layout.InitialY
		for _, n := range p.nodesOfType(t) {
			n.SetPosition(x, y)
			y += NodeHeight + p.Layout.NodeMargin
		}
	}
	p.touch()
}
