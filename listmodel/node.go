package listmodel

import (
	"fmt"

	"anchordoc/listmodel/ostree"
	"anchordoc/position"
	"anchordoc/util/bigint"
	"anchordoc/util/colx"
)

// NodeType tells what a node's run currently holds.
type NodeType byte

const (
	// DataNode holds live elements.
	DataNode NodeType = iota
	// RemovalNode is a tombstone kept for anchor visibility.
	RemovalNode
	// DummyNode is a detached placeholder used while merging.
	DummyNode
)

func (t NodeType) String() string {
	switch t {
	case DataNode:
		return "DATA"
	case RemovalNode:
		return "REMOVAL"
	case DummyNode:
		return "DUMMY"
	default:
		return fmt.Sprintf("NodeType(%d)", byte(t))
	}
}

// AnchorNode is a maximal run of contiguous logical positions. Besides
// the run itself it remembers the logical neighbourhood it was inserted
// into: the left and right anchors. Anchors only ever move inward, and
// overlapping anchor ranges are what the conflict bookkeeping tracks.
type AnchorNode struct {
	start  position.Position
	length int
	typ    NodeType
	clock  bigint.Int

	// Anchors; nil means the document start (left) or end (right).
	left  position.Position
	right position.Position

	conflict colx.Set[*AnchorNode]

	// tnode is the ordered-index handle; nil for detached dummies.
	tnode *ostree.Node[*AnchorNode]
	// value is the local offset of a detached dummy.
	value int
}

// Start returns the run's first logical position.
func (n *AnchorNode) Start() position.Position {
	return n.start
}

// End returns the position one past the run's last atom.
func (n *AnchorNode) End() position.Position {
	return n.start.OffsetLowest(n.length)
}

// Length returns the number of atoms in the run.
func (n *AnchorNode) Length() int {
	return n.length
}

// Type returns the node type.
func (n *AnchorNode) Type() NodeType {
	return n.typ
}

// Clock returns the node's removal clock.
func (n *AnchorNode) Clock() bigint.Int {
	return n.clock
}

// LeftAnchor returns the left anchor; nil means the document start.
func (n *AnchorNode) LeftAnchor() position.Position {
	return n.left
}

// RightAnchor returns the right anchor; nil means the document end.
func (n *AnchorNode) RightAnchor() position.Position {
	return n.right
}

// LdocLength returns the node's width in the local document.
func (n *AnchorNode) LdocLength() int {
	if n.typ == DataNode {
		return n.length
	}
	return 0
}

// LdocStart returns the node's local document offset.
func (n *AnchorNode) LdocStart() int {
	if n.tnode == nil {
		return n.value
	}
	return n.tnode.Offset()
}

// LdocEnd returns the local offset one past the node's last element.
func (n *AnchorNode) LdocEnd() int {
	return n.LdocStart() + n.LdocLength()
}

// trueLeft is the anchor that survives removal. The stored value is the
// same for data and tombstones; patch passes treat tombstones as
// transparent when resolving visibility.
func (n *AnchorNode) trueLeft() position.Position {
	return n.left
}

func (n *AnchorNode) trueRight() position.Position {
	return n.right
}

// reduceLeft moves the left anchor inward to p. Anchors never widen.
func (n *AnchorNode) reduceLeft(d *Document, p position.Position) {
	if p == nil {
		return
	}
	if n.left == nil || p.Cmp(n.left, d.bo) > 0 {
		n.left = p.Copy()
	}
}

// reduceRight moves the right anchor inward to p.
func (n *AnchorNode) reduceRight(d *Document, p position.Position) {
	if p == nil {
		return
	}
	if n.right == nil || p.Cmp(n.right, d.bo) < 0 {
		n.right = p.Copy()
	}
}

func (n *AnchorNode) String() string {
	l, r := "<start>", "<end>"
	if n.left != nil {
		l = n.left.String()
	}
	if n.right != nil {
		r = n.right.String()
	}
	return fmt.Sprintf("[%s %s+%d ldoc=%d clk=%s anchors=(%s,%s)]",
		n.typ, n.start, n.length, n.LdocStart(), n.clock, l, r)
}

// NodeView is a plain snapshot of a node, convenient for comparing
// replica states in tests and diagnostics. Positions are rendered as
// strings so views compare with plain equality.
type NodeView struct {
	Start     string
	Length    int
	Type      string
	Clock     string
	LdocStart int
	Left      string
	Right     string
	Conflicts []string
}
