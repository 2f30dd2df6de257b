// Package listmodel implements a list document model: a Logoot-style
// CRDT engine that maps logical positions in a replicated sequence to
// offsets in a locally materialized document.
//
// The engine never sees the document content. Local edits come in as
// offset/length pairs and leave as logical envelopes for the peers;
// remote envelopes come in and leave as local Operation lists for the
// caller to apply to its own buffer. Applying the same set of logical
// operations in any order converges to the same state.
package listmodel

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"go.uber.org/zap"

	"anchordoc/branchorder"
	"anchordoc/listmodel/ostree"
	"anchordoc/position"
	"anchordoc/util/bigint"
)

var (
	// ErrInvalidArgument flags bad offsets or lengths. Recoverable.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInternal flags an index invariant broken mid-operation. The
	// instance is unsafe to continue using.
	ErrInternal = errors.New("internal invariant violation")
	// ErrCorrupt is reported by SelfTest when the model state is broken.
	ErrCorrupt = errors.New("list model state is corrupt")
)

// Document is a single replica's list document model.
// Not safe for concurrent use.
type Document struct {
	bo   *branchorder.Order
	tree *ostree.Tree[*AnchorNode]
	log  *zap.Logger
}

// Option configures a Document.
type Option func(*Document)

// WithLogger attaches a logger; merges log at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(d *Document) { d.log = l }
}

// New creates an empty document over the given branch order.
func New(bo *branchorder.Order, opts ...Option) *Document {
	d := &Document{
		bo:  bo,
		log: zap.NewNop(),
	}
	d.tree = ostree.New(func(a, b *AnchorNode) int {
		return a.start.Cmp(b.start, bo)
	})
	for _, o := range opts {
		o(d)
	}
	return d
}

// Length returns the local document length.
func (d *Document) Length() int {
	return d.tree.Total()
}

// Nodes iterates over all nodes in logical order, tombstones included.
func (d *Document) Nodes() iter.Seq[*AnchorNode] {
	return func(yield func(*AnchorNode) bool) {
		for tn := range d.tree.InOrder() {
			if !yield(tn.Item) {
				return
			}
		}
	}
}

func (d *Document) String() string {
	var sb strings.Builder
	for n := range d.Nodes() {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(n.String())
	}
	return sb.String()
}

// Snapshot renders every node as a NodeView, in logical order. Replicas
// that converged produce equal snapshots.
func (d *Document) Snapshot() []NodeView {
	var out []NodeView
	for n := range d.Nodes() {
		v := NodeView{
			Start:     n.start.String(),
			Length:    n.length,
			Type:      n.typ.String(),
			Clock:     n.clock.String(),
			LdocStart: n.LdocStart(),
		}
		if n.left != nil {
			v.Left = n.left.String()
		}
		if n.right != nil {
			v.Right = n.right.String()
		}
		for m := range n.conflict.All() {
			v.Conflicts = append(v.Conflicts, m.start.String())
		}
		slices.Sort(v.Conflicts)
		out = append(out, v)
	}
	return out
}

// addNode attaches a node to the ordered index.
func (d *Document) addNode(n *AnchorNode) {
	tn, err := d.tree.Add(n, n.LdocLength())
	if err != nil {
		panic(fmt.Sprintf("BUG: %v at %s", err, n.start))
	}
	n.tnode = tn
}

// conflictHolds reports whether, by the anchor rule, member belongs in
// owner's conflict set: a left neighbour conflicts when its right anchor
// reaches past the owner's start, a right neighbour when its left anchor
// reaches back before the owner's end.
func (d *Document) conflictHolds(member, owner *AnchorNode) bool {
	if member.start.Cmp(owner.start, d.bo) < 0 {
		tr := member.trueRight()
		return tr == nil || tr.Cmp(owner.start, d.bo) > 0
	}
	tl := member.trueLeft()
	return tl == nil || tl.Cmp(owner.End(), d.bo) < 0
}

// splitNode cuts the node's run at the given atom offset, keeping the
// left part in place and attaching a fresh right part. The halves share
// type and clock; the interior anchors meet at the cut so the halves do
// not read as conflicting with each other. Conflict memberships of both
// halves and their counterparts are refreshed by the anchor rule.
func (d *Document) splitNode(n *AnchorNode, off int) *AnchorNode {
	if off <= 0 || off >= n.length {
		panic("BUG: split offset outside the run")
	}

	right := &AnchorNode{
		start:  n.start.OffsetLowest(off),
		length: n.length - off,
		typ:    n.typ,
		clock:  n.clock,
		right:  n.right,
	}
	right.left = right.start

	n.length = off
	n.right = right.start

	for m := range n.conflict.All() {
		if d.conflictHolds(m, right) {
			right.conflict.Put(m)
		}
		if !d.conflictHolds(m, n) {
			n.conflict.Delete(m)
		}
		if m.conflict.Has(n) {
			if d.conflictHolds(right, m) {
				m.conflict.Put(right)
			}
			if !d.conflictHolds(n, m) {
				m.conflict.Delete(n)
			}
		}
	}

	if n.tnode != nil {
		d.tree.SetWidth(n.tnode, n.LdocLength())
	}
	d.addNode(right)
	return right
}

// InsertionRequest describes where a local insertion lands logically:
// the neighbours to generate positions between, and the clock the new
// run must carry. A nil Left or Right means the document edge.
type InsertionRequest struct {
	Left   position.Position
	Right  position.Position
	Clock  bigint.Int
	Length int
}

// InsertLocal resolves a local edit "insert length elements at start"
// into an insertion request for InsertLogoot. The model itself is not
// modified; it changes only when the resulting logical insertion is
// applied (usually echoed back through the transport).
func (d *Document) InsertLocal(start, length int) (InsertionRequest, error) {
	var zero InsertionRequest
	if start < 0 || length <= 0 {
		return zero, fmt.Errorf("%w: insert of %d elements at %d", ErrInvalidArgument, length, start)
	}
	if start > d.Length() {
		return zero, fmt.Errorf("%w: offset %d is past the document end %d", ErrInvalidArgument, start, d.Length())
	}

	touching, anchored := d.tree.OffsetSearch(start)

	// The new run must dominate every tombstone sitting at this offset.
	var clk bigint.Int
	var haveClk bool
	for _, group := range [][]*ostree.Node[*AnchorNode]{touching, anchored} {
		for _, tn := range group {
			n := tn.Item
			if n.typ == DataNode {
				continue
			}
			if !haveClk || n.clock.Cmp(clk) > 0 {
				clk = n.clock
				haveClk = true
			}
		}
	}
	if haveClk {
		clk = clk.AddInt64(1)
	}

	var lesser *AnchorNode
	for _, tn := range touching {
		n := tn.Item
		if n.typ != DataNode {
			continue
		}
		if lesser != nil {
			return zero, fmt.Errorf("%w: multiple data nodes touch offset %d", ErrInternal, start)
		}
		lesser = n
	}

	if lesser != nil && lesser.LdocEnd() > start {
		// Inserting strictly inside a run: a point insertion.
		p := lesser.start.OffsetLowest(start - lesser.LdocStart())
		return InsertionRequest{Left: p, Right: p, Clock: clk, Length: length}, nil
	}

	req := InsertionRequest{Clock: clk, Length: length}
	if lesser != nil {
		req.Left = lesser.End()
	}
	for _, tn := range anchored {
		if tn.Item.typ == DataNode {
			req.Right = tn.Item.start.Copy()
			break
		}
	}
	return req, nil
}
