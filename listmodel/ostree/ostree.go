// Package ostree implements an order-statistic balanced search tree.
//
// The tree is keyed by a caller-supplied comparator and every node is
// augmented with a width: the number of local-document slots its item
// occupies. Subtree width sums let the tree answer "what is the local
// offset of this node" and "which nodes touch this local offset" in
// logarithmic time, while keys answer range queries over the logical
// position space. Items are never removed: the document model keeps
// tombstones forever and only shrinks them to zero width.
package ostree

import (
	"fmt"
	"iter"

	"go.uber.org/multierr"
)

// Tree is an order-statistic AVL tree. Not safe for concurrent use.
type Tree[T any] struct {
	root *Node[T]
	cmp  func(a, b T) int
	size int
}

// Node is a tree node owning one item.
type Node[T any] struct {
	Item T

	parent, left, right *Node[T]
	height              int
	width               int
	sum                 int
}

// New creates an empty tree with the given key comparator.
func New[T any](cmp func(a, b T) int) *Tree[T] {
	return &Tree[T]{cmp: cmp}
}

// Len returns the number of nodes.
func (t *Tree[T]) Len() int {
	return t.size
}

// Total returns the sum of all widths: the local document length.
func (t *Tree[T]) Total() int {
	return sum(t.root)
}

func height[T any](n *Node[T]) int {
	if n == nil {
		return 0
	}
	return n.height
}

func sum[T any](n *Node[T]) int {
	if n == nil {
		return 0
	}
	return n.sum
}

func (n *Node[T]) update() {
	n.height = 1 + max(height(n.left), height(n.right))
	n.sum = n.width + sum(n.left) + sum(n.right)
}

// Width returns the node's own width.
func (n *Node[T]) Width() int {
	return n.width
}

// Offset returns the sum of widths of all in-order predecessors: the
// node's local document start.
func (n *Node[T]) Offset() int {
	o := sum(n.left)
	for c := n; c.parent != nil; c = c.parent {
		if c == c.parent.right {
			o += c.parent.width + sum(c.parent.left)
		}
	}
	return o
}

// Add inserts an item with the given width. Inserting a duplicate key is
// a programmer error and returns an error with the tree left unchanged.
func (t *Tree[T]) Add(item T, width int) (*Node[T], error) {
	n := &Node[T]{Item: item, height: 1, width: width, sum: width}

	if t.root == nil {
		t.root = n
		t.size++
		return n, nil
	}

	cur := t.root
	for {
		switch c := t.cmp(item, cur.Item); {
		case c == 0:
			return nil, fmt.Errorf("duplicate key in ordered tree")
		case c < 0:
			if cur.left == nil {
				cur.left = n
				n.parent = cur
				t.size++
				t.rebalance(cur)
				return n, nil
			}
			cur = cur.left
		default:
			if cur.right == nil {
				cur.right = n
				n.parent = cur
				t.size++
				t.rebalance(cur)
				return n, nil
			}
			cur = cur.right
		}
	}
}

// SetWidth changes the node's width, shifting the local offsets of all
// its successors by the difference.
func (t *Tree[T]) SetWidth(n *Node[T], w int) {
	delta := w - n.width
	if delta == 0 {
		return
	}
	n.width = w
	for c := n; c != nil; c = c.parent {
		c.sum += delta
	}
}

func (t *Tree[T]) rotateLeft(x *Node[T]) *Node[T] {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x.parent.left == x:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
	x.update()
	y.update()
	return y
}

func (t *Tree[T]) rotateRight(x *Node[T]) *Node[T] {
	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x.parent.left == x:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.right = x
	x.parent = y
	x.update()
	y.update()
	return y
}

func (t *Tree[T]) rebalance(n *Node[T]) {
	for n != nil {
		n.update()
		switch bf := height(n.left) - height(n.right); {
		case bf > 1:
			if height(n.left.left) < height(n.left.right) {
				t.rotateLeft(n.left)
			}
			n = t.rotateRight(n)
		case bf < -1:
			if height(n.right.right) < height(n.right.left) {
				t.rotateRight(n.right)
			}
			n = t.rotateLeft(n)
		}
		n = n.parent
	}
}

// First returns the leftmost node, or nil for an empty tree.
func (t *Tree[T]) First() *Node[T] {
	n := t.root
	if n == nil {
		return nil
	}
	for n.left != nil {
		n = n.left
	}
	return n
}

// Last returns the rightmost node, or nil for an empty tree.
func (t *Tree[T]) Last() *Node[T] {
	n := t.root
	if n == nil {
		return nil
	}
	for n.right != nil {
		n = n.right
	}
	return n
}

// Next returns the in-order successor.
func (n *Node[T]) Next() *Node[T] {
	if n.right != nil {
		c := n.right
		for c.left != nil {
			c = c.left
		}
		return c
	}
	c := n
	for c.parent != nil && c.parent.right == c {
		c = c.parent
	}
	return c.parent
}

// Prev returns the in-order predecessor.
func (n *Node[T]) Prev() *Node[T] {
	if n.left != nil {
		c := n.left
		for c.right != nil {
			c = c.right
		}
		return c
	}
	c := n
	for c.parent != nil && c.parent.left == c {
		c = c.parent
	}
	return c.parent
}

// InOrder iterates over all nodes in key order.
func (t *Tree[T]) InOrder() iter.Seq[*Node[T]] {
	return func(yield func(*Node[T]) bool) {
		for n := t.First(); n != nil; n = n.Next() {
			if !yield(n) {
				return
			}
		}
	}
}

// Buckets is the result of a range search.
type Buckets[T any] struct {
	// Lesser is the closest node strictly before the range, if any.
	Lesser []*Node[T]
	// Range holds all nodes within the range in key order.
	Range []*Node[T]
	// Greater is the closest node strictly after the range, if any.
	Greater []*Node[T]
}

// RangeSearch buckets nodes around a key range. The range is described
// by rel, which must be monotone over the key order: negative for keys
// before the range, zero inside it, positive after it.
func (t *Tree[T]) RangeSearch(rel func(T) int) Buckets[T] {
	var b Buckets[T]

	for n := t.root; n != nil; {
		if rel(n.Item) < 0 {
			if len(b.Lesser) == 0 {
				b.Lesser = append(b.Lesser, n)
			} else {
				b.Lesser[0] = n
			}
			n = n.right
		} else {
			n = n.left
		}
	}

	for n := t.root; n != nil; {
		if rel(n.Item) > 0 {
			if len(b.Greater) == 0 {
				b.Greater = append(b.Greater, n)
			} else {
				b.Greater[0] = n
			}
			n = n.left
		} else {
			n = n.right
		}
	}

	var collect func(n *Node[T])
	collect = func(n *Node[T]) {
		if n == nil {
			return
		}
		switch c := rel(n.Item); {
		case c < 0:
			collect(n.right)
		case c > 0:
			collect(n.left)
		default:
			collect(n.left)
			b.Range = append(b.Range, n)
			collect(n.right)
		}
	}
	collect(t.root)

	return b
}

// OffsetSearch returns the nodes around a local offset: touching holds
// nodes that span or end at the offset (their start is strictly before
// it and their end at or after it), anchored holds nodes that start
// exactly at the offset.
func (t *Tree[T]) OffsetSearch(off int) (touching, anchored []*Node[T]) {
	// Leftmost node whose end reaches off.
	var first *Node[T]
	acc := 0
	for n := t.root; n != nil; {
		start := acc + sum(n.left)
		if start+n.width >= off {
			first = n
			n = n.left
		} else {
			acc = start + n.width
			n = n.right
		}
	}

	for n := first; n != nil; n = n.Next() {
		s := n.Offset()
		if s > off {
			break
		}
		switch e := s + n.width; {
		case s < off && e >= off:
			touching = append(touching, n)
		case s == off:
			anchored = append(anchored, n)
		}
	}
	return touching, anchored
}

// SelfTest verifies the tree shape and the augmented sums.
func (t *Tree[T]) SelfTest() error {
	var err error
	var prev *Node[T]

	var walk func(n *Node[T]) (h, s int)
	walk = func(n *Node[T]) (int, int) {
		if n == nil {
			return 0, 0
		}

		lh, ls := walk(n.left)

		if prev != nil && t.cmp(prev.Item, n.Item) >= 0 {
			err = multierr.Append(err, fmt.Errorf("tree order violated around %v", n.Item))
		}
		prev = n

		rh, rs := walk(n.right)

		if n.left != nil && n.left.parent != n {
			err = multierr.Append(err, fmt.Errorf("broken parent link on left child of %v", n.Item))
		}
		if n.right != nil && n.right.parent != n {
			err = multierr.Append(err, fmt.Errorf("broken parent link on right child of %v", n.Item))
		}

		h := 1 + max(lh, rh)
		if n.height != h {
			err = multierr.Append(err, fmt.Errorf("stale height on %v: have %d, want %d", n.Item, n.height, h))
		}
		if lh-rh > 1 || rh-lh > 1 {
			err = multierr.Append(err, fmt.Errorf("unbalanced subtree at %v", n.Item))
		}

		s := n.width + ls + rs
		if n.sum != s {
			err = multierr.Append(err, fmt.Errorf("stale width sum on %v: have %d, want %d", n.Item, n.sum, s))
		}
		return h, s
	}

	if t.root != nil && t.root.parent != nil {
		err = multierr.Append(err, fmt.Errorf("root has a parent"))
	}
	walk(t.root)
	return err
}
