package listmodel

import (
	"fmt"

	"go.uber.org/zap"

	"anchordoc/position"
	"anchordoc/util/bigint"
)

// RemoveLogoot retypes the runs covering [start, start+length) into
// tombstones at the given clock and returns the local operations to
// apply. Runs with a higher clock survive (a concurrent re-insertion
// won), and runs nested deeper than the removed level are left alone:
// the removal was issued against a flat stretch and says nothing about
// content concurrently inserted inside it.
func (d *Document) RemoveLogoot(start position.Position, length int, clk bigint.Int) ([]Operation, error) {
	if start == nil {
		return nil, fmt.Errorf("%w: removal start is required", ErrInvalidArgument)
	}
	if length <= 0 {
		return nil, fmt.Errorf("%w: removal length %d", ErrInvalidArgument, length)
	}
	end := start.OffsetLowest(length)

	d.log.Debug("RemoveLogoot",
		zap.Stringer("start", start),
		zap.Int("length", length),
		zap.String("clk", clk.String()))

	buckets := d.tree.RangeSearch(func(n *AnchorNode) int {
		if n.start.Cmp(start, d.bo) < 0 {
			return -1
		}
		if n.start.Cmp(end, d.bo) >= 0 {
			return +1
		}
		return 0
	})

	nodes := make([]*AnchorNode, 0, len(buckets.Range)+2)
	for _, tn := range buckets.Lesser {
		nodes = append(nodes, tn.Item)
	}
	for _, tn := range buckets.Range {
		nodes = append(nodes, tn.Item)
	}
	for _, tn := range buckets.Greater {
		nodes = append(nodes, tn.Item)
	}

	groups := d.sliceIntoRanges([]position.Position{start, end}, nodes)
	lesser, rm, greater := groups[0], groups[1], groups[2]

	buf := &opBuffer{d: d}
	for _, n := range rm {
		if n.clock.Cmp(clk) > 0 || n.start.Len() != start.Len() {
			continue
		}
		buf.remove(n)
		n.typ = RemovalNode
		n.clock = clk
	}

	// Pull adjacent tombstones into the patch range so anchors can
	// settle through them.
	for len(lesser) > 0 && lesser[0].typ == RemovalNode {
		p := lesser[0].tnode.Prev()
		if p == nil {
			break
		}
		lesser = append([]*AnchorNode{p.Item}, lesser...)
	}
	for len(greater) > 0 && greater[len(greater)-1].typ == RemovalNode {
		nx := greater[len(greater)-1].tnode.Next()
		if nx == nil {
			break
		}
		greater = append(greater, nx.Item)
	}

	full := make([]*AnchorNode, 0, len(lesser)+len(rm)+len(greater))
	full = append(full, lesser...)
	full = append(full, rm...)
	full = append(full, greater...)

	d.patchNewRemovalAnchors(full)
	d.patchRemovalAnchors(full)

	return buf.ops, nil
}

// patchNewRemovalAnchors settles the anchors of freshly created
// tombstones against the live runs around them: where a live node's
// anchor stops exactly at a tombstone's edge, the tombstone gives up its
// own anchor claim over the live node, and conflict records the live
// node no longer justifies are dropped.
func (d *Document) patchNewRemovalAnchors(nodes []*AnchorNode) {
	var removals []*AnchorNode

	scan := scanSet(nil)
	for _, n := range nodes {
		if n.typ == DataNode {
			scan = scanSet(n)
			continue
		}
		if n.typ != RemovalNode {
			continue
		}
		removals = append(removals, n)
		for s := range scan.All() {
			tr := s.trueRight()
			if tr == nil || tr.Cmp(n.start, d.bo) != 0 {
				continue
			}
			n.reduceLeft(d, s.End())
			for _, r := range removals {
				if r != n && r.conflict.Has(s) && !d.conflictHolds(s, r) {
					r.conflict.Delete(s)
				}
			}
		}
	}

	removals = removals[:0]
	scan = scanSet(nil)
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.typ == DataNode {
			scan = scanSet(n)
			continue
		}
		if n.typ != RemovalNode {
			continue
		}
		removals = append(removals, n)
		for s := range scan.All() {
			tl := s.trueLeft()
			if tl == nil || tl.Cmp(n.End(), d.bo) != 0 {
				continue
			}
			n.reduceRight(d, s.start)
			for _, r := range removals {
				if r != n && r.conflict.Has(s) && !d.conflictHolds(s, r) {
					r.conflict.Delete(s)
				}
			}
		}
	}
}
