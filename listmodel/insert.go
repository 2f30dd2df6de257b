package listmodel

import (
	"fmt"

	"go.uber.org/zap"

	"anchordoc/branchorder"
	"anchordoc/position"
	"anchordoc/util/bigint"
)

// InsertLogoot integrates a run of length elements on the given branch
// between the logical neighbours left and right (nil meaning the
// document edges) at the given clock, and returns the local operations
// to apply. The call is idempotent: replaying an identical envelope
// yields a remove/insert pair that cancels out on the caller's buffer.
func (d *Document) InsertLogoot(
	br branchorder.Branch,
	left, right position.Position,
	length int,
	clk bigint.Int,
) ([]Operation, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: insertion length %d", ErrInvalidArgument, length)
	}
	d.bo.Register(br)

	start, err := position.NewBetween(d.bo, br, length, left, right)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	end := start.OffsetLowest(length)

	d.log.Debug("InsertLogoot",
		zap.String("branch", string(br)),
		zap.Stringer("start", start),
		zap.Int("length", length),
		zap.String("clk", clk.String()))

	// Collect the neighbourhood: everything from just before the left
	// anchor through the right anchor, so a run ending exactly at left
	// is seen too.
	var lo position.Position
	if left != nil {
		lo = left.InverseOffsetLowest(1)
	}
	buckets := d.tree.RangeSearch(func(n *AnchorNode) int {
		if lo != nil && n.start.Cmp(lo, d.bo) <= 0 {
			return -1
		}
		if right != nil && n.start.Cmp(right, d.bo) > 0 {
			return +1
		}
		return 0
	})

	var lesserEdge *AnchorNode
	nodes := make([]*AnchorNode, 0, len(buckets.Range)+2)
	for _, tn := range buckets.Lesser {
		lesserEdge = tn.Item
		nodes = append(nodes, tn.Item)
	}
	for _, tn := range buckets.Range {
		nodes = append(nodes, tn.Item)
	}
	for _, tn := range buckets.Greater {
		nodes = append(nodes, tn.Item)
	}

	// Slice at the anchor and run boundaries. Point insertions generate
	// below their left bound, and the bounds list must stay ascending.
	b0 := left
	if b0 == nil || b0.Cmp(start, d.bo) > 0 {
		b0 = start
	}
	b3 := right
	if b3 == nil || b3.Cmp(end, d.bo) < 0 {
		b3 = end
	}
	groups := d.sliceIntoRanges([]position.Position{b0, start, end, b3}, nodes)
	alc, ncLeft, skip, ncRight, arc := groups[0], groups[1], groups[2], groups[3], groups[4]
	if left == nil {
		ncLeft = append(alc, ncLeft...)
		alc = nil
	}
	if right == nil {
		ncRight = append(ncRight, arc...)
		arc = nil
	}

	// The outer anchors resolve to data runs abutting the interval
	// exactly; anything else in the edge groups is mere neighbourhood.
	var anchorLeft, anchorRight *AnchorNode
	for i := len(alc) - 1; i >= 0; i-- {
		if n := alc[i]; n.typ == DataNode && left != nil && n.End().Cmp(left, d.bo) == 0 {
			anchorLeft = n
			break
		}
	}
	for _, n := range arc {
		if n.typ == DataNode && right != nil && n.start.Cmp(right, d.bo) == 0 {
			anchorRight = n
			break
		}
	}

	buf := &opBuffer{d: d}

	// A dummy terminator gives the fill walk a stable end marker (and
	// the operation buffer a stable local offset) when nothing in the
	// document reaches the run's end yet.
	if len(skip) == 0 || skip[len(skip)-1].End().Cmp(end, d.bo) != 0 {
		dummy := &AnchorNode{
			start: end.Copy(),
			typ:   DummyNode,
			clock: clk,
			value: d.dummyOffset(skip, ncRight, ncLeft, lesserEdge),
		}
		skip = append(skip, dummy)
		buf.dummy = dummy
	}

	filled, extras := d.fillSkipRanges(buf, skip, start, length, clk)

	// Chain the filled runs' anchors between the outer bounds. Fresh
	// nodes start life anchored to the document edges; everything here
	// only moves anchors inward.
	for i, n := range filled {
		if i == 0 {
			if left != nil {
				n.reduceLeft(d, b0)
			}
		} else {
			prev := filled[i-1]
			n.reduceLeft(d, prev.End())
			prev.reduceRight(d, n.start)
		}
	}
	if len(filled) > 0 && right != nil {
		filled[len(filled)-1].reduceRight(d, b3)
	}

	var nlLesser, nlGreater *AnchorNode
	if len(ncLeft) > 0 {
		nlLesser = ncLeft[len(ncLeft)-1]
	} else {
		nlLesser = anchorLeft
	}
	if len(ncRight) > 0 {
		nlGreater = ncRight[0]
	} else {
		nlGreater = anchorRight
	}

	if len(filled) > 0 {
		first, last := filled[0], filled[len(filled)-1]

		// Live left neighbours cap the first filled node's reach, and
		// symmetrically on the right.
		scanL := d.sideScan(nlLesser, first.start, true)
		for _, s := range scanL {
			e := s.End()
			if e.Cmp(first.start, d.bo) > 0 {
				e = first.start
			}
			first.reduceLeft(d, e)
		}
		scanR := d.sideScan(nlGreater, last.End(), false)
		for _, s := range scanR {
			p := s.start
			if p.Cmp(last.End(), d.bo) < 0 {
				p = last.End()
			}
			last.reduceRight(d, p)
		}

		d.fillRangeConflicts(scanL, scanR, filled)

		// Neighbourhood nodes whose runs reach past the filled range's
		// anchors see the nearest filled node as a conflict. Nested
		// neighbours make run ends non-monotone, so the whole group is
		// reconciled instead of cutting the walk short.
		for i := len(ncLeft) - 1; i >= 0; i-- {
			d.updateNeighborConflicts(ncLeft[i], first)
		}
		for _, n := range ncRight {
			d.updateNeighborConflicts(n, last)
		}

		// Skip-range survivors and same-level siblings from concurrent
		// branches overlap the filled run by construction. Where a
		// filled run reaches into a sibling, the sibling's facing anchor
		// pulls tight to its own edge — the replica that integrated the
		// two runs in the opposite order did the same through the
		// neighbour tighten above. Then reconcile conflict memberships
		// both ways by the anchor rule.
		for _, s := range extras {
			for _, f := range filled {
				if f.start.Cmp(s.start, d.bo) < 0 {
					if f.End().Cmp(s.start, d.bo) > 0 {
						s.reduceLeft(d, s.start)
					}
				} else if f.start.Cmp(s.End(), d.bo) < 0 {
					s.reduceRight(d, s.End())
				}
				d.updateNeighborConflicts(f, s)
				d.updateNeighborConflicts(s, f)
			}
		}
	}

	// The outer data anchors no longer reach into the interval: their
	// facing anchors stop at the new run, and stale conflict records
	// pointing at them are cleared.
	if anchorLeft != nil {
		anchorLeft.reduceRight(d, start)
		for tn := anchorLeft.tnode.Next(); tn != nil; tn = tn.Next() {
			if !tn.Item.conflict.Has(anchorLeft) {
				break
			}
			tn.Item.conflict.Delete(anchorLeft)
		}
	}
	if anchorRight != nil {
		anchorRight.reduceLeft(d, end)
		for tn := anchorRight.tnode.Prev(); tn != nil; tn = tn.Prev() {
			if !tn.Item.conflict.Has(anchorRight) {
				break
			}
			tn.Item.conflict.Delete(anchorRight)
		}
	}

	comp := make([]*AnchorNode, 0, len(filled)+2)
	if nlLesser != nil {
		comp = append(comp, nlLesser)
	}
	comp = append(comp, filled...)
	if nlGreater != nil {
		comp = append(comp, nlGreater)
	}
	d.patchRemovalAnchors(comp)

	return buf.ops, nil
}

// dummyOffset picks the local offset for a dummy terminator next to the
// closest known neighbour: right after a preceding one, or at the start
// of the first following one.
func (d *Document) dummyOffset(skip, ncRight, ncLeft []*AnchorNode, lesserEdge *AnchorNode) int {
	switch {
	case len(skip) > 0:
		return skip[len(skip)-1].LdocEnd()
	case len(ncRight) > 0:
		return ncRight[0].LdocStart()
	case len(ncLeft) > 0:
		return ncLeft[len(ncLeft)-1].LdocEnd()
	case lesserEdge != nil:
		return lesserEdge.LdocEnd()
	default:
		return 0
	}
}

// sideScan seeds a conflict scan from a neighbour: the neighbour itself
// plus its live conflicts, restricted to the requested side of the
// filled range.
func (d *Document) sideScan(seed *AnchorNode, edge position.Position, leftSide bool) []*AnchorNode {
	if seed == nil {
		return nil
	}
	var out []*AnchorNode
	keep := func(n *AnchorNode) bool {
		if n.typ != DataNode {
			return false
		}
		if leftSide {
			return n.start.Cmp(edge, d.bo) < 0
		}
		return n.start.Cmp(edge, d.bo) >= 0
	}
	for m := range seed.conflict.All() {
		if keep(m) {
			out = append(out, m)
		}
	}
	if keep(seed) {
		out = append(out, seed)
	} else if seed.typ == RemovalNode {
		// A tombstone neighbour still participates in the sweep: its
		// surviving anchors decide whether it reads as conflicting.
		out = append(out, seed)
	}
	return out
}

// fillSkipRanges walks the nodes overlapping [start, end) and fills the
// gaps between them with fresh data runs, reusing nodes that already
// carry the run's positions when the clock allows. It returns the nodes
// now making up the run in order, plus the overlapping nodes that were
// left alone (higher-clock survivors, concurrent same-level siblings,
// nested runs).
func (d *Document) fillSkipRanges(
	buf *opBuffer,
	skip []*AnchorNode,
	start position.Position,
	length int,
	clk bigint.Int,
) (filled, extras []*AnchorNode) {
	level := start.Len()
	branch := start.Lowest().Branch

	lastOff := 0
	queue := skip
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		gapEnd := position.RunSplitOffset(d.bo, start, length, n.start)
		if n.typ == DummyNode {
			gapEnd = length
		}
		if gapEnd > lastOff {
			fresh := &AnchorNode{
				start:  start.OffsetLowest(lastOff),
				length: gapEnd - lastOff,
				typ:    DataNode,
				clock:  clk,
			}
			d.addNode(fresh)
			buf.insert(fresh, lastOff)
			filled = append(filled, fresh)
			lastOff = gapEnd
		}
		if n.typ == DummyNode {
			continue
		}

		if n.start.Len() == level && n.start.Lowest().Branch == branch {
			// This node occupies a stretch of the run's own positions:
			// either an earlier delivery of the same insertion or a
			// removal of it. The higher clock wins; on a tie the
			// insertion is reasserted, which makes replays idempotent.
			if n.clock.Cmp(clk) <= 0 {
				buf.remove(n)
				n.typ = DataNode
				n.clock = clk
				buf.insert(n, gapEnd)
				filled = append(filled, n)
			} else {
				extras = append(extras, n)
			}
			lastOff = gapEnd + n.length
			continue
		}

		if n.start.Len() == level && lastOff < length {
			// A same-level sibling from a concurrent branch. Where the
			// run's next atom falls inside the sibling, the sibling is
			// split so both replicas materialize the same node order.
			p := start.OffsetLowest(lastOff)
			if soff := position.RunSplitOffset(d.bo, n.start, n.length, p); soff > 0 && soff < n.length {
				right := d.splitNode(n, soff)
				queue = append([]*AnchorNode{right}, queue...)
			}
		}
		extras = append(extras, n)
	}

	return filled, extras
}
