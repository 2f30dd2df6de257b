package listmodel

import (
	"anchordoc/util/colx"
)

// updateNeighborConflicts updates n's conflict set for the already
// placed neighbour last and reports whether the two conflict. A false
// result lets sweeps cut off: if last doesn't reach n, it reaches
// nothing farther away on the same side either.
func (d *Document) updateNeighborConflicts(n, last *AnchorNode) bool {
	if n == last {
		return true
	}
	if d.conflictHolds(last, n) {
		n.conflict.Put(last)
		return true
	}
	n.conflict.Delete(last)
	return false
}

// scanSet builds the patch-pass scan set seeded from a neighbour: the
// node itself plus the live nodes it conflicts with. Tombstones are
// transparent for visibility, so only data nodes scan.
func scanSet(seed *AnchorNode) colx.Set[*AnchorNode] {
	scan := colx.Set[*AnchorNode]{}
	if seed == nil {
		return scan
	}
	if seed.typ == DataNode {
		scan.Put(seed)
	}
	for m := range seed.conflict.All() {
		if m.typ == DataNode {
			scan.Put(m)
		}
	}
	return scan
}

// fillRangeConflicts records conflicts between a freshly filled run and
// its logical neighbourhood: every scanned left neighbour is swept
// forward across the filled nodes, every scanned right neighbour
// backward, stopping as soon as a neighbour's anchor no longer reaches.
func (d *Document) fillRangeConflicts(scanL, scanR []*AnchorNode, filled []*AnchorNode) {
	for _, s := range scanL {
		for _, n := range filled {
			if !d.updateNeighborConflicts(n, s) {
				break
			}
		}
	}
	for _, s := range scanR {
		for i := len(filled) - 1; i >= 0; i-- {
			if !d.updateNeighborConflicts(filled[i], s) {
				break
			}
		}
	}
}

// patchRemovalAnchors repairs anchor visibility through tombstones: a
// data node's anchor extends through any tombstone it lands in, so that
// removing a neighbour never makes two formerly conflicting runs look
// disjoint. The pass runs forward over right anchors and backward over
// left anchors.
//
// The scan carries live nodes whose anchor might still reach the nodes
// ahead. At a tombstone, an anchor strictly inside it is pulled to its
// far edge; an anchor at or past the far edge only records the conflict;
// an anchor that never reached drops out of the scan.
func (d *Document) patchRemovalAnchors(nodes []*AnchorNode) {
	scan := colx.Set[*AnchorNode]{}
	for _, n := range nodes {
		if n.typ == DataNode {
			for s := range scan.All() {
				if s == n {
					continue
				}
				if tr := s.trueRight(); tr == nil || tr.Cmp(n.start, d.bo) > 0 {
					n.conflict.Put(s)
				}
			}
			scan = scanSet(n)
			for s := range scan.All() {
				if s.trueRight() == nil {
					scan.Delete(s)
				}
			}
			continue
		}
		if n.typ != RemovalNode {
			continue
		}
		nEnd := n.End()
		for s := range scan.All() {
			apos := s.trueRight()
			switch {
			case apos.Cmp(n.start, d.bo) <= 0:
				scan.Delete(s)
			case apos.Cmp(nEnd, d.bo) < 0:
				s.right = nEnd.Copy()
				n.conflict.Put(s)
			default:
				n.conflict.Put(s)
			}
		}
	}

	scan = colx.Set[*AnchorNode]{}
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.typ == DataNode {
			for s := range scan.All() {
				if s == n {
					continue
				}
				if tl := s.trueLeft(); tl == nil || tl.Cmp(n.End(), d.bo) < 0 {
					n.conflict.Put(s)
				}
			}
			scan = scanSet(n)
			for s := range scan.All() {
				if s.trueLeft() == nil {
					scan.Delete(s)
				}
			}
			continue
		}
		if n.typ != RemovalNode {
			continue
		}
		for s := range scan.All() {
			apos := s.trueLeft()
			switch {
			case apos.Cmp(n.End(), d.bo) >= 0:
				scan.Delete(s)
			case apos.Cmp(n.start, d.bo) > 0:
				s.left = n.start.Copy()
				n.conflict.Put(s)
			default:
				n.conflict.Put(s)
			}
		}
	}
}
